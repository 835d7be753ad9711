package catalogservice

import "github.com/shopspring/decimal"

// Service услуга из каталога
type Service struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	BasePrice  decimal.Decimal `json:"base_price"`
	QuoteFirst bool            `json:"quote_first"` // цена согласуется вручную до оплаты
	Active     bool            `json:"active"`
}

// Vehicle тип транспорта с надбавкой к цене
type Vehicle struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Channel канал продаж
type Channel struct {
	Code                  string `json:"code"`
	ManualPaymentEligible bool   `json:"manual_payment_eligible"`
}

// ErrorResponse модель ошибки от CatalogService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
