// Package pricing считает денежную разбивку бронирования.
// Функции пакета чистые и никогда не возвращают ошибок: некорректные значения
// приводятся к нулю, валидация входных данных выполняется выше.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/pkg/types"
)

// CommissionRate комиссия платёжного провайдера, начисляемая при генерации цены
var CommissionRate = decimal.RequireFromString("0.06")

// NightSurchargeConfig окно ночной надбавки [Start, End).
// Если Start > End, окно переходит через полночь. Start == End выключает надбавку
type NightSurchargeConfig struct {
	Start    types.TimeString
	End      types.TimeString
	Amount   decimal.Decimal
	Location *time.Location
}

// Applies проверяет, попадает ли момент времени в окно надбавки
func (c NightSurchargeConfig) Applies(at time.Time) bool {
	if c.Start.IsZero() || c.End.IsZero() || c.Start == c.End {
		return false
	}
	if c.Location != nil {
		at = at.In(c.Location)
	}

	minute := types.MinutesOfDay(at)
	start, end := c.Start.Minutes(), c.End.Minutes()

	if start < end {
		return minute >= start && minute < end
	}
	// Окно через полночь: [start, 24:00) ∪ [00:00, end)
	return minute >= start || minute < end
}

// Input входные данные для расчёта разбивки
type Input struct {
	BasePrice        decimal.Decimal
	VehiclePrice     decimal.Decimal
	Municipality     string
	NightSurcharge   NightSurchargeConfig
	CurrentTime      time.Time
	AllyDiscount     decimal.Decimal
	AdditionalsTotal decimal.Decimal
	Method           domain.PaymentMethod
}

// ComputeBreakdown считает полную разбивку.
// Итог всегда пересчитывается из компонентов, комиссия добавляется только для PROVIDER
func ComputeBreakdown(in Input) domain.Breakdown {
	base := clamp(in.BasePrice)
	vehicle := clamp(in.VehiclePrice)
	additionals := clamp(in.AdditionalsTotal)
	discount := clamp(in.AllyDiscount)

	fee, known := MunicipalityFee(in.Municipality)

	night := decimal.Zero
	if in.NightSurcharge.Applies(in.CurrentTime) {
		night = clamp(in.NightSurcharge.Amount)
	}

	subtotal := base.Add(vehicle).Add(additionals)
	total := clamp(subtotal.Add(fee).Add(night).Sub(discount))

	commission := decimal.Zero
	if in.Method == domain.MethodProvider {
		commission = RoundAmount(subtotal.Mul(CommissionRate))
		total = total.Add(commission)
	}

	return domain.Breakdown{
		BasePrice:           base,
		VehiclePrice:        vehicle,
		AdditionalsTotal:    additionals,
		MunicipalityFee:     fee,
		NightSurcharge:      night,
		AllyDiscount:        discount,
		Commission:          commission,
		Total:               total,
		RequiresManualQuote: !known,
	}
}

// RoundAmount округляет до целых единиц валюты (half-up для неотрицательных сумм)
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

func clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Engine считает разбивку для сохранённых бронирований с учётом конфигурации надбавок
type Engine struct {
	night NightSurchargeConfig
}

// NewEngine создает движок расчёта цены
func NewEngine(night NightSurchargeConfig) *Engine {
	return &Engine{night: night}
}

// Compute считает разбивку для новых входных данных
func (e *Engine) Compute(inputs domain.PricingInputs, municipality string, method domain.PaymentMethod) domain.Breakdown {
	return ComputeBreakdown(Input{
		BasePrice:        inputs.BasePrice,
		VehiclePrice:     inputs.VehiclePrice,
		Municipality:     municipality,
		NightSurcharge:   e.night,
		CurrentTime:      inputs.PricedAt,
		AllyDiscount:     inputs.AllyDiscount,
		AdditionalsTotal: inputs.AdditionalsTotal,
		Method:           method,
	})
}

// ForBooking пересчитывает разбивку бронирования под указанный способ оплаты
func (e *Engine) ForBooking(b *domain.Booking, method domain.PaymentMethod) domain.Breakdown {
	return e.Compute(b.Pricing, b.Municipality, method)
}
