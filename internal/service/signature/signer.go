// Package signature вычисляет подпись целостности для платёжного провайдера.
package signature

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
)

// Mode режим интеграции с провайдером
type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeLive    Mode = "live"
)

// IsValid проверяет режим
func (m Mode) IsValid() bool {
	return m == ModeSandbox || m == ModeLive
}

var (
	ErrInvalidMode   = errors.New("signature: invalid integrity mode")
	ErrMissingSecret = errors.New("signature: secret for active mode is empty")
)

// Signer подписывает платёжные данные секретом активного режима.
// Секрет выбирается только конфигурацией, никогда содержимым запроса
type Signer struct {
	mode   Mode
	secret string
}

// NewSigner создает подписчика для указанного режима
func NewSigner(mode Mode, sandboxSecret, liveSecret string) (*Signer, error) {
	var secret string
	switch mode {
	case ModeSandbox:
		secret = sandboxSecret
	case ModeLive:
		secret = liveSecret
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingSecret, mode)
	}
	return &Signer{mode: mode, secret: secret}, nil
}

// Mode возвращает активный режим
func (s *Signer) Mode() Mode {
	return s.mode
}

// Sign вычисляет подпись активным секретом
func (s *Signer) Sign(orderCode string, amount decimal.Decimal, currency string) string {
	return Sign(orderCode, amount, currency, s.secret)
}

// Verify проверяет подпись активным секретом
func (s *Signer) Verify(orderCode string, amount decimal.Decimal, currency, digest string) bool {
	return Verify(orderCode, amount, currency, s.secret, digest)
}

// Refresh пересчитывает подпись бронирования.
// Возвращает true, если сохранённая подпись устарела и была заменена
func (s *Signer) Refresh(b *domain.Booking) bool {
	if s.Verify(b.Code, b.Breakdown.Total, b.Currency, b.Signature) {
		return false
	}
	b.Signature = s.Sign(b.Code, b.Breakdown.Total, b.Currency)
	return true
}

// RefreshOrder пересчитывает подпись заказа по его итоговой сумме
func (s *Signer) RefreshOrder(o *domain.Order) bool {
	if s.Verify(o.Code, o.TotalPrice, o.Currency, o.Signature) {
		return false
	}
	o.Signature = s.Sign(o.Code, o.TotalPrice, o.Currency)
	return true
}

// Sign: sha256(orderCode + round(amount) + currency + secret) в нижнем регистре hex
func Sign(orderCode string, amount decimal.Decimal, currency, secret string) string {
	payload := orderCode + amount.Round(0).String() + currency + secret
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Verify сравнивает подпись за постоянное время
func Verify(orderCode string, amount decimal.Decimal, currency, secret, digest string) bool {
	expected := Sign(orderCode, amount, currency, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(digest)) == 1
}
