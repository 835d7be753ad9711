package switch_payment_method

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/internal/service/pricing"
	"github.com/m04kA/SMC-ReservationService/internal/service/signature"
	"github.com/m04kA/SMC-ReservationService/internal/testutil"
	"github.com/m04kA/SMC-ReservationService/pkg/logger"
)

type fixture struct {
	store    *testutil.Store
	notifier *testutil.Notifier
	signer   *signature.Signer
	uc       *UseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	signer, err := signature.NewSigner(signature.ModeSandbox, "sandbox-secret", "")
	require.NoError(t, err)

	f := &fixture{store: testutil.NewStore(), notifier: &testutil.Notifier{}, signer: signer}
	f.uc = NewUseCase(
		f.store.Bookings(),
		pricing.NewEngine(pricing.NightSurchargeConfig{Start: "21:00", End: "05:00", Amount: decimal.NewFromInt(20000)}),
		signer,
		f.notifier,
		f.store.TxManager(),
		logger.NewNop(),
	)
	return f
}

func (f *fixture) put(code string, state domain.LifecycleState) *domain.Booking {
	b := testutil.NewBooking(code, state, domain.PaymentPending)
	f.signer.Refresh(b)
	return f.store.PutBooking(b)
}

func TestSwitch_ToCash(t *testing.T) {
	f := newFixture(t)
	f.put("RESABC123", domain.StateConfirmedPendingPayment)

	resp, err := f.uc.Execute(context.Background(), &Request{BookingCode: "RESABC123", Method: domain.MethodCash})
	require.NoError(t, err)
	assert.True(t, resp.Changed)

	b := f.store.Booking("RESABC123")
	assert.Equal(t, domain.MethodCash, b.PaymentMethod)
	assert.Equal(t, domain.StateConfirmedPendingAssignment, b.State)
	assert.True(t, b.Breakdown.Commission.IsZero())
	assert.True(t, decimal.NewFromInt(115000).Equal(b.Breakdown.Total), b.Breakdown.Total.String())
	assert.True(t, f.signer.Verify(b.Code, b.Breakdown.Total, b.Currency, b.Signature))
	assert.Equal(t, 1, f.store.PricingWrites)

	require.Equal(t, 1, f.notifier.Count())
	ev := f.notifier.Events[0]
	assert.Equal(t, domain.StateConfirmedPendingPayment, ev.PreviousState)
	assert.Equal(t, domain.StateConfirmedPendingAssignment, ev.NewState)
	assert.Equal(t, domain.SourceMethodSwitch, ev.Source)
}

func TestSwitch_CashTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.put("RESABC123", domain.StateConfirmedPendingPayment)

	_, err := f.uc.Execute(context.Background(), &Request{BookingCode: "RESABC123", Method: domain.MethodCash})
	require.NoError(t, err)

	resp, err := f.uc.Execute(context.Background(), &Request{BookingCode: "resabc123", Method: domain.MethodCash})
	require.NoError(t, err)
	assert.False(t, resp.Changed)
	assert.Equal(t, domain.StateConfirmedPendingAssignment, resp.Booking.State)
	assert.Equal(t, 1, f.store.PricingWrites)
	assert.Equal(t, 1, f.notifier.Count())
}

func TestSwitch_ProviderAgainRepairsStaleSignature(t *testing.T) {
	f := newFixture(t)
	b := testutil.NewBooking("RESABC123", domain.StateConfirmedPendingPayment, domain.PaymentPending)
	b.Signature = "stale"
	f.store.PutBooking(b)

	resp, err := f.uc.Execute(context.Background(), &Request{BookingCode: "RESABC123", Method: domain.MethodProvider})
	require.NoError(t, err)
	assert.False(t, resp.Changed)
	assert.Equal(t, 1, f.store.SignatureWrites)

	stored := f.store.Booking("RESABC123")
	assert.True(t, f.signer.Verify(stored.Code, stored.Breakdown.Total, stored.Currency, stored.Signature))
}

func TestSwitch_BackToProviderRestoresCommission(t *testing.T) {
	f := newFixture(t)
	b := testutil.NewBooking("RESABC123", domain.StateConfirmedPendingPayment, domain.PaymentPending)
	b.PaymentMethod = domain.MethodCash
	b.Breakdown.Commission = decimal.Zero
	b.Breakdown.Total = decimal.NewFromInt(115000)
	f.signer.Refresh(b)
	f.store.PutBooking(b)

	resp, err := f.uc.Execute(context.Background(), &Request{BookingCode: "RESABC123", Method: domain.MethodProvider})
	require.NoError(t, err)
	assert.True(t, resp.Changed)

	stored := f.store.Booking("RESABC123")
	assert.Equal(t, domain.StateConfirmedPendingPayment, stored.State)
	assert.True(t, decimal.NewFromInt(121000).Equal(stored.Breakdown.Total))
	assert.True(t, f.signer.Verify(stored.Code, decimal.NewFromInt(121000), "COP", stored.Signature))
	assert.Equal(t, 0, f.notifier.Count())
}

func TestSwitch_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(b *domain.Booking)
		wantErr error
	}{
		{"paid booking", func(b *domain.Booking) { b.State = domain.StatePaidPendingAssignment }, ErrInvalidState},
		{"quote stage", func(b *domain.Booking) { b.State = domain.StatePendingQuote }, ErrInvalidState},
		{"channel not eligible", func(b *domain.Booking) { b.ManualPaymentEligible = false }, ErrChannelNotEligible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			b := testutil.NewBooking("RESABC123", domain.StateConfirmedPendingPayment, domain.PaymentPending)
			tt.prepare(b)
			f.signer.Refresh(b)
			f.store.PutBooking(b)
			before := f.store.Booking("RESABC123")

			_, err := f.uc.Execute(context.Background(), &Request{BookingCode: "RESABC123", Method: domain.MethodCash})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

			after := f.store.Booking("RESABC123")
			assert.Equal(t, before.PaymentMethod, after.PaymentMethod)
			assert.Equal(t, before.State, after.State)
			assert.True(t, before.Breakdown.Total.Equal(after.Breakdown.Total))
			assert.Equal(t, 0, f.store.PricingWrites)
		})
	}
}

func TestSwitch_OrderMemberRejected(t *testing.T) {
	f := newFixture(t)
	f.store.PutOrder(&domain.Order{
		Code:     "PEDAAA111",
		Bookings: []*domain.Booking{testutil.NewBooking("RESAAA001", domain.StateConfirmedPendingPayment, domain.PaymentPending)},
	})

	_, err := f.uc.Execute(context.Background(), &Request{BookingCode: "RESAAA001", Method: domain.MethodCash})
	assert.ErrorIs(t, err, ErrOrderMember)
}

func TestSwitch_NightSurchargeRecomputedFromStoredInputs(t *testing.T) {
	f := newFixture(t)
	b := testutil.NewBooking("RESNIGHT1", domain.StateConfirmedPendingPayment, domain.PaymentPending)
	b.Pricing.PricedAt = time.Date(2025, 5, 20, 22, 30, 0, 0, time.UTC)
	f.store.PutBooking(b)

	_, err := f.uc.Execute(context.Background(), &Request{BookingCode: "RESNIGHT1", Method: domain.MethodCash})
	require.NoError(t, err)

	stored := f.store.Booking("RESNIGHT1")
	assert.True(t, decimal.NewFromInt(20000).Equal(stored.Breakdown.NightSurcharge))
	assert.True(t, decimal.NewFromInt(135000).Equal(stored.Breakdown.Total))
}

func TestSwitch_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Execute(context.Background(), &Request{BookingCode: "PEDAAA111", Method: domain.MethodCash})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.uc.Execute(context.Background(), &Request{BookingCode: "RESABC123", Method: "CARD"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.uc.Execute(context.Background(), &Request{BookingCode: "RESMISSING", Method: domain.MethodCash})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestSwitch_StorageFailure(t *testing.T) {
	f := newFixture(t)
	b := testutil.NewBooking("RESABC123", domain.StateConfirmedPendingPayment, domain.PaymentPending)
	b.Signature = "stale"
	f.store.PutBooking(b)
	f.store.FailUpdateSignature = errors.New("connection reset")

	_, err := f.uc.Execute(context.Background(), &Request{BookingCode: "RESABC123", Method: domain.MethodProvider})
	assert.ErrorIs(t, err, ErrInternal)
}
