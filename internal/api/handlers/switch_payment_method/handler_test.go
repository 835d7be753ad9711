package switch_payment_method

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	"github.com/m04kA/SMC-ReservationService/internal/service/pricing"
	"github.com/m04kA/SMC-ReservationService/internal/service/signature"
	"github.com/m04kA/SMC-ReservationService/internal/testutil"
	switchPaymentMethod "github.com/m04kA/SMC-ReservationService/internal/usecase/switch_payment_method"
	"github.com/m04kA/SMC-ReservationService/pkg/logger"
)

type fakeUseCase struct {
	got  *switchPaymentMethod.Request
	resp *switchPaymentMethod.Response
	err  error
}

func (f *fakeUseCase) Execute(_ context.Context, req *switchPaymentMethod.Request) (*switchPaymentMethod.Response, error) {
	f.got = req
	return f.resp, f.err
}

func patch(h *Handler, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/RES0A1B2C/payment-method", strings.NewReader(body))
	r = mux.SetURLVars(r, map[string]string{"code": "RES0A1B2C"})
	rec := httptest.NewRecorder()
	h.Handle(rec, r)
	return rec
}

func TestHandler_Switch(t *testing.T) {
	booking := testutil.NewBooking("RES0A1B2C", domain.StateConfirmedPendingAssignment, domain.PaymentPending)
	booking.PaymentMethod = domain.MethodCash
	uc := &fakeUseCase{resp: &switchPaymentMethod.Response{Booking: booking, Changed: true}}

	rec := patch(NewHandler(uc, logger.NewNop()), `{"paymentMethod":"CASH"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, uc.got)
	assert.Equal(t, "RES0A1B2C", uc.got.BookingCode)
	assert.Equal(t, domain.MethodCash, uc.got.Method)
	assert.Contains(t, rec.Body.String(), `"changed":true`)
}

func TestHandler_SwitchToCashThroughUseCase(t *testing.T) {
	signer, err := signature.NewSigner(signature.ModeSandbox, "sandbox-secret", "")
	require.NoError(t, err)

	store := testutil.NewStore()
	b := testutil.NewBooking("RES0A1B2C", domain.StateConfirmedPendingPayment, domain.PaymentPending)
	signer.Refresh(b)
	store.PutBooking(b)

	notifier := &testutil.Notifier{}
	uc := switchPaymentMethod.NewUseCase(
		store.Bookings(),
		pricing.NewEngine(pricing.NightSurchargeConfig{Start: "21:00", End: "05:00", Amount: decimal.NewFromInt(20000)}),
		signer,
		notifier,
		store.TxManager(),
		logger.NewNop(),
	)

	rec := patch(NewHandler(uc, logger.NewNop()), `{"paymentMethod":"CASH"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"state":"CONFIRMED_PENDING_ASSIGNMENT"`)

	var resp SwitchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Changed)
	require.NotNil(t, resp.Booking)
	assert.True(t, decimal.NewFromInt(115000).Equal(resp.Booking.Breakdown.Total), resp.Booking.Breakdown.Total.String())

	stored := store.Booking("RES0A1B2C")
	assert.Equal(t, domain.StateConfirmedPendingAssignment, stored.State)
	assert.Equal(t, domain.MethodCash, stored.PaymentMethod)
	assert.True(t, stored.Breakdown.Commission.IsZero())
	assert.True(t, decimal.NewFromInt(115000).Equal(stored.Breakdown.Total), stored.Breakdown.Total.String())
	assert.True(t, signer.Verify(stored.Code, stored.Breakdown.Total, stored.Currency, stored.Signature))
	assert.Equal(t, 1, notifier.Count())
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", switchPaymentMethod.ErrInvalidInput, http.StatusBadRequest},
		{"not found", switchPaymentMethod.ErrBookingNotFound, http.StatusNotFound},
		{"state", switchPaymentMethod.ErrInvalidState, http.StatusUnprocessableEntity},
		{"channel", switchPaymentMethod.ErrChannelNotEligible, http.StatusUnprocessableEntity},
		{"order member", switchPaymentMethod.ErrOrderMember, http.StatusUnprocessableEntity},
		{"illegal transition", fmt.Errorf("%w: CONFIRMED_PENDING_PAYMENT -> CONFIRMED_PENDING_ASSIGNMENT", switchPaymentMethod.ErrIllegalTransition), http.StatusConflict},
		{"conflict", switchPaymentMethod.ErrConcurrentModification, http.StatusConflict},
		{"internal", switchPaymentMethod.ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := patch(NewHandler(&fakeUseCase{err: tt.err}, logger.NewNop()), `{"paymentMethod":"CASH"}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandler_RejectsUnknownFields(t *testing.T) {
	uc := &fakeUseCase{}
	rec := patch(NewHandler(uc, logger.NewNop()), `{"paymentMethod":"CASH","total":"1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, uc.got)
}
