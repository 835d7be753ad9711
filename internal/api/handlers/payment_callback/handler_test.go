package payment_callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ReservationService/internal/domain"
	reconcilePayment "github.com/m04kA/SMC-ReservationService/internal/usecase/reconcile_payment"
	"github.com/m04kA/SMC-ReservationService/pkg/logger"
)

type fakeUseCase struct {
	got *reconcilePayment.Request
	res *reconcilePayment.Result
	err error
}

func (f *fakeUseCase) Execute(_ context.Context, req *reconcilePayment.Request) (*reconcilePayment.Result, error) {
	f.got = req
	return f.res, f.err
}

func post(h *Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body)))
	return rec
}

func TestHandler_ReconcilesOrder(t *testing.T) {
	uc := &fakeUseCase{res: &reconcilePayment.Result{
		Kind:         domain.KindOrder,
		Code:         "PED0A1B2C",
		PaymentState: domain.PaymentApproved,
		Outcome:      reconcilePayment.OutcomeApplied,
		Transitions: []reconcilePayment.Transition{
			{BookingCode: "RES000001", From: domain.StateConfirmedPendingPayment, To: domain.StatePaidPendingAssignment},
		},
	}}
	h := NewHandler(uc, logger.NewNop())

	rec := post(h, `{"order_id":"ped0a1b2c","payment_status":"APPROVED","transaction_id":"tx-1","amount":242000}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, uc.got)
	assert.Equal(t, domain.KindOrder, uc.got.Target.Kind)
	assert.Equal(t, "PED0A1B2C", uc.got.Target.Code)
	assert.Equal(t, "APPROVED", uc.got.ProviderStatus)
	require.NotNil(t, uc.got.TransactionID)
	assert.Equal(t, "tx-1", *uc.got.TransactionID)
	require.NotNil(t, uc.got.ReportedAmount)
	assert.Equal(t, "242000", uc.got.ReportedAmount.String())
	assert.Nil(t, uc.got.Currency)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "applied", resp["outcome"])
	assert.Equal(t, "APPROVED", resp["payment_state"])
	assert.Len(t, resp["transitions"], 1)
	assert.Equal(t, []interface{}{}, resp["discrepancies"])
}

func TestHandler_IgnoredStatusIsOK(t *testing.T) {
	uc := &fakeUseCase{res: &reconcilePayment.Result{
		Kind:         domain.KindBooking,
		Code:         "RES0A1B2C",
		PaymentState: domain.PaymentPending,
		Outcome:      reconcilePayment.OutcomeIgnored,
	}}
	h := NewHandler(uc, logger.NewNop())

	rec := post(h, `{"order_id":"RES0A1B2C","payment_status":"REFUNDED"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", `{"order_id":"RES0A1B2C","payment_status":"APPROVED","signature":"x"}`},
		{"unknown prefix", `{"order_id":"ABC123","payment_status":"APPROVED"}`},
		{"empty order id", `{"order_id":"","payment_status":"APPROVED"}`},
		{"malformed", `{"order_id":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &fakeUseCase{}
			rec := post(NewHandler(uc, logger.NewNop()), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, uc.got)
		})
	}
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", reconcilePayment.ErrInvalidInput, http.StatusBadRequest},
		{"booking not found", reconcilePayment.ErrBookingNotFound, http.StatusNotFound},
		{"order not found", reconcilePayment.ErrOrderNotFound, http.StatusNotFound},
		{"busy", reconcilePayment.ErrAggregateBusy, http.StatusServiceUnavailable},
		{"internal", reconcilePayment.ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(NewHandler(&fakeUseCase{err: tt.err}, logger.NewNop()), `{"order_id":"RES0A1B2C","payment_status":"APPROVED"}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
