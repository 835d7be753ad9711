package issue_signature

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ReservationService/internal/service/bookings"
	"github.com/m04kA/SMC-ReservationService/internal/service/bookings/models"
	"github.com/m04kA/SMC-ReservationService/pkg/logger"
)

type fakeService struct {
	got  *models.IssueSignatureRequest
	resp *models.SignatureResponse
	err  error
}

func (f *fakeService) IssueSignature(_ context.Context, req *models.IssueSignatureRequest) (*models.SignatureResponse, error) {
	f.got = req
	return f.resp, f.err
}

func get(h *Handler, query string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments/signature"+query, nil))
	return rec
}

func TestHandler_PassesOnlyPresentIDs(t *testing.T) {
	svc := &fakeService{resp: &models.SignatureResponse{
		OrderCode:     "RES0A1B2C",
		Amount:        decimal.NewFromInt(121000),
		Currency:      "COP",
		Signature:     "abc",
		IntegrityMode: "sandbox",
	}}

	rec := get(NewHandler(svc, logger.NewNop()), "?bookingId=8f1c0c1e-8a3b-4d59-9c1e-2b3c4d5e6f70")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.got)
	require.NotNil(t, svc.got.BookingID)
	assert.Nil(t, svc.got.OrderID)
	assert.Contains(t, rec.Body.String(), `"orderCode":"RES0A1B2C"`)
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", bookings.ErrInvalidInput, http.StatusBadRequest},
		{"booking", bookings.ErrBookingNotFound, http.StatusNotFound},
		{"order", bookings.ErrOrderNotFound, http.StatusNotFound},
		{"not payable", bookings.ErrNotPayable, http.StatusUnprocessableEntity},
		{"internal", bookings.ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(NewHandler(&fakeService{err: tt.err}, logger.NewNop()), "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
