package issue_signature

import (
	"context"

	"github.com/m04kA/SMC-ReservationService/internal/service/bookings/models"
)

type SignatureService interface {
	IssueSignature(ctx context.Context, req *models.IssueSignatureRequest) (*models.SignatureResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
