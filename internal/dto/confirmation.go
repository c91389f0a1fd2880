package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
)

// CreateConfirmationRequest records the payment presented to a teacher.
type CreateConfirmationRequest struct {
	TeacherID   string          `json:"teacherId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	PeriodStart string          `json:"periodStart" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string          `json:"periodEnd" validate:"required,datetime=2006-01-02"`
	ProofURL    string          `json:"proofUrl" validate:"omitempty,url"`
	Notes       string          `json:"notes" validate:"max=1000"`
}

// UpdateConfirmationStatusRequest moves a confirmation out of PENDING.
type UpdateConfirmationStatusRequest struct {
	Status models.ConfirmationStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Notes  *string                   `json:"notes" validate:"omitempty,max=1000"`
}

// ConfirmationCheckResponse answers whether a (teacher, period) pair is already confirmed.
type ConfirmationCheckResponse struct {
	Exists       bool                        `json:"exists"`
	Confirmation *models.PaymentConfirmation `json:"confirmation,omitempty"`
}
