package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
)

// RunIncentivesRequest triggers a computed incentive run for a period.
type RunIncentivesRequest struct {
	PeriodID string `json:"periodId" validate:"required"`
}

// RunIncentivesResponse reports the incentives created by a run.
type RunIncentivesResponse struct {
	PeriodID   string               `json:"periodId"`
	Type       models.IncentiveType `json:"type"`
	Created    int                  `json:"created"`
	Incentives []models.Incentive   `json:"incentives"`
}

// CreateIncentiveRequest grants an ad-hoc incentive.
type CreateIncentiveRequest struct {
	TeacherID  string               `json:"teacherId" validate:"required"`
	PeriodID   string               `json:"periodId" validate:"required"`
	Type       models.IncentiveType `json:"type" validate:"required,oneof=RETENTION PERFECT_ATTENDANCE MANUAL"`
	Percentage decimal.Decimal      `json:"percentage"`
	BaseAmount decimal.Decimal      `json:"baseAmount"`
	Notes      string               `json:"notes" validate:"max=500"`
}

// MarkIncentivesPaidRequest lists incentives to settle.
type MarkIncentivesPaidRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// MarkIncentivesPaidResponse reports how many rows moved from unpaid to paid.
type MarkIncentivesPaidResponse struct {
	Count int `json:"count"`
}
