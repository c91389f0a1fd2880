package dto

import "github.com/noah-isme/tutor-payroll-api/internal/models"

// PeriodQuery mirrors the ways a caller may pick a payroll period.
type PeriodQuery struct {
	Start    string `form:"start"`
	End      string `form:"end"`
	Month    string `form:"month"`
	PeriodID string `form:"periodId"`
}

// SetPayabilityRequest toggles whether a class may be paid regardless of attendance.
type SetPayabilityRequest struct {
	Payable *bool `json:"payable" validate:"required"`
}

// PayabilityResponse echoes the stored payability flag.
type PayabilityResponse struct {
	ClassID string `json:"classId"`
	Payable bool   `json:"payable"`
}

// ExportFormat enumerates rendered payout report formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportRequest asks for a payout report of one period.
type ExportRequest struct {
	Start    string       `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End      string       `json:"end" validate:"omitempty,datetime=2006-01-02"`
	Month    string       `json:"month" validate:"omitempty,datetime=2006-01"`
	PeriodID string       `json:"periodId"`
	Format   ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportResponse points to the rendered report.
type ExportResponse struct {
	ID        string              `json:"id"`
	Format    ExportFormat        `json:"format"`
	Period    models.PeriodBounds `json:"period"`
	URL       string              `json:"url"`
	ExpiresAt string              `json:"expiresAt"`
}
