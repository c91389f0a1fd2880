package models

import "github.com/shopspring/decimal"

// PricedClass is a payable class with its resolved amount and provenance.
type PricedClass struct {
	ClassRecord
	DurationMinutes int             `json:"duration_minutes"`
	DurationSource  DurationSource  `json:"duration_source"`
	Amount          decimal.Decimal `json:"amount"`
	RateSource      RateSource      `json:"rate_source"`
}

// TeacherPaymentTotal is the derived, never persisted, payable total for one teacher and period.
type TeacherPaymentTotal struct {
	TeacherID       string          `json:"teacher_id"`
	TeacherName     string          `json:"teacher_name,omitempty"`
	Period          PeriodBounds    `json:"period"`
	TotalClasses    int             `json:"total_classes"`
	TotalHours      decimal.Decimal `json:"total_hours"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	AveragePerClass decimal.Decimal `json:"average_per_class"`
	Classes         []PricedClass   `json:"classes"`
}

// PeriodSummary folds all payable classes of a period into platform-wide figures.
type PeriodSummary struct {
	Period        PeriodBounds    `json:"period"`
	TotalTeachers int             `json:"total_teachers"`
	TotalClasses  int             `json:"total_classes"`
	TotalHours    decimal.Decimal `json:"total_hours"`
	TotalPayment  decimal.Decimal `json:"total_payment"`
	AvgPerTeacher decimal.Decimal `json:"avg_per_teacher"`
	AvgPerClass   decimal.Decimal `json:"avg_per_class"`
}
