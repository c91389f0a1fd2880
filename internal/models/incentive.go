package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncentiveType enumerates bonus categories.
type IncentiveType string

const (
	IncentiveTypeRetention         IncentiveType = "RETENTION"
	IncentiveTypePerfectAttendance IncentiveType = "PERFECT_ATTENDANCE"
	IncentiveTypeManual            IncentiveType = "MANUAL"
)

// Valid reports whether t is a known incentive type.
func (t IncentiveType) Valid() bool {
	switch t {
	case IncentiveTypeRetention, IncentiveTypePerfectAttendance, IncentiveTypeManual:
		return true
	}
	return false
}

// Incentive is a bonus granted to a teacher for a period.
type Incentive struct {
	ID            string              `db:"id" json:"id"`
	TeacherID     string              `db:"teacher_id" json:"teacher_id"`
	PeriodID      string              `db:"period_id" json:"period_id"`
	Type          IncentiveType       `db:"type" json:"type"`
	Percentage    decimal.Decimal     `db:"percentage" json:"percentage"`
	BaseAmount    decimal.Decimal     `db:"base_amount" json:"base_amount"`
	BonusAmount   decimal.Decimal     `db:"bonus_amount" json:"bonus_amount"`
	RetentionRate decimal.NullDecimal `db:"retention_rate" json:"retention_rate"`
	Notes         *string             `db:"notes" json:"notes,omitempty"`
	Paid          bool                `db:"paid" json:"paid"`
	PaidAt        *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
}

// IncentiveFilter constrains incentive listing.
type IncentiveFilter struct {
	PeriodID  string
	TeacherID string
	Type      IncentiveType
	Paid      *bool
	Page      int
	PageSize  int
}
