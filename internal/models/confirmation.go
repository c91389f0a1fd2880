package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConfirmationStatus captures the review state of a payment confirmation.
type ConfirmationStatus string

const (
	ConfirmationStatusPending  ConfirmationStatus = "PENDING"
	ConfirmationStatusApproved ConfirmationStatus = "APPROVED"
	ConfirmationStatusRejected ConfirmationStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed from s.
func (s ConfirmationStatus) Terminal() bool {
	return s == ConfirmationStatusApproved || s == ConfirmationStatusRejected
}

// PaymentConfirmation records the amount presented to a teacher for a period and its review.
// At most one row exists per (TeacherID, PeriodStart, PeriodEnd).
type PaymentConfirmation struct {
	ID          string             `db:"id" json:"id"`
	TeacherID   string             `db:"teacher_id" json:"teacher_id"`
	PeriodStart time.Time          `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time          `db:"period_end" json:"period_end"`
	Amount      decimal.Decimal    `db:"amount" json:"amount"`
	ConfirmedAt time.Time          `db:"confirmed_at" json:"confirmed_at"`
	HasProof    bool               `db:"has_proof" json:"has_proof"`
	ProofURL    *string            `db:"proof_url" json:"proof_url,omitempty"`
	Notes       *string            `db:"notes" json:"notes,omitempty"`
	Status      ConfirmationStatus `db:"status" json:"status"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}

// Bounds returns the confirmed period as inclusive day bounds.
func (c PaymentConfirmation) Bounds() PeriodBounds {
	return PeriodBounds{Start: Day(c.PeriodStart), End: Day(c.PeriodEnd)}
}
