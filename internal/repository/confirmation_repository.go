package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
)

const confirmationColumns = `id, teacher_id, period_start, period_end, amount, confirmed_at, has_proof, proof_url, notes, status, updated_at`

// ConfirmationRepository persists payment confirmations. The table is unique on (teacher_id, period_start, period_end).
type ConfirmationRepository struct {
	db *sqlx.DB
}

// NewConfirmationRepository constructs a ConfirmationRepository.
func NewConfirmationRepository(db *sqlx.DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

// FindByTeacherPeriod returns the confirmation for the exact teacher and bounds, or sql.ErrNoRows.
func (r *ConfirmationRepository) FindByTeacherPeriod(ctx context.Context, teacherID string, bounds models.PeriodBounds) (*models.PaymentConfirmation, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_confirmations
	WHERE teacher_id = $1 AND period_start = $2::date AND period_end = $3::date`, confirmationColumns)
	var confirmation models.PaymentConfirmation
	if err := r.db.GetContext(ctx, &confirmation, query,
		teacherID,
		bounds.Start.Format(models.DateLayout),
		bounds.End.Format(models.DateLayout),
	); err != nil {
		return nil, err
	}
	return &confirmation, nil
}

// Create inserts the confirmation, returning ErrDuplicate when one already exists for the tuple.
func (r *ConfirmationRepository) Create(ctx context.Context, confirmation *models.PaymentConfirmation) error {
	if confirmation.ID == "" {
		confirmation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if confirmation.ConfirmedAt.IsZero() {
		confirmation.ConfirmedAt = now
	}
	if confirmation.UpdatedAt.IsZero() {
		confirmation.UpdatedAt = now
	}
	if confirmation.Status == "" {
		confirmation.Status = models.ConfirmationStatusPending
	}
	const query = `INSERT INTO payment_confirmations (` + confirmationColumns + `)
	VALUES (:id, :teacher_id, :period_start, :period_end, :amount, :confirmed_at, :has_proof, :proof_url, :notes, :status, :updated_at)
	ON CONFLICT (teacher_id, period_start, period_end) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, confirmation)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create payment confirmation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create payment confirmation rows: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

// GetByID fetches a confirmation by identifier.
func (r *ConfirmationRepository) GetByID(ctx context.Context, id string) (*models.PaymentConfirmation, error) {
	query := fmt.Sprintf("SELECT %s FROM payment_confirmations WHERE id = $1", confirmationColumns)
	var confirmation models.PaymentConfirmation
	if err := r.db.GetContext(ctx, &confirmation, query, id); err != nil {
		return nil, err
	}
	return &confirmation, nil
}

// UpdateStatus transitions a PENDING confirmation. Rows no longer pending yield sql.ErrNoRows.
// Notes are left untouched when nil.
func (r *ConfirmationRepository) UpdateStatus(ctx context.Context, id string, status models.ConfirmationStatus, notes *string) (*models.PaymentConfirmation, error) {
	query := fmt.Sprintf(`UPDATE payment_confirmations
	SET status = $2, notes = COALESCE($3, notes), updated_at = $4
	WHERE id = $1 AND status = $5
	RETURNING %s`, confirmationColumns)
	var confirmation models.PaymentConfirmation
	err := r.db.GetContext(ctx, &confirmation, query, id, status, notes, time.Now().UTC(), models.ConfirmationStatusPending)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("update confirmation status: %w", err)
	}
	return &confirmation, nil
}
