package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-payroll-api/internal/dto"
	"github.com/noah-isme/tutor-payroll-api/internal/models"
	"github.com/noah-isme/tutor-payroll-api/internal/repository"
	"github.com/noah-isme/tutor-payroll-api/pkg/cache"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
)

type confirmationStore interface {
	FindByTeacherPeriod(ctx context.Context, teacherID string, bounds models.PeriodBounds) (*models.PaymentConfirmation, error)
	Create(ctx context.Context, confirmation *models.PaymentConfirmation) error
	GetByID(ctx context.Context, id string) (*models.PaymentConfirmation, error)
	UpdateStatus(ctx context.Context, id string, status models.ConfirmationStatus, notes *string) (*models.PaymentConfirmation, error)
}

// ConfirmationService records what was presented to a teacher for a period and its review outcome.
type ConfirmationService struct {
	store     confirmationStore
	locker    locker
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewConfirmationService constructs a ConfirmationService. A nil locker disables the critical section.
func NewConfirmationService(store confirmationStore, lock locker, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *ConfirmationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if lock == nil {
		lock = cache.NewRedisLocker(nil, "", 0)
	}
	return &ConfirmationService{
		store:     store,
		locker:    lock,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// CheckExists returns the confirmation for (teacherID, bounds), if any.
func (s *ConfirmationService) CheckExists(ctx context.Context, teacherID string, bounds models.PeriodBounds) (*models.PaymentConfirmation, bool, error) {
	if strings.TrimSpace(teacherID) == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	existing, err := s.store.FindByTeacherPeriod(ctx, teacherID, bounds)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check confirmation")
	}
	return existing, true, nil
}

// Create stores a PENDING confirmation. A second confirmation for the same teacher and period
// fails with DUPLICATE_CONFIRMATION.
func (s *ConfirmationService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateConfirmationRequest) (*models.PaymentConfirmation, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid confirmation payload")
	}
	if req.Amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
	}
	bounds, err := ParsePeriodBounds(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, fmt.Sprintf("confirmations:%s:%s", req.TeacherID, bounds.Key()))
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, appErrors.Clone(appErrors.ErrLocked, "a confirmation for this teacher and period is being created")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire confirmation lock")
	}
	defer release()

	if _, exists, err := s.CheckExists(ctx, req.TeacherID, bounds); err != nil {
		return nil, err
	} else if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateConfirmation, "payment already confirmed for this teacher and period")
	}

	now := s.now().UTC()
	confirmation := &models.PaymentConfirmation{
		TeacherID:   req.TeacherID,
		PeriodStart: bounds.Start,
		PeriodEnd:   bounds.End,
		Amount:      req.Amount.Round(reportingPlaces),
		ConfirmedAt: now,
		Status:      models.ConfirmationStatusPending,
		UpdatedAt:   now,
	}
	if proof := strings.TrimSpace(req.ProofURL); proof != "" {
		confirmation.ProofURL = &proof
		confirmation.HasProof = true
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		confirmation.Notes = &notes
	}

	if err := s.store.Create(ctx, confirmation); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateConfirmation, "payment already confirmed for this teacher and period")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create confirmation")
	}
	s.metrics.IncConfirmation(confirmation.Status)
	s.logger.Info("payment confirmation created",
		zap.String("confirmation_id", confirmation.ID),
		zap.String("teacher_id", confirmation.TeacherID),
		zap.String("period", bounds.Key()),
		zap.String("amount", confirmation.Amount.StringFixed(reportingPlaces)),
		zap.String("actor_id", actor.UserID),
	)
	return confirmation, nil
}

// Get loads one confirmation.
func (s *ConfirmationService) Get(ctx context.Context, id string) (*models.PaymentConfirmation, error) {
	confirmation, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "confirmation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load confirmation")
	}
	return confirmation, nil
}

// UpdateStatus moves a PENDING confirmation to APPROVED or REJECTED. The stored amount is never recomputed.
func (s *ConfirmationService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateConfirmationStatusRequest) (*models.PaymentConfirmation, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrFinalized, fmt.Sprintf("confirmation already %s", strings.ToLower(string(current.Status))))
	}

	notes := req.Notes
	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		notes = &trimmed
	}
	updated, err := s.store.UpdateStatus(ctx, id, req.Status, notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// reviewed concurrently between load and update
			return nil, appErrors.Clone(appErrors.ErrFinalized, "confirmation is no longer pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update confirmation")
	}
	s.metrics.IncConfirmation(updated.Status)
	s.logger.Info("payment confirmation reviewed",
		zap.String("confirmation_id", updated.ID),
		zap.String("status", string(updated.Status)),
		zap.String("actor_id", actor.UserID),
	)
	return updated, nil
}
