package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-payroll-api/internal/dto"
	"github.com/noah-isme/tutor-payroll-api/internal/models"
	"github.com/noah-isme/tutor-payroll-api/internal/repository"
	"github.com/noah-isme/tutor-payroll-api/pkg/cache"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
)

var (
	hundred = decimal.NewFromInt(100)

	// PerfectAttendancePercentage is the flat bonus for a period without missed teacher marks.
	PerfectAttendancePercentage = decimal.NewFromInt(3)
)

// IncentiveBand maps a minimum retention rate to a bonus percentage.
type IncentiveBand struct {
	MinRate    decimal.Decimal
	Percentage decimal.Decimal
}

// RetentionBands are checked in order; the first band whose MinRate is met wins.
var RetentionBands = []IncentiveBand{
	{MinRate: decimal.NewFromInt(90), Percentage: decimal.NewFromInt(10)},
	{MinRate: decimal.NewFromInt(80), Percentage: decimal.NewFromInt(5)},
}

// BonusPercentageFor returns the band percentage for rate, or false when no band applies.
func BonusPercentageFor(rate decimal.Decimal, bands []IncentiveBand) (decimal.Decimal, bool) {
	for _, band := range bands {
		if rate.GreaterThanOrEqual(band.MinRate) {
			return band.Percentage, true
		}
	}
	return decimal.Zero, false
}

// ComputeRetentionRate returns |prev ∩ curr| / |prev| * 100.
// It reports false when prev is empty: retention is undefined, not zero.
func ComputeRetentionRate(prev, curr []string) (decimal.Decimal, bool) {
	prevSet := toSet(prev)
	if len(prevSet) == 0 {
		return decimal.Zero, false
	}
	currSet := toSet(curr)
	retained := 0
	for id := range prevSet {
		if _, ok := currSet[id]; ok {
			retained++
		}
	}
	rate := decimal.NewFromInt(int64(retained)).Mul(hundred).Div(decimal.NewFromInt(int64(len(prevSet))))
	return rate, true
}

// BonusAmount is base * percentage / 100, rounded for storage.
func BonusAmount(base, percentage decimal.Decimal) decimal.Decimal {
	return base.Mul(percentage).Div(hundred).Round(reportingPlaces)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

func groupCohorts(pairs []models.TeacherStudent) map[string][]string {
	cohorts := make(map[string][]string)
	for _, p := range pairs {
		cohorts[p.TeacherID] = append(cohorts[p.TeacherID], p.StudentID)
	}
	return cohorts
}

type teacherDirectory interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type cohortReader interface {
	ListTeacherStudents(ctx context.Context, bounds models.PeriodBounds) ([]models.TeacherStudent, error)
}

type perfectAttendanceReader interface {
	PerfectAttendanceTeacherIDs(ctx context.Context, bounds models.PeriodBounds) ([]string, error)
}

type incentiveStore interface {
	CreateBatch(ctx context.Context, incentives []models.Incentive) error
	ExistingTeacherIDs(ctx context.Context, periodID string, kind models.IncentiveType) ([]string, error)
	MarkPaid(ctx context.Context, ids []string) (int, error)
	List(ctx context.Context, filter models.IncentiveFilter) ([]models.Incentive, int, error)
}

type paymentCalculator interface {
	GetTeacherPaymentDetails(ctx context.Context, bounds models.PeriodBounds, teacherID string) ([]models.TeacherPaymentTotal, error)
}

type locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// IncentiveService computes and persists teacher bonuses.
type IncentiveService struct {
	periods    periodStore
	teachers   teacherDirectory
	cohorts    cohortReader
	attendance perfectAttendanceReader
	incentives incentiveStore
	payments   paymentCalculator
	locker     locker
	bands      []IncentiveBand
	validator  *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
}

// IncentiveServiceDeps groups the collaborators of IncentiveService.
type IncentiveServiceDeps struct {
	Periods    periodStore
	Teachers   teacherDirectory
	Cohorts    cohortReader
	Attendance perfectAttendanceReader
	Incentives incentiveStore
	Payments   paymentCalculator
	Locker     locker
	Validator  *validator.Validate
	Metrics    *MetricsService
	Logger     *zap.Logger
}

// NewIncentiveService constructs an IncentiveService.
func NewIncentiveService(deps IncentiveServiceDeps) *IncentiveService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := deps.Validator
	if validate == nil {
		validate = validator.New()
	}
	var lock locker = cache.NewRedisLocker(nil, "", 0)
	if deps.Locker != nil {
		lock = deps.Locker
	}
	return &IncentiveService{
		periods:    deps.Periods,
		teachers:   deps.Teachers,
		cohorts:    deps.Cohorts,
		attendance: deps.Attendance,
		incentives: deps.Incentives,
		payments:   deps.Payments,
		locker:     lock,
		bands:      RetentionBands,
		validator:  validate,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// RunRetentionIncentives grants RETENTION bonuses for periodID based on the preceding period's students.
func (s *IncentiveService) RunRetentionIncentives(ctx context.Context, actor *models.JWTClaims, periodID string) ([]models.Incentive, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	current, err := s.loadPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, current.ID, models.IncentiveTypeRetention)
	if err != nil {
		return nil, err
	}
	defer release()

	periods, err := s.periods.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	previous, ok := PreviousPeriod(*current, periods)
	if !ok {
		s.logger.Warn("no previous period for retention run", zap.String("period_id", current.ID))
		return []models.Incentive{}, nil
	}

	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	prevPairs, err := s.cohorts.ListTeacherStudents(ctx, previous.Bounds())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load previous cohorts")
	}
	currPairs, err := s.cohorts.ListTeacherStudents(ctx, current.Bounds())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current cohorts")
	}
	bases, err := s.baseAmounts(ctx, current.Bounds())
	if err != nil {
		return nil, err
	}
	existing, err := s.existing(ctx, current.ID, models.IncentiveTypeRetention)
	if err != nil {
		return nil, err
	}

	prev, curr := groupCohorts(prevPairs), groupCohorts(currPairs)
	created := make([]models.Incentive, 0)
	skipped := 0
	for _, teacher := range teachers {
		if _, done := existing[teacher.ID]; done {
			continue
		}
		rate, ok := ComputeRetentionRate(prev[teacher.ID], curr[teacher.ID])
		if !ok {
			skipped++
			continue
		}
		percentage, ok := BonusPercentageFor(rate, s.bands)
		if !ok {
			continue
		}
		base := bases[teacher.ID]
		created = append(created, models.Incentive{
			TeacherID:     teacher.ID,
			PeriodID:      current.ID,
			Type:          models.IncentiveTypeRetention,
			Percentage:    percentage,
			BaseAmount:    base,
			BonusAmount:   BonusAmount(base, percentage),
			RetentionRate: decimal.NewNullDecimal(rate.Round(reportingPlaces)),
		})
	}

	if err := s.persist(ctx, created); err != nil {
		return nil, err
	}
	s.metrics.AddIncentivesCreated(models.IncentiveTypeRetention, len(created))
	s.logger.Info("retention incentives computed",
		zap.String("period_id", current.ID),
		zap.String("previous_period_id", previous.ID),
		zap.Int("teachers", len(teachers)),
		zap.Int("created", len(created)),
		zap.Int("skipped_no_previous_students", skipped),
		zap.String("actor_id", actor.UserID),
	)
	return created, nil
}

// RunPerfectAttendanceIncentives grants the flat PERFECT_ATTENDANCE bonus for periodID.
func (s *IncentiveService) RunPerfectAttendanceIncentives(ctx context.Context, actor *models.JWTClaims, periodID string) ([]models.Incentive, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	period, err := s.loadPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, period.ID, models.IncentiveTypePerfectAttendance)
	if err != nil {
		return nil, err
	}
	defer release()

	teacherIDs, err := s.attendance.PerfectAttendanceTeacherIDs(ctx, period.Bounds())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evaluate attendance")
	}
	bases, err := s.baseAmounts(ctx, period.Bounds())
	if err != nil {
		return nil, err
	}
	existing, err := s.existing(ctx, period.ID, models.IncentiveTypePerfectAttendance)
	if err != nil {
		return nil, err
	}

	sort.Strings(teacherIDs)
	created := make([]models.Incentive, 0, len(teacherIDs))
	for _, teacherID := range teacherIDs {
		if _, done := existing[teacherID]; done {
			continue
		}
		base := bases[teacherID]
		created = append(created, models.Incentive{
			TeacherID:   teacherID,
			PeriodID:    period.ID,
			Type:        models.IncentiveTypePerfectAttendance,
			Percentage:  PerfectAttendancePercentage,
			BaseAmount:  base,
			BonusAmount: BonusAmount(base, PerfectAttendancePercentage),
		})
	}

	if err := s.persist(ctx, created); err != nil {
		return nil, err
	}
	s.metrics.AddIncentivesCreated(models.IncentiveTypePerfectAttendance, len(created))
	s.logger.Info("perfect attendance incentives computed",
		zap.String("period_id", period.ID),
		zap.Int("eligible", len(teacherIDs)),
		zap.Int("created", len(created)),
		zap.String("actor_id", actor.UserID),
	)
	return created, nil
}

// CreateManualIncentive records an admin-granted bonus.
func (s *IncentiveService) CreateManualIncentive(ctx context.Context, actor *models.JWTClaims, req dto.CreateIncentiveRequest) (*models.Incentive, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidIncentiveInput.Code, appErrors.ErrInvalidIncentiveInput.Status, "invalid incentive payload")
	}
	if req.Percentage.IsNegative() || req.Percentage.GreaterThan(hundred) {
		return nil, appErrors.Clone(appErrors.ErrInvalidIncentiveInput, "percentage must be between 0 and 100")
	}
	if req.BaseAmount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrInvalidIncentiveInput, "base amount must not be negative")
	}
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidIncentiveInput, "unknown teacher")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if _, err := s.periods.FindByID(ctx, req.PeriodID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidIncentiveInput, "unknown period")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}

	incentive := models.Incentive{
		TeacherID:   req.TeacherID,
		PeriodID:    req.PeriodID,
		Type:        req.Type,
		Percentage:  req.Percentage,
		BaseAmount:  req.BaseAmount,
		BonusAmount: BonusAmount(req.BaseAmount, req.Percentage),
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		incentive.Notes = &notes
	}
	batch := []models.Incentive{incentive}
	if err := s.persist(ctx, batch); err != nil {
		return nil, err
	}
	s.metrics.AddIncentivesCreated(req.Type, 1)
	s.logger.Info("manual incentive created",
		zap.String("incentive_id", batch[0].ID),
		zap.String("teacher_id", req.TeacherID),
		zap.String("period_id", req.PeriodID),
		zap.String("actor_id", actor.UserID),
	)
	return &batch[0], nil
}

// MarkIncentivesPaid settles the given incentives in one statement and returns how many changed.
// Already-paid ids are ignored.
func (s *IncentiveService) MarkIncentivesPaid(ctx context.Context, actor *models.JWTClaims, req dto.MarkIncentivesPaidRequest) (int, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark-paid payload")
	}
	ids := make([]string, 0, len(req.IDs))
	seen := make(map[string]struct{}, len(req.IDs))
	for _, id := range req.IDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	count, err := s.incentives.MarkPaid(ctx, ids)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark incentives paid")
	}
	s.metrics.AddIncentivesPaid(count)
	s.logger.Info("incentives marked paid",
		zap.Int("requested", len(ids)),
		zap.Int("paid", count),
		zap.String("actor_id", actor.UserID),
	)
	return count, nil
}

// List returns incentives matching filter.
func (s *IncentiveService) List(ctx context.Context, filter models.IncentiveFilter) ([]models.Incentive, *models.Pagination, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown incentive type")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.incentives.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incentives")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *IncentiveService) loadPeriod(ctx context.Context, periodID string) (*models.Period, error) {
	if strings.TrimSpace(periodID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period id is required")
	}
	period, err := s.periods.FindByID(ctx, periodID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	return period, nil
}

func (s *IncentiveService) acquire(ctx context.Context, periodID string, kind models.IncentiveType) (func(), error) {
	release, err := s.locker.Acquire(ctx, fmt.Sprintf("incentives:%s:%s", periodID, kind))
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, appErrors.Clone(appErrors.ErrLocked, "an incentive run for this period is already in progress")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire incentive lock")
	}
	return release, nil
}

func (s *IncentiveService) baseAmounts(ctx context.Context, bounds models.PeriodBounds) (map[string]decimal.Decimal, error) {
	totals, err := s.payments.GetTeacherPaymentDetails(ctx, bounds, "")
	if err != nil {
		return nil, err
	}
	bases := make(map[string]decimal.Decimal, len(totals))
	for _, t := range totals {
		bases[t.TeacherID] = t.TotalAmount
	}
	return bases, nil
}

func (s *IncentiveService) existing(ctx context.Context, periodID string, kind models.IncentiveType) (map[string]struct{}, error) {
	ids, err := s.incentives.ExistingTeacherIDs(ctx, periodID, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing incentives")
	}
	return toSet(ids), nil
}

func (s *IncentiveService) persist(ctx context.Context, batch []models.Incentive) error {
	if len(batch) == 0 {
		return nil
	}
	if err := s.incentives.CreateBatch(ctx, batch); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return appErrors.Clone(appErrors.ErrConflict, "teacher already holds this incentive for the period")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store incentives")
	}
	return nil
}
