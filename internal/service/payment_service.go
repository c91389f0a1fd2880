package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
)

// reportingPlaces is the precision of every reported monetary and hour figure.
const reportingPlaces = 2

type classSessionStore interface {
	ListClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, error)
	SetManualPayability(ctx context.Context, classID string, payable bool) error
}

type rateStore interface {
	ListOverrides(ctx context.Context, teacherIDs []string) ([]models.RateOverride, error)
	ListCourseDefaults(ctx context.Context, courseIDs []string) ([]models.CourseDefaultRate, error)
	ListTeacherRanks(ctx context.Context, teacherIDs []string) ([]models.TeacherRank, error)
}

// PriceClass resolves a payable class's duration and amount. The amount is left unrounded.
func PriceClass(class models.ClassRecord, book *RateBook, resolver *RateResolver) models.PricedClass {
	duration, durationSource := EffectiveDuration(class)
	amount, rateSource := resolver.Resolve(class, duration, book)
	return models.PricedClass{
		ClassRecord:     class,
		DurationMinutes: duration,
		DurationSource:  durationSource,
		Amount:          amount,
		RateSource:      rateSource,
	}
}

type teacherAccumulator struct {
	teacherID   string
	teacherName string
	classes     []models.PricedClass
	hours       decimal.Decimal
	amount      decimal.Decimal
}

func (a *teacherAccumulator) add(priced models.PricedClass) {
	a.classes = append(a.classes, priced)
	a.hours = a.hours.Add(decimal.NewFromInt(int64(priced.DurationMinutes)).Div(minutesPerHour))
	a.amount = a.amount.Add(priced.Amount)
	if a.teacherName == "" {
		a.teacherName = priced.TeacherName
	}
}

func foldPayable(bounds models.PeriodBounds, classes []models.ClassRecord, book *RateBook, resolver *RateResolver) map[string]*teacherAccumulator {
	groups := make(map[string]*teacherAccumulator)
	for _, class := range classes {
		if !bounds.Contains(class.ClassDate) || !IsPayable(class) {
			continue
		}
		acc, ok := groups[class.TeacherID]
		if !ok {
			acc = &teacherAccumulator{teacherID: class.TeacherID, hours: decimal.Zero, amount: decimal.Zero}
			groups[class.TeacherID] = acc
		}
		acc.add(PriceClass(class, book, resolver))
	}
	return groups
}

// AggregatePayments folds payable classes into per-teacher totals sorted by amount, highest first.
// Sums are accumulated unrounded and rounded once here.
func AggregatePayments(bounds models.PeriodBounds, classes []models.ClassRecord, book *RateBook, resolver *RateResolver) []models.TeacherPaymentTotal {
	groups := foldPayable(bounds, classes, book, resolver)
	totals := make([]models.TeacherPaymentTotal, 0, len(groups))
	unrounded := make(map[string]decimal.Decimal, len(groups))
	for _, acc := range groups {
		count := len(acc.classes)
		average := decimal.Zero
		if count > 0 {
			average = acc.amount.Div(decimal.NewFromInt(int64(count)))
		}
		sort.SliceStable(acc.classes, func(i, j int) bool {
			a, b := acc.classes[i], acc.classes[j]
			if !a.ClassDate.Equal(b.ClassDate) {
				return a.ClassDate.Before(b.ClassDate)
			}
			if a.TimeSlot != b.TimeSlot {
				return a.TimeSlot < b.TimeSlot
			}
			return a.ID < b.ID
		})
		for i := range acc.classes {
			acc.classes[i].Amount = acc.classes[i].Amount.Round(reportingPlaces)
		}
		unrounded[acc.teacherID] = acc.amount
		totals = append(totals, models.TeacherPaymentTotal{
			TeacherID:       acc.teacherID,
			TeacherName:     acc.teacherName,
			Period:          bounds,
			TotalClasses:    count,
			TotalHours:      acc.hours.Round(reportingPlaces),
			TotalAmount:     acc.amount.Round(reportingPlaces),
			AveragePerClass: average.Round(reportingPlaces),
			Classes:         acc.classes,
		})
	}
	sort.SliceStable(totals, func(i, j int) bool {
		ai, aj := unrounded[totals[i].TeacherID], unrounded[totals[j].TeacherID]
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return totals[i].TeacherID < totals[j].TeacherID
	})
	return totals
}

// SummarizePayments folds payable classes straight into platform-wide figures.
func SummarizePayments(bounds models.PeriodBounds, classes []models.ClassRecord, book *RateBook, resolver *RateResolver) models.PeriodSummary {
	groups := foldPayable(bounds, classes, book, resolver)
	hours, payment := decimal.Zero, decimal.Zero
	classCount := 0
	for _, acc := range groups {
		classCount += len(acc.classes)
		hours = hours.Add(acc.hours)
		payment = payment.Add(acc.amount)
	}
	summary := models.PeriodSummary{
		Period:        bounds,
		TotalTeachers: len(groups),
		TotalClasses:  classCount,
		TotalHours:    hours.Round(reportingPlaces),
		TotalPayment:  payment.Round(reportingPlaces),
		AvgPerTeacher: decimal.Zero.Round(reportingPlaces),
		AvgPerClass:   decimal.Zero.Round(reportingPlaces),
	}
	if len(groups) > 0 {
		summary.AvgPerTeacher = payment.Div(decimal.NewFromInt(int64(len(groups)))).Round(reportingPlaces)
	}
	if classCount > 0 {
		summary.AvgPerClass = payment.Div(decimal.NewFromInt(int64(classCount))).Round(reportingPlaces)
	}
	return summary
}

// PaymentService computes teacher payments on demand. Nothing it computes is stored.
type PaymentService struct {
	classes  classSessionStore
	rates    rateStore
	resolver *RateResolver
	metrics  *MetricsService
	logger   *zap.Logger
}

// PaymentServiceOption configures the service.
type PaymentServiceOption func(*PaymentService)

// WithRateResolver replaces the default precedence chain.
func WithRateResolver(resolver *RateResolver) PaymentServiceOption {
	return func(s *PaymentService) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(classes classSessionStore, rates rateStore, metrics *MetricsService, logger *zap.Logger, opts ...PaymentServiceOption) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &PaymentService{
		classes:  classes,
		rates:    rates,
		resolver: NewRateResolver(),
		metrics:  metrics,
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// GetTeacherPaymentDetails returns per-teacher totals with their priced classes.
// An empty teacherID covers every teacher with payable classes in the period.
func (s *PaymentService) GetTeacherPaymentDetails(ctx context.Context, bounds models.PeriodBounds, teacherID string) ([]models.TeacherPaymentTotal, error) {
	start := time.Now()
	classes, book, err := s.load(ctx, bounds, teacherID)
	if err != nil {
		return nil, err
	}
	totals := AggregatePayments(bounds, classes, book, s.resolver)
	s.metrics.ObservePayrollComputation("teacher_payments", time.Since(start))
	return totals, nil
}

// GetPeriodSummary returns platform-wide figures for the period.
func (s *PaymentService) GetPeriodSummary(ctx context.Context, bounds models.PeriodBounds) (*models.PeriodSummary, error) {
	start := time.Now()
	classes, book, err := s.load(ctx, bounds, "")
	if err != nil {
		return nil, err
	}
	summary := SummarizePayments(bounds, classes, book, s.resolver)
	s.metrics.ObservePayrollComputation("period_summary", time.Since(start))
	return &summary, nil
}

// SetClassManualPayability lets an administrator force a class in or out of payment.
func (s *PaymentService) SetClassManualPayability(ctx context.Context, actor *models.JWTClaims, classID string, payable bool) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if classID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}
	if err := s.classes.SetManualPayability(ctx, classID, payable); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class payability")
	}
	s.logger.Info("class payability updated",
		zap.String("class_id", classID),
		zap.Bool("payable", payable),
		zap.String("actor_id", actor.UserID),
	)
	return nil
}

func (s *PaymentService) load(ctx context.Context, bounds models.PeriodBounds, teacherID string) ([]models.ClassRecord, *RateBook, error) {
	classes, err := s.classes.ListClasses(ctx, models.ClassFilter{
		Bounds:    bounds,
		TeacherID: teacherID,
		Status:    models.ClassStatusCompleted,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	if len(classes) == 0 {
		return nil, NewRateBook(nil, nil, nil), nil
	}

	teacherIDs, courseIDs := distinctTeacherAndCourseIDs(classes)
	overrides, err := s.rates.ListOverrides(ctx, teacherIDs)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rate overrides")
	}
	defaults, err := s.rates.ListCourseDefaults(ctx, courseIDs)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course rates")
	}
	ranks, err := s.rates.ListTeacherRanks(ctx, teacherIDs)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher ranks")
	}
	return classes, NewRateBook(overrides, defaults, ranks), nil
}

func distinctTeacherAndCourseIDs(classes []models.ClassRecord) ([]string, []string) {
	teacherSet := make(map[string]struct{})
	courseSet := make(map[string]struct{})
	teachers := make([]string, 0)
	courses := make([]string, 0)
	for _, c := range classes {
		if _, ok := teacherSet[c.TeacherID]; !ok {
			teacherSet[c.TeacherID] = struct{}{}
			teachers = append(teachers, c.TeacherID)
		}
		if _, ok := courseSet[c.CourseID]; !ok {
			courseSet[c.CourseID] = struct{}{}
			courses = append(courses, c.CourseID)
		}
	}
	sort.Strings(teachers)
	sort.Strings(courses)
	return teachers, courses
}
