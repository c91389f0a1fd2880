package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
)

const monthLayout = "2006-01"

// CurrentMonthBounds returns the first and last calendar day of the month containing ref.
func CurrentMonthBounds(ref time.Time) models.PeriodBounds {
	y, m, _ := ref.Date()
	return MonthBounds(y, m)
}

// MonthBounds returns the inclusive bounds of a calendar month.
func MonthBounds(year int, month time.Month) models.PeriodBounds {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return models.PeriodBounds{Start: start, End: end}
}

// ParseMonthBounds parses a YYYY-MM string into calendar month bounds.
func ParseMonthBounds(raw string) (models.PeriodBounds, error) {
	t, err := time.Parse(monthLayout, raw)
	if err != nil {
		return models.PeriodBounds{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "month must be formatted as YYYY-MM")
	}
	return MonthBounds(t.Year(), t.Month()), nil
}

// NewPeriodBounds normalises explicit bounds to days and rejects inverted ranges.
func NewPeriodBounds(start, end time.Time) (models.PeriodBounds, error) {
	bounds := models.PeriodBounds{Start: models.Day(start), End: models.Day(end)}
	if bounds.End.Before(bounds.Start) {
		return models.PeriodBounds{}, appErrors.Clone(appErrors.ErrValidation, "period end must not be before period start")
	}
	return bounds, nil
}

// ParsePeriodBounds parses YYYY-MM-DD bounds.
func ParsePeriodBounds(start, end string) (models.PeriodBounds, error) {
	s, err := time.Parse(models.DateLayout, start)
	if err != nil {
		return models.PeriodBounds{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "start must be formatted as YYYY-MM-DD")
	}
	e, err := time.Parse(models.DateLayout, end)
	if err != nil {
		return models.PeriodBounds{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "end must be formatted as YYYY-MM-DD")
	}
	return NewPeriodBounds(s, e)
}

// PeriodContaining returns the first period, in the given order, whose inclusive bounds contain date.
func PeriodContaining(date time.Time, periods []models.Period) (*models.Period, error) {
	for i := range periods {
		if periods[i].Bounds().Contains(date) {
			p := periods[i]
			return &p, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNoPeriodForDate, fmt.Sprintf("no payroll period contains %s", models.Day(date).Format(models.DateLayout)))
}

// PreviousPeriod picks the latest period ending strictly before current starts.
// Gaps between the two periods are not checked.
func PreviousPeriod(current models.Period, periods []models.Period) (*models.Period, bool) {
	start := models.Day(current.StartDate)
	var best *models.Period
	for i := range periods {
		candidate := periods[i]
		if candidate.ID == current.ID {
			continue
		}
		end := models.Day(candidate.EndDate)
		if !end.Before(start) {
			continue
		}
		if best == nil || end.After(models.Day(best.EndDate)) {
			c := candidate
			best = &c
		}
	}
	return best, best != nil
}

type periodStore interface {
	List(ctx context.Context) ([]models.Period, error)
	FindByID(ctx context.Context, id string) (*models.Period, error)
}

// PeriodService exposes period lookups backed by the period/season reader.
type PeriodService struct {
	periods periodStore
}

// NewPeriodService constructs a PeriodService.
func NewPeriodService(periods periodStore) *PeriodService {
	return &PeriodService{periods: periods}
}

// List returns all known periods ordered by start date.
func (s *PeriodService) List(ctx context.Context) ([]models.Period, error) {
	periods, err := s.periods.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].StartDate.Before(periods[j].StartDate)
	})
	return periods, nil
}

// Get loads one period.
func (s *PeriodService) Get(ctx context.Context, id string) (*models.Period, error) {
	period, err := s.periods.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	return period, nil
}

// Resolve returns the period containing date or NO_PERIOD_FOR_DATE.
func (s *PeriodService) Resolve(ctx context.Context, date time.Time) (*models.Period, error) {
	periods, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return PeriodContaining(date, periods)
}

// Previous returns the period preceding current, if any.
func (s *PeriodService) Previous(ctx context.Context, current models.Period) (*models.Period, bool, error) {
	periods, err := s.List(ctx)
	if err != nil {
		return nil, false, err
	}
	prev, ok := PreviousPeriod(current, periods)
	return prev, ok, nil
}
