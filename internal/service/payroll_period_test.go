package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
)

func period(id string, start, end time.Time) models.Period {
	return models.Period{ID: id, Name: id, Type: models.PeriodTypeMonth, StartDate: start, EndDate: end}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthBoundsCoversWholeMonth(t *testing.T) {
	feb := MonthBounds(2024, time.February)
	assert.Equal(t, day(2024, 2, 1), feb.Start)
	assert.Equal(t, day(2024, 2, 29), feb.End)

	current := CurrentMonthBounds(time.Date(2025, 3, 17, 15, 4, 5, 0, time.UTC))
	assert.Equal(t, march2025, current)
}

func TestParsePeriodBoundsRejectsInvertedRange(t *testing.T) {
	_, err := ParsePeriodBounds("2025-03-31", "2025-03-01")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = ParsePeriodBounds("2025/03/01", "2025-03-31")
	require.Error(t, err)

	bounds, err := ParsePeriodBounds("2025-03-01", "2025-03-01")
	require.NoError(t, err)
	assert.True(t, bounds.Contains(time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)))
}

func TestParseMonthBounds(t *testing.T) {
	bounds, err := ParseMonthBounds("2025-03")
	require.NoError(t, err)
	assert.Equal(t, march2025, bounds)

	_, err = ParseMonthBounds("March")
	require.Error(t, err)
}

func TestPeriodContainingIsInclusiveAndReportsMisses(t *testing.T) {
	periods := []models.Period{
		period("feb", day(2025, 2, 1), day(2025, 2, 28)),
		period("mar", day(2025, 3, 1), day(2025, 3, 31)),
	}

	found, err := PeriodContaining(day(2025, 3, 31), periods)
	require.NoError(t, err)
	assert.Equal(t, "mar", found.ID)

	found, err = PeriodContaining(day(2025, 2, 1), periods)
	require.NoError(t, err)
	assert.Equal(t, "feb", found.ID)

	_, err = PeriodContaining(day(2025, 4, 1), periods)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoPeriodForDate))
}

func TestPreviousPeriodPicksLatestEndingBeforeStart(t *testing.T) {
	jan := period("jan", day(2025, 1, 1), day(2025, 1, 31))
	feb := period("feb", day(2025, 2, 1), day(2025, 2, 28))
	// overlaps the current period start, so it is not a predecessor
	overlap := period("overlap", day(2025, 2, 15), day(2025, 3, 10))
	mar := period("mar", day(2025, 3, 1), day(2025, 3, 31))

	prev, ok := PreviousPeriod(mar, []models.Period{mar, overlap, jan, feb})
	require.True(t, ok)
	assert.Equal(t, "feb", prev.ID)

	_, ok = PreviousPeriod(jan, []models.Period{jan, feb, mar})
	assert.False(t, ok)
}

type mockPeriodStore struct {
	periods []models.Period
}

func (s *mockPeriodStore) List(ctx context.Context) ([]models.Period, error) {
	out := make([]models.Period, len(s.periods))
	copy(out, s.periods)
	return out, nil
}

func (s *mockPeriodStore) FindByID(ctx context.Context, id string) (*models.Period, error) {
	for _, p := range s.periods {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, errNoRows()
}

func TestPeriodServiceResolveAndGet(t *testing.T) {
	svc := NewPeriodService(&mockPeriodStore{periods: []models.Period{
		period("mar", day(2025, 3, 1), day(2025, 3, 31)),
		period("feb", day(2025, 2, 1), day(2025, 2, 28)),
	}})

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "feb", list[0].ID)

	found, err := svc.Resolve(context.Background(), day(2025, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, "mar", found.ID)

	_, err = svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	prev, ok, err := svc.Previous(context.Background(), *found)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "feb", prev.ID)
}
