package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
)

func TestPeriodRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "type", "start_date", "end_date", "created_at"}).
		AddRow("p-feb", "February 2025", "MONTH", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), time.Now()).
		AddRow("p-mar", "March 2025", "MONTH", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM payroll_periods ORDER BY start_date ASC")).WillReturnRows(rows)

	periods, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, periods, 2)
	require.Equal(t, models.PeriodTypeMonth, periods[1].Type)
	require.True(t, periods[1].Bounds().Contains(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPeriodRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "type", "start_date", "end_date", "created_at"}).
		AddRow("p-1", "Spring", "SEASON", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM payroll_periods WHERE id = $1")).
		WithArgs("p-1").
		WillReturnRows(rows)

	period, err := repo.FindByID(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, models.PeriodTypeSeason, period.Type)
	require.NoError(t, mock.ExpectationsWereMet())
}
