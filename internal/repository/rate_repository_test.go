package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateRepositoryListsSources(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRateRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_rate_overrides WHERE teacher_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "course_id", "per_class_amount"}).AddRow("t1", "course-1", "25.50"))
	overrides, err := repo.ListOverrides(ctx, []string{"t1"})
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.True(t, overrides[0].PerClassAmount.Equal(decimal.RequireFromString("25.5")))

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "per_class_amount"}).
			AddRow("course-1", "15.00").
			AddRow("course-2", nil))
	defaults, err := repo.ListCourseDefaults(ctx, []string{"course-1", "course-2"})
	require.NoError(t, err)
	require.Len(t, defaults, 2)
	assert.True(t, defaults[0].PerClassAmount.Valid)
	assert.False(t, defaults[1].PerClassAmount.Valid)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN teacher_ranks tr ON tr.id = t.rank_id")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "rank_name", "rate_multiplier"}).AddRow("t1", "Senior", "1.2"))
	ranks, err := repo.ListTeacherRanks(ctx, []string{"t1"})
	require.NoError(t, err)
	require.Len(t, ranks, 1)
	assert.True(t, ranks[0].RateMultiplier.Equal(decimal.RequireFromString("1.2")))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateRepositorySkipsQueriesForEmptyInput(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRateRepository(db)

	overrides, err := repo.ListOverrides(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, overrides)
	ranks, err := repo.ListTeacherRanks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ranks)
	assert.NoError(t, mock.ExpectationsWereMet())
}
