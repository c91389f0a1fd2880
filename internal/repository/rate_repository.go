package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
)

// RateRepository reads the three pricing sources: overrides, course defaults and ranks.
type RateRepository struct {
	db *sqlx.DB
}

// NewRateRepository constructs a RateRepository.
func NewRateRepository(db *sqlx.DB) *RateRepository {
	return &RateRepository{db: db}
}

// ListOverrides returns teacher+course overrides for the given teachers.
func (r *RateRepository) ListOverrides(ctx context.Context, teacherIDs []string) ([]models.RateOverride, error) {
	if len(teacherIDs) == 0 {
		return []models.RateOverride{}, nil
	}
	const query = `SELECT teacher_id, course_id, per_class_amount FROM teacher_rate_overrides WHERE teacher_id = ANY($1)`
	var overrides []models.RateOverride
	if err := r.db.SelectContext(ctx, &overrides, query, pq.Array(teacherIDs)); err != nil {
		return nil, fmt.Errorf("list rate overrides: %w", err)
	}
	return overrides, nil
}

// ListCourseDefaults returns the configured per-class default of each course. Unset defaults come back null.
func (r *RateRepository) ListCourseDefaults(ctx context.Context, courseIDs []string) ([]models.CourseDefaultRate, error) {
	if len(courseIDs) == 0 {
		return []models.CourseDefaultRate{}, nil
	}
	const query = `SELECT id AS course_id, default_rate AS per_class_amount FROM courses WHERE id = ANY($1)`
	var defaults []models.CourseDefaultRate
	if err := r.db.SelectContext(ctx, &defaults, query, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("list course default rates: %w", err)
	}
	return defaults, nil
}

// ListTeacherRanks returns rank multipliers for ranked teachers only.
func (r *RateRepository) ListTeacherRanks(ctx context.Context, teacherIDs []string) ([]models.TeacherRank, error) {
	if len(teacherIDs) == 0 {
		return []models.TeacherRank{}, nil
	}
	const query = `SELECT t.id AS teacher_id, tr.name AS rank_name, tr.rate_multiplier
	FROM teachers t
	JOIN teacher_ranks tr ON tr.id = t.rank_id
	WHERE t.id = ANY($1)`
	var ranks []models.TeacherRank
	if err := r.db.SelectContext(ctx, &ranks, query, pq.Array(teacherIDs)); err != nil {
		return nil, fmt.Errorf("list teacher ranks: %w", err)
	}
	return ranks, nil
}
