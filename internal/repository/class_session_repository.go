package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
)

// ClassSessionRepository reads booked classes with their course, call log and attendance marks.
type ClassSessionRepository struct {
	db *sqlx.DB
}

// NewClassSessionRepository constructs a ClassSessionRepository.
func NewClassSessionRepository(db *sqlx.DB) *ClassSessionRepository {
	return &ClassSessionRepository{db: db}
}

const classRecordColumns = `cs.id, cs.teacher_id, COALESCE(t.full_name, '') AS teacher_name, cs.student_id,
       cs.course_id, COALESCE(c.name, '') AS course_name, cs.class_date, cs.time_slot, cs.status,
       cs.manually_payable, COALESCE(c.class_duration_minutes, 0) AS course_duration_minutes,
       (SELECT MAX(cl.duration_minutes) FROM call_logs cl WHERE cl.class_id = cs.id) AS realized_duration_minutes,
       ARRAY(SELECT DISTINCT am.side::text FROM attendance_marks am WHERE am.class_id = cs.id ORDER BY 1) AS attendance_sides`

// ListClasses returns classes whose date lies within the filter bounds, inclusive.
func (r *ClassSessionRepository) ListClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT ")
	builder.WriteString(classRecordColumns)
	builder.WriteString(` FROM class_sessions cs
	JOIN courses c ON c.id = cs.course_id
	LEFT JOIN teachers t ON t.id = cs.teacher_id
	WHERE cs.class_date BETWEEN $1::date AND $2::date`)
	args := []interface{}{
		filter.Bounds.Start.Format(models.DateLayout),
		filter.Bounds.End.Format(models.DateLayout),
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		builder.WriteString(fmt.Sprintf(" AND cs.teacher_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		builder.WriteString(fmt.Sprintf(" AND cs.status = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY cs.class_date ASC, cs.time_slot ASC, cs.id ASC")

	var classes []models.ClassRecord
	if err := r.db.SelectContext(ctx, &classes, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list class sessions: %w", err)
	}
	return classes, nil
}

// SetManualPayability stores the administrator's payability flag. Missing classes yield sql.ErrNoRows.
func (r *ClassSessionRepository) SetManualPayability(ctx context.Context, classID string, payable bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE class_sessions SET manually_payable = $2 WHERE id = $1`, classID, payable)
	if err != nil {
		return fmt.Errorf("set class payability: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set class payability rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListTeacherStudents returns distinct teacher/student pairs booked within bounds, cancelled classes excluded.
func (r *ClassSessionRepository) ListTeacherStudents(ctx context.Context, bounds models.PeriodBounds) ([]models.TeacherStudent, error) {
	const query = `SELECT DISTINCT teacher_id, student_id FROM class_sessions
	WHERE class_date BETWEEN $1::date AND $2::date AND status <> $3
	ORDER BY teacher_id, student_id`
	var pairs []models.TeacherStudent
	if err := r.db.SelectContext(ctx, &pairs, query,
		bounds.Start.Format(models.DateLayout),
		bounds.End.Format(models.DateLayout),
		models.ClassStatusCancelled,
	); err != nil {
		return nil, fmt.Errorf("list teacher students: %w", err)
	}
	return pairs, nil
}

// PerfectAttendanceTeacherIDs returns active teachers with at least one completed class in bounds
// and a teacher-side attendance mark on every one of them.
func (r *ClassSessionRepository) PerfectAttendanceTeacherIDs(ctx context.Context, bounds models.PeriodBounds) ([]string, error) {
	const query = `SELECT cs.teacher_id FROM class_sessions cs
	JOIN teachers t ON t.id = cs.teacher_id AND t.active = TRUE
	LEFT JOIN attendance_marks am ON am.class_id = cs.id AND am.side = $4
	WHERE cs.class_date BETWEEN $1::date AND $2::date AND cs.status = $3
	GROUP BY cs.teacher_id
	HAVING COUNT(DISTINCT cs.id) = COUNT(DISTINCT am.class_id)
	ORDER BY cs.teacher_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query,
		bounds.Start.Format(models.DateLayout),
		bounds.End.Format(models.DateLayout),
		models.ClassStatusCompleted,
		models.AttendanceSideTeacher,
	); err != nil {
		return nil, fmt.Errorf("list perfect attendance teachers: %w", err)
	}
	return ids, nil
}
