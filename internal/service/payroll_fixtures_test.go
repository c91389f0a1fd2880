package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
	"github.com/noah-isme/tutor-payroll-api/pkg/cache"
)

var (
	march2025 = models.PeriodBounds{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	adminClaims   = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	teacherClaims = &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}
)

func dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func intPtr(v int) *int {
	return &v
}

// payableClass builds a completed March 2025 class with both attendance marks.
func payableClass(id, teacherID, courseID string, day, minutes int) models.ClassRecord {
	return models.ClassRecord{
		ID:                    id,
		TeacherID:             teacherID,
		TeacherName:           "Teacher " + teacherID,
		StudentID:             "student-" + id,
		CourseID:              courseID,
		ClassDate:             time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		TimeSlot:              fmt.Sprintf("%02d:00", 8+day%10),
		Status:                models.ClassStatusCompleted,
		ManuallyPayable:       true,
		CourseDurationMinutes: minutes,
		AttendanceSides:       []string{string(models.AttendanceSideTeacher), string(models.AttendanceSideStudent)},
	}
}

type mockClassStore struct {
	classes    []models.ClassRecord
	listCalls  int
	payability map[string]bool
	err        error
}

func (s *mockClassStore) ListClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, error) {
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.ClassRecord, 0, len(s.classes))
	for _, c := range s.classes {
		if !filter.Bounds.Contains(c.ClassDate) {
			continue
		}
		if filter.TeacherID != "" && c.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *mockClassStore) SetManualPayability(ctx context.Context, classID string, payable bool) error {
	for i := range s.classes {
		if s.classes[i].ID == classID {
			s.classes[i].ManuallyPayable = payable
			if s.payability == nil {
				s.payability = make(map[string]bool)
			}
			s.payability[classID] = payable
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockRateStore struct {
	overrides []models.RateOverride
	defaults  []models.CourseDefaultRate
	ranks     []models.TeacherRank
}

func (s *mockRateStore) ListOverrides(ctx context.Context, teacherIDs []string) ([]models.RateOverride, error) {
	return s.overrides, nil
}

func (s *mockRateStore) ListCourseDefaults(ctx context.Context, courseIDs []string) ([]models.CourseDefaultRate, error) {
	return s.defaults, nil
}

func (s *mockRateStore) ListTeacherRanks(ctx context.Context, teacherIDs []string) ([]models.TeacherRank, error) {
	return s.ranks, nil
}

type mockLocker struct {
	held     map[string]bool
	acquired []string
	released int
}

func (l *mockLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l.held[key] {
		return nil, cache.ErrLockHeld
	}
	l.acquired = append(l.acquired, key)
	return func() { l.released++ }, nil
}

func errNoRows() error {
	return sql.ErrNoRows
}
