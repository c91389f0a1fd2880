package service

import "github.com/noah-isme/tutor-payroll-api/internal/models"

// IsPayable reports whether a class may be priced: completed, not manually excluded,
// and marked present by both the teacher and the student.
func IsPayable(class models.ClassRecord) bool {
	return class.Status == models.ClassStatusCompleted &&
		class.ManuallyPayable &&
		class.HasMark(models.AttendanceSideTeacher) &&
		class.HasMark(models.AttendanceSideStudent)
}

// EffectiveDuration prefers the realised call-log duration over the course's nominal one.
func EffectiveDuration(class models.ClassRecord) (int, models.DurationSource) {
	if class.RealizedDurationMinutes != nil && *class.RealizedDurationMinutes > 0 {
		return *class.RealizedDurationMinutes, models.DurationSourceCallLog
	}
	if class.CourseDurationMinutes < 0 {
		return 0, models.DurationSourceCourse
	}
	return class.CourseDurationMinutes, models.DurationSourceCourse
}
