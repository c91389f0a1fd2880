package models

import (
	"time"

	"github.com/lib/pq"
)

// ClassStatus captures the lifecycle of a booked class.
type ClassStatus string

const (
	ClassStatusScheduled ClassStatus = "SCHEDULED"
	ClassStatusCompleted ClassStatus = "COMPLETED"
	ClassStatusCancelled ClassStatus = "CANCELLED"
)

// AttendanceSide identifies who confirmed presence for a class.
type AttendanceSide string

const (
	AttendanceSideTeacher AttendanceSide = "TEACHER"
	AttendanceSideStudent AttendanceSide = "STUDENT"
)

// AttendanceMark records one side's presence for a class session.
type AttendanceMark struct {
	ClassID string         `db:"class_id" json:"class_id"`
	Side    AttendanceSide `db:"side" json:"side"`
}

// DurationSource tells where a class's effective duration came from.
type DurationSource string

const (
	DurationSourceCallLog DurationSource = "CALL_LOG"
	DurationSourceCourse  DurationSource = "COURSE"
)

// ClassRecord is a booked class joined with its course, call log and attendance marks.
type ClassRecord struct {
	ID                      string         `db:"id" json:"id"`
	TeacherID               string         `db:"teacher_id" json:"teacher_id"`
	TeacherName             string         `db:"teacher_name" json:"teacher_name,omitempty"`
	StudentID               string         `db:"student_id" json:"student_id"`
	CourseID                string         `db:"course_id" json:"course_id"`
	CourseName              string         `db:"course_name" json:"course_name,omitempty"`
	ClassDate               time.Time      `db:"class_date" json:"class_date"`
	TimeSlot                string         `db:"time_slot" json:"time_slot"`
	Status                  ClassStatus    `db:"status" json:"status"`
	ManuallyPayable         bool           `db:"manually_payable" json:"manually_payable"`
	CourseDurationMinutes   int            `db:"course_duration_minutes" json:"course_duration_minutes"`
	RealizedDurationMinutes *int           `db:"realized_duration_minutes" json:"realized_duration_minutes,omitempty"`
	AttendanceSides         pq.StringArray `db:"attendance_sides" json:"attendance_sides"`
}

// HasMark reports whether an attendance mark exists for the given side.
func (c ClassRecord) HasMark(side AttendanceSide) bool {
	for _, s := range c.AttendanceSides {
		if AttendanceSide(s) == side {
			return true
		}
	}
	return false
}

// Day returns the class date formatted at day granularity.
func (c ClassRecord) Day() string {
	return c.ClassDate.Format(DateLayout)
}

// ClassFilter narrows class queries to a period and optionally one teacher.
type ClassFilter struct {
	Bounds    PeriodBounds
	TeacherID string
	Status    ClassStatus
}

// TeacherStudent is one distinct teacher/student pairing derived from bookings.
type TeacherStudent struct {
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	StudentID string `db:"student_id" json:"student_id"`
}
