package models

import "github.com/shopspring/decimal"

// RateSource names the precedence tier that priced a class.
type RateSource string

const (
	RateSourceOverride      RateSource = "OVERRIDE"
	RateSourceCourseDefault RateSource = "COURSE_DEFAULT"
	RateSourceRankFormula   RateSource = "RANK_FORMULA"
)

// RateOverride is a teacher+course flat per-class amount.
type RateOverride struct {
	TeacherID      string          `db:"teacher_id" json:"teacher_id"`
	CourseID       string          `db:"course_id" json:"course_id"`
	PerClassAmount decimal.Decimal `db:"per_class_amount" json:"per_class_amount"`
}

// CourseDefaultRate is the per-class amount configured on a course, when set.
type CourseDefaultRate struct {
	CourseID       string              `db:"course_id" json:"course_id"`
	PerClassAmount decimal.NullDecimal `db:"per_class_amount" json:"per_class_amount"`
}

// TeacherRank maps a teacher to the multiplier applied to the base hourly rate.
type TeacherRank struct {
	TeacherID      string          `db:"teacher_id" json:"teacher_id"`
	RankName       string          `db:"rank_name" json:"rank_name"`
	RateMultiplier decimal.Decimal `db:"rate_multiplier" json:"rate_multiplier"`
}
