package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
)

func TestRateResolverPrecedence(t *testing.T) {
	class := payableClass("c1", "t1", "course-1", 3, 90)
	resolver := NewRateResolver()

	tests := []struct {
		name    string
		book    *RateBook
		wantAmt string
		wantSrc models.RateSource
	}{
		{
			name: "override beats course default and rank",
			book: NewRateBook(
				[]models.RateOverride{{TeacherID: "t1", CourseID: "course-1", PerClassAmount: dec("25")}},
				[]models.CourseDefaultRate{{CourseID: "course-1", PerClassAmount: decimal.NewNullDecimal(dec("18"))}},
				[]models.TeacherRank{{TeacherID: "t1", RateMultiplier: dec("2")}},
			),
			wantAmt: "25.00",
			wantSrc: models.RateSourceOverride,
		},
		{
			name: "override for another course is ignored",
			book: NewRateBook(
				[]models.RateOverride{{TeacherID: "t1", CourseID: "course-2", PerClassAmount: dec("25")}},
				[]models.CourseDefaultRate{{CourseID: "course-1", PerClassAmount: decimal.NewNullDecimal(dec("18"))}},
				nil,
			),
			wantAmt: "18.00",
			wantSrc: models.RateSourceCourseDefault,
		},
		{
			name: "null course default falls through to rank formula",
			book: NewRateBook(
				nil,
				[]models.CourseDefaultRate{{CourseID: "course-1"}},
				[]models.TeacherRank{{TeacherID: "t1", RateMultiplier: dec("1.5")}},
			),
			wantAmt: "22.50",
			wantSrc: models.RateSourceRankFormula,
		},
		{
			name:    "unranked teacher uses multiplier one",
			book:    NewRateBook(nil, nil, nil),
			wantAmt: "15.00",
			wantSrc: models.RateSourceRankFormula,
		},
		{
			name: "negative override is clamped",
			book: NewRateBook(
				[]models.RateOverride{{TeacherID: "t1", CourseID: "course-1", PerClassAmount: dec("-4")}},
				nil, nil,
			),
			wantAmt: "0.00",
			wantSrc: models.RateSourceOverride,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			amount, source := resolver.Resolve(class, 90, tc.book)
			assert.Equal(t, tc.wantAmt, amount.StringFixed(2))
			assert.Equal(t, tc.wantSrc, source)
		})
	}
}

func TestRateResolverCustomChain(t *testing.T) {
	flat := RateTierFunc{
		Name: models.RateSource("FLAT"),
		Fn: func(models.ClassRecord, int, *RateBook) (decimal.Decimal, bool) {
			return dec("7"), true
		},
	}
	resolver := NewRateResolver(OverrideTier, flat)
	amount, source := resolver.Resolve(payableClass("c1", "t1", "course-1", 3, 60), 60, NewRateBook(nil, nil, nil))
	assert.Equal(t, "7.00", amount.StringFixed(2))
	assert.Equal(t, models.RateSource("FLAT"), source)
}

func TestRateBookNilIsSafe(t *testing.T) {
	var book *RateBook
	_, ok := book.Override("t1", "course-1")
	assert.False(t, ok)
	_, ok = book.CourseDefault("course-1")
	assert.False(t, ok)
	assert.True(t, book.Multiplier("t1").Equal(decimal.NewFromInt(1)))
}

func TestIsPayable(t *testing.T) {
	base := payableClass("c1", "t1", "course-1", 3, 60)
	assert.True(t, IsPayable(base))

	teacherOnly := base
	teacherOnly.AttendanceSides = []string{string(models.AttendanceSideTeacher)}
	assert.False(t, IsPayable(teacherOnly))

	studentOnly := base
	studentOnly.AttendanceSides = []string{string(models.AttendanceSideStudent)}
	assert.False(t, IsPayable(studentOnly))

	excluded := base
	excluded.ManuallyPayable = false
	assert.False(t, IsPayable(excluded))

	scheduled := base
	scheduled.Status = models.ClassStatusScheduled
	assert.False(t, IsPayable(scheduled))
}

func TestEffectiveDurationPrefersCallLog(t *testing.T) {
	class := payableClass("c1", "t1", "course-1", 3, 60)
	minutes, source := EffectiveDuration(class)
	assert.Equal(t, 60, minutes)
	assert.Equal(t, models.DurationSourceCourse, source)

	class.RealizedDurationMinutes = intPtr(45)
	minutes, source = EffectiveDuration(class)
	assert.Equal(t, 45, minutes)
	assert.Equal(t, models.DurationSourceCallLog, source)

	class.RealizedDurationMinutes = intPtr(0)
	minutes, source = EffectiveDuration(class)
	assert.Equal(t, 60, minutes)
	assert.Equal(t, models.DurationSourceCourse, source)
}
