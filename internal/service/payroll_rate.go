package service

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
)

// BaseHourlyRate feeds the rank formula tier. It is an engine constant, not configuration.
var BaseHourlyRate = decimal.NewFromInt(10)

var (
	minutesPerHour    = decimal.NewFromInt(60)
	defaultMultiplier = decimal.NewFromInt(1)
)

type rateKey struct {
	teacherID string
	courseID  string
}

// RateBook is an indexed snapshot of the three rate sources for one computation.
type RateBook struct {
	overrides      map[rateKey]decimal.Decimal
	courseDefaults map[string]decimal.Decimal
	multipliers    map[string]decimal.Decimal
}

// NewRateBook indexes overrides, course defaults and teacher ranks.
// Course defaults with a null amount are ignored.
func NewRateBook(overrides []models.RateOverride, defaults []models.CourseDefaultRate, ranks []models.TeacherRank) *RateBook {
	book := &RateBook{
		overrides:      make(map[rateKey]decimal.Decimal, len(overrides)),
		courseDefaults: make(map[string]decimal.Decimal, len(defaults)),
		multipliers:    make(map[string]decimal.Decimal, len(ranks)),
	}
	for _, o := range overrides {
		book.overrides[rateKey{teacherID: o.TeacherID, courseID: o.CourseID}] = o.PerClassAmount
	}
	for _, d := range defaults {
		if d.PerClassAmount.Valid {
			book.courseDefaults[d.CourseID] = d.PerClassAmount.Decimal
		}
	}
	for _, r := range ranks {
		book.multipliers[r.TeacherID] = r.RateMultiplier
	}
	return book
}

// Override returns the teacher+course override, if any.
func (b *RateBook) Override(teacherID, courseID string) (decimal.Decimal, bool) {
	if b == nil {
		return decimal.Zero, false
	}
	amount, ok := b.overrides[rateKey{teacherID: teacherID, courseID: courseID}]
	return amount, ok
}

// CourseDefault returns the non-null course default, if any.
func (b *RateBook) CourseDefault(courseID string) (decimal.Decimal, bool) {
	if b == nil {
		return decimal.Zero, false
	}
	amount, ok := b.courseDefaults[courseID]
	return amount, ok
}

// Multiplier returns the teacher's rank multiplier, 1 when unranked.
func (b *RateBook) Multiplier(teacherID string) decimal.Decimal {
	if b == nil {
		return defaultMultiplier
	}
	if m, ok := b.multipliers[teacherID]; ok {
		return m
	}
	return defaultMultiplier
}

// RateTier is one link of the precedence chain.
type RateTier interface {
	Source() models.RateSource
	Resolve(class models.ClassRecord, durationMinutes int, book *RateBook) (decimal.Decimal, bool)
}

// RateTierFunc adapts a function into a RateTier.
type RateTierFunc struct {
	Name models.RateSource
	Fn   func(class models.ClassRecord, durationMinutes int, book *RateBook) (decimal.Decimal, bool)
}

// Source implements RateTier.
func (f RateTierFunc) Source() models.RateSource { return f.Name }

// Resolve implements RateTier.
func (f RateTierFunc) Resolve(class models.ClassRecord, durationMinutes int, book *RateBook) (decimal.Decimal, bool) {
	return f.Fn(class, durationMinutes, book)
}

// OverrideTier prices a class at the teacher+course flat override.
var OverrideTier RateTier = RateTierFunc{
	Name: models.RateSourceOverride,
	Fn: func(class models.ClassRecord, _ int, book *RateBook) (decimal.Decimal, bool) {
		return book.Override(class.TeacherID, class.CourseID)
	},
}

// CourseDefaultTier prices a class at its course's flat default.
var CourseDefaultTier RateTier = RateTierFunc{
	Name: models.RateSourceCourseDefault,
	Fn: func(class models.ClassRecord, _ int, book *RateBook) (decimal.Decimal, bool) {
		return book.CourseDefault(class.CourseID)
	},
}

// RankFormulaTier prices by duration: hours * BaseHourlyRate * rank multiplier. Always matches.
var RankFormulaTier RateTier = RateTierFunc{
	Name: models.RateSourceRankFormula,
	Fn: func(class models.ClassRecord, durationMinutes int, book *RateBook) (decimal.Decimal, bool) {
		hours := decimal.NewFromInt(int64(durationMinutes)).Div(minutesPerHour)
		return hours.Mul(BaseHourlyRate).Mul(book.Multiplier(class.TeacherID)), true
	},
}

// RateResolver walks its tiers in order; the first match wins.
type RateResolver struct {
	tiers []RateTier
}

// NewRateResolver builds a resolver. Without tiers it uses override, course default, rank formula.
func NewRateResolver(tiers ...RateTier) *RateResolver {
	if len(tiers) == 0 {
		tiers = []RateTier{OverrideTier, CourseDefaultTier, RankFormulaTier}
	}
	return &RateResolver{tiers: tiers}
}

// Resolve returns the unrounded amount for class and the tier that produced it.
// Negative amounts are clamped to zero.
func (r *RateResolver) Resolve(class models.ClassRecord, durationMinutes int, book *RateBook) (decimal.Decimal, models.RateSource) {
	for _, tier := range r.tiers {
		amount, ok := tier.Resolve(class, durationMinutes, book)
		if !ok {
			continue
		}
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		return amount, tier.Source()
	}
	return decimal.Zero, ""
}
