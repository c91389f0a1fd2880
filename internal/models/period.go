package models

import (
	"encoding/json"
	"time"
)

// DateLayout is the day-granularity layout used for period bounds and class dates.
const DateLayout = "2006-01-02"

// PeriodType represents how a payroll period was defined.
type PeriodType string

const (
	PeriodTypeMonth  PeriodType = "MONTH"
	PeriodTypeSeason PeriodType = "SEASON"
)

// Period models a named payroll period or academic season.
type Period struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Type      PeriodType `db:"type" json:"type"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   time.Time  `db:"end_date" json:"end_date"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Bounds returns the inclusive day bounds of the period.
func (p Period) Bounds() PeriodBounds {
	return PeriodBounds{Start: Day(p.StartDate), End: Day(p.EndDate)}
}

// PeriodBounds is an inclusive [Start, End] range at day granularity.
type PeriodBounds struct {
	Start time.Time
	End   time.Time
}

// Day strips the time-of-day component, keeping the calendar date of t in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether the calendar day of t lies within the bounds, both ends inclusive.
func (b PeriodBounds) Contains(t time.Time) bool {
	day := Day(t)
	return !day.Before(Day(b.Start)) && !day.After(Day(b.End))
}

// Key renders the bounds as "start..end", suitable for cache and lock keys.
func (b PeriodBounds) Key() string {
	return b.Start.Format(DateLayout) + ".." + b.End.Format(DateLayout)
}

type periodBoundsJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MarshalJSON renders the bounds as plain calendar dates.
func (b PeriodBounds) MarshalJSON() ([]byte, error) {
	return json.Marshal(periodBoundsJSON{
		Start: b.Start.Format(DateLayout),
		End:   b.End.Format(DateLayout),
	})
}

// UnmarshalJSON parses calendar-date bounds.
func (b *PeriodBounds) UnmarshalJSON(data []byte) error {
	var raw periodBoundsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := time.Parse(DateLayout, raw.Start)
	if err != nil {
		return err
	}
	end, err := time.Parse(DateLayout, raw.End)
	if err != nil {
		return err
	}
	b.Start, b.End = start, end
	return nil
}
