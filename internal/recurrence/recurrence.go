// Package recurrence computes the due dates of recurring cash flow templates.
//
// Everything here is pure: no storage access, no clock. Dates are handled as
// calendar days normalized to UTC midnight.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"treasury/internal/models"
)

// Validation errors returned by Rule.Validate.
var (
	ErrUnknownFrequency  = errors.New("unknown frequency")
	ErrInvalidInterval   = errors.New("interval must be at least 1")
	ErrMissingDayOfMonth = errors.New("day_of_month is required for monthly templates")
	ErrMissingDayOfWeek  = errors.New("day_of_week is required for weekly templates")
	ErrDayOfMonthRange   = errors.New("day_of_month must be between 1 and 31")
	ErrDayOfWeekRange    = errors.New("day_of_week must be between 1 (Monday) and 7 (Sunday)")
)

// Rule is the frequency part of a template.
type Rule struct {
	Frequency  models.Frequency
	Interval   int
	DayOfMonth *int
	DayOfWeek  *int // ISO: 1 = Monday ... 7 = Sunday
}

// RuleOf extracts the rule of a template.
func RuleOf(t *models.RecurringCashFlowTemplate) Rule {
	return Rule{
		Frequency:  t.Frequency,
		Interval:   t.Interval,
		DayOfMonth: t.DayOfMonth,
		DayOfWeek:  t.DayOfWeek,
	}
}

// Validate checks the frequency-specific fields.
func (r Rule) Validate() error {
	switch r.Frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly,
		models.FrequencyQuarterly, models.FrequencyYearly:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFrequency, r.Frequency)
	}
	if r.Interval < 1 {
		return ErrInvalidInterval
	}
	if r.Frequency == models.FrequencyMonthly && r.DayOfMonth == nil {
		return ErrMissingDayOfMonth
	}
	if r.Frequency == models.FrequencyWeekly && r.DayOfWeek == nil {
		return ErrMissingDayOfWeek
	}
	if r.DayOfMonth != nil && (*r.DayOfMonth < 1 || *r.DayOfMonth > 31) {
		return ErrDayOfMonthRange
	}
	if r.DayOfWeek != nil && (*r.DayOfWeek < 1 || *r.DayOfWeek > 7) {
		return ErrDayOfWeekRange
	}
	return nil
}

// First aligns start forward to the first date matching the rule. Weekly
// rules move to the target weekday, monthly rules to the (clamped) target
// day of month. Other frequencies keep start as is.
func (r Rule) First(start time.Time) time.Time {
	start = Day(start)

	switch r.Frequency {
	case models.FrequencyWeekly:
		if r.DayOfWeek == nil {
			return start
		}
		delta := (*r.DayOfWeek - isoWeekday(start) + 7) % 7
		return start.AddDate(0, 0, delta)

	case models.FrequencyMonthly:
		if r.DayOfMonth == nil {
			return start
		}
		y, m := start.Year(), start.Month()
		if d := clampDay(y, m, *r.DayOfMonth); start.Day() <= d {
			return date(y, m, d)
		}
		return addMonths(start, 1, *r.DayOfMonth)
	}

	return start
}

// Next returns the occurrence one period after prev.
func (r Rule) Next(prev time.Time) time.Time {
	prev = Day(prev)
	n := r.interval()

	switch r.Frequency {
	case models.FrequencyDaily:
		return prev.AddDate(0, 0, n)
	case models.FrequencyWeekly:
		return prev.AddDate(0, 0, 7*n)
	case models.FrequencyMonthly:
		return addMonths(prev, n, r.targetDay(prev))
	case models.FrequencyQuarterly:
		return addMonths(prev, 3*n, r.targetDay(prev))
	case models.FrequencyYearly:
		return addMonths(prev, 12*n, r.targetDay(prev))
	}
	// Unknown frequencies never reach here through validated templates;
	// a daily step keeps callers that loop on Next terminating.
	return prev.AddDate(0, 0, 1)
}

// Upcoming lists up to n occurrences starting at from (inclusive), stopping
// after end when it is set.
func (r Rule) Upcoming(from time.Time, n int, end *time.Time) []time.Time {
	out := make([]time.Time, 0, n)
	occ := Day(from)
	for len(out) < n {
		if end != nil && occ.After(Day(*end)) {
			break
		}
		out = append(out, occ)
		occ = r.Next(occ)
	}
	return out
}

// IsDueOn reports whether the template's schedule, anchored at its start
// date, has an occurrence on day. It ignores NextOccurrence and
// LastGeneratedAt, so the answer does not depend on past generation runs.
func IsDueOn(t *models.RecurringCashFlowTemplate, day time.Time) bool {
	day = Day(day)
	if t.EndDate != nil && day.After(Day(*t.EndDate)) {
		return false
	}

	r := RuleOf(t)
	anchor := r.First(t.StartDate)
	if day.Before(anchor) {
		return false
	}
	if day.Equal(anchor) {
		return true
	}

	switch r.Frequency {
	case models.FrequencyDaily:
		return daysBetween(anchor, day)%r.interval() == 0
	case models.FrequencyWeekly:
		return daysBetween(anchor, day)%(7*r.interval()) == 0
	case models.FrequencyMonthly, models.FrequencyQuarterly, models.FrequencyYearly:
		if r.DayOfMonth != nil {
			months := monthsBetween(anchor, day)
			return months > 0 && months%r.monthStep() == 0 &&
				day.Day() == clampDay(day.Year(), day.Month(), *r.DayOfMonth)
		}
		// Without a fixed day of month each step re-clamps from the previous
		// occurrence, so walk the chain.
		occ := anchor
		for occ.Before(day) {
			occ = r.Next(occ)
		}
		return occ.Equal(day)
	}
	return false
}

// IsGenerationDue reports whether the scheduler should materialize the
// template's current NextOccurrence on today.
func IsGenerationDue(t *models.RecurringCashFlowTemplate, today time.Time) bool {
	today = Day(today)
	if !t.IsActive {
		return false
	}
	if Day(t.NextOccurrence).After(today) {
		return false
	}
	return t.EndDate == nil || !Day(*t.EndDate).Before(today)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return date(t.Year(), t.Month(), t.Day())
}

// DaysIn returns the number of days of the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (r Rule) interval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

func (r Rule) monthStep() int {
	switch r.Frequency {
	case models.FrequencyQuarterly:
		return 3 * r.interval()
	case models.FrequencyYearly:
		return 12 * r.interval()
	default:
		return r.interval()
	}
}

func (r Rule) targetDay(prev time.Time) int {
	if r.DayOfMonth != nil {
		return *r.DayOfMonth
	}
	return prev.Day()
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clampDay(y int, m time.Month, target int) int {
	if last := DaysIn(y, m); target > last {
		return last
	}
	return target
}

// addMonths moves n months ahead without time.AddDate's overflow into the
// following month, then clamps the target day to the month length.
func addMonths(t time.Time, n, targetDay int) time.Time {
	total := int(t.Month()) - 1 + n
	y := t.Year() + total/12
	m := time.Month(total%12 + 1)
	return date(y, m, clampDay(y, m, targetDay))
}

func isoWeekday(t time.Time) int {
	if wd := int(t.Weekday()); wd != 0 {
		return wd
	}
	return 7
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}
