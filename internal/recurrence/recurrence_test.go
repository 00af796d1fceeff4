package recurrence

import (
	"errors"
	"testing"
	"time"

	"treasury/internal/models"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr error
	}{
		{name: "daily", rule: Rule{Frequency: models.FrequencyDaily, Interval: 1}},
		{name: "weekly", rule: Rule{Frequency: models.FrequencyWeekly, Interval: 2, DayOfWeek: intPtr(5)}},
		{name: "monthly", rule: Rule{Frequency: models.FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(31)}},
		{name: "quarterly_without_day", rule: Rule{Frequency: models.FrequencyQuarterly, Interval: 1}},
		{name: "unknown_frequency", rule: Rule{Frequency: "hourly", Interval: 1}, wantErr: ErrUnknownFrequency},
		{name: "zero_interval", rule: Rule{Frequency: models.FrequencyDaily}, wantErr: ErrInvalidInterval},
		{name: "monthly_missing_day", rule: Rule{Frequency: models.FrequencyMonthly, Interval: 1}, wantErr: ErrMissingDayOfMonth},
		{name: "weekly_missing_day", rule: Rule{Frequency: models.FrequencyWeekly, Interval: 1}, wantErr: ErrMissingDayOfWeek},
		{name: "day_of_month_32", rule: Rule{Frequency: models.FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(32)}, wantErr: ErrDayOfMonthRange},
		{name: "day_of_week_0", rule: Rule{Frequency: models.FrequencyWeekly, Interval: 1, DayOfWeek: intPtr(0)}, wantErr: ErrDayOfWeekRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRule_First(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		start time.Time
		want  time.Time
	}{
		{
			name:  "weekly_monday_to_wednesday",
			rule:  Rule{Frequency: models.FrequencyWeekly, Interval: 1, DayOfWeek: intPtr(3)},
			start: d(2025, time.January, 6), // Monday
			want:  d(2025, time.January, 8),
		},
		{
			name:  "weekly_already_aligned",
			rule:  Rule{Frequency: models.FrequencyWeekly, Interval: 1, DayOfWeek: intPtr(3)},
			start: d(2025, time.January, 1), // Wednesday
			want:  d(2025, time.January, 1),
		},
		{
			name:  "weekly_wraps_to_next_week",
			rule:  Rule{Frequency: models.FrequencyWeekly, Interval: 1, DayOfWeek: intPtr(1)},
			start: d(2025, time.January, 4), // Saturday
			want:  d(2025, time.January, 6),
		},
		{
			name:  "weekly_sunday",
			rule:  Rule{Frequency: models.FrequencyWeekly, Interval: 1, DayOfWeek: intPtr(7)},
			start: d(2025, time.January, 6),
			want:  d(2025, time.January, 12),
		},
		{
			name:  "monthly_later_this_month",
			rule:  Rule{Frequency: models.FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(15)},
			start: d(2025, time.March, 3),
			want:  d(2025, time.March, 15),
		},
		{
			name:  "monthly_passed_moves_to_next_month",
			rule:  Rule{Frequency: models.FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(10)},
			start: d(2025, time.March, 20),
			want:  d(2025, time.April, 10),
		},
		{
			name:  "monthly_clamped_in_short_month",
			rule:  Rule{Frequency: models.FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(31)},
			start: d(2025, time.February, 3),
			want:  d(2025, time.February, 28),
		},
		{
			name:  "monthly_next_month_clamped",
			rule:  Rule{Frequency: models.FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(30)},
			start: d(2024, time.January, 31),
			want:  d(2024, time.February, 29),
		},
		{
			name:  "daily_unchanged",
			rule:  Rule{Frequency: models.FrequencyDaily, Interval: 3},
			start: d(2025, time.May, 17),
			want:  d(2025, time.May, 17),
		},
		{
			name:  "quarterly_unchanged",
			rule:  Rule{Frequency: models.FrequencyQuarterly, Interval: 1, DayOfMonth: intPtr(1)},
			start: d(2025, time.May, 17),
			want:  d(2025, time.May, 17),
		},
		{
			name:  "time_of_day_dropped",
			rule:  Rule{Frequency: models.FrequencyYearly, Interval: 1},
			start: time.Date(2025, time.May, 17, 18, 30, 0, 0, time.UTC),
			want:  d(2025, time.May, 17),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rule.First(tt.start)
			if !got.Equal(tt.want) {
				t.Errorf("First(%s) = %s, want %s", tt.start.Format(time.DateOnly), got.Format(time.DateOnly), tt.want.Format(time.DateOnly))
			}
			if got.Before(Day(tt.start)) {
				t.Error("first occurrence moved backwards")
			}
		})
	}
}

func TestRule_Next(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		prev time.Time
		want time.Time
	}{
		{name: "daily", rule: Rule{Frequency: models.FrequencyDaily, Interval: 1}, prev: d(2025, time.December, 31), want: d(2026, time.January, 1)},
		{name: "daily_interval_3", rule: Rule{Frequency: models.FrequencyDaily, Interval: 3}, prev: d(2025, time.February, 27), want: d(2025, time.March, 2)},
		{name: "weekly", rule: Rule{Frequency: models.FrequencyWeekly, Interval: 1, DayOfWeek: intPtr(3)}, prev: d(2025, time.January, 1), want: d(2025, time.January, 8)},
		{name: "biweekly", rule: Rule{Frequency: models.FrequencyWeekly, Interval: 2, DayOfWeek: intPtr(5)}, prev: d(2025, time.January, 3), want: d(2025, time.January, 17)},
		{name: "monthly_jan31_to_feb28", rule: Rule{Frequency: models.FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(31)}, prev: d(2025, time.January, 31), want: d(2025, time.February, 28)},
		{name: "monthly_jan31_to_feb29_leap", rule: Rule{Frequency: models.FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(31)}, prev: d(2024, time.January, 31), want: d(2024, time.February, 29)},
		{name: "monthly_recovers_after_clamp", rule: Rule{Frequency: models.FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(31)}, prev: d(2025, time.February, 28), want: d(2025, time.March, 31)},
		{name: "monthly_across_year", rule: Rule{Frequency: models.FrequencyMonthly, Interval: 2, DayOfMonth: intPtr(5)}, prev: d(2025, time.November, 5), want: d(2026, time.January, 5)},
		{name: "quarterly", rule: Rule{Frequency: models.FrequencyQuarterly, Interval: 1, DayOfMonth: intPtr(31)}, prev: d(2025, time.January, 31), want: d(2025, time.April, 30)},
		{name: "quarterly_uses_previous_day", rule: Rule{Frequency: models.FrequencyQuarterly, Interval: 1}, prev: d(2025, time.January, 15), want: d(2025, time.April, 15)},
		{name: "semiannual", rule: Rule{Frequency: models.FrequencyQuarterly, Interval: 2, DayOfMonth: intPtr(1)}, prev: d(2025, time.October, 1), want: d(2026, time.April, 1)},
		{name: "yearly_feb29_clamped", rule: Rule{Frequency: models.FrequencyYearly, Interval: 1}, prev: d(2024, time.February, 29), want: d(2025, time.February, 28)},
		{name: "yearly_feb29_with_day_returns_in_leap_year", rule: Rule{Frequency: models.FrequencyYearly, Interval: 4, DayOfMonth: intPtr(29)}, prev: d(2024, time.February, 29), want: d(2028, time.February, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rule.Next(tt.prev)
			if !got.Equal(tt.want) {
				t.Errorf("Next(%s) = %s, want %s", tt.prev.Format(time.DateOnly), got.Format(time.DateOnly), tt.want.Format(time.DateOnly))
			}
			if !got.After(tt.prev) {
				t.Error("next occurrence must be strictly after the previous one")
			}
		})
	}
}

func TestRule_Upcoming(t *testing.T) {
	rule := Rule{Frequency: models.FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(31)}
	end := d(2025, time.April, 15)

	got := rule.Upcoming(d(2025, time.January, 31), 5, &end)
	want := []time.Time{d(2025, time.January, 31), d(2025, time.February, 28), d(2025, time.March, 31)}
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestIsDueOn(t *testing.T) {
	weekly := &models.RecurringCashFlowTemplate{
		Frequency: models.FrequencyWeekly, Interval: 1, DayOfWeek: intPtr(3),
		StartDate: d(2025, time.January, 6),
	}
	monthly := &models.RecurringCashFlowTemplate{
		Frequency: models.FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(31),
		StartDate: d(2025, time.January, 1),
	}
	endDate := d(2025, time.January, 10)
	daily := &models.RecurringCashFlowTemplate{
		Frequency: models.FrequencyDaily, Interval: 2,
		StartDate: d(2025, time.January, 1), EndDate: &endDate,
	}
	quarterly := &models.RecurringCashFlowTemplate{
		Frequency: models.FrequencyQuarterly, Interval: 1,
		StartDate: d(2024, time.August, 31),
	}

	tests := []struct {
		name     string
		template *models.RecurringCashFlowTemplate
		day      time.Time
		want     bool
	}{
		{name: "weekly_before_start", template: weekly, day: d(2025, time.January, 1), want: false},
		{name: "weekly_first", template: weekly, day: d(2025, time.January, 8), want: true},
		{name: "weekly_wrong_day", template: weekly, day: d(2025, time.January, 9), want: false},
		{name: "weekly_far_future", template: weekly, day: d(2026, time.January, 7), want: true},
		{name: "monthly_jan31", template: monthly, day: d(2025, time.January, 31), want: true},
		{name: "monthly_feb28_clamped", template: monthly, day: d(2025, time.February, 28), want: true},
		{name: "monthly_feb27", template: monthly, day: d(2025, time.February, 27), want: false},
		{name: "monthly_apr30", template: monthly, day: d(2025, time.April, 30), want: true},
		{name: "daily_every_other_day", template: daily, day: d(2025, time.January, 5), want: true},
		{name: "daily_off_day", template: daily, day: d(2025, time.January, 4), want: false},
		{name: "daily_after_end", template: daily, day: d(2025, time.January, 11), want: false},
		{name: "quarterly_chain_nov30", template: quarterly, day: d(2024, time.November, 30), want: true},
		{name: "quarterly_chain_follows_clamp", template: quarterly, day: d(2025, time.February, 28), want: true},
		{name: "quarterly_off_month", template: quarterly, day: d(2024, time.December, 30), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDueOn(tt.template, tt.day); got != tt.want {
				t.Errorf("IsDueOn(%s) = %v, want %v", tt.day.Format(time.DateOnly), got, tt.want)
			}
		})
	}
}

func TestIsDueOn_IgnoresGenerationState(t *testing.T) {
	template := &models.RecurringCashFlowTemplate{
		Frequency: models.FrequencyWeekly, Interval: 1, DayOfWeek: intPtr(3),
		StartDate:      d(2025, time.January, 1),
		NextOccurrence: d(2025, time.January, 1),
	}
	day := d(2025, time.January, 15)

	before := IsDueOn(template, day)

	generated := time.Now()
	template.NextOccurrence = d(2025, time.March, 5)
	template.LastGeneratedAt = &generated

	if after := IsDueOn(template, day); after != before || !after {
		t.Errorf("IsDueOn changed with generation state: before=%v after=%v", before, after)
	}
}

func TestIsDueOn_AgreesWithNextChain(t *testing.T) {
	templates := []*models.RecurringCashFlowTemplate{
		{Frequency: models.FrequencyDaily, Interval: 3, StartDate: d(2025, time.January, 2)},
		{Frequency: models.FrequencyWeekly, Interval: 2, DayOfWeek: intPtr(5), StartDate: d(2025, time.January, 1)},
		{Frequency: models.FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(30), StartDate: d(2025, time.January, 31)},
		{Frequency: models.FrequencyQuarterly, Interval: 1, DayOfMonth: intPtr(31), StartDate: d(2025, time.January, 10)},
		{Frequency: models.FrequencyYearly, Interval: 1, StartDate: d(2024, time.February, 29)},
	}

	for _, tmpl := range templates {
		t.Run(string(tmpl.Frequency), func(t *testing.T) {
			rule := RuleOf(tmpl)
			horizon := d(2027, time.January, 1)
			due := map[time.Time]bool{}
			for occ := rule.First(tmpl.StartDate); occ.Before(horizon); occ = rule.Next(occ) {
				due[occ] = true
			}
			for day := d(2024, time.January, 1); day.Before(horizon); day = day.AddDate(0, 0, 1) {
				if got := IsDueOn(tmpl, day); got != due[day] {
					t.Fatalf("IsDueOn(%s) = %v, chain says %v", day.Format(time.DateOnly), got, due[day])
				}
			}
		})
	}
}

func TestIsGenerationDue(t *testing.T) {
	today := d(2025, time.March, 10)
	past := d(2025, time.March, 1)

	tests := []struct {
		name     string
		template models.RecurringCashFlowTemplate
		want     bool
	}{
		{name: "due_today", template: models.RecurringCashFlowTemplate{IsActive: true, NextOccurrence: today}, want: true},
		{name: "overdue", template: models.RecurringCashFlowTemplate{IsActive: true, NextOccurrence: past}, want: true},
		{name: "future", template: models.RecurringCashFlowTemplate{IsActive: true, NextOccurrence: today.AddDate(0, 0, 1)}, want: false},
		{name: "inactive", template: models.RecurringCashFlowTemplate{IsActive: false, NextOccurrence: past}, want: false},
		{name: "ended", template: models.RecurringCashFlowTemplate{IsActive: true, NextOccurrence: past, EndDate: &past}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGenerationDue(&tt.template, today); got != tt.want {
				t.Errorf("IsGenerationDue = %v, want %v", got, tt.want)
			}
		})
	}
}
