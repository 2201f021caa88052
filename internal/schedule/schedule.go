// Package schedule computes the next fire time for recurring campaigns.
// All functions are pure: the reference time is always passed in, never
// read from the wall clock, so recurrence is replayable in tests.
package schedule

import (
	"fmt"
	"time"

	"github.com/mailfleet/mailfleet/internal/models"
)

// NextRun returns the next occurrence of the configured schedule strictly
// after now. It never returns a past time, even when invoked late.
//
// Monthly schedules whose day_of_month does not exist in a target month
// (e.g. 31 in February) are clamped to that month's last day, so a
// "31st of the month" campaign fires on Feb 28/29 rather than skipping
// February entirely.
func NextRun(st models.ScheduleType, cfg models.ScheduleConfig, now time.Time) (time.Time, error) {
	if err := cfg.Validate(st); err != nil {
		return time.Time{}, err
	}

	switch st {
	case models.ScheduleDaily:
		return nextDaily(cfg, now), nil
	case models.ScheduleWeekly:
		return nextWeekly(cfg, now), nil
	case models.ScheduleMonthly:
		return nextMonthly(cfg, now), nil
	default:
		return time.Time{}, fmt.Errorf("schedule type %q does not recur", st)
	}
}

func nextDaily(cfg models.ScheduleConfig, now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), cfg.Hour, cfg.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func nextWeekly(cfg models.ScheduleConfig, now time.Time) time.Time {
	daysAhead := (*cfg.DayOfWeek - int(now.Weekday()) + 7) % 7
	next := time.Date(now.Year(), now.Month(), now.Day(), cfg.Hour, cfg.Minute, 0, 0, now.Location())
	next = next.AddDate(0, 0, daysAhead)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func nextMonthly(cfg models.ScheduleConfig, now time.Time) time.Time {
	for add := 0; ; add++ {
		// Normalize to the first of the target month before applying the
		// day, otherwise AddDate overflow skews the month.
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		first = first.AddDate(0, add, 0)

		day := *cfg.DayOfMonth
		if last := daysInMonth(first.Year(), first.Month()); day > last {
			day = last
		}

		next := time.Date(first.Year(), first.Month(), day, cfg.Hour, cfg.Minute, 0, 0, now.Location())
		if next.After(now) {
			return next
		}
	}
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
