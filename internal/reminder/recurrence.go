package reminder

import (
	"fmt"
	"time"

	"github.com/dukerupert/billfold/internal/model"
)

// NextDueDate advances due by one interval. Monthly and yearly steps keep
// the day of month, clamped to the last day of the target month, so
// Jan 31 becomes Feb 28 (or 29) and Feb 29 becomes Feb 28 of a common year.
func NextDueDate(due model.Date, interval model.Interval) (model.Date, error) {
	switch interval {
	case model.IntervalWeekly:
		return due.AddDays(7), nil
	case model.IntervalMonthly:
		return addMonthsClamped(due, 1), nil
	case model.IntervalYearly:
		return addMonthsClamped(due, 12), nil
	default:
		return model.Date{}, fmt.Errorf("unknown recurring interval %q", interval)
	}
}

func addMonthsClamped(d model.Date, months int) model.Date {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	day := d.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return model.NewDate(first.Year(), first.Month(), day)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
