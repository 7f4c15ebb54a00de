package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/billfold/internal/model"
)

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name     string
		due      model.Date
		interval model.Interval
		want     string
	}{
		{"weekly", model.NewDate(2024, time.March, 10), model.IntervalWeekly, "2024-03-17"},
		{"weekly across month", model.NewDate(2024, time.February, 26), model.IntervalWeekly, "2024-03-04"},
		{"monthly", model.NewDate(2024, time.March, 10), model.IntervalMonthly, "2024-04-10"},
		{"monthly across year", model.NewDate(2024, time.December, 5), model.IntervalMonthly, "2025-01-05"},
		{"monthly clamps to leap february", model.NewDate(2024, time.January, 31), model.IntervalMonthly, "2024-02-29"},
		{"monthly clamps to february", model.NewDate(2023, time.January, 31), model.IntervalMonthly, "2023-02-28"},
		{"monthly clamps to 30 days", model.NewDate(2024, time.March, 31), model.IntervalMonthly, "2024-04-30"},
		{"yearly", model.NewDate(2024, time.June, 1), model.IntervalYearly, "2025-06-01"},
		{"yearly from leap day", model.NewDate(2024, time.February, 29), model.IntervalYearly, "2025-02-28"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDueDate(tt.due, tt.interval)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNextDueDateUnknownInterval(t *testing.T) {
	_, err := NextDueDate(model.NewDate(2024, time.March, 10), model.Interval("daily"))
	assert.Error(t, err)
}

func TestMonthlyClampDrifts(t *testing.T) {
	// Once clamped, the shorter day carries forward.
	d := model.NewDate(2024, time.January, 31)
	var got []string
	for i := 0; i < 3; i++ {
		var err error
		d, err = NextDueDate(d, model.IntervalMonthly)
		require.NoError(t, err)
		got = append(got, d.String())
	}
	assert.Equal(t, []string{"2024-02-29", "2024-03-29", "2024-04-29"}, got)
}
