package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysLate(t *testing.T) {
	due := time.Date(2025, 6, 6, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before_due", due.AddDate(0, 0, -2), 0},
		{"on_due_date", due, 0},
		{"later_same_day", due.Add(5 * time.Hour), 0},
		{"next_day", due.AddDate(0, 0, 1), 1},
		{"next_day_earlier_hour", due.AddDate(0, 0, 1).Add(-9 * time.Hour), 1},
		{"three_days", due.AddDate(0, 0, 3), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysLate(due, tt.now))
		})
	}
}

func TestIsOverdue(t *testing.T) {
	due := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)
	past := due.AddDate(0, 0, 2)

	open := &Circulation{Status: StatusBorrowed, DueDate: due}
	assert.False(t, open.IsOverdue(due))
	assert.True(t, open.IsOverdue(past))

	// Only open loans can be overdue.
	returned := &Circulation{Status: StatusReturned, DueDate: due}
	assert.False(t, returned.IsOverdue(past))
	lost := &Circulation{Status: StatusLost, DueDate: due}
	assert.False(t, lost.IsOverdue(past))
}
