package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDue(t *testing.T) {
	now := time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		due       time.Time
		wantState DueState
		wantDays  int
	}{
		{"expired yesterday", now.AddDate(0, 0, -1), DueOverdue, -1},
		{"expired weeks ago", now.AddDate(0, 0, -20), DueOverdue, -20},
		{"expires today", now, DueExpiring, 0},
		{"expires tomorrow", now.AddDate(0, 0, 1), DueExpiring, 1},
		{"expires at the window edge", now.AddDate(0, 0, 3), DueExpiring, 3},
		{"just past the window", now.AddDate(0, 0, 4), DueActive, 4},
		{"expires next month", now.AddDate(0, 1, 0), DueActive, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyDue(tt.due, now)
			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, tt.wantDays, got.DaysLeft)
		})
	}

	t.Run("time of day does not change the classification", func(t *testing.T) {
		dueMorning := time.Date(2026, time.March, 11, 1, 0, 0, 0, time.UTC)
		lateEvening := time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC)
		got := ClassifyDue(dueMorning, lateEvening)
		assert.Equal(t, DueExpiring, got.State)
		assert.Equal(t, 1, got.DaysLeft)
	})
}

func TestRoleLandingPath(t *testing.T) {
	assert.Equal(t, "/admin", RoleAdmin.LandingPath())
	assert.Equal(t, "/dashboard", RoleMember.LandingPath())
	assert.Equal(t, "/dashboard", Role("").LandingPath())
}
