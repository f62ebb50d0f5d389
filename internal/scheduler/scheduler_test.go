package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/lily/internal/domain"
)

func TestCompileTriggerScheduleValidExpression(t *testing.T) {
	tests := []struct {
		name        string
		cronExpr    string
		timezone    string
		expectError bool
	}{
		{name: "every weekday at nine", cronExpr: "0 9 * * 1-5", timezone: "America/New_York", expectError: false},
		{name: "every fifteen minutes", cronExpr: "*/15 * * * *", timezone: "", expectError: false},
		{name: "daily at five", cronExpr: "0 5 * * *", timezone: "UTC", expectError: false},
		{name: "malformed expression", cronExpr: "not a cron", timezone: "UTC", expectError: true},
		{name: "unknown timezone", cronExpr: "0 5 * * *", timezone: "Nowhere/Imaginary", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trig := &domain.Trigger{CronExpr: tt.cronExpr, Timezone: tt.timezone}
			_, err := compileTriggerSchedule(trig)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompileTriggerScheduleMatchesExpectedMinutes(t *testing.T) {
	schedule, err := compileTriggerSchedule(&domain.Trigger{CronExpr: "0 5 * * *", Timezone: "UTC"})
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 4, 0, 0, 0, time.UTC)
	next := schedule.Next(base)
	assert.Equal(t, 5, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestCompileTriggerScheduleRespectsTimezone(t *testing.T) {
	utcSchedule, err := compileTriggerSchedule(&domain.Trigger{CronExpr: "0 9 * * *", Timezone: "UTC"})
	require.NoError(t, err)
	nySchedule, err := compileTriggerSchedule(&domain.Trigger{CronExpr: "0 9 * * *", Timezone: "America/New_York"})
	require.NoError(t, err)

	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	utcNext := utcSchedule.Next(base)
	nyNext := nySchedule.Next(base)

	assert.True(t, utcNext.Before(nyNext))
}
