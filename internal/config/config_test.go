package config

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "Asia/Jakarta", cfg.Attendance.Timezone)
	assert.Equal(t, []time.Weekday{time.Sunday}, cfg.Attendance.RestDays)
	assert.Equal(t, attendance.Thresholds{HalfDayHours: 4, FullDayHours: 8}, cfg.Attendance.Thresholds())
	assert.Equal(t, attendance.StatusAbsent, cfg.Attendance.MissingDayStatus)
	assert.True(t, cfg.Attendance.CreateMissingDays)
	assert.Equal(t, ClockTime{Hour: 23, Minute: 59}, cfg.Attendance.AutoPunchOutAt)
	assert.Equal(t, "23:59", cfg.Scheduler.ReconcileRunAt.String())
	assert.Equal(t, "00:30", cfg.Scheduler.StatusRunAt.String())
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("ATTENDANCE_TIMEZONE", "Europe/Berlin")
	t.Setenv("ATTENDANCE_REST_DAYS", "saturday,sunday")
	t.Setenv("ATTENDANCE_HOLIDAYS", "2026-12-25,2026-12-26")
	t.Setenv("ATTENDANCE_MISSING_DAY_STATUS", "holiday")
	t.Setenv("RECONCILE_RUN_AT", "18:00")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.Attendance.Location.String())
	assert.Len(t, cfg.Attendance.RestDays, 2)
	assert.Len(t, cfg.Attendance.Holidays, 2)
	assert.Equal(t, attendance.StatusHoliday, cfg.Attendance.MissingDayStatus)
	assert.Equal(t, ClockTime{Hour: 18, Minute: 0}, cfg.Scheduler.ReconcileRunAt)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad driver":        {"STORAGE_DRIVER": "mongo"},
		"postgres password": {"STORAGE_DRIVER": "postgres", "DB_PASSWORD": ""},
		"bad clock":         {"STORAGE_DRIVER": "memory", "RECONCILE_RUN_AT": "6pm"},
		"bad timezone":      {"STORAGE_DRIVER": "memory", "ATTENDANCE_TIMEZONE": "Mars/Base"},
		"bad status":        {"STORAGE_DRIVER": "memory", "ATTENDANCE_MISSING_DAY_STATUS": "no_records"},
		"thresholds":        {"STORAGE_DRIVER": "memory", "ATTENDANCE_HALF_DAY_HOURS": "8", "ATTENDANCE_FULL_DAY_HOURS": "4"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
