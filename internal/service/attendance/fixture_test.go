package attendance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	"github.com/stretchr/testify/require"
)

// Tuesday 2026-10-13, a working day.
var (
	testDay = time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	sunday  = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
)

func clockAt(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	repo      *memory.DayRepository
	clock     *clock.Manual
	directory *memory.EmployeeDirectory
	requests  *memory.RequestStore
	policy    calendar.Policy
	cfg       config.AttendanceConfig
}

func testConfig() config.AttendanceConfig {
	return config.AttendanceConfig{
		Timezone:          "UTC",
		Location:          time.UTC,
		RestDays:          []time.Weekday{time.Sunday},
		HalfDayHours:      4,
		FullDayHours:      8,
		MaxWriteRetries:   3,
		CreateMissingDays: true,
		MissingDayStatus:  attendance.StatusAbsent,
		BatchConcurrency:  4,
		AutoPunchOutAt:    config.ClockTime{Hour: 23, Minute: 59},
	}
}

func newFixture(t *testing.T, now time.Time, employeeIDs ...string) *fixture {
	t.Helper()
	clk := clock.NewManual(now)
	dir := memory.NewEmployeeDirectory()
	for _, id := range employeeIDs {
		dir.Put(employee.Employee{ID: id, FullName: id, EmploymentStatus: employee.EmploymentStatusActive})
	}
	cfg := testConfig()
	return &fixture{
		repo:      memory.NewDayRepository(clk),
		clock:     clk,
		directory: dir,
		requests:  memory.NewRequestStore(),
		policy:    calendar.NewWeeklyPolicy(cfg.RestDays, nil),
		cfg:       cfg,
	}
}

func (f *fixture) sessions(repo attendance.DayRepository) attendance.SessionService {
	if repo == nil {
		repo = f.repo
	}
	return NewSessionService(repo, f.clock, f.cfg)
}

func (f *fixture) reconciliation(repo attendance.DayRepository) attendance.ReconciliationService {
	if repo == nil {
		repo = f.repo
	}
	return NewReconciliationService(repo, f.clock, f.cfg)
}

func (f *fixture) status(repo attendance.DayRepository) attendance.StatusService {
	if repo == nil {
		repo = f.repo
	}
	return NewStatusService(repo, f.directory, f.requests, f.policy, f.clock, f.cfg)
}

func (f *fixture) query() attendance.QueryService {
	return NewQueryService(f.repo, f.requests, f.policy, f.clock, f.cfg)
}

func (f *fixture) day(t *testing.T, employeeID string, date time.Time) attendance.AttendanceDay {
	t.Helper()
	day, err := f.repo.GetByEmployeeAndDate(context.Background(), employeeID, date)
	require.NoError(t, err)
	return day
}

// seed stores a day with the given closed sessions.
func (f *fixture) seed(t *testing.T, employeeID string, date time.Time, status attendance.Status, sessions ...[2]time.Time) attendance.AttendanceDay {
	t.Helper()
	day := attendance.NewDay(employeeID, date, status)
	for _, s := range sessions {
		out := s[1]
		day.Sessions = append(day.Sessions, attendance.PunchSession{
			PunchIn:  attendance.PunchPoint{Time: s[0]},
			PunchOut: &attendance.PunchPoint{Time: out},
		})
	}
	day.RecomputeHours()
	created, err := f.repo.Create(context.Background(), day)
	require.NoError(t, err)
	return created
}

// hookedRepo runs beforeUpdate once, right before the first Update reaches
// the wrapped store. Used to interleave a competing writer deterministically.
type hookedRepo struct {
	attendance.DayRepository
	once         sync.Once
	beforeUpdate func()
	getErr       map[string]error
	updateErr    error
}

func (r *hookedRepo) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (attendance.AttendanceDay, error) {
	if err, ok := r.getErr[employeeID]; ok {
		return attendance.AttendanceDay{}, err
	}
	return r.DayRepository.GetByEmployeeAndDate(ctx, employeeID, date)
}

func (r *hookedRepo) Update(ctx context.Context, day attendance.AttendanceDay) (attendance.AttendanceDay, error) {
	if r.beforeUpdate != nil {
		r.once.Do(r.beforeUpdate)
	}
	if r.updateErr != nil {
		return attendance.AttendanceDay{}, r.updateErr
	}
	return r.DayRepository.Update(ctx, day)
}

func countAudit(day attendance.AttendanceDay, actions ...attendance.AuditAction) int {
	n := 0
	for _, e := range day.AuditTrail {
		for _, a := range actions {
			if e.Action == a {
				n++
			}
		}
	}
	return n
}
