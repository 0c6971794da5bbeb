package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/leave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus_Scenarios(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clockAt(testDay.AddDate(0, 0, 1), 10, 0))
	approvedAt := clockAt(testDay, 0, 0)

	f.seed(t, "full", testDay, attendance.StatusPresent, [2]time.Time{clockAt(testDay, 9, 0), clockAt(testDay, 17, 30)})
	f.seed(t, "short", testDay, attendance.StatusPresent, [2]time.Time{clockAt(testDay, 9, 0), clockAt(testDay, 12, 30)})
	f.seed(t, "split", testDay, attendance.StatusPresent,
		[2]time.Time{clockAt(testDay, 8, 0), clockAt(testDay, 10, 0)},
		[2]time.Time{clockAt(testDay, 13, 0), clockAt(testDay, 16, 0)})
	f.seed(t, "weekend", sunday, attendance.StatusPresent, [2]time.Time{clockAt(sunday, 9, 0), clockAt(sunday, 18, 0)})
	f.requests.Add(leave.Request{
		ID: "req-1", EmployeeID: "on-leave", RequestType: attendance.RequestWorkFromHome,
		StartDate: testDay, EndDate: testDay, Status: leave.RequestStatusApproved, ApprovedAt: &approvedAt,
	})

	svc := f.status(nil)
	tests := []struct {
		employeeID string
		date       time.Time
		want       attendance.Status
	}{
		{"full", testDay, attendance.StatusPresent},
		{"short", testDay, attendance.StatusAbsent},
		{"split", testDay, attendance.StatusHalfDay},
		{"weekend", sunday, attendance.StatusHoliday},
		{"on-leave", testDay, attendance.StatusWorkFromHome},
		{"nobody", testDay, attendance.StatusAbsent},
	}
	for _, tt := range tests {
		t.Run(tt.employeeID, func(t *testing.T) {
			got, err := svc.DeriveStatus(ctx, tt.employeeID, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveStatus_TodayKeepsRawStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clockAt(testDay, 9, 0))

	_, err := f.sessions(nil).PunchIn(ctx, attendance.PunchRequest{EmployeeID: "emp-1"})
	require.NoError(t, err)
	f.clock.Set(clockAt(testDay, 10, 0))

	svc := f.status(nil)
	first, err := svc.DeriveStatus(ctx, "emp-1", testDay)
	require.NoError(t, err)
	second, err := svc.DeriveStatus(ctx, "emp-1", testDay)
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusPresent, first)
	assert.Equal(t, first, second)
}

func TestDeriveStatus_FutureDateIsNotFinal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clockAt(testDay, 9, 0))
	svc := f.status(nil)

	got, err := svc.DeriveStatus(ctx, "emp-1", testDay.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, got)

	got, err = svc.DeriveStatus(ctx, "emp-1", testDay.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsent, got)
}

func TestBatchDeriveStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clockAt(testDay.AddDate(0, 0, 1), 0, 30), "emp-a", "emp-b", "emp-c")

	f.seed(t, "emp-a", testDay, attendance.StatusPresent, [2]time.Time{clockAt(testDay, 9, 0), clockAt(testDay, 17, 30)})
	f.seed(t, "emp-b", testDay, attendance.StatusPresent, [2]time.Time{clockAt(testDay, 9, 0), clockAt(testDay, 14, 0)})

	svc := f.status(nil)
	results, err := svc.BatchDeriveStatus(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byEmployee := make(map[string]attendance.BatchResult)
	for _, r := range results {
		byEmployee[r.EmployeeID] = r
	}

	assert.Equal(t, attendance.BatchUnchanged, byEmployee["emp-a"].Outcome)
	assert.Equal(t, attendance.StatusPresent, byEmployee["emp-a"].Status)

	assert.Equal(t, attendance.BatchUpdated, byEmployee["emp-b"].Outcome)
	assert.Equal(t, attendance.StatusPresent, byEmployee["emp-b"].Previous)
	assert.Equal(t, attendance.StatusHalfDay, byEmployee["emp-b"].Status)
	dayB := f.day(t, "emp-b", testDay)
	assert.Equal(t, attendance.StatusHalfDay, dayB.Status)
	assert.Equal(t, 1, countAudit(dayB, attendance.AuditStatusChange))

	assert.Equal(t, attendance.BatchCreated, byEmployee["emp-c"].Outcome)
	assert.Equal(t, attendance.StatusAbsent, byEmployee["emp-c"].Status)
	dayC := f.day(t, "emp-c", testDay)
	assert.Equal(t, attendance.StatusAbsent, dayC.Status)
	assert.Empty(t, dayC.Sessions)
	assert.Equal(t, 1, countAudit(dayC, attendance.AuditDayCreated))

	// Re-running with frozen inputs changes nothing.
	results, err = svc.BatchDeriveStatus(ctx, testDay)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, attendance.BatchUnchanged, r.Outcome, r.EmployeeID)
	}
	assert.Equal(t, dayB.Version, f.day(t, "emp-b", testDay).Version)
}

func TestBatchDeriveStatus_MissingDayOnRestDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clockAt(sunday.AddDate(0, 0, 1), 0, 30), "emp-a")

	results, err := f.status(nil).BatchDeriveStatus(ctx, sunday)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, attendance.BatchCreated, results[0].Outcome)
	assert.Equal(t, attendance.StatusHoliday, results[0].Status)

	day := f.day(t, "emp-a", sunday)
	assert.Equal(t, attendance.StatusHoliday, day.Status)
	assert.Equal(t, 1, countAudit(day, attendance.AuditDayCreated))
	assert.Equal(t, 1, countAudit(day, attendance.AuditStatusChange))
}

func TestBatchDeriveStatus_WithoutCreatingDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clockAt(testDay.AddDate(0, 0, 1), 0, 30), "emp-a")
	f.cfg.CreateMissingDays = false

	results, err := f.status(nil).BatchDeriveStatus(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, attendance.BatchUnchanged, results[0].Outcome)
	assert.Equal(t, attendance.StatusAbsent, results[0].Status)
	assert.Empty(t, results[0].DayID)

	_, err = f.repo.GetByEmployeeAndDate(ctx, "emp-a", testDay)
	assert.ErrorIs(t, err, attendance.ErrDayNotFound)
}

func TestBatchDeriveStatus_PartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clockAt(testDay.AddDate(0, 0, 1), 0, 30), "emp-a", "emp-b", "emp-c")
	f.seed(t, "emp-a", testDay, attendance.StatusPresent, [2]time.Time{clockAt(testDay, 9, 0), clockAt(testDay, 11, 0)})

	repo := &hookedRepo{DayRepository: f.repo, getErr: map[string]error{"emp-b": errors.New("timeout")}}
	results, err := f.status(repo).BatchDeriveStatus(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, results, 3)

	failed := 0
	for _, r := range results {
		if !r.Succeeded() {
			failed++
			assert.Equal(t, "emp-b", r.EmployeeID)
			assert.Contains(t, r.Error, "timeout")
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, attendance.StatusAbsent, f.day(t, "emp-a", testDay).Status)
	assert.Equal(t, attendance.StatusAbsent, f.day(t, "emp-c", testDay).Status)
}

func TestBatchDeriveStatus_DirectoryFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clockAt(testDay, 9, 0))

	svc := NewStatusService(f.repo, brokenDirectory{}, f.requests, f.policy, f.clock, f.cfg)
	_, err := svc.BatchDeriveStatus(ctx, testDay)
	assert.Error(t, err)
}

type brokenDirectory struct{}

func (brokenDirectory) GetByID(context.Context, string) (employee.Employee, error) {
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (brokenDirectory) ListActive(context.Context) ([]employee.Employee, error) {
	return nil, errors.New("directory unavailable")
}
