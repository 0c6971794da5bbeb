package postgresql_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)

func openDay(employeeID string, date time.Time, in time.Time) attendance.AttendanceDay {
	day := attendance.NewDay(employeeID, date, attendance.StatusPresent)
	day.Sessions = append(day.Sessions, attendance.PunchSession{
		PunchIn: attendance.PunchPoint{Time: in, Location: "HQ", Origin: map[string]string{"device": "kiosk-1"}},
	})
	day.AppendAudit(attendance.AuditPunchIn, employeeID, in, map[string]any{"session_index": 0})
	return day
}

func TestAttendanceDayRepository_CreateAndGet(t *testing.T) {
	db := newTestDatabase(t)
	repo := postgresql.NewAttendanceDayRepository(db)
	ctx := context.Background()

	in := testDate.Add(9 * time.Hour)
	created, err := repo.Create(ctx, openDay("emp-1", testDate, in))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)

	got, err := repo.GetByEmployeeAndDate(ctx, "emp-1", testDate)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, testDate, got.Date.UTC())
	require.Len(t, got.Sessions, 1)
	assert.True(t, got.Sessions[0].IsOpen())
	assert.True(t, in.Equal(got.Sessions[0].PunchIn.Time))
	assert.Equal(t, "kiosk-1", got.Sessions[0].PunchIn.Origin["device"])
	require.Len(t, got.AuditTrail, 1)
	assert.Equal(t, attendance.AuditPunchIn, got.AuditTrail[0].Action)

	_, err = repo.Create(ctx, openDay("emp-1", testDate, in))
	assert.ErrorIs(t, err, attendance.ErrDayAlreadyExists)

	_, err = repo.GetByEmployeeAndDate(ctx, "emp-2", testDate)
	assert.ErrorIs(t, err, attendance.ErrDayNotFound)
}

func TestAttendanceDayRepository_ConditionalUpdate(t *testing.T) {
	db := newTestDatabase(t)
	repo := postgresql.NewAttendanceDayRepository(db)
	ctx := context.Background()

	in := testDate.Add(9 * time.Hour)
	created, err := repo.Create(ctx, openDay("emp-1", testDate, in))
	require.NoError(t, err)

	user := created.Clone()
	job := created.Clone()

	user.Sessions[0].PunchOut = &attendance.PunchPoint{Time: in.Add(8 * time.Hour)}
	user.RecomputeHours()
	saved, err := repo.Update(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	job.Sessions[0].PunchOut = &attendance.PunchPoint{Time: testDate.Add(23*time.Hour + 59*time.Minute)}
	job.RecomputeHours()
	_, err = repo.Update(ctx, job)
	assert.ErrorIs(t, err, attendance.ErrPersistenceConflict)

	stored, err := repo.GetByEmployeeAndDate(ctx, "emp-1", testDate)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, stored.TotalHours, 1e-9)

	ghost := created.Clone()
	ghost.ID = "0199f0a8-0000-7000-8000-000000000000"
	_, err = repo.Update(ctx, ghost)
	assert.ErrorIs(t, err, attendance.ErrDayNotFound)
}

func TestAttendanceDayRepository_ConcurrentUpdatesOneWins(t *testing.T) {
	db := newTestDatabase(t)
	repo := postgresql.NewAttendanceDayRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, openDay("emp-1", testDate, testDate.Add(9*time.Hour)))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			day := created.Clone()
			day.Sessions[0].PunchOut = &attendance.PunchPoint{Time: testDate.Add(time.Duration(10+i) * time.Hour)}
			day.RecomputeHours()
			if _, err := repo.Update(ctx, day); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, attendance.ErrPersistenceConflict)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestAttendanceDayRepository_Lists(t *testing.T) {
	db := newTestDatabase(t)
	repo := postgresql.NewAttendanceDayRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, openDay("emp-2", testDate, testDate.Add(9*time.Hour)))
	require.NoError(t, err)

	closed := openDay("emp-1", testDate, testDate.Add(9*time.Hour))
	closed.Sessions[0].PunchOut = &attendance.PunchPoint{Time: testDate.Add(17 * time.Hour)}
	closed.RecomputeHours()
	_, err = repo.Create(ctx, closed)
	require.NoError(t, err)

	next := testDate.AddDate(0, 0, 1)
	_, err = repo.Create(ctx, attendance.NewDay("emp-1", next, attendance.StatusAbsent))
	require.NoError(t, err)

	byDate, err := repo.ListByDate(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	assert.Equal(t, "emp-1", byDate[0].EmployeeID)

	open, err := repo.ListOpenByDate(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "emp-2", open[0].EmployeeID)

	ranged, err := repo.ListByEmployeeRange(ctx, "emp-1", testDate, next)
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, testDate, ranged[0].Date.UTC())
	assert.Equal(t, next, ranged[1].Date.UTC())
}
