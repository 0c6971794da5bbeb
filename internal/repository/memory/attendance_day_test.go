package memory

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)

func TestDayRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewDayRepository(clock.NewManual(testDate.Add(9 * time.Hour)))

	created, err := repo.Create(ctx, attendance.NewDay("emp-1", testDate.Add(15*time.Hour), attendance.StatusPresent))
	require.NoError(t, err)
	assert.True(t, validator.IsValidUUID(created.ID))
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, testDate, created.Date)

	_, err = repo.Create(ctx, attendance.NewDay("emp-1", testDate, attendance.StatusAbsent))
	assert.ErrorIs(t, err, attendance.ErrDayAlreadyExists)

	got, err := repo.GetByEmployeeAndDate(ctx, "emp-1", testDate)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = repo.GetByEmployeeAndDate(ctx, "emp-2", testDate)
	assert.ErrorIs(t, err, attendance.ErrDayNotFound)
}

func TestDayRepository_UpdateIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewDayRepository(clock.NewManual(testDate))

	created, err := repo.Create(ctx, attendance.NewDay("emp-1", testDate, attendance.StatusPresent))
	require.NoError(t, err)

	first := created.Clone()
	second := created.Clone()

	first.Status = attendance.StatusHalfDay
	saved, err := repo.Update(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	second.Status = attendance.StatusAbsent
	_, err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, attendance.ErrPersistenceConflict)

	stored, err := repo.GetByEmployeeAndDate(ctx, "emp-1", testDate)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusHalfDay, stored.Status)

	missing := attendance.NewDay("emp-9", testDate, attendance.StatusPresent)
	_, err = repo.Update(ctx, missing)
	assert.ErrorIs(t, err, attendance.ErrDayNotFound)
}

func TestDayRepository_DoesNotAlias(t *testing.T) {
	ctx := context.Background()
	repo := NewDayRepository(clock.NewManual(testDate))

	day := attendance.NewDay("emp-1", testDate, attendance.StatusPresent)
	day.Sessions = append(day.Sessions, attendance.PunchSession{PunchIn: attendance.PunchPoint{Time: testDate.Add(9 * time.Hour)}})
	created, err := repo.Create(ctx, day)
	require.NoError(t, err)

	created.Sessions[0].PunchOut = &attendance.PunchPoint{Time: testDate.Add(10 * time.Hour)}

	stored, err := repo.GetByEmployeeAndDate(ctx, "emp-1", testDate)
	require.NoError(t, err)
	assert.True(t, stored.HasOpenSession())
}

func TestDayRepository_Lists(t *testing.T) {
	ctx := context.Background()
	repo := NewDayRepository(clock.NewManual(testDate))

	open := attendance.NewDay("emp-2", testDate, attendance.StatusPresent)
	open.Sessions = append(open.Sessions, attendance.PunchSession{PunchIn: attendance.PunchPoint{Time: testDate.Add(9 * time.Hour)}})
	_, err := repo.Create(ctx, open)
	require.NoError(t, err)
	_, err = repo.Create(ctx, attendance.NewDay("emp-1", testDate, attendance.StatusAbsent))
	require.NoError(t, err)
	_, err = repo.Create(ctx, attendance.NewDay("emp-1", testDate.AddDate(0, 0, 1), attendance.StatusAbsent))
	require.NoError(t, err)
	_, err = repo.Create(ctx, attendance.NewDay("emp-1", testDate.AddDate(0, 0, -3), attendance.StatusAbsent))
	require.NoError(t, err)

	byDate, err := repo.ListByDate(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	assert.Equal(t, "emp-1", byDate[0].EmployeeID)
	assert.Equal(t, "emp-2", byDate[1].EmployeeID)

	openDays, err := repo.ListOpenByDate(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, openDays, 1)
	assert.Equal(t, "emp-2", openDays[0].EmployeeID)

	ranged, err := repo.ListByEmployeeRange(ctx, "emp-1", testDate.AddDate(0, 0, -1), testDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.True(t, ranged[0].Date.Before(ranged[1].Date))
}
