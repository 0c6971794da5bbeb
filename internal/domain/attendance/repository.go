package attendance

import (
	"context"
	"time"
)

// DayRepository persists attendance days. Dates passed in are civil dates
// (see CivilDate). Update is a conditional write on Version.
type DayRepository interface {
	// Create inserts a new day, assigning ID and Version 1.
	// Returns ErrDayAlreadyExists when (employee, date) is taken.
	Create(ctx context.Context, day AttendanceDay) (AttendanceDay, error)

	// GetByEmployeeAndDate returns ErrDayNotFound when no row exists.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (AttendanceDay, error)

	// Update writes day only if the stored version still equals day.Version,
	// and returns the row with the bumped version. Otherwise ErrPersistenceConflict.
	Update(ctx context.Context, day AttendanceDay) (AttendanceDay, error)

	// ListByDate returns every day recorded for date.
	ListByDate(ctx context.Context, date time.Time) ([]AttendanceDay, error)

	// ListOpenByDate returns the days for date whose last session is open.
	ListOpenByDate(ctx context.Context, date time.Time) ([]AttendanceDay, error)

	// ListByEmployeeRange returns days in [from, to] ordered by date.
	ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]AttendanceDay, error)
}
