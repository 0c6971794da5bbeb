package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
)

// dayWriter is the read-modify-write loop shared by every mutating operation.
type dayWriter struct {
	repo       attendance.DayRepository
	clock      clock.Clock
	maxRetries int
}

type mutation func(day *attendance.AttendanceDay, now time.Time) error

// mutate loads the day, applies fn and writes it back conditioned on the
// version that was read. On a version conflict the day is reloaded and fn
// re-evaluated, so preconditions are always checked against the latest
// state. When create is set a missing day is inserted with initial status.
func (w dayWriter) mutate(ctx context.Context, employeeID string, date time.Time, create bool, initial attendance.Status, fn mutation) (attendance.AttendanceDay, error) {
	maxRetries := w.maxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		day, err := w.repo.GetByEmployeeAndDate(ctx, employeeID, date)
		isNew := false
		if err != nil {
			if !errors.Is(err, attendance.ErrDayNotFound) || !create {
				return attendance.AttendanceDay{}, err
			}
			day = attendance.NewDay(employeeID, date, initial)
			isNew = true
		}

		if err := fn(&day, w.clock.Now()); err != nil {
			return attendance.AttendanceDay{}, err
		}

		var saved attendance.AttendanceDay
		if isNew {
			saved, err = w.repo.Create(ctx, day)
		} else {
			saved, err = w.repo.Update(ctx, day)
		}
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, attendance.ErrPersistenceConflict) && !errors.Is(err, attendance.ErrDayAlreadyExists) {
			return attendance.AttendanceDay{}, err
		}

		lastErr = err
		slog.Debug("Attendance day write conflict, retrying",
			"employee_id", employeeID,
			"date", date.Format("2006-01-02"),
			"attempt", attempt,
			"error", err)
	}

	if errors.Is(lastErr, attendance.ErrDayAlreadyExists) {
		return attendance.AttendanceDay{}, fmt.Errorf("%w: %v", attendance.ErrPersistenceConflict, lastErr)
	}
	return attendance.AttendanceDay{}, lastErr
}

// calendarResolver gathers the external context status derivation needs.
type calendarResolver struct {
	calendar   calendar.Policy
	requests   leave.RequestReader
	clock      clock.Clock
	location   *time.Location
	thresholds attendance.Thresholds
}

func (r calendarResolver) today() time.Time {
	return attendance.CivilDate(r.clock.Now().In(r.location))
}

func (r calendarResolver) resolve(ctx context.Context, employeeID string, date time.Time) (attendance.CalendarContext, error) {
	date = attendance.CivilDate(date)
	today := r.today()
	cc := attendance.CalendarContext{
		Date:       date,
		IsRestDay:  r.calendar.IsRestDay(date),
		IsToday:    date.Equal(today),
		IsFuture:   date.After(today),
		Thresholds: r.thresholds,
	}
	if cc.IsRestDay {
		return cc, nil
	}

	req, err := r.requests.ApprovedCovering(ctx, employeeID, date)
	if err != nil {
		return attendance.CalendarContext{}, fmt.Errorf("failed to load approved requests: %w", err)
	}
	if req != nil {
		t := req.RequestType
		cc.ApprovedRequest = &t
	}
	return cc, nil
}

func newResolver(cfg config.AttendanceConfig, policy calendar.Policy, requests leave.RequestReader, clk clock.Clock) calendarResolver {
	return calendarResolver{
		calendar:   policy,
		requests:   requests,
		clock:      clk,
		location:   locationOf(cfg),
		thresholds: cfg.Thresholds(),
	}
}

func locationOf(cfg config.AttendanceConfig) *time.Location {
	if cfg.Location == nil {
		return time.UTC
	}
	return cfg.Location
}
