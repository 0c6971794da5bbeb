package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"golang.org/x/sync/errgroup"
)

// errStatusUnchanged aborts a status write whose label did not change.
var errStatusUnchanged = errors.New("status unchanged")

type StatusServiceImpl struct {
	writer    dayWriter
	repo      attendance.DayRepository
	directory employee.Directory
	resolver  calendarResolver
	cfg       config.AttendanceConfig
}

func NewStatusService(
	repo attendance.DayRepository,
	directory employee.Directory,
	requests leave.RequestReader,
	policy calendar.Policy,
	clk clock.Clock,
	cfg config.AttendanceConfig,
) attendance.StatusService {
	if cfg.MissingDayStatus == "" {
		cfg.MissingDayStatus = attendance.StatusAbsent
	}
	return &StatusServiceImpl{
		writer:    dayWriter{repo: repo, clock: clk, maxRetries: cfg.MaxWriteRetries},
		repo:      repo,
		directory: directory,
		resolver:  newResolver(cfg, policy, requests, clk),
		cfg:       cfg,
	}
}

// DeriveStatus implements attendance.StatusService.
func (s *StatusServiceImpl) DeriveStatus(ctx context.Context, employeeID string, date time.Time) (attendance.Status, error) {
	date = attendance.CivilDate(date)

	var dayPtr *attendance.AttendanceDay
	day, err := s.repo.GetByEmployeeAndDate(ctx, employeeID, date)
	switch {
	case err == nil:
		dayPtr = &day
	case errors.Is(err, attendance.ErrDayNotFound):
	default:
		return "", err
	}

	cc, err := s.resolver.resolve(ctx, employeeID, date)
	if err != nil {
		return "", err
	}
	return attendance.DeriveStatus(dayPtr, cc), nil
}

// BatchDeriveStatus implements attendance.StatusService.
func (s *StatusServiceImpl) BatchDeriveStatus(ctx context.Context, date time.Time) ([]attendance.BatchResult, error) {
	date = attendance.CivilDate(date)

	employees, err := s.directory.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}

	results := make([]attendance.BatchResult, len(employees))

	var g errgroup.Group
	g.SetLimit(max(s.cfg.BatchConcurrency, 1))
	for i, emp := range employees {
		g.Go(func() error {
			results[i] = s.deriveAndPersist(ctx, emp.ID, date)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.Succeeded() {
			failed++
		}
	}
	slog.Info("Status derivation batch finished",
		"date", date.Format("2006-01-02"),
		"employees", len(employees),
		"failed", failed)

	return results, nil
}

func (s *StatusServiceImpl) deriveAndPersist(ctx context.Context, employeeID string, date time.Time) attendance.BatchResult {
	result := attendance.BatchResult{EmployeeID: employeeID}
	fail := func(err error) attendance.BatchResult {
		result.Outcome = attendance.BatchFailed
		result.Error = err.Error()
		slog.Error("Status derivation failed", "employee_id", employeeID, "date", date.Format("2006-01-02"), "error", err)
		return result
	}

	cc, err := s.resolver.resolve(ctx, employeeID, date)
	if err != nil {
		return fail(err)
	}

	created := false
	day, err := s.repo.GetByEmployeeAndDate(ctx, employeeID, date)
	if errors.Is(err, attendance.ErrDayNotFound) {
		if !s.cfg.CreateMissingDays {
			result.Status = attendance.DeriveStatus(nil, cc)
			result.Outcome = attendance.BatchUnchanged
			return result
		}
		day, created, err = s.createMissingDay(ctx, employeeID, date)
	}
	if err != nil {
		return fail(err)
	}
	result.DayID = day.ID

	derived := attendance.DeriveStatus(&day, cc)
	result.Previous = day.Status
	result.Status = derived
	result.Outcome = attendance.BatchUnchanged
	if created {
		result.Outcome = attendance.BatchCreated
	}
	if derived == day.Status {
		return result
	}

	saved, err := s.writer.mutate(ctx, employeeID, date, false, "", func(d *attendance.AttendanceDay, now time.Time) error {
		next := attendance.DeriveStatus(d, cc)
		if next == d.Status {
			return errStatusUnchanged
		}
		d.AppendAudit(attendance.AuditStatusChange, attendance.SystemActor, now, map[string]any{
			"from": d.Status,
			"to":   next,
		})
		result.Previous = d.Status
		d.Status = next
		return nil
	})
	if errors.Is(err, errStatusUnchanged) {
		return result
	}
	if err != nil {
		return fail(err)
	}

	result.Status = saved.Status
	if !created {
		result.Outcome = attendance.BatchUpdated
	}
	return result
}

// createMissingDay inserts the placeholder row for an employee with no
// record on date. Losing the insert race is fine; the winner's row is used.
func (s *StatusServiceImpl) createMissingDay(ctx context.Context, employeeID string, date time.Time) (attendance.AttendanceDay, bool, error) {
	day := attendance.NewDay(employeeID, date, s.cfg.MissingDayStatus)
	day.AppendAudit(attendance.AuditDayCreated, attendance.SystemActor, s.writer.clock.Now(), map[string]any{
		"status": s.cfg.MissingDayStatus,
	})

	created, err := s.repo.Create(ctx, day)
	if errors.Is(err, attendance.ErrDayAlreadyExists) {
		existing, getErr := s.repo.GetByEmployeeAndDate(ctx, employeeID, date)
		return existing, false, getErr
	}
	if err != nil {
		return attendance.AttendanceDay{}, false, err
	}
	return created, true, nil
}
