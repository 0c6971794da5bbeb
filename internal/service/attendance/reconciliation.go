package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"golang.org/x/sync/errgroup"
)

// AutoPunchOutLocation marks punch-outs written by reconciliation.
const AutoPunchOutLocation = "system/auto"

var errAlreadyClosed = errors.New("session already closed")

type ReconciliationServiceImpl struct {
	writer   dayWriter
	repo     attendance.DayRepository
	location *time.Location
	cutoff   config.ClockTime
	parallel int
}

func NewReconciliationService(repo attendance.DayRepository, clk clock.Clock, cfg config.AttendanceConfig) attendance.ReconciliationService {
	return &ReconciliationServiceImpl{
		writer:   dayWriter{repo: repo, clock: clk, maxRetries: cfg.MaxWriteRetries},
		repo:     repo,
		location: locationOf(cfg),
		cutoff:   cfg.AutoPunchOutAt,
		parallel: max(cfg.BatchConcurrency, 1),
	}
}

// RunReconciliation implements attendance.ReconciliationService.
// Running it twice for the same date is safe: the second run finds no open
// session and closes nothing. Only a failure to list the date's rows is
// returned as an error.
func (r *ReconciliationServiceImpl) RunReconciliation(ctx context.Context, date time.Time) (attendance.ReconciliationSummary, error) {
	date = attendance.CivilDate(date)
	summary := attendance.ReconciliationSummary{
		Date:    date.Format("2006-01-02"),
		Details: []attendance.ReconcileDetail{},
	}

	days, err := r.repo.ListByDate(ctx, date)
	if err != nil {
		return summary, fmt.Errorf("failed to list attendance days: %w", err)
	}
	summary.RowsScanned = len(days)

	cutoff := attendance.CivilTime(date, r.cutoff.Hour, r.cutoff.Minute, r.location)
	details := make([]attendance.ReconcileDetail, len(days))

	var g errgroup.Group
	g.SetLimit(r.parallel)
	for i, day := range days {
		g.Go(func() error {
			details[i] = r.closeDay(ctx, day, cutoff)
			return nil
		})
	}
	_ = g.Wait()

	for _, d := range details {
		switch d.Outcome {
		case attendance.ReconcileClosed:
			summary.RowsClosed++
		case attendance.ReconcileFailed:
			summary.Failures++
		}
	}
	summary.Details = details

	slog.Info("Reconciliation finished",
		"date", summary.Date,
		"rows_scanned", summary.RowsScanned,
		"rows_closed", summary.RowsClosed,
		"failures", summary.Failures)

	return summary, nil
}

func (r *ReconciliationServiceImpl) closeDay(ctx context.Context, scanned attendance.AttendanceDay, cutoff time.Time) attendance.ReconcileDetail {
	detail := attendance.ReconcileDetail{
		EmployeeID: scanned.EmployeeID,
		DayID:      scanned.ID,
	}
	if !scanned.HasOpenSession() {
		detail.Outcome = attendance.ReconcileNoOpenSession
		return detail
	}

	var closed attendance.PunchSession
	_, err := r.writer.mutate(ctx, scanned.EmployeeID, scanned.Date, false, "",
		func(day *attendance.AttendanceDay, now time.Time) error {
			last := day.LastSession()
			if last == nil || !last.IsOpen() {
				return errAlreadyClosed
			}
			// An early run never writes a punch-out later than the moment
			// it runs, so the next punch-in cannot overlap it.
			out := cutoff
			if now.Before(out) {
				out = now
			}
			if out.Before(last.PunchIn.Time) {
				out = last.PunchIn.Time
			}
			last.PunchOut = &attendance.PunchPoint{
				Time:     out,
				Location: AutoPunchOutLocation,
				Origin:   map[string]string{"source": "system", "trigger": string(attendance.AuditAutoPunchOut)},
			}
			day.RecomputeHours()
			day.AppendAudit(attendance.AuditAutoPunchOut, attendance.SystemActor, now, map[string]any{
				"session_index": len(day.Sessions) - 1,
				"cutoff":        cutoff,
				"closed_at":     out,
				"session_hours": last.SessionHours,
			})
			closed = *last
			return nil
		})

	switch {
	case err == nil:
		detail.Outcome = attendance.ReconcileClosed
		closedAt := closed.PunchOut.Time
		detail.ClosedAt = &closedAt
		detail.SessionHours = closed.SessionHours
	case errors.Is(err, errAlreadyClosed), errors.Is(err, attendance.ErrPersistenceConflict):
		// Someone else closed it between the scan and the write.
		detail.Outcome = attendance.ReconcileAlreadyClosed
	default:
		detail.Outcome = attendance.ReconcileFailed
		detail.Error = err.Error()
		slog.Error("Cron: Failed to auto punch out",
			"day_id", scanned.ID,
			"employee_id", scanned.EmployeeID,
			"error", err)
	}
	return detail
}
