package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lock"
)

const (
	JobAutoPunchOut      = "auto_punch_out"
	JobDeriveDailyStatus = "derive_daily_status"
)

// AttendanceJobs holds the daily attendance triggers.
type AttendanceJobs struct {
	reconciliation attendance.ReconciliationService
	status         attendance.StatusService
	guard          lock.RunGuard
	location       *time.Location
	claimTTL       time.Duration
}

func NewAttendanceJobs(
	reconciliation attendance.ReconciliationService,
	status attendance.StatusService,
	guard lock.RunGuard,
	location *time.Location,
	claimTTL time.Duration,
) *AttendanceJobs {
	if guard == nil {
		guard = lock.Noop()
	}
	if location == nil {
		location = time.UTC
	}
	return &AttendanceJobs{
		reconciliation: reconciliation,
		status:         status,
		guard:          guard,
		location:       location,
		claimTTL:       claimTTL,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, cfg config.SchedulerConfig) error {
	if err := scheduler.AddJob(JobAutoPunchOut, cfg.ReconcileRunAt.Hour, cfg.ReconcileRunAt.Minute, j.location, j.AutoPunchOut); err != nil {
		return fmt.Errorf("register %s: %w", JobAutoPunchOut, err)
	}
	if err := scheduler.AddJob(JobDeriveDailyStatus, cfg.StatusRunAt.Hour, cfg.StatusRunAt.Minute, j.location, j.DeriveDailyStatus); err != nil {
		return fmt.Errorf("register %s: %w", JobDeriveDailyStatus, err)
	}
	return nil
}

// AutoPunchOut closes the sessions still open on the civil day the trigger
// fires in.
func (j *AttendanceJobs) AutoPunchOut(ctx context.Context, scheduledFor time.Time) error {
	date := attendance.CivilDate(scheduledFor.In(j.location))

	claimed, err := j.claim(ctx, JobAutoPunchOut, date)
	if err != nil || !claimed {
		return err
	}

	slog.Info("Cron: Starting auto punch out job", "date", date.Format("2006-01-02"))
	summary, err := j.reconciliation.RunReconciliation(ctx, date)
	if err != nil {
		j.release(ctx, JobAutoPunchOut, date)
		return fmt.Errorf("failed to reconcile %s: %w", date.Format("2006-01-02"), err)
	}

	slog.Info("Cron: Auto punch out job completed",
		"date", summary.Date,
		"rows_scanned", summary.RowsScanned,
		"rows_closed", summary.RowsClosed,
		"failures", summary.Failures)
	return nil
}

// DeriveDailyStatus labels the civil day before the trigger, once it is
// over and its sessions have been reconciled.
func (j *AttendanceJobs) DeriveDailyStatus(ctx context.Context, scheduledFor time.Time) error {
	date := attendance.CivilDate(scheduledFor.In(j.location)).AddDate(0, 0, -1)

	claimed, err := j.claim(ctx, JobDeriveDailyStatus, date)
	if err != nil || !claimed {
		return err
	}

	slog.Info("Cron: Starting daily status job", "date", date.Format("2006-01-02"))
	results, err := j.status.BatchDeriveStatus(ctx, date)
	if err != nil {
		j.release(ctx, JobDeriveDailyStatus, date)
		return fmt.Errorf("failed to derive statuses for %s: %w", date.Format("2006-01-02"), err)
	}

	counts := make(map[attendance.BatchOutcome]int)
	for _, r := range results {
		counts[r.Outcome]++
	}
	slog.Info("Cron: Daily status job completed",
		"date", date.Format("2006-01-02"),
		"employees", len(results),
		"created", counts[attendance.BatchCreated],
		"updated", counts[attendance.BatchUpdated],
		"unchanged", counts[attendance.BatchUnchanged],
		"failed", counts[attendance.BatchFailed])
	return nil
}

func claimKey(job string, date time.Time) string {
	return fmt.Sprintf("attendance:%s:%s", job, date.Format("2006-01-02"))
}

// claim keeps two scheduler instances from running the same job for the
// same date.
func (j *AttendanceJobs) claim(ctx context.Context, job string, date time.Time) (bool, error) {
	key := claimKey(job, date)
	ok, err := j.guard.Claim(ctx, key, j.claimTTL)
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	if !ok {
		slog.Info("Cron: Job already claimed by another instance, skipping", "key", key)
	}
	return ok, nil
}

// release frees the claim of a failed run so a retry is not skipped.
func (j *AttendanceJobs) release(ctx context.Context, job string, date time.Time) {
	key := claimKey(job, date)
	if err := j.guard.Release(context.WithoutCancel(ctx), key); err != nil {
		slog.Error("Cron: Failed to release job claim", "key", key, "error", err)
	}
}
