package attendance

import (
	"context"
	"time"
)

// SessionService owns the punch lifecycle of a day.
type SessionService interface {
	// PunchIn opens a new session on today's record, creating it if needed.
	PunchIn(ctx context.Context, req PunchRequest) (PunchSession, error)

	// PunchOut closes the open session on today's record.
	PunchOut(ctx context.Context, req PunchRequest) (PunchSession, error)

	// CurrentSession returns the open session of the given day, or nil.
	CurrentSession(ctx context.Context, employeeID string, date time.Time) (*PunchSession, error)

	// AddManualSession records an administrator-entered session.
	AddManualSession(ctx context.Context, req ManualSessionRequest) (PunchSession, error)
}

// StatusService derives day labels on demand and in batch.
type StatusService interface {
	DeriveStatus(ctx context.Context, employeeID string, date time.Time) (Status, error)

	// BatchDeriveStatus derives and persists the status of every active
	// employee for date. Per-employee failures are reported in the results.
	BatchDeriveStatus(ctx context.Context, date time.Time) ([]BatchResult, error)
}

// ReconciliationService force-closes sessions left open at end of day.
type ReconciliationService interface {
	RunReconciliation(ctx context.Context, date time.Time) (ReconciliationSummary, error)
}

// QueryService serves range reads for dashboards.
type QueryService interface {
	ListRange(ctx context.Context, employeeID string, from, to time.Time) ([]DayView, error)
	Stats(ctx context.Context, employeeID string, from, to time.Time) (Stats, error)

	// OpenSessions lists the days of date that still have an open session.
	OpenSessions(ctx context.Context, date time.Time) ([]DayView, error)
}
