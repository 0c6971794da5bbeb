package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// ========================================
// LIFECYCLE DTOs
// ========================================

type PunchRequest struct {
	EmployeeID string            `json:"employee_id"`
	Actor      string            `json:"actor"`
	Location   string            `json:"location"`
	Origin     map[string]string `json:"origin,omitempty"`
}

func (r *PunchRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}
	r.Location = strings.TrimSpace(r.Location)
	if validator.IsEmpty(r.Actor) {
		r.Actor = r.EmployeeID
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ManualSessionRequest lets an administrator record a session out of band.
// The day is the civil date of PunchIn in the engine's time zone.
type ManualSessionRequest struct {
	EmployeeID string     `json:"employee_id"`
	Actor      string     `json:"actor"`
	PunchIn    time.Time  `json:"punch_in"`
	PunchOut   *time.Time `json:"punch_out,omitempty"`
	Location   string     `json:"location"`
	Reason     string     `json:"reason"`
}

func (r *ManualSessionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}
	if validator.IsEmpty(r.Actor) {
		errs = append(errs, validator.ValidationError{
			Field:   "actor",
			Message: "actor is required for manual entries",
		})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required for manual entries",
		})
	}
	if r.PunchIn.IsZero() {
		errs = append(errs, validator.ValidationError{
			Field:   "punch_in",
			Message: "punch_in is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========================================
// STATUS DTOs
// ========================================

type BatchOutcome string

const (
	BatchUnchanged BatchOutcome = "unchanged"
	BatchUpdated   BatchOutcome = "updated"
	BatchCreated   BatchOutcome = "created"
	BatchFailed    BatchOutcome = "failed"
)

// BatchResult is the per-employee outcome of BatchDeriveStatus.
type BatchResult struct {
	EmployeeID string       `json:"employee_id"`
	DayID      string       `json:"day_id,omitempty"`
	Status     Status       `json:"status,omitempty"`
	Previous   Status       `json:"previous,omitempty"`
	Outcome    BatchOutcome `json:"outcome"`
	Error      string       `json:"error,omitempty"`
}

func (r BatchResult) Succeeded() bool {
	return r.Outcome != BatchFailed
}

// ========================================
// RECONCILIATION DTOs
// ========================================

type ReconcileOutcome string

const (
	ReconcileClosed        ReconcileOutcome = "closed"
	ReconcileAlreadyClosed ReconcileOutcome = "already_closed"
	ReconcileNoOpenSession ReconcileOutcome = "no_open_session"
	ReconcileFailed        ReconcileOutcome = "failed"
)

type ReconcileDetail struct {
	EmployeeID   string           `json:"employee_id"`
	DayID        string           `json:"day_id"`
	Outcome      ReconcileOutcome `json:"outcome"`
	ClosedAt     *time.Time       `json:"closed_at,omitempty"`
	SessionHours float64          `json:"session_hours,omitempty"`
	Error        string           `json:"error,omitempty"`
}

type ReconciliationSummary struct {
	Date        string            `json:"date"`
	RowsScanned int               `json:"rows_scanned"`
	RowsClosed  int               `json:"rows_closed"`
	Failures    int               `json:"failures"`
	Details     []ReconcileDetail `json:"details"`
}

// ========================================
// QUERY DTOs
// ========================================

type DayView struct {
	ID             string         `json:"id"`
	EmployeeID     string         `json:"employee_id"`
	Date           string         `json:"date"`
	Sessions       []PunchSession `json:"sessions"`
	TotalHours     float64        `json:"total_hours"`
	ElapsedHours   float64        `json:"elapsed_hours"`
	StoredStatus   Status         `json:"stored_status"`
	DerivedStatus  Status         `json:"derived_status"`
	HasOpenSession bool           `json:"has_open_session"`
	IsManualEntry  bool           `json:"is_manual_entry"`
}

type Stats struct {
	EmployeeID      string         `json:"employee_id"`
	From            string         `json:"from"`
	To              string         `json:"to"`
	RecordedDays    int            `json:"recorded_days"`
	StatusCounts    map[Status]int `json:"status_counts"`
	TotalHours      float64        `json:"total_hours"`
	AverageHours    float64        `json:"average_hours"`
	OpenSessionDays int            `json:"open_session_days"`
}

// RangeFilter is the query-string form of a date range.
type RangeFilter struct {
	From string `json:"from"` // YYYY-MM-DD
	To   string `json:"to"`   // YYYY-MM-DD
}

func (f *RangeFilter) Validate() (time.Time, time.Time, error) {
	var errs validator.ValidationErrors

	from, okFrom := validator.IsValidDate(f.From)
	if !okFrom {
		errs = append(errs, validator.ValidationError{
			Field:   "from",
			Message: "from must be in YYYY-MM-DD format",
		})
	}
	to, okTo := validator.IsValidDate(f.To)
	if !okTo {
		errs = append(errs, validator.ValidationError{
			Field:   "to",
			Message: "to must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return time.Time{}, time.Time{}, errs
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}
	return from, to, nil
}
