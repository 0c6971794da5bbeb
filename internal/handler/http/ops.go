package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// JobScheduler is the part of the cron scheduler the ops surface drives.
type JobScheduler interface {
	Status() cron.Status
	RunNow(ctx context.Context, name string) error
}

type OpsHandler interface {
	SchedulerStatus(w http.ResponseWriter, r *http.Request)
	RunJob(w http.ResponseWriter, r *http.Request)
	RunReconciliation(w http.ResponseWriter, r *http.Request)
	RunStatusDerivation(w http.ResponseWriter, r *http.Request)
	OpenSessions(w http.ResponseWriter, r *http.Request)
	ListAttendance(w http.ResponseWriter, r *http.Request)
	AttendanceStats(w http.ResponseWriter, r *http.Request)
	DeriveStatus(w http.ResponseWriter, r *http.Request)
	CurrentSession(w http.ResponseWriter, r *http.Request)
	AddManualSession(w http.ResponseWriter, r *http.Request)
}

type opsHandlerImpl struct {
	sessionService        attendance.SessionService
	statusService         attendance.StatusService
	reconciliationService attendance.ReconciliationService
	queryService          attendance.QueryService
	scheduler             JobScheduler
	clock                 clock.Clock
	location              *time.Location
}

func NewOpsHandler(
	sessionService attendance.SessionService,
	statusService attendance.StatusService,
	reconciliationService attendance.ReconciliationService,
	queryService attendance.QueryService,
	scheduler JobScheduler,
	clk clock.Clock,
	location *time.Location,
) OpsHandler {
	if location == nil {
		location = time.UTC
	}
	return &opsHandlerImpl{
		sessionService:        sessionService,
		statusService:         statusService,
		reconciliationService: reconciliationService,
		queryService:          queryService,
		scheduler:             scheduler,
		clock:                 clk,
		location:              location,
	}
}

func (h *opsHandlerImpl) today() time.Time {
	return attendance.CivilDate(h.clock.Now().In(h.location))
}

func (h *opsHandlerImpl) meta(count int) *response.Meta {
	return &response.Meta{
		Timezone:    h.location.String(),
		GeneratedAt: h.clock.Now(),
		Count:       count,
	}
}

// dateParam reads ?date=YYYY-MM-DD, falling back when it is absent.
func dateParam(r *http.Request, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return fallback, nil
	}
	date, ok := validator.IsValidDate(raw)
	if !ok {
		return time.Time{}, validator.ValidationErrors{{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		}}
	}
	return date, nil
}

// SchedulerStatus implements OpsHandler.
func (h *opsHandlerImpl) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.scheduler.Status())
}

// RunJob implements OpsHandler.
func (h *opsHandlerImpl) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.scheduler.RunNow(r.Context(), name); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Job completed", h.scheduler.Status())
}

// RunReconciliation implements OpsHandler.
func (h *opsHandlerImpl) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, h.today())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	summary, err := h.reconciliationService.RunReconciliation(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	slog.Info("Manual reconciliation triggered", "date", summary.Date, "rows_closed", summary.RowsClosed)
	response.SuccessWithMessage(w, "Reconciliation completed", summary)
}

// RunStatusDerivation implements OpsHandler.
func (h *opsHandlerImpl) RunStatusDerivation(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, h.today().AddDate(0, 0, -1))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	results, err := h.statusService.BatchDeriveStatus(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Status derivation completed", results)
}

// OpenSessions implements OpsHandler.
func (h *opsHandlerImpl) OpenSessions(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, h.today())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	views, err := h.queryService.OpenSessions(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, views, h.meta(len(views)))
}

func (h *opsHandlerImpl) rangeParams(r *http.Request) (time.Time, time.Time, error) {
	filter := attendance.RangeFilter{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	return filter.Validate()
}

// ListAttendance implements OpsHandler.
func (h *opsHandlerImpl) ListAttendance(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.rangeParams(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	views, err := h.queryService.ListRange(r.Context(), chi.URLParam(r, "employeeID"), from, to)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, views, h.meta(len(views)))
}

// AttendanceStats implements OpsHandler.
func (h *opsHandlerImpl) AttendanceStats(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.rangeParams(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	stats, err := h.queryService.Stats(r.Context(), chi.URLParam(r, "employeeID"), from, to)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, stats)
}

// DeriveStatus implements OpsHandler.
func (h *opsHandlerImpl) DeriveStatus(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, h.today())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	status, err := h.statusService.DeriveStatus(r.Context(), employeeID, date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, map[string]string{
		"employee_id": employeeID,
		"date":        date.Format("2006-01-02"),
		"status":      string(status),
	})
}

// CurrentSession implements OpsHandler.
func (h *opsHandlerImpl) CurrentSession(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, h.today())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	session, err := h.sessionService.CurrentSession(r.Context(), chi.URLParam(r, "employeeID"), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if session == nil {
		response.NotFound(w, "No open punch session")
		return
	}

	response.Success(w, session)
}

// AddManualSession implements OpsHandler.
func (h *opsHandlerImpl) AddManualSession(w http.ResponseWriter, r *http.Request) {
	var req attendance.ManualSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode manual session request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EmployeeID = chi.URLParam(r, "employeeID")

	session, err := h.sessionService.AddManualSession(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Manual session recorded", session)
}
