package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Attendance domain errors
	case errors.Is(err, attendance.ErrActiveSessionExists):
		Conflict(w, "An open punch session already exists")
	case errors.Is(err, attendance.ErrNoOpenSession):
		Conflict(w, "No open punch session to close")
	case errors.Is(err, attendance.ErrOverlappingSession):
		Conflict(w, "Session overlaps an existing session")
	case errors.Is(err, attendance.ErrPersistenceConflict):
		Conflict(w, "Attendance day was modified concurrently, retry the request")
	case errors.Is(err, attendance.ErrDayAlreadyExists):
		Conflict(w, "Attendance day already exists")
	case errors.Is(err, attendance.ErrInvalidTimeRange):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrInvalidStatus):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrDayNotFound):
		NotFound(w, "Attendance day not found")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Scheduler errors
	case errors.Is(err, cron.ErrJobNotFound):
		NotFound(w, "Job not found")
	case errors.Is(err, cron.ErrJobRunning):
		Conflict(w, "Job is already running")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
