package attendance

import "errors"

// Attendance domain errors
var (
	// Lifecycle errors
	ErrActiveSessionExists = errors.New("an open punch session already exists for this day")
	ErrNoOpenSession       = errors.New("there is no open punch session to close")
	ErrInvalidTimeRange    = errors.New("punch out must not be earlier than punch in")
	ErrOverlappingSession  = errors.New("session overlaps an existing punch session")

	// Storage errors
	ErrDayNotFound         = errors.New("attendance day not found")
	ErrDayAlreadyExists    = errors.New("attendance day already exists for this employee and date")
	ErrPersistenceConflict = errors.New("attendance day was modified concurrently")

	ErrInvalidStatus = errors.New("invalid attendance status")
)
