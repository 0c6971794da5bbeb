package leave

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
)

type RequestStatus string

const (
	RequestStatusWaitingApproval RequestStatus = "waiting_approval"
	RequestStatusApproved        RequestStatus = "approved"
	RequestStatusRejected        RequestStatus = "rejected"
	RequestStatusCancelled       RequestStatus = "cancelled"
)

// Request is an employee request (leave, WFH, on-duty, sick leave) covering
// the inclusive civil date range [StartDate, EndDate].
type Request struct {
	ID          string
	EmployeeID  string
	RequestType attendance.RequestType
	StartDate   time.Time
	EndDate     time.Time
	Status      RequestStatus
	ApprovedAt  *time.Time
}

// Covers reports whether the civil date falls inside the request.
func (r Request) Covers(date time.Time) bool {
	d := attendance.CivilDate(date)
	return !d.Before(attendance.CivilDate(r.StartDate)) && !d.After(attendance.CivilDate(r.EndDate))
}
