package attendance

import (
	"time"
)

const millisPerHour = 3_600_000

// Status is the categorical label of an attendance day.
type Status string

const (
	StatusPresent      Status = "present"
	StatusAbsent       Status = "absent"
	StatusLate         Status = "late"
	StatusHalfDay      Status = "half_day"
	StatusLeave        Status = "leave"
	StatusHoliday      Status = "holiday"
	StatusWorkFromHome Status = "work_from_home"
	StatusOnDuty       Status = "on_duty"
	StatusSickLeave    Status = "sick_leave"
)

var validStatuses = []Status{
	StatusPresent, StatusAbsent, StatusLate, StatusHalfDay, StatusLeave,
	StatusHoliday, StatusWorkFromHome, StatusOnDuty, StatusSickLeave,
}

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	for _, st := range validStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

type AuditAction string

const (
	AuditPunchIn       AuditAction = "punch_in"
	AuditPunchOut      AuditAction = "punch_out"
	AuditAutoPunchOut  AuditAction = "auto_punch_out"
	AuditManualSession AuditAction = "manual_session"
	AuditStatusChange  AuditAction = "status_change"
	AuditDayCreated    AuditAction = "day_created"
)

// SystemActor is recorded on audit entries written by background jobs.
const SystemActor = "system"

// PunchPoint is one end of a punch session.
type PunchPoint struct {
	Time     time.Time         `json:"time"`
	Location string            `json:"location,omitempty"`
	Origin   map[string]string `json:"origin,omitempty"`
}

// PunchSession is one continuous span of presence. PunchOut is nil while
// the session is open; SessionHours is only stable once it is closed.
type PunchSession struct {
	PunchIn      PunchPoint  `json:"punch_in"`
	PunchOut     *PunchPoint `json:"punch_out,omitempty"`
	SessionHours float64     `json:"session_hours"`
}

func (s PunchSession) IsOpen() bool {
	return s.PunchOut == nil
}

// HoursAt returns the session length in hours. Closed sessions use the
// punch-out time; open sessions use now. Never negative.
func (s PunchSession) HoursAt(now time.Time) float64 {
	end := now
	if s.PunchOut != nil {
		end = s.PunchOut.Time
	}
	ms := end.Sub(s.PunchIn.Time).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return float64(ms) / millisPerHour
}

type AuditEntry struct {
	Action    AuditAction    `json:"action"`
	Actor     string         `json:"actor"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// AttendanceDay is one employee's record for one calendar date.
// Date is a civil date stored as midnight UTC, see CivilDate.
type AttendanceDay struct {
	ID                string
	EmployeeID        string
	Date              time.Time
	Sessions          []PunchSession
	TotalHours        float64
	Status            Status
	IsManualEntry     bool
	ManualEntryBy     *string
	ManualEntryReason *string
	AuditTrail        []AuditEntry
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewDay builds an unsaved day with no sessions.
func NewDay(employeeID string, date time.Time, status Status) AttendanceDay {
	return AttendanceDay{
		EmployeeID: employeeID,
		Date:       CivilDate(date),
		Sessions:   []PunchSession{},
		Status:     status,
		AuditTrail: []AuditEntry{},
	}
}

// LastSession returns a pointer into Sessions, or nil when there are none.
func (d *AttendanceDay) LastSession() *PunchSession {
	if len(d.Sessions) == 0 {
		return nil
	}
	return &d.Sessions[len(d.Sessions)-1]
}

// CurrentSession returns a copy of the last session if it is open.
func (d AttendanceDay) CurrentSession() *PunchSession {
	if len(d.Sessions) == 0 {
		return nil
	}
	s := d.Sessions[len(d.Sessions)-1]
	if !s.IsOpen() {
		return nil
	}
	return &s
}

func (d AttendanceDay) HasOpenSession() bool {
	return d.CurrentSession() != nil
}

// OpenSessionCount is used by tests and integrity checks; it must never exceed one.
func (d AttendanceDay) OpenSessionCount() int {
	n := 0
	for _, s := range d.Sessions {
		if s.IsOpen() {
			n++
		}
	}
	return n
}

// RecomputeHours recalculates every closed session and the day total from
// scratch. Open sessions contribute 0 until they are closed.
func (d *AttendanceDay) RecomputeHours() float64 {
	total := 0.0
	for i := range d.Sessions {
		s := &d.Sessions[i]
		if s.IsOpen() {
			s.SessionHours = 0
			continue
		}
		s.SessionHours = s.HoursAt(s.PunchOut.Time)
		total += s.SessionHours
	}
	d.TotalHours = total
	return total
}

// ElapsedHours is the transient total at now, counting open sessions up to now.
func (d *AttendanceDay) ElapsedHours(now time.Time) float64 {
	total := 0.0
	for _, s := range d.Sessions {
		total += s.HoursAt(now)
	}
	return total
}

func (d *AttendanceDay) AppendAudit(action AuditAction, actor string, at time.Time, details map[string]any) {
	d.AuditTrail = append(d.AuditTrail, AuditEntry{
		Action:    action,
		Actor:     actor,
		Timestamp: at,
		Details:   details,
	})
}

// Clone deep-copies the day so callers can mutate it without aliasing a stored row.
func (d AttendanceDay) Clone() AttendanceDay {
	c := d
	c.Sessions = make([]PunchSession, len(d.Sessions))
	for i, s := range d.Sessions {
		c.Sessions[i] = s.clone()
	}
	c.AuditTrail = make([]AuditEntry, len(d.AuditTrail))
	for i, e := range d.AuditTrail {
		c.AuditTrail[i] = e
		if e.Details != nil {
			details := make(map[string]any, len(e.Details))
			for k, v := range e.Details {
				details[k] = v
			}
			c.AuditTrail[i].Details = details
		}
	}
	if d.ManualEntryBy != nil {
		by := *d.ManualEntryBy
		c.ManualEntryBy = &by
	}
	if d.ManualEntryReason != nil {
		reason := *d.ManualEntryReason
		c.ManualEntryReason = &reason
	}
	return c
}

func (s PunchSession) clone() PunchSession {
	c := s
	c.PunchIn = s.PunchIn.clone()
	if s.PunchOut != nil {
		out := s.PunchOut.clone()
		c.PunchOut = &out
	}
	return c
}

func (p PunchPoint) clone() PunchPoint {
	c := p
	if p.Origin != nil {
		c.Origin = make(map[string]string, len(p.Origin))
		for k, v := range p.Origin {
			c.Origin[k] = v
		}
	}
	return c
}

// CivilDate drops the clock part of t in its own location and returns
// that calendar day at midnight UTC.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CivilTime returns the instant at hour:minute on the civil date in loc.
func CivilTime(date time.Time, hour, minute int, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc)
}
