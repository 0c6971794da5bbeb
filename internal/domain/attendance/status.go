package attendance

import "time"

// RequestType is the kind of an approved request that overrides hours.
type RequestType string

const (
	RequestLeave        RequestType = "leave"
	RequestWorkFromHome RequestType = "work_from_home"
	RequestOnDuty       RequestType = "on_duty"
	RequestSickLeave    RequestType = "sick_leave"
)

// Status maps a request type to the day label it produces.
func (r RequestType) Status() Status {
	switch r {
	case RequestWorkFromHome:
		return StatusWorkFromHome
	case RequestOnDuty:
		return StatusOnDuty
	case RequestSickLeave:
		return StatusSickLeave
	default:
		return StatusLeave
	}
}

// Thresholds split finalized days into absent, half-day and present.
type Thresholds struct {
	HalfDayHours float64
	FullDayHours float64
}

var DefaultThresholds = Thresholds{HalfDayHours: 4, FullDayHours: 8}

// CalendarContext is everything outside the day itself that status
// derivation depends on.
type CalendarContext struct {
	Date            time.Time
	IsRestDay       bool
	ApprovedRequest *RequestType
	IsToday         bool
	IsFuture        bool
	Thresholds      Thresholds
}

// DeriveStatus computes the label for day. A nil day is a date with no
// record at all. The result depends only on its arguments.
func DeriveStatus(day *AttendanceDay, cc CalendarContext) Status {
	if cc.IsRestDay {
		return StatusHoliday
	}
	if cc.ApprovedRequest != nil {
		return cc.ApprovedRequest.Status()
	}
	// The day is not over yet, so hours say nothing about it.
	if cc.IsToday || cc.IsFuture {
		if day == nil || day.Status == "" {
			return StatusPresent
		}
		return day.Status
	}

	if day == nil || len(day.Sessions) == 0 {
		return StatusAbsent
	}

	th := cc.Thresholds
	if th.FullDayHours == 0 {
		th = DefaultThresholds
	}
	switch {
	case day.TotalHours < th.HalfDayHours:
		return StatusAbsent
	case day.TotalHours < th.FullDayHours:
		return StatusHalfDay
	default:
		return StatusPresent
	}
}
