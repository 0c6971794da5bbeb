package attendance

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
)

type SessionServiceImpl struct {
	writer   dayWriter
	repo     attendance.DayRepository
	clock    clock.Clock
	location *time.Location
}

func NewSessionService(repo attendance.DayRepository, clk clock.Clock, cfg config.AttendanceConfig) attendance.SessionService {
	return &SessionServiceImpl{
		writer:   dayWriter{repo: repo, clock: clk, maxRetries: cfg.MaxWriteRetries},
		repo:     repo,
		clock:    clk,
		location: locationOf(cfg),
	}
}

func (s *SessionServiceImpl) today() time.Time {
	return attendance.CivilDate(s.clock.Now().In(s.location))
}

// PunchIn implements attendance.SessionService.
func (s *SessionServiceImpl) PunchIn(ctx context.Context, req attendance.PunchRequest) (attendance.PunchSession, error) {
	if err := req.Validate(); err != nil {
		return attendance.PunchSession{}, err
	}

	var opened attendance.PunchSession
	day, err := s.writer.mutate(ctx, req.EmployeeID, s.today(), true, attendance.StatusPresent,
		func(day *attendance.AttendanceDay, now time.Time) error {
			if day.HasOpenSession() {
				return attendance.ErrActiveSessionExists
			}
			if last := day.LastSession(); last != nil && now.Before(last.PunchOut.Time) {
				return attendance.ErrOverlappingSession
			}
			day.Sessions = append(day.Sessions, attendance.PunchSession{
				PunchIn: attendance.PunchPoint{Time: now, Location: req.Location, Origin: req.Origin},
			})
			day.RecomputeHours()
			day.AppendAudit(attendance.AuditPunchIn, req.Actor, now, map[string]any{
				"session_index": len(day.Sessions) - 1,
				"location":      req.Location,
			})
			opened = *day.LastSession()
			return nil
		})
	if err != nil {
		return attendance.PunchSession{}, err
	}

	slog.Info("Punch in recorded",
		"employee_id", day.EmployeeID,
		"day_id", day.ID,
		"sessions", len(day.Sessions))
	return opened, nil
}

// PunchOut implements attendance.SessionService.
func (s *SessionServiceImpl) PunchOut(ctx context.Context, req attendance.PunchRequest) (attendance.PunchSession, error) {
	if err := req.Validate(); err != nil {
		return attendance.PunchSession{}, err
	}

	var closed attendance.PunchSession
	day, err := s.writer.mutate(ctx, req.EmployeeID, s.today(), false, "",
		func(day *attendance.AttendanceDay, now time.Time) error {
			last := day.LastSession()
			if last == nil || !last.IsOpen() {
				return attendance.ErrNoOpenSession
			}
			out := now
			if out.Before(last.PunchIn.Time) {
				out = last.PunchIn.Time
			}
			last.PunchOut = &attendance.PunchPoint{Time: out, Location: req.Location, Origin: req.Origin}
			day.RecomputeHours()
			day.AppendAudit(attendance.AuditPunchOut, req.Actor, now, map[string]any{
				"session_index": len(day.Sessions) - 1,
				"session_hours": last.SessionHours,
				"location":      req.Location,
			})
			closed = *last
			return nil
		})
	if err != nil {
		if errors.Is(err, attendance.ErrDayNotFound) {
			return attendance.PunchSession{}, attendance.ErrNoOpenSession
		}
		return attendance.PunchSession{}, err
	}

	slog.Info("Punch out recorded",
		"employee_id", day.EmployeeID,
		"day_id", day.ID,
		"session_hours", closed.SessionHours,
		"total_hours", day.TotalHours)
	return closed, nil
}

// CurrentSession implements attendance.SessionService.
func (s *SessionServiceImpl) CurrentSession(ctx context.Context, employeeID string, date time.Time) (*attendance.PunchSession, error) {
	day, err := s.repo.GetByEmployeeAndDate(ctx, employeeID, attendance.CivilDate(date))
	if err != nil {
		if errors.Is(err, attendance.ErrDayNotFound) {
			return nil, nil
		}
		return nil, err
	}

	current := day.CurrentSession()
	if current == nil {
		return nil, nil
	}
	current.SessionHours = current.HoursAt(s.clock.Now())
	return current, nil
}

// AddManualSession implements attendance.SessionService.
// The open-session precondition of PunchIn does not apply; a closed manual
// session may be recorded while another session is open, as long as the
// two do not overlap.
func (s *SessionServiceImpl) AddManualSession(ctx context.Context, req attendance.ManualSessionRequest) (attendance.PunchSession, error) {
	if err := req.Validate(); err != nil {
		return attendance.PunchSession{}, err
	}
	if req.PunchOut != nil && req.PunchOut.Before(req.PunchIn) {
		return attendance.PunchSession{}, attendance.ErrInvalidTimeRange
	}

	session := attendance.PunchSession{
		PunchIn: attendance.PunchPoint{
			Time:     req.PunchIn,
			Location: req.Location,
			Origin:   map[string]string{"source": "manual"},
		},
	}
	if req.PunchOut != nil {
		session.PunchOut = &attendance.PunchPoint{
			Time:     *req.PunchOut,
			Location: req.Location,
			Origin:   map[string]string{"source": "manual"},
		}
	}

	date := attendance.CivilDate(req.PunchIn.In(s.location))
	var added attendance.PunchSession
	day, err := s.writer.mutate(ctx, req.EmployeeID, date, true, attendance.StatusPresent,
		func(day *attendance.AttendanceDay, now time.Time) error {
			if err := checkInsertable(day.Sessions, session); err != nil {
				return err
			}
			day.Sessions = append(day.Sessions, session)
			sort.SliceStable(day.Sessions, func(i, j int) bool {
				return day.Sessions[i].PunchIn.Time.Before(day.Sessions[j].PunchIn.Time)
			})
			day.RecomputeHours()

			actor, reason := req.Actor, req.Reason
			day.IsManualEntry = true
			day.ManualEntryBy = &actor
			day.ManualEntryReason = &reason
			day.AppendAudit(attendance.AuditManualSession, req.Actor, now, map[string]any{
				"punch_in":  req.PunchIn,
				"punch_out": req.PunchOut,
				"reason":    req.Reason,
			})

			for _, stored := range day.Sessions {
				if stored.PunchIn.Time.Equal(session.PunchIn.Time) {
					added = stored
				}
			}
			return nil
		})
	if err != nil {
		return attendance.PunchSession{}, err
	}

	slog.Info("Manual session recorded",
		"employee_id", day.EmployeeID,
		"day_id", day.ID,
		"actor", req.Actor,
		"total_hours", day.TotalHours)
	return added, nil
}

// checkInsertable keeps the day free of overlapping sessions and of a
// second open session. An open session must also be the latest one.
func checkInsertable(existing []attendance.PunchSession, candidate attendance.PunchSession) error {
	for _, s := range existing {
		if candidate.IsOpen() && s.IsOpen() {
			return attendance.ErrActiveSessionExists
		}
		if overlaps(s, candidate) {
			return attendance.ErrOverlappingSession
		}
		if candidate.IsOpen() && !s.PunchIn.Time.Before(candidate.PunchIn.Time) {
			return attendance.ErrOverlappingSession
		}
	}
	return nil
}

// overlaps treats an open session as extending forever.
func overlaps(a, b attendance.PunchSession) bool {
	aStart, bStart := a.PunchIn.Time, b.PunchIn.Time
	if a.IsOpen() && b.IsOpen() {
		return true
	}
	if a.IsOpen() {
		return b.PunchOut.Time.After(aStart)
	}
	if b.IsOpen() {
		return a.PunchOut.Time.After(bStart)
	}
	return aStart.Before(b.PunchOut.Time) && bStart.Before(a.PunchOut.Time)
}
