package attendance

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
)

type QueryServiceImpl struct {
	repo     attendance.DayRepository
	resolver calendarResolver
	clock    clock.Clock
}

func NewQueryService(
	repo attendance.DayRepository,
	requests leave.RequestReader,
	policy calendar.Policy,
	clk clock.Clock,
	cfg config.AttendanceConfig,
) attendance.QueryService {
	return &QueryServiceImpl{
		repo:     repo,
		resolver: newResolver(cfg, policy, requests, clk),
		clock:    clk,
	}
}

// ListRange implements attendance.QueryService.
func (q *QueryServiceImpl) ListRange(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.DayView, error) {
	from, to = attendance.CivilDate(from), attendance.CivilDate(to)
	if from.After(to) {
		return nil, attendance.ErrInvalidTimeRange
	}

	days, err := q.repo.ListByEmployeeRange(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}

	return q.views(ctx, days)
}

// OpenSessions implements attendance.QueryService.
func (q *QueryServiceImpl) OpenSessions(ctx context.Context, date time.Time) ([]attendance.DayView, error) {
	days, err := q.repo.ListOpenByDate(ctx, attendance.CivilDate(date))
	if err != nil {
		return nil, err
	}
	return q.views(ctx, days)
}

func (q *QueryServiceImpl) views(ctx context.Context, days []attendance.AttendanceDay) ([]attendance.DayView, error) {
	now := q.clock.Now()
	views := make([]attendance.DayView, 0, len(days))
	for i := range days {
		day := &days[i]
		cc, err := q.resolver.resolve(ctx, day.EmployeeID, day.Date)
		if err != nil {
			return nil, err
		}

		sessions := make([]attendance.PunchSession, len(day.Sessions))
		for j, s := range day.Sessions {
			s.SessionHours = s.HoursAt(now)
			sessions[j] = s
		}

		views = append(views, attendance.DayView{
			ID:             day.ID,
			EmployeeID:     day.EmployeeID,
			Date:           day.Date.Format("2006-01-02"),
			Sessions:       sessions,
			TotalHours:     day.TotalHours,
			ElapsedHours:   day.ElapsedHours(now),
			StoredStatus:   day.Status,
			DerivedStatus:  attendance.DeriveStatus(day, cc),
			HasOpenSession: day.HasOpenSession(),
			IsManualEntry:  day.IsManualEntry,
		})
	}
	return views, nil
}

// Stats implements attendance.QueryService.
func (q *QueryServiceImpl) Stats(ctx context.Context, employeeID string, from, to time.Time) (attendance.Stats, error) {
	views, err := q.ListRange(ctx, employeeID, from, to)
	if err != nil {
		return attendance.Stats{}, err
	}

	stats := attendance.Stats{
		EmployeeID:   employeeID,
		From:         attendance.CivilDate(from).Format("2006-01-02"),
		To:           attendance.CivilDate(to).Format("2006-01-02"),
		RecordedDays: len(views),
		StatusCounts: make(map[attendance.Status]int),
	}
	for _, v := range views {
		stats.StatusCounts[v.DerivedStatus]++
		stats.TotalHours += v.TotalHours
		if v.HasOpenSession {
			stats.OpenSessionDays++
		}
	}
	if stats.RecordedDays > 0 {
		stats.AverageHours = stats.TotalHours / float64(stats.RecordedDays)
	}
	return stats, nil
}
