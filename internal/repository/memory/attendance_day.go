package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/google/uuid"
)

type dayKey struct {
	employeeID string
	date       string
}

func keyOf(employeeID string, date time.Time) dayKey {
	return dayKey{employeeID: employeeID, date: attendance.CivilDate(date).Format("2006-01-02")}
}

// DayRepository keeps attendance days in process. It enforces the same
// uniqueness and version rules as the PostgreSQL repository and never
// hands out references to stored rows.
type DayRepository struct {
	mu    sync.RWMutex
	days  map[dayKey]attendance.AttendanceDay
	clock clock.Clock
}

func NewDayRepository(clk clock.Clock) *DayRepository {
	if clk == nil {
		clk = clock.Real()
	}
	return &DayRepository{
		days:  make(map[dayKey]attendance.AttendanceDay),
		clock: clk,
	}
}

// Create implements attendance.DayRepository.
func (r *DayRepository) Create(ctx context.Context, day attendance.AttendanceDay) (attendance.AttendanceDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	day.Date = attendance.CivilDate(day.Date)
	k := keyOf(day.EmployeeID, day.Date)
	if _, exists := r.days[k]; exists {
		return attendance.AttendanceDay{}, attendance.ErrDayAlreadyExists
	}

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.AttendanceDay{}, err
	}
	now := r.clock.Now().UTC()
	day.ID = id.String()
	day.Version = 1
	day.CreatedAt = now
	day.UpdatedAt = now
	if day.Sessions == nil {
		day.Sessions = []attendance.PunchSession{}
	}
	if day.AuditTrail == nil {
		day.AuditTrail = []attendance.AuditEntry{}
	}

	r.days[k] = day.Clone()
	return day.Clone(), nil
}

// GetByEmployeeAndDate implements attendance.DayRepository.
func (r *DayRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (attendance.AttendanceDay, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day, ok := r.days[keyOf(employeeID, date)]
	if !ok {
		return attendance.AttendanceDay{}, attendance.ErrDayNotFound
	}
	return day.Clone(), nil
}

// Update implements attendance.DayRepository.
func (r *DayRepository) Update(ctx context.Context, day attendance.AttendanceDay) (attendance.AttendanceDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyOf(day.EmployeeID, day.Date)
	stored, ok := r.days[k]
	if !ok || stored.ID != day.ID {
		return attendance.AttendanceDay{}, attendance.ErrDayNotFound
	}
	if stored.Version != day.Version {
		return attendance.AttendanceDay{}, attendance.ErrPersistenceConflict
	}

	day.Version = stored.Version + 1
	day.CreatedAt = stored.CreatedAt
	day.UpdatedAt = r.clock.Now().UTC()
	r.days[k] = day.Clone()
	return day.Clone(), nil
}

// ListByDate implements attendance.DayRepository.
func (r *DayRepository) ListByDate(ctx context.Context, date time.Time) ([]attendance.AttendanceDay, error) {
	return r.filter(func(d attendance.AttendanceDay) bool {
		return d.Date.Equal(attendance.CivilDate(date))
	}), nil
}

// ListOpenByDate implements attendance.DayRepository.
func (r *DayRepository) ListOpenByDate(ctx context.Context, date time.Time) ([]attendance.AttendanceDay, error) {
	return r.filter(func(d attendance.AttendanceDay) bool {
		return d.Date.Equal(attendance.CivilDate(date)) && d.HasOpenSession()
	}), nil
}

// ListByEmployeeRange implements attendance.DayRepository.
func (r *DayRepository) ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.AttendanceDay, error) {
	lo, hi := attendance.CivilDate(from), attendance.CivilDate(to)
	return r.filter(func(d attendance.AttendanceDay) bool {
		return d.EmployeeID == employeeID && !d.Date.Before(lo) && !d.Date.After(hi)
	}), nil
}

func (r *DayRepository) filter(keep func(attendance.AttendanceDay) bool) []attendance.AttendanceDay {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]attendance.AttendanceDay, 0)
	for _, d := range r.days {
		if keep(d) {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}
