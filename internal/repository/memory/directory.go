package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/leave"
)

// EmployeeDirectory is an in-process identity provider.
type EmployeeDirectory struct {
	mu        sync.RWMutex
	employees map[string]employee.Employee
}

func NewEmployeeDirectory(employees ...employee.Employee) *EmployeeDirectory {
	d := &EmployeeDirectory{employees: make(map[string]employee.Employee)}
	for _, e := range employees {
		d.employees[e.ID] = e
	}
	return d
}

func (d *EmployeeDirectory) Put(e employee.Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[e.ID] = e
}

// GetByID implements employee.Directory.
func (d *EmployeeDirectory) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

// ListActive implements employee.Directory.
func (d *EmployeeDirectory) ListActive(ctx context.Context) ([]employee.Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]employee.Employee, 0, len(d.employees))
	for _, e := range d.employees {
		if e.IsActive() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RequestStore is an in-process requests collaborator.
type RequestStore struct {
	mu       sync.RWMutex
	requests []leave.Request
}

func NewRequestStore(requests ...leave.Request) *RequestStore {
	return &RequestStore{requests: append([]leave.Request(nil), requests...)}
}

func (s *RequestStore) Add(r leave.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)
}

// ApprovedCovering implements leave.RequestReader.
func (s *RequestStore) ApprovedCovering(ctx context.Context, employeeID string, date time.Time) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *leave.Request
	for i := range s.requests {
		r := s.requests[i]
		if r.EmployeeID != employeeID || r.Status != leave.RequestStatusApproved || !r.Covers(date) {
			continue
		}
		if best == nil || approvedAfter(r, *best) {
			found := r
			best = &found
		}
	}
	return best, nil
}

func approvedAfter(a, b leave.Request) bool {
	if a.ApprovedAt == nil {
		return false
	}
	if b.ApprovedAt == nil {
		return true
	}
	return a.ApprovedAt.After(*b.ApprovedAt)
}
