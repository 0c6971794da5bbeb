package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const dayColumns = `
	id, employee_id, date, sessions, total_hours, status,
	is_manual_entry, manual_entry_by, manual_entry_reason,
	audit_trail, version, created_at, updated_at
`

type attendanceDayRepository struct {
	db *database.DB
}

func NewAttendanceDayRepository(db *database.DB) attendance.DayRepository {
	return &attendanceDayRepository{db: db}
}

// Create implements attendance.DayRepository.
func (a *attendanceDayRepository) Create(ctx context.Context, day attendance.AttendanceDay) (attendance.AttendanceDay, error) {
	q := GetQuerier(ctx, a.db)

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.AttendanceDay{}, fmt.Errorf("failed to generate attendance day id: %w", err)
	}
	day.ID = id.String()
	day.Date = attendance.CivilDate(day.Date)

	sessions, auditTrail, err := marshalDayDocuments(day)
	if err != nil {
		return attendance.AttendanceDay{}, err
	}

	query := `
		INSERT INTO attendance_days (
			id, employee_id, date, sessions, total_hours, status,
			is_manual_entry, manual_entry_by, manual_entry_reason,
			audit_trail, version
		) VALUES (
			$1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10::jsonb, 1
		) RETURNING version, created_at, updated_at
	`

	err = q.QueryRow(ctx, query,
		day.ID,
		day.EmployeeID,
		day.Date,
		sessions,
		day.TotalHours,
		day.Status,
		day.IsManualEntry,
		day.ManualEntryBy,
		day.ManualEntryReason,
		auditTrail,
	).Scan(&day.Version, &day.CreatedAt, &day.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return attendance.AttendanceDay{}, attendance.ErrDayAlreadyExists
		}
		return attendance.AttendanceDay{}, fmt.Errorf("failed to create attendance day: %w", err)
	}

	return day, nil
}

// GetByEmployeeAndDate implements attendance.DayRepository.
func (a *attendanceDayRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (attendance.AttendanceDay, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + dayColumns + `
		FROM attendance_days
		WHERE employee_id = $1 AND date = $2
	`

	day, err := scanDay(q.QueryRow(ctx, query, employeeID, attendance.CivilDate(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.AttendanceDay{}, attendance.ErrDayNotFound
		}
		return attendance.AttendanceDay{}, fmt.Errorf("failed to get attendance day: %w", err)
	}

	return day, nil
}

// Update implements attendance.DayRepository.
// The WHERE clause on version is the optimistic concurrency check.
func (a *attendanceDayRepository) Update(ctx context.Context, day attendance.AttendanceDay) (attendance.AttendanceDay, error) {
	q := GetQuerier(ctx, a.db)

	sessions, auditTrail, err := marshalDayDocuments(day)
	if err != nil {
		return attendance.AttendanceDay{}, err
	}

	query := `
		UPDATE attendance_days SET
			sessions = $3::jsonb,
			total_hours = $4,
			status = $5,
			is_manual_entry = $6,
			manual_entry_by = $7,
			manual_entry_reason = $8,
			audit_trail = $9::jsonb,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`

	err = q.QueryRow(ctx, query,
		day.ID,
		day.Version,
		sessions,
		day.TotalHours,
		day.Status,
		day.IsManualEntry,
		day.ManualEntryBy,
		day.ManualEntryReason,
		auditTrail,
	).Scan(&day.Version, &day.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM attendance_days WHERE id = $1)`, day.ID).Scan(&exists); checkErr != nil {
				return attendance.AttendanceDay{}, fmt.Errorf("failed to check attendance day: %w", checkErr)
			}
			if !exists {
				return attendance.AttendanceDay{}, attendance.ErrDayNotFound
			}
			return attendance.AttendanceDay{}, attendance.ErrPersistenceConflict
		}
		return attendance.AttendanceDay{}, fmt.Errorf("failed to update attendance day: %w", err)
	}

	return day, nil
}

// ListByDate implements attendance.DayRepository.
func (a *attendanceDayRepository) ListByDate(ctx context.Context, date time.Time) ([]attendance.AttendanceDay, error) {
	query := `SELECT ` + dayColumns + `
		FROM attendance_days
		WHERE date = $1
		ORDER BY employee_id
	`
	return a.list(ctx, query, attendance.CivilDate(date))
}

// ListOpenByDate implements attendance.DayRepository.
func (a *attendanceDayRepository) ListOpenByDate(ctx context.Context, date time.Time) ([]attendance.AttendanceDay, error) {
	query := `SELECT ` + dayColumns + `
		FROM attendance_days
		WHERE date = $1
		  AND jsonb_array_length(sessions) > 0
		  AND (sessions -> -1 -> 'punch_out') IS NULL
		ORDER BY employee_id
	`
	return a.list(ctx, query, attendance.CivilDate(date))
}

// ListByEmployeeRange implements attendance.DayRepository.
func (a *attendanceDayRepository) ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.AttendanceDay, error) {
	query := `SELECT ` + dayColumns + `
		FROM attendance_days
		WHERE employee_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`
	return a.list(ctx, query, employeeID, attendance.CivilDate(from), attendance.CivilDate(to))
}

func (a *attendanceDayRepository) list(ctx context.Context, query string, args ...interface{}) ([]attendance.AttendanceDay, error) {
	q := GetQuerier(ctx, a.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance days: %w", err)
	}
	defer rows.Close()

	days := make([]attendance.AttendanceDay, 0)
	for rows.Next() {
		day, err := scanDay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance day: %w", err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance days: %w", err)
	}

	return days, nil
}

func scanDay(row pgx.Row) (attendance.AttendanceDay, error) {
	var (
		day        attendance.AttendanceDay
		status     string
		sessions   []byte
		auditTrail []byte
	)
	err := row.Scan(
		&day.ID, &day.EmployeeID, &day.Date, &sessions, &day.TotalHours, &status,
		&day.IsManualEntry, &day.ManualEntryBy, &day.ManualEntryReason,
		&auditTrail, &day.Version, &day.CreatedAt, &day.UpdatedAt,
	)
	if err != nil {
		return attendance.AttendanceDay{}, err
	}

	day.Status = attendance.Status(status)
	day.Date = attendance.CivilDate(day.Date)
	if err := json.Unmarshal(sessions, &day.Sessions); err != nil {
		return attendance.AttendanceDay{}, fmt.Errorf("decode sessions: %w", err)
	}
	if err := json.Unmarshal(auditTrail, &day.AuditTrail); err != nil {
		return attendance.AttendanceDay{}, fmt.Errorf("decode audit trail: %w", err)
	}
	if day.Sessions == nil {
		day.Sessions = []attendance.PunchSession{}
	}
	if day.AuditTrail == nil {
		day.AuditTrail = []attendance.AuditEntry{}
	}

	return day, nil
}

func marshalDayDocuments(day attendance.AttendanceDay) (string, string, error) {
	sessions := day.Sessions
	if sessions == nil {
		sessions = []attendance.PunchSession{}
	}
	auditTrail := day.AuditTrail
	if auditTrail == nil {
		auditTrail = []attendance.AuditEntry{}
	}

	s, err := json.Marshal(sessions)
	if err != nil {
		return "", "", fmt.Errorf("encode sessions: %w", err)
	}
	a, err := json.Marshal(auditTrail)
	if err != nil {
		return "", "", fmt.Errorf("encode audit trail: %w", err)
	}
	return string(s), string(a), nil
}
