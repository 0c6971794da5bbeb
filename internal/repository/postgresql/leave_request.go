package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type leaveRequestReader struct {
	db *database.DB
}

func NewLeaveRequestReader(db *database.DB) leave.RequestReader {
	return &leaveRequestReader{db: db}
}

// ApprovedCovering implements leave.RequestReader.
func (l *leaveRequestReader) ApprovedCovering(ctx context.Context, employeeID string, date time.Time) (*leave.Request, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		SELECT id, employee_id, request_type, start_date, end_date, status, approved_at
		FROM leave_requests
		WHERE employee_id = $1
		  AND status = $2
		  AND start_date <= $3
		  AND end_date >= $3
		ORDER BY approved_at DESC NULLS LAST
		LIMIT 1
	`

	var (
		req         leave.Request
		requestType string
		status      string
	)
	err := q.QueryRow(ctx, query, employeeID, leave.RequestStatusApproved, attendance.CivilDate(date)).Scan(
		&req.ID, &req.EmployeeID, &requestType, &req.StartDate, &req.EndDate, &status, &req.ApprovedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get approved request: %w", err)
	}

	req.RequestType = attendance.RequestType(requestType)
	req.Status = leave.RequestStatus(status)
	return &req, nil
}
