package leave

import (
	"context"
	"time"
)

// RequestReader is the read-only view of the requests collaborator.
type RequestReader interface {
	// ApprovedCovering returns the approved request covering date for the
	// employee, or nil when there is none. When several overlap the most
	// recently approved wins.
	ApprovedCovering(ctx context.Context, employeeID string, date time.Time) (*Request, error)
}
