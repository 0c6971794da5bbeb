package employee

import "context"

// Directory is the read-only view of the employee identity provider.
type Directory interface {
	GetByID(ctx context.Context, id string) (Employee, error)

	// ListActive returns every employee whose employment status is active.
	ListActive(ctx context.Context) ([]Employee, error)
}
