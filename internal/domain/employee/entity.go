package employee

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

// Employee is the slice of the identity provider's record the attendance
// engine needs.
type Employee struct {
	ID               string
	FullName         string
	Department       *string
	EmploymentStatus EmploymentStatus
}

func (e Employee) IsActive() bool {
	return e.EmploymentStatus == EmploymentStatusActive
}
