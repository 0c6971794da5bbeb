package postgresql_test

import (
	"context"
	"os"
	"testing"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/postgresql"
	"github.com/stretchr/testify/require"
)

// Tables owned by other services, created here only so the readers have
// something to query.
const collaboratorSchema = `
CREATE TABLE IF NOT EXISTS employees (
    id                TEXT PRIMARY KEY,
    full_name         TEXT NOT NULL,
    department        TEXT,
    employment_status TEXT NOT NULL,
    deleted_at        TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS leave_requests (
    id           TEXT PRIMARY KEY,
    employee_id  TEXT NOT NULL,
    request_type TEXT NOT NULL,
    start_date   DATE NOT NULL,
    end_date     DATE NOT NULL,
    status       TEXT NOT NULL,
    approved_at  TIMESTAMPTZ
);
`

// newTestDatabase connects to TEST_DATABASE_URL, applies the schema and
// empties every table. The test is skipped when the variable is unset.
func newTestDatabase(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(context.Background(), dsn, database.PoolConfig{MaxConns: 8})
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(db.Close)

	ctx := context.Background()
	require.NoError(t, postgresql.Migrate(ctx, db))
	_, err = db.Exec(ctx, collaboratorSchema)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `TRUNCATE TABLE attendance_days, employees, leave_requests`)
	require.NoError(t, err)

	return db
}
