package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/database"
	"github.com/stretchr/testify/require"
)

// engineTables are truncated before each test, children first.
var engineTables = []string{
	"notifications",
	"payroll_records",
	"pay_cycle_employees",
	"pay_cycles",
	"payroll_settings",
	"salary_components",
	"compensations",
	"office_networks",
	"attendance_adjustments",
	"attendances",
	"employees",
}

// newTestDB connects to TEST_DATABASE_URL (migrated with migrations/0001_timepay.up.sql)
// and skips the test when it is not configured or unreachable.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		t.Skipf("test database unreachable: %v", err)
	}
	t.Cleanup(db.Close)

	require.NoError(t, truncateAll(context.Background(), db))
	return db
}

func truncateAll(ctx context.Context, db *database.DB) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, table := range engineTables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// createTestEmployee inserts a directory row and returns its id.
func createTestEmployee(t *testing.T, ctx context.Context, db *database.DB, companyID, name string) string {
	t.Helper()
	var id string
	err := db.QueryRow(ctx, `
		INSERT INTO employees (company_id, full_name, office, hire_date)
		VALUES ($1, $2, 'Jakarta', '2024-01-01')
		RETURNING id
	`, companyID, name).Scan(&id)
	require.NoError(t, err)
	return id
}
