package postgresql_test

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmployeeRepository_ListByCriteriaMatchesOfficeLiterally(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewEmployeeRepository(db)
	companyID := uuid.NewString()

	for _, office := range []string{"50% Tower", "500 Tower", "Floor_2", "Floor 2"} {
		_, err := db.Exec(ctx, `
			INSERT INTO employees (company_id, full_name, office, hire_date)
			VALUES ($1, $2, $2, '2024-01-01')
		`, companyID, office)
		require.NoError(t, err)
	}

	offices := func(filter string) []string {
		emps, err := repo.ListByCriteria(ctx, companyID, employee.Criteria{Office: &filter})
		require.NoError(t, err)
		var out []string
		for _, e := range emps {
			out = append(out, e.Office)
		}
		return out
	}

	assert.Equal(t, []string{"50% Tower"}, offices("50%"))
	assert.Equal(t, []string{"Floor_2"}, offices("floor_"))
	assert.ElementsMatch(t, []string{"Floor_2", "Floor 2"}, offices("floor"))
}
