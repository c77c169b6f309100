package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttendance(companyID, employeeID string, clockIn time.Time) attendance.Attendance {
	return attendance.Attendance{
		CompanyID:      companyID,
		EmployeeID:     employeeID,
		Date:           time.Date(clockIn.Year(), clockIn.Month(), clockIn.Day(), 0, 0, 0, 0, time.UTC),
		ClockIn:        clockIn,
		PaidTime:       8 * time.Hour,
		ScheduledHours: 8,
		Status:         attendance.StatusPending,
	}
}

func TestAttendanceRepository_Create(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewAttendanceRepository(db)

	companyID := uuid.NewString()
	employeeID := createTestEmployee(t, ctx, db, companyID, "Alice")
	clockIn := time.Date(2025, 3, 3, 1, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		created, err := repo.Create(ctx, newAttendance(companyID, employeeID, clockIn))
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		got, err := repo.GetByID(ctx, created.ID, companyID)
		require.NoError(t, err)
		assert.Equal(t, 8*time.Hour, got.PaidTime)
		assert.True(t, clockIn.Equal(got.ClockIn))
		require.NotNil(t, got.EmployeeName)
		assert.Equal(t, "Alice", *got.EmployeeName)
	})

	t.Run("second record on the same date", func(t *testing.T) {
		_, err := repo.Create(ctx, newAttendance(companyID, employeeID, clockIn.Add(time.Hour)))
		assert.ErrorIs(t, err, attendance.ErrAlreadyClockedIn)
	})
}

func TestAttendanceRepository_GetByID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewAttendanceRepository(db)

	companyID := uuid.NewString()
	employeeID := createTestEmployee(t, ctx, db, companyID, "Bob")
	created, err := repo.Create(ctx, newAttendance(companyID, employeeID, time.Date(2025, 3, 4, 1, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	tests := []struct {
		name      string
		id        string
		companyID string
	}{
		{"unknown id", uuid.NewString(), companyID},
		{"malformed id", "not-a-uuid", companyID},
		{"other company", created.ID, uuid.NewString()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.GetByID(ctx, tt.id, tt.companyID)
			assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
		})
	}
}

func TestTransactor(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewAttendanceRepository(db)
	tx := postgresql.NewTransactor(db)

	companyID := uuid.NewString()
	employeeID := createTestEmployee(t, ctx, db, companyID, "Carol")
	day := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	errBoom := errors.New("boom")

	t.Run("rollback on error", func(t *testing.T) {
		err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if _, err := repo.Create(ctx, newAttendance(companyID, employeeID, day.Add(time.Hour))); err != nil {
				return err
			}
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)

		got, err := repo.GetByEmployeeAndDate(ctx, employeeID, day, companyID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("failed nested step keeps the outer transaction", func(t *testing.T) {
		err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if _, err := repo.Create(ctx, newAttendance(companyID, employeeID, day.Add(time.Hour))); err != nil {
				return err
			}
			inner := tx.WithinTransaction(ctx, func(ctx context.Context) error {
				_, err := repo.Create(ctx, newAttendance(companyID, employeeID, day.Add(2*time.Hour)))
				return err
			})
			assert.ErrorIs(t, inner, attendance.ErrAlreadyClockedIn)
			return nil
		})
		require.NoError(t, err)

		got, err := repo.GetByEmployeeAndDate(ctx, employeeID, day, companyID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, day.Add(time.Hour).Equal(got.ClockIn))
	})
}
