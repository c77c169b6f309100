package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/database"
)

type officeNetworkRepository struct {
	db *database.DB
}

func (r *officeNetworkRepository) list(ctx context.Context, companyID string, activeOnly bool) ([]attendance.OfficeNetwork, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, cidr::text, label, is_active, created_at
		FROM office_networks
		WHERE company_id = $1 AND ($2 = FALSE OR is_active)
		ORDER BY created_at ASC
	`

	rows, err := q.Query(ctx, query, companyID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list office networks: %w", err)
	}
	defer rows.Close()

	var networks []attendance.OfficeNetwork
	for rows.Next() {
		var n attendance.OfficeNetwork
		if err := rows.Scan(&n.ID, &n.CompanyID, &n.CIDR, &n.Label, &n.IsActive, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan office network: %w", err)
		}
		networks = append(networks, n)
	}

	return networks, rows.Err()
}

// List implements attendance.OfficeNetworkRepository.
func (r *officeNetworkRepository) List(ctx context.Context, companyID string) ([]attendance.OfficeNetwork, error) {
	return r.list(ctx, companyID, false)
}

// ListActive implements attendance.OfficeNetworkRepository.
func (r *officeNetworkRepository) ListActive(ctx context.Context, companyID string) ([]attendance.OfficeNetwork, error) {
	return r.list(ctx, companyID, true)
}

// Create implements attendance.OfficeNetworkRepository.
func (r *officeNetworkRepository) Create(ctx context.Context, n attendance.OfficeNetwork) (attendance.OfficeNetwork, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO office_networks (company_id, cidr, label, is_active)
		VALUES ($1, $2::text::cidr, $3, $4)
		RETURNING id, cidr::text, created_at
	`

	if err := q.QueryRow(ctx, query, n.CompanyID, n.CIDR, n.Label, n.IsActive).Scan(&n.ID, &n.CIDR, &n.CreatedAt); err != nil {
		if isUniqueViolation(err, "") {
			return attendance.OfficeNetwork{}, attendance.ErrOfficeNetworkExists
		}
		return attendance.OfficeNetwork{}, fmt.Errorf("failed to create office network: %w", err)
	}

	return n, nil
}

// Delete implements attendance.OfficeNetworkRepository.
func (r *officeNetworkRepository) Delete(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM office_networks WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete office network: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrOfficeNetworkNotFound
	}

	return nil
}

func NewOfficeNetworkRepository(db *database.DB) attendance.OfficeNetworkRepository {
	return &officeNetworkRepository{db: db}
}
