// AngelaMos | 2026
// repository.go

package farm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agrimesh/platform-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, farm *Farm) error
	GetByID(ctx context.Context, orgID, id string) (*Farm, error)
	List(ctx context.Context, orgID string) ([]Farm, error)
	Update(ctx context.Context, farm *Farm) error
	Delete(ctx context.Context, orgID, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, farm *Farm) error {
	query := `
		INSERT INTO farms (id, organization_id, name, location, acreage_ha, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, farm, query,
		farm.ID,
		farm.OrganizationID,
		farm.Name,
		farm.Location,
		farm.AcreageHa,
	)
	if err != nil {
		return fmt.Errorf("create farm: %w", err)
	}

	farm.IsActive = true
	return nil
}

// All reads are pinned to the organization; a farm belonging to
// another tenant reads as not found.
func (r *repository) GetByID(
	ctx context.Context,
	orgID, id string,
) (*Farm, error) {
	query := `
		SELECT id, organization_id, name, location, acreage_ha, is_active,
		       created_at, updated_at
		FROM farms
		WHERE id = $1 AND organization_id = $2`

	var farm Farm
	err := r.db.GetContext(ctx, &farm, query, id, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get farm: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get farm: %w", err)
	}

	return &farm, nil
}

func (r *repository) List(ctx context.Context, orgID string) ([]Farm, error) {
	query := `
		SELECT id, organization_id, name, location, acreage_ha, is_active,
		       created_at, updated_at
		FROM farms
		WHERE organization_id = $1
		ORDER BY name`

	var farms []Farm
	if err := r.db.SelectContext(ctx, &farms, query, orgID); err != nil {
		return nil, fmt.Errorf("list farms: %w", err)
	}

	return farms, nil
}

func (r *repository) Update(ctx context.Context, farm *Farm) error {
	query := `
		UPDATE farms
		SET name = $3, location = $4, acreage_ha = $5, is_active = $6,
		    updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &farm.UpdatedAt, query,
		farm.ID,
		farm.OrganizationID,
		farm.Name,
		farm.Location,
		farm.AcreageHa,
		farm.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update farm: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update farm: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, orgID, id string) error {
	query := `DELETE FROM farms WHERE id = $1 AND organization_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, orgID)
	if err != nil {
		return fmt.Errorf("delete farm: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete farm: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete farm: %w", core.ErrNotFound)
	}

	return nil
}
