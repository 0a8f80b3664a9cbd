// AngelaMos | 2026
// repository.go

package org

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agrimesh/platform-api/internal/core"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Organization, error)
	ListSelectable(ctx context.Context) ([]SelectableOrg, error)
	SetPlanTier(ctx context.Context, id, tier string) error
	Suspend(ctx context.Context, id string) error
	Reinstate(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Organization, error) {
	query := `
		SELECT o.id, o.name, o.org_type, o.is_active, o.suspended_at,
		       s.plan_tier, o.created_at, o.updated_at
		FROM organizations o
		LEFT JOIN subscriptions s
		       ON s.organization_id = o.id AND s.status = 'active'
		WHERE o.id = $1`

	var organization Organization
	err := r.db.GetContext(ctx, &organization, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get organization: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}

	return &organization, nil
}

func (r *repository) ListSelectable(
	ctx context.Context,
) ([]SelectableOrg, error) {
	query := `
		SELECT o.id, o.name, o.org_type, s.plan_tier,
		       (SELECT COUNT(*) FROM users u
		         WHERE u.organization_id = o.id
		           AND u.deleted_at IS NULL) AS user_count,
		       (SELECT COUNT(*) FROM farms f
		         WHERE f.organization_id = o.id) AS farm_count
		FROM organizations o
		LEFT JOIN subscriptions s
		       ON s.organization_id = o.id AND s.status = 'active'
		WHERE o.is_active AND o.suspended_at IS NULL
		ORDER BY o.name`

	var orgs []SelectableOrg
	if err := r.db.SelectContext(ctx, &orgs, query); err != nil {
		return nil, fmt.Errorf("list selectable organizations: %w", err)
	}

	return orgs, nil
}

func (r *repository) SetPlanTier(ctx context.Context, id, tier string) error {
	query := `
		INSERT INTO subscriptions (id, organization_id, plan_tier, status)
		VALUES (gen_random_uuid(), $1, $2, 'active')
		ON CONFLICT (organization_id)
		DO UPDATE SET plan_tier = EXCLUDED.plan_tier,
		              status = 'active',
		              updated_at = NOW()`

	result, err := r.db.ExecContext(ctx, query, id, tier)
	if err != nil {
		return fmt.Errorf("set plan tier: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set plan tier: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("set plan tier: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) Suspend(ctx context.Context, id string) error {
	return r.setSuspended(ctx, id, true)
}

func (r *repository) Reinstate(ctx context.Context, id string) error {
	return r.setSuspended(ctx, id, false)
}

func (r *repository) setSuspended(
	ctx context.Context,
	id string,
	suspended bool,
) error {
	query := `
		UPDATE organizations
		SET suspended_at = CASE WHEN $2 THEN NOW() ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, suspended)
	if err != nil {
		return fmt.Errorf("update suspension: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update suspension: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update suspension: %w", core.ErrNotFound)
	}

	return nil
}
