// AngelaMos | 2026
// provision.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/agrimesh/platform-api/internal/core"
)

// OwnerRoleLevel is the level assigned to the role every new
// organization starts with. Role-level checks across the API treat 100
// as the organization ceiling.
const (
	OwnerRoleName  = "owner"
	OwnerRoleLevel = 100
)

type provisioner struct {
	db *sqlx.DB
}

func NewProvisioner(db *sqlx.DB) Provisioner {
	return &provisioner{db: db}
}

// ProvisionOrganization creates the organization, its free-plan
// subscription, the owner role, the first user, and the owner role
// assignment in a single transaction. Either the whole signup exists
// or none of it does.
func (p *provisioner) ProvisionOrganization(
	ctx context.Context,
	params ProvisionParams,
) (*UserInfo, error) {
	orgID := uuid.New().String()
	roleID := uuid.New().String()
	userID := uuid.New().String()
	email := strings.ToLower(params.Email)

	var tokenVersion int

	err := core.InTx(ctx, p.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO organizations (id, name, org_type, is_active)
			VALUES ($1, $2, $3, true)`,
			orgID, params.OrganizationName, params.OrgType,
		)
		if err != nil {
			return fmt.Errorf("create organization: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO subscriptions (id, organization_id, plan_tier, status)
			VALUES ($1, $2, 'free', 'active')`,
			uuid.New().String(), orgID,
		)
		if err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO roles (
				id, organization_id, name, description, level, is_platform_admin
			) VALUES ($1, $2, $3, 'Organization owner', $4, false)`,
			roleID, orgID, OwnerRoleName, OwnerRoleLevel,
		)
		if err != nil {
			return fmt.Errorf("create owner role: %w", err)
		}

		err = tx.GetContext(ctx, &tokenVersion, `
			INSERT INTO users (id, organization_id, email, password_hash, name)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING token_version`,
			userID, orgID, email, params.PasswordHash, params.Name,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
			}
			return fmt.Errorf("create user: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_roles (id, user_id, role_id, is_active)
			VALUES ($1, $2, $3, true)`,
			uuid.New().String(), userID, roleID,
		)
		if err != nil {
			return fmt.Errorf("assign owner role: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &UserInfo{
		ID:             userID,
		OrganizationID: orgID,
		Email:          email,
		Name:           params.Name,
		PasswordHash:   params.PasswordHash,
		TokenVersion:   tokenVersion,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
