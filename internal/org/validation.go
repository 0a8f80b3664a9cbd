// AngelaMos | 2026
// validation.go

package org

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/core"
)

// ValidationService gates admin access to other organizations. Every
// denial is logged with the acting admin's identity.
type ValidationService struct {
	repo   Repository
	logger *slog.Logger
}

func NewValidationService(repo Repository, logger *slog.Logger) *ValidationService {
	return &ValidationService{repo: repo, logger: logger}
}

// ValidateAccess checks that actx belongs to a platform admin and that
// the target organization exists, is active, and is not suspended. It
// fails closed: an unknown, inactive, or suspended target is Forbidden,
// never a silent fallback.
func (s *ValidationService) ValidateAccess(
	ctx context.Context,
	organizationID string,
	actx *authz.Context,
) (*Organization, error) {
	if !actx.IsPlatformAdmin {
		s.logger.Warn("organization access denied: not a platform admin",
			"user_id", actx.UserID,
			"target_org_id", organizationID,
		)
		return nil, fmt.Errorf("organization access: %w", core.ErrForbidden)
	}

	organization, err := s.repo.GetByID(ctx, organizationID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.logger.Warn("organization access denied: unknown target",
				"admin_id", actx.UserID,
				"target_org_id", organizationID,
			)
			return nil, fmt.Errorf("organization access: %w", core.ErrForbidden)
		}
		return nil, err
	}

	if !organization.Selectable() {
		s.logger.Warn("organization access denied: inactive or suspended",
			"admin_id", actx.UserID,
			"target_org_id", organizationID,
			"active", organization.IsActive,
			"suspended", organization.IsSuspended(),
		)
		return nil, fmt.Errorf("organization access: %w", core.ErrForbidden)
	}

	return organization, nil
}

// ListSelectable returns every active, non-suspended organization with
// basic counts for admin org pickers. Platform admins only.
func (s *ValidationService) ListSelectable(
	ctx context.Context,
	actx *authz.Context,
) ([]SelectableOrg, error) {
	if !actx.IsPlatformAdmin {
		s.logger.Warn("organization list denied: not a platform admin",
			"user_id", actx.UserID,
		)
		return nil, fmt.Errorf("organization list: %w", core.ErrForbidden)
	}

	return s.repo.ListSelectable(ctx)
}
