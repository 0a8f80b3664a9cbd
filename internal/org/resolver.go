// AngelaMos | 2026
// resolver.go

package org

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/core"
)

// TargetHeader carries an explicit target organization id. Only platform
// admins may use it; for everyone else the caller's own organization is
// the only possible scope.
const TargetHeader = "X-Organization-ID"

// ContextResolver computes the effective organization for a request.
type ContextResolver struct {
	validation *ValidationService
	logger     *slog.Logger
}

func NewContextResolver(
	validation *ValidationService,
	logger *slog.Logger,
) *ContextResolver {
	return &ContextResolver{validation: validation, logger: logger}
}

// Resolve returns the request's organization Filter. Regular users are
// pinned to their own organization; requesting any other target is
// Forbidden. Platform admins supplying a target go through
// ValidationService and, on success, get an impersonation filter that
// records their identity.
func (r *ContextResolver) Resolve(
	req *http.Request,
	actx *authz.Context,
) (*Filter, error) {
	target := req.Header.Get(TargetHeader)
	if target == "" {
		target = req.URL.Query().Get("org_id")
	}

	if target == "" || target == actx.OrganizationID {
		return &Filter{OrganizationID: actx.OrganizationID}, nil
	}

	if !actx.IsPlatformAdmin {
		r.logger.Warn("cross-organization request rejected",
			"user_id", actx.UserID,
			"own_org_id", actx.OrganizationID,
			"target_org_id", target,
		)
		return nil, fmt.Errorf(
			"organization isolation: %w", core.ErrForbidden,
		)
	}

	organization, err := r.validation.ValidateAccess(req.Context(), target, actx)
	if err != nil {
		return nil, err
	}

	r.logger.Info("platform admin impersonating organization",
		"admin_id", actx.UserID,
		"target_org_id", organization.ID,
	)

	return &Filter{
		OrganizationID:  organization.ID,
		IsImpersonation: true,
		ImpersonatorID:  actx.UserID,
	}, nil
}
