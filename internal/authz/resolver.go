// AngelaMos | 2026
// resolver.go

package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/agrimesh/platform-api/internal/core"
)

// Resolver builds an authorization Context from persisted state.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (*Context, error)
}

// UserContextResolver derives the effective permission set as the union
// of the plan-tier base set and explicit role grants. Explicit denies
// are carried separately on the Context and evaluated with the same
// wildcard matcher as grants, so a deny of "farms:read" cannot be
// shadowed by a tier's "farms:*". Role-permission rows therefore refine
// what the plan allows rather than being dead administration state.
type UserContextResolver struct {
	store  Store
	logger *slog.Logger
}

func NewUserContextResolver(store Store, logger *slog.Logger) *UserContextResolver {
	return &UserContextResolver{store: store, logger: logger}
}

func (r *UserContextResolver) Resolve(
	ctx context.Context,
	userID string,
) (*Context, error) {
	grants, err := r.store.GetUserGrants(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A user without an organization is corrupted data, not a policy
	// decision. Fail loudly and never default.
	if !grants.User.OrganizationID.Valid || grants.User.OrganizationID.String == "" {
		r.logger.Error("user has no organization association",
			"user_id", userID,
		)
		return nil, fmt.Errorf(
			"resolve context for user %s: no organization: %w",
			userID, core.ErrIntegrity,
		)
	}

	tier := TierFree
	if grants.User.PlanTier.Valid {
		if t := Tier(grants.User.PlanTier.String); ValidTier(t) {
			tier = t
		}
	}

	isPlatformAdmin := false
	highestLevel := 0
	roleNames := make([]string, 0, len(grants.Roles))
	for _, role := range grants.Roles {
		if role.IsPlatformAdmin {
			isPlatformAdmin = true
		}
		if role.Level > highestLevel {
			highestLevel = role.Level
		}
		roleNames = append(roleNames, role.Name)
	}

	permissions, denied := effectivePermissions(tier, grants.Permissions)

	orgType := ""
	if grants.User.OrganizationType.Valid {
		orgType = grants.User.OrganizationType.String
	}

	orgSuspended := grants.User.OrgSuspendedAt.Valid ||
		(grants.User.OrgActive.Valid && !grants.User.OrgActive.Bool)

	return &Context{
		UserID:                userID,
		OrganizationID:        grants.User.OrganizationID.String,
		OrganizationType:      orgType,
		OrganizationSuspended: orgSuspended,
		PlanTier:         tier,
		IsPlatformAdmin:  isPlatformAdmin,
		Permissions:      permissions,
		Denied:           denied,
		Features:         TierFeatures(tier),
		Modules:          TierModules(tier),
		RoleNames:        roleNames,
		HighestRoleLevel: highestLevel,
		ResolvedAt:       time.Now(),
	}, nil
}

// effectivePermissions returns the granted set (tier base plus role
// grants) and the denied set. Denies are not folded into the grant set
// because grants may be wildcards; removing the exact string would
// leave a covering "resource:*" intact. Exact duplicates are still
// dropped from the grant side to keep the snapshot tidy.
func effectivePermissions(
	tier Tier,
	grants []PermissionGrant,
) (allowed, denied []string) {
	set := make(map[string]struct{})
	for _, p := range BasePermissions(tier) {
		set[p] = struct{}{}
	}

	for _, g := range grants {
		if g.Granted {
			set[g.Resource+":"+g.Action] = struct{}{}
		}
	}

	// A pair both granted and denied resolves to denied.
	denySet := make(map[string]struct{})
	for _, g := range grants {
		if !g.Granted {
			p := g.Resource + ":" + g.Action
			denySet[p] = struct{}{}
			delete(set, p)
		}
	}

	allowed = make([]string, 0, len(set))
	for p := range set {
		allowed = append(allowed, p)
	}
	sort.Strings(allowed)

	if len(denySet) > 0 {
		denied = make([]string, 0, len(denySet))
		for p := range denySet {
			denied = append(denied, p)
		}
		sort.Strings(denied)
	}

	return allowed, denied
}
