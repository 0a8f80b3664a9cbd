// AngelaMos | 2026
// context.go

package authz

import (
	stdctx "context"
	"time"
)

// Context is the resolved capability snapshot for one user: identity,
// organization, plan tier, platform-admin flag, and the derived
// permission, feature, and module sets. It is built once per cache miss
// and is read-only afterwards; invalidation replaces it wholesale.
type Context struct {
	UserID           string    `json:"user_id"`
	OrganizationID   string    `json:"organization_id"`
	OrganizationType string    `json:"organization_type"`
	// OrganizationSuspended marks members of a deactivated or suspended
	// organization; the guard turns their requests away while the
	// suspension lasts.
	OrganizationSuspended bool `json:"organization_suspended,omitempty"`

	PlanTier         Tier      `json:"plan_tier"`
	IsPlatformAdmin  bool      `json:"is_platform_admin"`
	Permissions      []string  `json:"permissions"`
	Denied           []string  `json:"denied,omitempty"`
	Features         []string  `json:"features"`
	Modules          []string  `json:"modules"`
	RoleNames        []string  `json:"role_names"`
	HighestRoleLevel int       `json:"highest_role_level"`
	ResolvedAt       time.Time `json:"resolved_at"`
}

// Can reports whether the user may perform action on resource.
// Platform admins pass every check. Denies are matched with the same
// wildcard rules as grants and win, so an explicit deny of "farms:read"
// blocks the pair even when the grant set carries "farms:*".
func (c *Context) Can(resource, action string) bool {
	if c.IsPlatformAdmin {
		return true
	}
	if Can(resource, action, c.Denied) {
		return false
	}
	return Can(resource, action, c.Permissions)
}

// HasFeature reports whether the user's plan enables a feature flag.
func (c *Context) HasFeature(name string) bool {
	if c.IsPlatformAdmin {
		return true
	}
	return contains(c.Features, name)
}

// HasModule reports whether the user's plan enables a module.
func (c *Context) HasModule(name string) bool {
	if c.IsPlatformAdmin {
		return true
	}
	return contains(c.Modules, name)
}

// HasRole reports whether the user holds an active role by name.
func (c *Context) HasRole(name string) bool {
	return contains(c.RoleNames, name)
}

// MeetsRoleLevel reports whether the user's highest active role level
// is at least min. Platform admins always qualify.
func (c *Context) MeetsRoleLevel(min int) bool {
	if c.IsPlatformAdmin {
		return true
	}
	return c.HighestRoleLevel >= min
}

type requestKey struct{}

// WithContext attaches the resolved authorization context to a request
// context; the guard pipeline sets it once per request.
func WithContext(ctx stdctx.Context, actx *Context) stdctx.Context {
	return stdctx.WithValue(ctx, requestKey{}, actx)
}

// FromContext returns the authorization context for the current request,
// or nil when no guard has run.
func FromContext(ctx stdctx.Context) *Context {
	if actx, ok := ctx.Value(requestKey{}).(*Context); ok {
		return actx
	}
	return nil
}

func contains(set []string, name string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}
