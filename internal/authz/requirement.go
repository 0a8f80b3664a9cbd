// AngelaMos | 2026
// requirement.go

package authz

import (
	"fmt"

	"github.com/agrimesh/platform-api/internal/core"
)

// Requirement is the declarative authorization metadata a route carries.
// Zero-value fields are unchecked: a route that declares nothing for a
// stage is fail-open for that stage unless the guard is configured to
// fail closed.
type Requirement struct {
	Permission         *PermissionRef
	Role               *RoleRef
	MinRoleLevel       int
	Feature            string
	Capability         string
	Modules            []string
	OrgTypes           []string
	PlatformAdminOnly  bool
	BypassOrgIsolation bool
}

type PermissionRef struct {
	Resource string
	Action   string
}

type RoleRef struct {
	Name string
	// AllowPlatformAdmin lets platform admins pass the named-role check
	// without holding the role.
	AllowPlatformAdmin bool
}

// IsZero reports whether the requirement declares nothing at all.
func (r Requirement) IsZero() bool {
	return r.Permission == nil &&
		r.Role == nil &&
		r.MinRoleLevel == 0 &&
		r.Feature == "" &&
		r.Capability == "" &&
		len(r.Modules) == 0 &&
		len(r.OrgTypes) == 0 &&
		!r.PlatformAdminOnly
}

// Convenience constructors matching how routes declare themselves.

func RequirePermission(resource, action string) Requirement {
	return Requirement{Permission: &PermissionRef{Resource: resource, Action: action}}
}

func RequireRole(name string, allowPlatformAdmin bool) Requirement {
	return Requirement{Role: &RoleRef{Name: name, AllowPlatformAdmin: allowPlatformAdmin}}
}

func RequireRoleLevel(min int) Requirement {
	return Requirement{MinRoleLevel: min}
}

func RequireFeature(name string) Requirement {
	return Requirement{Feature: name}
}

func RequireCapability(name string) Requirement {
	return Requirement{Capability: name}
}

func RequireOrgType(types ...string) Requirement {
	return Requirement{OrgTypes: types}
}

func RequirePlatformAdmin() Requirement {
	return Requirement{PlatformAdminOnly: true, BypassOrgIsolation: true}
}

// CheckGates evaluates the feature/module/org-type stage. A route with
// no declared constraint for a given check passes it unconditionally.
func (r Requirement) CheckGates(actx *Context) error {
	if r.Feature != "" && !actx.HasFeature(r.Feature) {
		return fmt.Errorf(
			"feature %q not enabled for plan %s: %w",
			r.Feature, actx.PlanTier, core.ErrForbidden,
		)
	}

	// A capability is satisfied by either a plan feature flag or an
	// enabled module.
	if r.Capability != "" &&
		!actx.HasFeature(r.Capability) && !actx.HasModule(r.Capability) {
		return fmt.Errorf(
			"capability %q not available for plan %s: %w",
			r.Capability, actx.PlanTier, core.ErrForbidden,
		)
	}

	for _, module := range r.Modules {
		if !actx.HasModule(module) {
			return fmt.Errorf(
				"module %q not enabled for plan %s: %w",
				module, actx.PlanTier, core.ErrForbidden,
			)
		}
	}

	if len(r.OrgTypes) > 0 && !actx.IsPlatformAdmin {
		if !contains(r.OrgTypes, actx.OrganizationType) {
			return fmt.Errorf(
				"organization type %q not permitted: %w",
				actx.OrganizationType, core.ErrForbidden,
			)
		}
	}

	return nil
}

// CheckAccess evaluates the permission/role/level stage in declared
// order: required permission, required role name, minimum role level.
func (r Requirement) CheckAccess(actx *Context) error {
	if r.PlatformAdminOnly && !actx.IsPlatformAdmin {
		return fmt.Errorf("platform admin required: %w", core.ErrForbidden)
	}

	if r.Permission != nil {
		if !actx.Can(r.Permission.Resource, r.Permission.Action) {
			return fmt.Errorf(
				"missing permission %s:%s: %w",
				r.Permission.Resource, r.Permission.Action, core.ErrForbidden,
			)
		}
	}

	if r.Role != nil {
		bypassed := r.Role.AllowPlatformAdmin && actx.IsPlatformAdmin
		if !bypassed && !actx.HasRole(r.Role.Name) {
			return fmt.Errorf(
				"missing role %q: %w", r.Role.Name, core.ErrForbidden,
			)
		}
	}

	if r.MinRoleLevel > 0 && !actx.MeetsRoleLevel(r.MinRoleLevel) {
		return fmt.Errorf(
			"role level %d below required %d: %w",
			actx.HighestRoleLevel, r.MinRoleLevel, core.ErrForbidden,
		)
	}

	return nil
}
