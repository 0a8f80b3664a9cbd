// AngelaMos | 2026
// requirement_test.go

package authz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimesh/platform-api/internal/core"
)

func TestRequirementIsZero(t *testing.T) {
	assert.True(t, Requirement{}.IsZero())
	assert.True(t, Requirement{BypassOrgIsolation: true}.IsZero())

	assert.False(t, RequirePermission("farms", "read").IsZero())
	assert.False(t, RequireRole("owner", false).IsZero())
	assert.False(t, RequireRoleLevel(50).IsZero())
	assert.False(t, RequireFeature(FeatureCustomRoles).IsZero())
	assert.False(t, RequireCapability("analytics").IsZero())
	assert.False(t, RequireOrgType("cooperative").IsZero())
	assert.False(t, RequirePlatformAdmin().IsZero())
}

func TestCheckGatesFeature(t *testing.T) {
	actx := memberContext()

	require.NoError(t, RequireFeature(FeatureAPIAccess).CheckGates(actx))

	err := RequireFeature(FeatureCustomRoles).CheckGates(actx)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestCheckGatesCapability(t *testing.T) {
	actx := memberContext()

	// Satisfied by a feature flag.
	require.NoError(t, RequireCapability(FeatureAPIAccess).CheckGates(actx))
	// Satisfied by an enabled module.
	require.NoError(t, RequireCapability(ModuleFarms).CheckGates(actx))

	err := RequireCapability(ModuleAnalytics).CheckGates(actx)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestCheckGatesModules(t *testing.T) {
	actx := memberContext()

	require.NoError(
		t,
		Requirement{Modules: []string{ModuleFarms, ModuleOrders}}.CheckGates(actx),
	)

	err := Requirement{
		Modules: []string{ModuleFarms, ModuleBilling},
	}.CheckGates(actx)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestCheckGatesOrgTypes(t *testing.T) {
	actx := memberContext()

	require.NoError(
		t,
		RequireOrgType("farm_operator", "cooperative").CheckGates(actx),
	)

	err := RequireOrgType("distributor").CheckGates(actx)
	assert.ErrorIs(t, err, core.ErrForbidden)

	admin := &Context{IsPlatformAdmin: true}
	require.NoError(t, RequireOrgType("distributor").CheckGates(admin))
}

func TestCheckAccessPermission(t *testing.T) {
	actx := memberContext()

	require.NoError(t, RequirePermission("farms", "update").CheckAccess(actx))

	err := RequirePermission("billing", "read").CheckAccess(actx)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestCheckAccessRole(t *testing.T) {
	actx := memberContext()

	require.NoError(t, RequireRole("farm_manager", false).CheckAccess(actx))

	err := RequireRole("owner", false).CheckAccess(actx)
	assert.ErrorIs(t, err, core.ErrForbidden)

	admin := &Context{IsPlatformAdmin: true}
	require.NoError(t, RequireRole("owner", true).CheckAccess(admin))

	err = RequireRole("owner", false).CheckAccess(admin)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestCheckAccessRoleLevel(t *testing.T) {
	low := &Context{HighestRoleLevel: 40}
	exact := &Context{HighestRoleLevel: 50}

	err := RequireRoleLevel(50).CheckAccess(low)
	assert.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, RequireRoleLevel(50).CheckAccess(exact))
}

func TestCheckAccessPlatformAdminOnly(t *testing.T) {
	req := RequirePlatformAdmin()

	assert.True(t, req.BypassOrgIsolation)

	err := req.CheckAccess(memberContext())
	assert.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, req.CheckAccess(&Context{IsPlatformAdmin: true}))
}

func TestCheckAccessCombined(t *testing.T) {
	req := Requirement{
		Permission:   &PermissionRef{Resource: "farms", Action: "read"},
		MinRoleLevel: 70,
	}

	// Permission passes, level fails; the stage reports the first failing
	// check encountered in declared order.
	err := req.CheckAccess(memberContext())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrForbidden))
}
