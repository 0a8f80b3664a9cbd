// AngelaMos | 2026
// resolver_test.go

package authz

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimesh/platform-api/internal/core"
)

type fakeStore struct {
	grants *UserGrants
	err    error
}

func (s *fakeStore) GetUserGrants(
	_ context.Context,
	_ string,
) (*UserGrants, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.grants, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func validString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func baseGrants(tier string) *UserGrants {
	return &UserGrants{
		User: UserRecord{
			ID:               "user-1",
			OrganizationID:   validString("org-1"),
			OrganizationType: validString("farm_operator"),
			PlanTier:         validString(tier),
		},
	}
}

func TestResolveStoreError(t *testing.T) {
	r := NewUserContextResolver(&fakeStore{err: core.ErrNotFound}, discardLogger())

	_, err := r.Resolve(context.Background(), "user-1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestResolveMissingOrganization(t *testing.T) {
	grants := baseGrants("free")
	grants.User.OrganizationID = sql.NullString{}

	r := NewUserContextResolver(&fakeStore{grants: grants}, discardLogger())

	_, err := r.Resolve(context.Background(), "user-1")
	assert.ErrorIs(t, err, core.ErrIntegrity)
}

func TestResolveTierBaseSet(t *testing.T) {
	r := NewUserContextResolver(
		&fakeStore{grants: baseGrants("free")},
		discardLogger(),
	)

	actx, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "org-1", actx.OrganizationID)
	assert.Equal(t, "farm_operator", actx.OrganizationType)
	assert.Equal(t, TierFree, actx.PlanTier)
	assert.False(t, actx.IsPlatformAdmin)

	assert.True(t, actx.Can("farms", "read"))
	assert.True(t, actx.Can("orders", "create"))
	assert.False(t, actx.Can("farms", "update"))
	assert.False(t, actx.Can("analytics", "read"))
}

func TestResolvePlanUpgradeChangesPermissions(t *testing.T) {
	store := &fakeStore{grants: baseGrants("free")}
	r := NewUserContextResolver(store, discardLogger())

	actx, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, actx.Can("analytics", "read"))

	store.grants = baseGrants("pro")

	actx, err = r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, TierPro, actx.PlanTier)
	assert.True(t, actx.Can("analytics", "read"))
	assert.True(t, actx.HasModule(ModuleReports))
	assert.True(t, actx.HasFeature(FeatureAdvancedAnalytics))
}

func TestResolveUnknownTierFallsBackToFree(t *testing.T) {
	r := NewUserContextResolver(
		&fakeStore{grants: baseGrants("platinum")},
		discardLogger(),
	)

	actx, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, TierFree, actx.PlanTier)
}

func TestResolveRoleGrantsExtendTierBase(t *testing.T) {
	grants := baseGrants("free")
	grants.Roles = []RoleGrant{
		{RoleID: "role-1", Name: "finance", Level: 50},
	}
	grants.Permissions = []PermissionGrant{
		{Resource: "billing", Action: "read", Granted: true},
	}

	r := NewUserContextResolver(&fakeStore{grants: grants}, discardLogger())

	actx, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, actx.Can("billing", "read"))
	assert.True(t, actx.HasRole("finance"))
	assert.Equal(t, 50, actx.HighestRoleLevel)
}

func TestResolveExplicitDenyWinsOverTierBase(t *testing.T) {
	grants := baseGrants("free")
	grants.Roles = []RoleGrant{
		{RoleID: "role-1", Name: "restricted", Level: 10},
	}
	grants.Permissions = []PermissionGrant{
		{Resource: "users", Action: "read", Granted: false},
	}

	r := NewUserContextResolver(&fakeStore{grants: grants}, discardLogger())

	actx, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	// "users:read" is in the free tier base set; the deny removes it.
	assert.False(t, actx.Can("users", "read"))
	assert.True(t, actx.Can("farms", "read"))
}

func TestResolveDenyWinsOverWildcardBaseGrant(t *testing.T) {
	grants := baseGrants("basic")
	grants.Roles = []RoleGrant{
		{RoleID: "role-1", Name: "restricted", Level: 10},
	}
	grants.Permissions = []PermissionGrant{
		{Resource: "farms", Action: "read", Granted: false},
	}

	r := NewUserContextResolver(&fakeStore{grants: grants}, discardLogger())

	actx, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	// The basic tier grants "farms:*"; the deny of "farms:read" must
	// still block that pair while leaving other farm actions intact.
	assert.False(t, actx.Can("farms", "read"))
	assert.True(t, actx.Can("farms", "update"))
	assert.True(t, actx.Can("farms", "delete"))
	assert.Contains(t, actx.Denied, "farms:read")
}

func TestResolveWildcardDenyBlocksResource(t *testing.T) {
	grants := baseGrants("basic")
	grants.Roles = []RoleGrant{
		{RoleID: "role-1", Name: "restricted", Level: 10},
	}
	grants.Permissions = []PermissionGrant{
		{Resource: "billing", Action: "*", Granted: false},
	}

	r := NewUserContextResolver(&fakeStore{grants: grants}, discardLogger())

	actx, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	assert.False(t, actx.Can("billing", "read"))
	assert.True(t, actx.Can("farms", "read"))
}

func TestResolveDenyWinsOverGrant(t *testing.T) {
	grants := baseGrants("free")
	grants.Roles = []RoleGrant{
		{RoleID: "role-1", Name: "a", Level: 10},
		{RoleID: "role-2", Name: "b", Level: 20},
	}
	grants.Permissions = []PermissionGrant{
		{Resource: "billing", Action: "read", Granted: true},
		{Resource: "billing", Action: "read", Granted: false},
	}

	r := NewUserContextResolver(&fakeStore{grants: grants}, discardLogger())

	actx, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	assert.False(t, actx.Can("billing", "read"))
	assert.Equal(t, 20, actx.HighestRoleLevel)
}

func TestResolveSuspendedOrganizationFlagged(t *testing.T) {
	grants := baseGrants("pro")
	grants.User.OrgActive = sql.NullBool{Bool: true, Valid: true}
	grants.User.OrgSuspendedAt = sql.NullTime{Time: time.Now(), Valid: true}

	r := NewUserContextResolver(&fakeStore{grants: grants}, discardLogger())

	actx, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, actx.OrganizationSuspended)
}

func TestResolveInactiveOrganizationFlagged(t *testing.T) {
	grants := baseGrants("pro")
	grants.User.OrgActive = sql.NullBool{Bool: false, Valid: true}

	r := NewUserContextResolver(&fakeStore{grants: grants}, discardLogger())

	actx, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, actx.OrganizationSuspended)
}

func TestResolveHealthyOrganizationNotFlagged(t *testing.T) {
	grants := baseGrants("pro")
	grants.User.OrgActive = sql.NullBool{Bool: true, Valid: true}

	r := NewUserContextResolver(&fakeStore{grants: grants}, discardLogger())

	actx, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, actx.OrganizationSuspended)
}

func TestResolvePlatformAdminRole(t *testing.T) {
	grants := baseGrants("free")
	grants.Roles = []RoleGrant{
		{RoleID: "role-1", Name: "platform_admin", Level: 100, IsPlatformAdmin: true},
	}

	r := NewUserContextResolver(&fakeStore{grants: grants}, discardLogger())

	actx, err := r.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, actx.IsPlatformAdmin)
	assert.True(t, actx.Can("anything", "whatsoever"))
}
