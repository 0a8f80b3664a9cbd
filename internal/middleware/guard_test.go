// AngelaMos | 2026
// guard_test.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/core"
	"github.com/agrimesh/platform-api/internal/org"
)

type fakeCache struct {
	contexts map[string]*authz.Context
	err      error
}

func (c *fakeCache) Get(
	_ context.Context,
	userID string,
) (*authz.Context, error) {
	if c.err != nil {
		return nil, c.err
	}
	actx, ok := c.contexts[userID]
	if !ok {
		return nil, fmt.Errorf("context: %w", core.ErrNotFound)
	}
	return actx, nil
}

func (c *fakeCache) Invalidate(_ context.Context, _ string) error { return nil }

func (c *fakeCache) InvalidateOrganization(_ context.Context, _ string) error {
	return nil
}

func (c *fakeCache) Sweep(_ context.Context) (int, error) { return 0, nil }

type fakeOrgRepo struct {
	orgs map[string]*org.Organization
}

func (r *fakeOrgRepo) GetByID(
	_ context.Context,
	id string,
) (*org.Organization, error) {
	o, ok := r.orgs[id]
	if !ok {
		return nil, fmt.Errorf("get organization: %w", core.ErrNotFound)
	}
	return o, nil
}

func (r *fakeOrgRepo) ListSelectable(
	_ context.Context,
) ([]org.SelectableOrg, error) {
	return nil, nil
}

func (r *fakeOrgRepo) SetPlanTier(_ context.Context, _, _ string) error {
	return nil
}

func (r *fakeOrgRepo) Suspend(_ context.Context, _ string) error   { return nil }
func (r *fakeOrgRepo) Reinstate(_ context.Context, _ string) error { return nil }

func newTestGuard(
	cache authz.ContextCache,
	failClosed bool,
	repo org.Repository,
) *Guard {
	logger := slog.New(slog.DiscardHandler)
	if repo == nil {
		repo = &fakeOrgRepo{}
	}
	resolver := org.NewContextResolver(
		org.NewValidationService(repo, logger),
		logger,
	)
	return NewGuard(cache, resolver, failClosed, logger)
}

func memberAuthzContext() *authz.Context {
	return &authz.Context{
		UserID:           "user-1",
		OrganizationID:   "org-1",
		OrganizationType: "farm_operator",
		PlanTier:         authz.TierBasic,
		Permissions:      []string{"farms:*", "orders:read"},
		Features:         []string{authz.FeatureAPIAccess},
		Modules:          []string{authz.ModuleFarms, authz.ModuleOrders},
		RoleNames:        []string{"farm_manager"},
		HighestRoleLevel: 60,
	}
}

func protectedRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/farms", nil)
	if userID != "" {
		ctx := context.WithValue(req.Context(), UserIDKey, userID)
		req = req.WithContext(ctx)
	}
	return req
}

func runGuard(
	t *testing.T,
	guard *Guard,
	requirement authz.Requirement,
	req *http.Request,
) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	var captured *http.Request
	handler := guard.Protect(requirement)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			captured = r
			w.WriteHeader(http.StatusOK)
		},
	))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, captured
}

func TestGuardRejectsUnauthenticated(t *testing.T) {
	guard := newTestGuard(&fakeCache{}, false, nil)

	rec, captured := runGuard(
		t,
		guard,
		authz.RequirePermission("farms", "read"),
		protectedRequest(""),
	)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, captured)
}

func TestGuardUnknownUserIsUnauthorized(t *testing.T) {
	guard := newTestGuard(&fakeCache{contexts: nil}, false, nil)

	rec, _ := runGuard(
		t,
		guard,
		authz.RequirePermission("farms", "read"),
		protectedRequest("deleted-user"),
	)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "no longer active")
}

func TestGuardAllowsMatchingPermission(t *testing.T) {
	cache := &fakeCache{
		contexts: map[string]*authz.Context{"user-1": memberAuthzContext()},
	}
	guard := newTestGuard(cache, false, nil)

	rec, captured := runGuard(
		t,
		guard,
		authz.RequirePermission("farms", "read"),
		protectedRequest("user-1"),
	)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)

	actx := authz.FromContext(captured.Context())
	require.NotNil(t, actx)
	assert.Equal(t, "user-1", actx.UserID)
	assert.Equal(t, "org-1", org.EffectiveOrgID(captured.Context()))
}

func TestGuardDeniesMissingPermission(t *testing.T) {
	cache := &fakeCache{
		contexts: map[string]*authz.Context{"user-1": memberAuthzContext()},
	}
	guard := newTestGuard(cache, false, nil)

	rec, _ := runGuard(
		t,
		guard,
		authz.RequirePermission("billing", "read"),
		protectedRequest("user-1"),
	)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardDeniesSuspendedOrganizationMember(t *testing.T) {
	actx := memberAuthzContext()
	actx.OrganizationSuspended = true
	cache := &fakeCache{contexts: map[string]*authz.Context{"user-1": actx}}
	guard := newTestGuard(cache, false, nil)

	rec, _ := runGuard(
		t,
		guard,
		authz.RequirePermission("farms", "read"),
		protectedRequest("user-1"),
	)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardSuspendedFlagDoesNotBlockPlatformAdmins(t *testing.T) {
	actx := &authz.Context{
		UserID:                "admin-1",
		OrganizationID:        "org-ops",
		IsPlatformAdmin:       true,
		OrganizationSuspended: true,
	}
	cache := &fakeCache{contexts: map[string]*authz.Context{"admin-1": actx}}
	guard := newTestGuard(cache, false, nil)

	rec, _ := runGuard(
		t,
		guard,
		authz.RequirePlatformAdmin(),
		protectedRequest("admin-1"),
	)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardDeniesMissingFeature(t *testing.T) {
	cache := &fakeCache{
		contexts: map[string]*authz.Context{"user-1": memberAuthzContext()},
	}
	guard := newTestGuard(cache, false, nil)

	rec, _ := runGuard(
		t,
		guard,
		authz.RequireFeature(authz.FeatureCustomRoles),
		protectedRequest("user-1"),
	)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardZeroRequirementFailOpen(t *testing.T) {
	cache := &fakeCache{
		contexts: map[string]*authz.Context{"user-1": memberAuthzContext()},
	}
	guard := newTestGuard(cache, false, nil)

	rec, captured := runGuard(
		t,
		guard,
		authz.Requirement{},
		protectedRequest("user-1"),
	)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.NotNil(t, authz.FromContext(captured.Context()))
}

func TestGuardZeroRequirementFailClosed(t *testing.T) {
	cache := &fakeCache{
		contexts: map[string]*authz.Context{"user-1": memberAuthzContext()},
	}
	guard := newTestGuard(cache, true, nil)

	rec, _ := runGuard(
		t,
		guard,
		authz.Requirement{},
		protectedRequest("user-1"),
	)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardCrossOrganizationRejected(t *testing.T) {
	cache := &fakeCache{
		contexts: map[string]*authz.Context{"user-1": memberAuthzContext()},
	}
	guard := newTestGuard(cache, false, nil)

	req := protectedRequest("user-1")
	req.Header.Set(org.TargetHeader, "org-2")

	rec, _ := runGuard(
		t,
		guard,
		authz.RequirePermission("farms", "read"),
		req,
	)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardPlatformAdminImpersonation(t *testing.T) {
	admin := &authz.Context{
		UserID:          "admin-1",
		OrganizationID:  "org-platform",
		IsPlatformAdmin: true,
	}
	cache := &fakeCache{
		contexts: map[string]*authz.Context{"admin-1": admin},
	}
	repo := &fakeOrgRepo{orgs: map[string]*org.Organization{
		"org-2": {ID: "org-2", Name: "Target Farm", IsActive: true},
	}}
	guard := newTestGuard(cache, false, repo)

	req := protectedRequest("admin-1")
	req.Header.Set(org.TargetHeader, "org-2")

	rec, captured := runGuard(
		t,
		guard,
		authz.RequirePermission("farms", "read"),
		req,
	)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)

	filter := org.FilterFromContext(captured.Context())
	require.NotNil(t, filter)
	assert.Equal(t, "org-2", filter.OrganizationID)
	assert.True(t, filter.IsImpersonation)
	assert.Equal(t, "admin-1", filter.ImpersonatorID)
}

func TestGuardImpersonationOfSuspendedOrgRejected(t *testing.T) {
	admin := &authz.Context{
		UserID:          "admin-1",
		OrganizationID:  "org-platform",
		IsPlatformAdmin: true,
	}
	cache := &fakeCache{
		contexts: map[string]*authz.Context{"admin-1": admin},
	}
	repo := &fakeOrgRepo{orgs: map[string]*org.Organization{
		"org-2": {ID: "org-2", Name: "Suspended Farm", IsActive: false},
	}}
	guard := newTestGuard(cache, false, repo)

	req := protectedRequest("admin-1")
	req.Header.Set(org.TargetHeader, "org-2")

	rec, _ := runGuard(
		t,
		guard,
		authz.RequirePermission("farms", "read"),
		req,
	)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardPlatformAdminBypassesOrgIsolation(t *testing.T) {
	admin := &authz.Context{
		UserID:          "admin-1",
		OrganizationID:  "org-platform",
		IsPlatformAdmin: true,
	}
	cache := &fakeCache{
		contexts: map[string]*authz.Context{"admin-1": admin},
	}
	guard := newTestGuard(cache, false, nil)

	var captured *http.Request
	handler := guard.PlatformAdmin()(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			captured = r
			w.WriteHeader(http.StatusOK)
		},
	))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, protectedRequest("admin-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	// Platform admin routes carry no organization filter.
	assert.Nil(t, org.FilterFromContext(captured.Context()))
}

func TestGuardPlatformAdminMiddlewareDeniesMembers(t *testing.T) {
	cache := &fakeCache{
		contexts: map[string]*authz.Context{"user-1": memberAuthzContext()},
	}
	guard := newTestGuard(cache, false, nil)

	handler := guard.PlatformAdmin()(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, protectedRequest("user-1"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardTierFunc(t *testing.T) {
	cache := &fakeCache{
		contexts: map[string]*authz.Context{"user-1": memberAuthzContext()},
	}
	guard := newTestGuard(cache, false, nil)
	tierFunc := guard.TierFunc()

	assert.Equal(t, "basic", tierFunc(protectedRequest("user-1")))
	assert.Equal(t, "", tierFunc(protectedRequest("")))
	assert.Equal(t, "", tierFunc(protectedRequest("ghost")))
}
