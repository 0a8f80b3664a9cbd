// AngelaMos | 2026
// service_test.go

package org

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/core"
)

type fakeRepo struct {
	orgs      map[string]*Organization
	planTiers map[string]string
	suspended map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orgs:      make(map[string]*Organization),
		planTiers: make(map[string]string),
		suspended: make(map[string]bool),
	}
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*Organization, error) {
	o, ok := r.orgs[id]
	if !ok {
		return nil, fmt.Errorf("get organization: %w", core.ErrNotFound)
	}
	return o, nil
}

func (r *fakeRepo) ListSelectable(_ context.Context) ([]SelectableOrg, error) {
	return nil, nil
}

func (r *fakeRepo) SetPlanTier(_ context.Context, id, tier string) error {
	r.planTiers[id] = tier
	return nil
}

func (r *fakeRepo) Suspend(_ context.Context, id string) error {
	r.suspended[id] = true
	return nil
}

func (r *fakeRepo) Reinstate(_ context.Context, id string) error {
	r.suspended[id] = false
	return nil
}

type recordingCache struct {
	invalidatedOrgs []string
}

func (c *recordingCache) Get(
	_ context.Context,
	_ string,
) (*authz.Context, error) {
	return nil, fmt.Errorf("context: %w", core.ErrNotFound)
}

func (c *recordingCache) Invalidate(_ context.Context, _ string) error {
	return nil
}

func (c *recordingCache) InvalidateOrganization(
	_ context.Context,
	orgID string,
) error {
	c.invalidatedOrgs = append(c.invalidatedOrgs, orgID)
	return nil
}

func (c *recordingCache) Sweep(_ context.Context) (int, error) { return 0, nil }

func TestChangePlanUnknownTier(t *testing.T) {
	svc := NewService(newFakeRepo(), &recordingCache{})

	_, err := svc.ChangePlan(context.Background(), "org-1", authz.Tier("platinum"))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestChangePlanInvalidatesOrganization(t *testing.T) {
	repo := newFakeRepo()
	repo.orgs["org-1"] = &Organization{ID: "org-1", Name: "Farm", IsActive: true}
	cache := &recordingCache{}
	svc := NewService(repo, cache)

	_, err := svc.ChangePlan(context.Background(), "org-1", authz.TierPro)
	require.NoError(t, err)

	assert.Equal(t, "pro", repo.planTiers["org-1"])
	assert.Equal(t, []string{"org-1"}, cache.invalidatedOrgs)
}

func TestChangePlanUnknownOrganization(t *testing.T) {
	cache := &recordingCache{}
	svc := NewService(newFakeRepo(), cache)

	_, err := svc.ChangePlan(context.Background(), "ghost", authz.TierPro)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, cache.invalidatedOrgs)
}

func TestSuspendInvalidatesOrganization(t *testing.T) {
	repo := newFakeRepo()
	repo.orgs["org-1"] = &Organization{ID: "org-1", IsActive: true}
	cache := &recordingCache{}
	svc := NewService(repo, cache)

	require.NoError(t, svc.Suspend(context.Background(), "org-1"))
	assert.True(t, repo.suspended["org-1"])
	assert.Equal(t, []string{"org-1"}, cache.invalidatedOrgs)

	require.NoError(t, svc.Reinstate(context.Background(), "org-1"))
	assert.False(t, repo.suspended["org-1"])
	assert.Equal(t, []string{"org-1", "org-1"}, cache.invalidatedOrgs)
}
