// AngelaMos | 2026
// service.go

package org

import (
	"context"
	"fmt"

	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/core"
)

// Service owns organization administration. Every capability-changing
// write invalidates the organization's cached authorization contexts
// before returning, so the next request observes the new facts.
type Service struct {
	repo  Repository
	cache authz.ContextCache
}

func NewService(repo Repository, cache authz.ContextCache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) GetByID(ctx context.Context, id string) (*Organization, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ChangePlan(
	ctx context.Context,
	organizationID string,
	tier authz.Tier,
) (*Organization, error) {
	if !authz.ValidTier(tier) {
		return nil, fmt.Errorf(
			"change plan: unknown tier %q: %w", tier, core.ErrValidation,
		)
	}

	if _, err := s.repo.GetByID(ctx, organizationID); err != nil {
		return nil, err
	}

	if err := s.repo.SetPlanTier(ctx, organizationID, string(tier)); err != nil {
		return nil, err
	}

	if err := s.cache.InvalidateOrganization(ctx, organizationID); err != nil {
		return nil, fmt.Errorf("invalidate contexts after plan change: %w", err)
	}

	return s.repo.GetByID(ctx, organizationID)
}

func (s *Service) Suspend(ctx context.Context, organizationID string) error {
	if err := s.repo.Suspend(ctx, organizationID); err != nil {
		return err
	}

	return s.cache.InvalidateOrganization(ctx, organizationID)
}

func (s *Service) Reinstate(ctx context.Context, organizationID string) error {
	if err := s.repo.Reinstate(ctx, organizationID); err != nil {
		return err
	}

	return s.cache.InvalidateOrganization(ctx, organizationID)
}
