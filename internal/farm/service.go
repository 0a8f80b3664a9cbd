// AngelaMos | 2026
// service.go

package farm

import (
	"context"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(
	ctx context.Context,
	orgID string,
	req CreateFarmRequest,
) (*Farm, error) {
	farm := &Farm{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		Name:           req.Name,
		Location:       req.Location,
		AcreageHa:      req.AcreageHa,
	}

	if err := s.repo.Create(ctx, farm); err != nil {
		return nil, err
	}

	return farm, nil
}

func (s *Service) Get(ctx context.Context, orgID, id string) (*Farm, error) {
	return s.repo.GetByID(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID string) ([]Farm, error) {
	return s.repo.List(ctx, orgID)
}

func (s *Service) Update(
	ctx context.Context,
	orgID, id string,
	req UpdateFarmRequest,
) (*Farm, error) {
	farm, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		farm.Name = *req.Name
	}
	if req.Location != nil {
		farm.Location = *req.Location
	}
	if req.AcreageHa != nil {
		farm.AcreageHa = *req.AcreageHa
	}
	if req.IsActive != nil {
		farm.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, farm); err != nil {
		return nil, err
	}

	return farm, nil
}

func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	return s.repo.Delete(ctx, orgID, id)
}
