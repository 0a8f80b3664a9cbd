// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/agrimesh/platform-api/internal/auth"
	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/core"
)

type Service struct {
	repo  Repository
	cache authz.ContextCache
}

func NewService(repo Repository, cache authz.ContextCache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

// GetUser reads a user inside the given organization. Lookups are
// scoped so a user id from another tenant behaves as if it did not
// exist.
func (s *Service) GetUser(
	ctx context.Context,
	orgID, id string,
) (*User, error) {
	return s.repo.GetInOrganization(ctx, orgID, id)
}

func (s *Service) UpdateUser(
	ctx context.Context,
	orgID, id string,
	req UpdateUserRequest,
) (*User, error) {
	user, err := s.repo.GetInOrganization(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser soft deletes and synchronously drops the target's cached
// authorization context so revoked access takes effect immediately.
func (s *Service) DeleteUser(ctx context.Context, orgID, id string) error {
	if err := s.repo.SoftDelete(ctx, orgID, id); err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx, id); err != nil {
		return fmt.Errorf("invalidate authorization context: %w", err)
	}

	return nil
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	return s.DeleteUser(ctx, user.OrganizationID, userID)
}

func (s *Service) EmailExists(
	ctx context.Context,
	email string,
) (bool, error) {
	return s.repo.ExistsByEmail(ctx, email)
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:             u.ID,
		OrganizationID: u.OrganizationID,
		Email:          u.Email,
		Name:           u.Name,
		PasswordHash:   u.PasswordHash,
		TokenVersion:   u.TokenVersion,
	}
}

var _ auth.UserProvider = (*Service)(nil)
