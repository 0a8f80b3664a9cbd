// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

// User belongs to exactly one organization. Authorization attributes
// (roles, permissions, plan tier) live in the rbac and authz packages;
// the user row carries identity only.
type User struct {
	ID             string     `db:"id"`
	OrganizationID string     `db:"organization_id"`
	Email          string     `db:"email"`
	PasswordHash   string     `db:"password_hash"`
	Name           string     `db:"name"`
	TokenVersion   int        `db:"token_version"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
	DeletedAt      *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}
