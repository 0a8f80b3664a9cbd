// AngelaMos | 2026
// entity.go

package org

import (
	"time"
)

type Organization struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	OrgType     string     `db:"org_type"`
	IsActive    bool       `db:"is_active"`
	SuspendedAt *time.Time `db:"suspended_at"`
	PlanTier    *string    `db:"plan_tier"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

const (
	TypeFarmOperator = "farm_operator"
	TypeCooperative  = "cooperative"
	TypeDistributor  = "distributor"
	TypeBuyer        = "buyer"
)

func (o *Organization) IsSuspended() bool {
	return o.SuspendedAt != nil
}

// Selectable reports whether the organization is a valid impersonation
// target: it must be active and not suspended.
func (o *Organization) Selectable() bool {
	return o.IsActive && !o.IsSuspended()
}

// SelectableOrg is the admin org-picker row: an organization plus basic
// size counts.
type SelectableOrg struct {
	ID        string  `db:"id"         json:"id"`
	Name      string  `db:"name"       json:"name"`
	OrgType   string  `db:"org_type"   json:"org_type"`
	PlanTier  *string `db:"plan_tier"  json:"plan_tier,omitempty"`
	UserCount int     `db:"user_count" json:"user_count"`
	FarmCount int     `db:"farm_count" json:"farm_count"`
}
