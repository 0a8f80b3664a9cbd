// AngelaMos | 2026
// entity.go

package farm

import (
	"time"
)

type Farm struct {
	ID             string    `db:"id"`
	OrganizationID string    `db:"organization_id"`
	Name           string    `db:"name"`
	Location       string    `db:"location"`
	AcreageHa      float64   `db:"acreage_ha"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
