// AngelaMos | 2026
// dto.go

package farm

import (
	"time"
)

type CreateFarmRequest struct {
	Name      string  `json:"name"       validate:"required,min=1,max=200"`
	Location  string  `json:"location"   validate:"max=500"`
	AcreageHa float64 `json:"acreage_ha" validate:"gte=0"`
}

type UpdateFarmRequest struct {
	Name      *string  `json:"name,omitempty"       validate:"omitempty,min=1,max=200"`
	Location  *string  `json:"location,omitempty"   validate:"omitempty,max=500"`
	AcreageHa *float64 `json:"acreage_ha,omitempty" validate:"omitempty,gte=0"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

type FarmResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	AcreageHa      float64   `json:"acreage_ha"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func ToFarmResponse(f *Farm) FarmResponse {
	return FarmResponse{
		ID:             f.ID,
		OrganizationID: f.OrganizationID,
		Name:           f.Name,
		Location:       f.Location,
		AcreageHa:      f.AcreageHa,
		IsActive:       f.IsActive,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

func ToFarmResponseList(farms []Farm) []FarmResponse {
	out := make([]FarmResponse, 0, len(farms))
	for i := range farms {
		out = append(out, ToFarmResponse(&farms[i]))
	}
	return out
}
