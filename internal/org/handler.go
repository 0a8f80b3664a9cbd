// AngelaMos | 2026
// handler.go

package org

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/core"
)

type Handler struct {
	service    *Service
	validation *ValidationService
	validator  *validator.Validate
}

func NewHandler(service *Service, validation *ValidationService) *Handler {
	return &Handler{
		service:    service,
		validation: validation,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the platform-admin organization surface. The
// guard enforces platform-admin status; ValidationService rechecks it as
// a precondition rather than trusting the route wiring.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	platformAdmin func(http.Handler) http.Handler,
) {
	r.Route("/admin/organizations", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(platformAdmin)

		r.Get("/", h.ListSelectable)
		r.Put("/{orgID}/plan", h.ChangePlan)
		r.Post("/{orgID}/suspend", h.Suspend)
		r.Post("/{orgID}/reinstate", h.Reinstate)
	})
}

func (h *Handler) ListSelectable(w http.ResponseWriter, r *http.Request) {
	actx := authz.FromContext(r.Context())
	if actx == nil {
		core.Unauthorized(w, "authentication required")
		return
	}

	orgs, err := h.validation.ListSelectable(r.Context(), actx)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, orgs)
}

type ChangePlanRequest struct {
	PlanTier string `json:"plan_tier" validate:"required,oneof=free basic pro enterprise"`
}

type OrganizationResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	OrgType   string  `json:"org_type"`
	IsActive  bool    `json:"is_active"`
	Suspended bool    `json:"suspended"`
	PlanTier  *string `json:"plan_tier,omitempty"`
}

func toOrganizationResponse(o *Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:        o.ID,
		Name:      o.Name,
		OrgType:   o.OrgType,
		IsActive:  o.IsActive,
		Suspended: o.IsSuspended(),
		PlanTier:  o.PlanTier,
	}
}

func (h *Handler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	var req ChangePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	organization, err := h.service.ChangePlan(
		r.Context(), orgID, authz.Tier(req.PlanTier),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, toOrganizationResponse(organization))
}

func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	if err := h.service.Suspend(r.Context(), orgID); err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) Reinstate(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	if err := h.service.Reinstate(r.Context(), orgID); err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}
