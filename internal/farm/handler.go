// AngelaMos | 2026
// handler.go

package farm

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/core"
	"github.com/agrimesh/platform-api/internal/middleware"
	"github.com/agrimesh/platform-api/internal/org"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts farm CRUD. Every route requires the farms
// module to be enabled for the plan on top of the per-action
// permission.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	guard *middleware.Guard,
) {
	readFarms := authz.Requirement{
		Permission: &authz.PermissionRef{Resource: "farms", Action: "read"},
		Modules:    []string{authz.ModuleFarms},
	}
	writeFarms := func(action string) authz.Requirement {
		return authz.Requirement{
			Permission: &authz.PermissionRef{Resource: "farms", Action: action},
			Modules:    []string{authz.ModuleFarms},
		}
	}

	r.Route("/farms", func(r chi.Router) {
		r.Use(authenticator)

		r.Group(func(r chi.Router) {
			r.Use(guard.Protect(readFarms))
			r.Get("/", h.List)
			r.Get("/{farmID}", h.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Protect(writeFarms("create")))
			r.Post("/", h.Create)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Protect(writeFarms("update")))
			r.Put("/{farmID}", h.Update)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Protect(writeFarms("delete")))
			r.Delete("/{farmID}", h.Delete)
		})
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	farms, err := h.service.List(r.Context(), org.EffectiveOrgID(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToFarmResponseList(farms))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	farm, err := h.service.Get(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "farmID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToFarmResponse(farm))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateFarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	farm, err := h.service.Create(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		req,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, ToFarmResponse(farm))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateFarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	farm, err := h.service.Update(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "farmID"),
		req,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToFarmResponse(farm))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "farmID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}
