// AngelaMos | 2026
// handler.go

package rbac

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

// RegisterRoutes mounts the RBAC administration surface. Reads need
// roles:read, role and grant mutations need roles:manage plus the
// custom_roles plan feature, and user-role assignment needs
// users:manage. Permission vocabulary creation is platform-only.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	guard *middleware.Guard,
) {
	manageRoles := authz.Requirement{
		Permission: &authz.PermissionRef{Resource: "roles", Action: "manage"},
		Feature:    authz.FeatureCustomRoles,
	}

	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Group(func(r chi.Router) {
			r.Use(guard.Protect(authz.RequirePermission("roles", "read")))
			r.Get("/roles", h.ListRoles)
			r.Get("/roles/{roleID}", h.GetRole)
			r.Get("/roles/{roleID}/permissions", h.ListRolePermissions)
			r.Get("/permissions", h.ListPermissions)
			r.Get("/permissions/resources", h.ListPermissionResources)
			r.Get("/role-templates", h.ListTemplates)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Protect(manageRoles))
			r.Post("/roles", h.CreateRole)
			r.Put("/roles/{roleID}", h.UpdateRole)
			r.Delete("/roles/{roleID}", h.DeleteRole)
			r.Post("/roles/{roleID}/permissions", h.AttachPermission)
			r.Put(
				"/roles/{roleID}/permissions/{permissionID}",
				h.UpdateGrant,
			)
			r.Delete(
				"/roles/{roleID}/permissions/{permissionID}",
				h.DetachPermission,
			)
			r.Post("/role-templates/{templateID}/apply", h.ApplyTemplate)
			r.Post("/bulk/update-permissions", h.BulkUpdatePermissions)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Protect(authz.RequirePermission("users", "manage")))
			r.Get("/users/{userID}/roles", h.ListUserRoles)
			r.Post("/users/{userID}/roles", h.AssignRole)
			r.Put("/users/{userID}/roles/{roleID}", h.UpdateUserRole)
			r.Delete("/users/{userID}/roles/{roleID}", h.RemoveRole)
			r.Post("/bulk/assign-roles", h.BulkAssignRoles)
			r.Post("/bulk/remove-roles", h.BulkRemoveRoles)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Protect(authz.RequirePermission("users", "read")))
			r.Get("/users/{userID}/permissions", h.GetUserPermissions)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Protect(authz.Requirement{}))
			r.Post("/check-permission", h.CheckPermission)
			r.Post("/check-permissions", h.CheckPermissions)
			r.Get("/user-permissions", h.GetOwnPermissions)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.PlatformAdmin())
			r.Post("/permissions", h.CreatePermission)
		})
	})
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context(), org.EffectiveOrgID(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToRoleResponseList(roles))
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetRole(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "roleID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToRoleResponse(role))
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	role, err := h.service.CreateRole(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		req,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, ToRoleResponse(role))
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	role, err := h.service.UpdateRole(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "roleID"),
		req,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToRoleResponse(role))
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteRole(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "roleID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToPermissionResponseList(perms))
}

func (h *Handler) ListPermissionResources(
	w http.ResponseWriter,
	r *http.Request,
) {
	resources, err := h.service.ListPermissionResources(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, map[string][]string{"resources": resources})
}

func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var req CreatePermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	perm, err := h.service.CreatePermission(r.Context(), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, ToPermissionResponse(perm))
}

func (h *Handler) ListRolePermissions(
	w http.ResponseWriter,
	r *http.Request,
) {
	rows, err := h.service.ListRolePermissions(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "roleID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	out := make([]RolePermissionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, RolePermissionResponse{
			Permission: PermissionResponse{
				ID:          row.PermissionID,
				Resource:    row.Resource,
				Action:      row.Action,
				Description: row.Description,
			},
			Granted: row.Granted,
		})
	}

	core.OK(w, out)
}

func (h *Handler) AttachPermission(w http.ResponseWriter, r *http.Request) {
	var req AttachPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	err := h.service.AttachPermission(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "roleID"),
		req,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) UpdateGrant(w http.ResponseWriter, r *http.Request) {
	var req UpdateGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	err := h.service.UpdateGrant(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "roleID"),
		chi.URLParam(r, "permissionID"),
		req.Granted,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) DetachPermission(w http.ResponseWriter, r *http.Request) {
	err := h.service.DetachPermission(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "roleID"),
		chi.URLParam(r, "permissionID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) ListUserRoles(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListUserRoles(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "userID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	out := make([]UserRoleResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, UserRoleResponse{
			ID:        row.ID,
			RoleID:    row.RoleID,
			RoleName:  row.RoleName,
			Level:     row.Level,
			FarmID:    row.FarmID,
			IsActive:  row.IsActive,
			ExpiresAt: row.ExpiresAt,
			CreatedAt: row.CreatedAt,
		})
	}

	core.OK(w, out)
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	link, err := h.service.AssignRole(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "userID"),
		req,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, link)
}

func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	err := h.service.UpdateUserRole(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "userID"),
		chi.URLParam(r, "roleID"),
		req,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	var farmID *string
	if v := r.URL.Query().Get("farm_id"); v != "" {
		farmID = &v
	}

	err := h.service.RemoveRole(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "userID"),
		chi.URLParam(r, "roleID"),
		farmID,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

// CheckPermission evaluates a single permission against the caller's
// own authorization context.
func (h *Handler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	var req CheckPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	actx := authz.FromContext(r.Context())
	if actx == nil {
		core.Unauthorized(w, "authentication required")
		return
	}

	core.OK(w, CheckPermissionResponse{
		Resource: req.Resource,
		Action:   req.Action,
		Allowed:  actx.Can(req.Resource, req.Action),
	})
}

func (h *Handler) CheckPermissions(w http.ResponseWriter, r *http.Request) {
	var req CheckPermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	actx := authz.FromContext(r.Context())
	if actx == nil {
		core.Unauthorized(w, "authentication required")
		return
	}

	results := make([]CheckPermissionResponse, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		results = append(results, CheckPermissionResponse{
			Resource: p.Resource,
			Action:   p.Action,
			Allowed:  actx.Can(p.Resource, p.Action),
		})
	}

	core.OK(w, CheckPermissionsResponse{Results: results})
}

func (h *Handler) GetOwnPermissions(w http.ResponseWriter, r *http.Request) {
	actx := authz.FromContext(r.Context())
	if actx == nil {
		core.Unauthorized(w, "authentication required")
		return
	}

	core.OK(w, UserPermissionsResponse{
		UserID:      actx.UserID,
		PlanTier:    string(actx.PlanTier),
		Permissions: actx.Permissions,
		Features:    actx.Features,
		Modules:     actx.Modules,
		Roles:       actx.RoleNames,
	})
}

func (h *Handler) GetUserPermissions(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetUserPermissions(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "userID"),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := Templates()

	out := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		perms := make([]string, 0, len(t.Permissions))
		for _, p := range t.Permissions {
			perms = append(perms, p.Resource+":"+p.Action)
		}
		out = append(out, TemplateResponse{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Level:       t.Level,
			Permissions: perms,
		})
	}

	core.OK(w, out)
}

func (h *Handler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req ApplyTemplateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			core.BadRequest(w, "invalid request body")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			core.BadRequest(w, core.FormatValidationError(err))
			return
		}
	}

	role, err := h.service.ApplyTemplate(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		chi.URLParam(r, "templateID"),
		req,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, ToRoleResponse(role))
}

func (h *Handler) BulkAssignRoles(w http.ResponseWriter, r *http.Request) {
	var req BulkAssignRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result := h.service.BulkAssignRoles(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		req,
	)

	core.OK(w, result)
}

func (h *Handler) BulkRemoveRoles(w http.ResponseWriter, r *http.Request) {
	var req BulkRemoveRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result := h.service.BulkRemoveRoles(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		req,
	)

	core.OK(w, result)
}

func (h *Handler) BulkUpdatePermissions(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req BulkUpdatePermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result := h.service.BulkUpdatePermissions(
		r.Context(),
		org.EffectiveOrgID(r.Context()),
		req,
	)

	core.OK(w, result)
}
