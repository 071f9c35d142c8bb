package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatehouse/gatehouse/internal/platform/httpx"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// Handler exposes assignment mutations over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers assignment routes. The caller wraps them in the
// Authenticate middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/user-roles", h.assignUserRole)
	r.Delete("/user-roles", h.removeUserRole)
	r.Patch("/user-roles", h.reassignUserRole)
	r.Post("/role-permissions", h.assignRolePermission)
	r.Delete("/role-permissions", h.removeRolePermission)
}

type userRoleRequest struct {
	User string `json:"user" validate:"required"`
	Role string `json:"role" validate:"required"`
}

type reassignRequest struct {
	UserID      int64  `json:"user_id" validate:"required"`
	CurrentRole string `json:"current_role" validate:"required"`
	NewRole     string `json:"new_role" validate:"required"`
}

type rolePermissionRequest struct {
	Role   string `json:"role" validate:"required"`
	Action string `json:"action" validate:"required"`
}

func (h *Handler) assignUserRole(w http.ResponseWriter, r *http.Request) {
	var req userRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.AssignUserRole(r.Context(), shared.AuthFromContext(r.Context()), req.User, req.Role); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"status": "role assigned"})
}

func (h *Handler) removeUserRole(w http.ResponseWriter, r *http.Request) {
	var req userRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RemoveUserRole(r.Context(), shared.AuthFromContext(r.Context()), req.User, req.Role); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "role removed"})
}

func (h *Handler) reassignUserRole(w http.ResponseWriter, r *http.Request) {
	var req reassignRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.service.ReassignUserRole(r.Context(), shared.AuthFromContext(r.Context()), req.UserID, req.CurrentRole, req.NewRole)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "role reassigned"})
}

func (h *Handler) assignRolePermission(w http.ResponseWriter, r *http.Request) {
	var req rolePermissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.AssignRolePermission(r.Context(), shared.AuthFromContext(r.Context()), req.Role, req.Action); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"status": "permission assigned"})
}

func (h *Handler) removeRolePermission(w http.ResponseWriter, r *http.Request) {
	var req rolePermissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RemoveRolePermission(r.Context(), shared.AuthFromContext(r.Context()), req.Role, req.Action); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "permission removed"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

// UserPermissionsHandler serves the per-user role/permission report,
// mounted under the users subtree.
func (h *Handler) UserPermissionsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	report, err := h.service.UserRolePermissions(r.Context(), shared.AuthFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
