package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/decagraff/lc-service/internal/platform/httpx"
	"github.com/decagraff/lc-service/internal/rbac"
	"github.com/decagraff/lc-service/internal/shared"
)

// Handler manages the user administration endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), rbac: rbac}
}

// MountRoutes registers user routes. Admin only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAdmin))
		r.Get("/usuarios", h.list)
		r.Get("/usuarios/{id}", h.show)
		r.Post("/usuarios", h.create)
		r.Put("/usuarios/{id}", h.update)
		r.Put("/usuarios/{id}/password", h.changePassword)
		r.Delete("/usuarios/{id}", h.deactivate)
		r.Post("/usuarios/{id}/activar", h.activate)
	})
}

type createRequest struct {
	Nombre    string `json:"nombre" validate:"required"`
	Apellido  string `json:"apellido" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Rol       string `json:"rol" validate:"required,oneof=admin vendedor cliente"`
	Telefono  string `json:"telefono"`
	Direccion string `json:"direccion"`
	Empresa   string `json:"empresa"`
}

type updateRequest struct {
	Nombre    string `json:"nombre" validate:"required"`
	Apellido  string `json:"apellido" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Rol       string `json:"rol" validate:"required,oneof=admin vendedor cliente"`
	Telefono  string `json:"telefono"`
	Direccion string `json:"direccion"`
	Empresa   string `json:"empresa"`
	Activo    bool   `json:"activo"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ListFilter{Rol: q.Get("rol"), Search: q.Get("q")}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PerPage, _ = strconv.Atoi(q.Get("limit"))
	if v := q.Get("activo"); v != "" {
		active := v == "true" || v == "1"
		f.Activo = &active
	}

	list, total, err := h.service.List(r.Context(), f)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, map[string]any{
		"usuarios":   list,
		"pagination": shared.NewPagination(f.Page, f.PerPage, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, u)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.service.Create(r.Context(), User{
		Nombre:    req.Nombre,
		Apellido:  req.Apellido,
		Email:     req.Email,
		Rol:       req.Rol,
		Telefono:  req.Telefono,
		Direccion: req.Direccion,
		Empresa:   req.Empresa,
	}, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, u)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	u, err := h.service.Update(r.Context(), actor, User{
		ID:        id,
		Nombre:    req.Nombre,
		Apellido:  req.Apellido,
		Email:     req.Email,
		Rol:       req.Rol,
		Telefono:  req.Telefono,
		Direccion: req.Direccion,
		Empresa:   req.Empresa,
		Activo:    req.Activo,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, u)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req passwordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.ChangePassword(r.Context(), id, req.Password); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, nil)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, nil)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.Activate(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, nil)
}
