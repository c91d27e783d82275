package cart

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

// Handler exposes the cart JSON endpoints. Every route operates on the
// authenticated user's own cart.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		rbac:     rbac,
	}
}

// MountRoutes registers cart routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireUser())
		r.Get("/carrito", h.Show)
		r.Post("/carrito/items", h.AddItem)
		r.Put("/carrito/items/{equipoID}", h.SetQuantity)
		r.Delete("/carrito/items/{equipoID}", h.RemoveItem)
		r.Delete("/carrito", h.Clear)
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	view, err := h.service.Get(r.Context(), actor.UserID)
	if err != nil {
		h.logger.Error("get cart", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, view)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	var req AddItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.service.AddItem(r.Context(), actor.UserID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, view)
}

func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	equipoID, err := strconv.ParseInt(chi.URLParam(r, "equipoID"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid equipment id")
		return
	}
	var req SetQuantityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.service.SetQuantity(r.Context(), actor.UserID, equipoID, req.Cantidad)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, view)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	equipoID, err := strconv.ParseInt(chi.URLParam(r, "equipoID"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid equipment id")
		return
	}
	view, err := h.service.RemoveItem(r.Context(), actor.UserID, equipoID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, view)
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Clear(r.Context(), actor.UserID); err != nil {
		h.logger.Error("clear cart", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, nil)
}
