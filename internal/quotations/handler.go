package quotations

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/decagraff/lc-service/internal/platform/httpx"
	"github.com/decagraff/lc-service/internal/rbac"
	"github.com/decagraff/lc-service/internal/shared"
)

// PDFRenderer converts HTML into a PDF document, Gotenberg in production.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler exposes the quotation JSON endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
	pdf      PDFRenderer
}

// NewHandler constructs a Handler. pdf may be nil, which disables the PDF
// export route.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, pdf PDFRenderer) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		rbac:     rbac,
		pdf:      pdf,
	}
}

// MountRoutes registers quotation routes. Role scoping inside the service
// narrows what each role can reach; vendor assignment is admin only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireUser())
		r.Get("/cotizaciones", h.List)
		r.Get("/cotizaciones/{id}", h.Show)
		r.Post("/cotizaciones/nueva", h.Create)
		r.Put("/cotizaciones/{id}/estado", h.ChangeStatus)
		r.Delete("/cotizaciones/{id}", h.Delete)
		if h.pdf != nil {
			r.Get("/cotizaciones/{id}/pdf", h.ExportPDF)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAdmin))
		r.Put("/cotizaciones/{id}/vendedor", h.AssignVendor)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	q := r.URL.Query()

	filter := ListFilter{}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("limit"))
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if v := q.Get("estado"); v != "" {
		estado := Estado(v)
		if !estado.Valid() {
			httpx.Fail(w, http.StatusBadRequest, "invalid estado filter")
			return
		}
		filter.Estado = &estado
	}
	filter.DateFrom = parseDate(q.Get("desde"))
	filter.DateTo = parseDate(q.Get("hasta"))

	list, total, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		h.logger.Error("list quotations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Quotation{}
	}
	httpx.OK(w, map[string]any{
		"cotizaciones": list,
		"pagination":   shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	q, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, q)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := h.service.CreateFromCart(r.Context(), actor, req)
	if err != nil {
		h.logger.Error("create quotation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, q)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	var req ChangeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := h.service.ChangeStatus(r.Context(), actor, id, Estado(req.Estado))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, q)
}

func (h *Handler) AssignVendor(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	var req AssignVendorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := h.service.AssignVendor(r.Context(), actor, id, req.VendedorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, q)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, nil)
}

func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid quotation id")
		return
	}
	q, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	html, err := DocumentHTML(q)
	if err != nil {
		h.logger.Error("render quotation html", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "could not render document")
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render quotation pdf", slog.Any("error", err))
		httpx.Fail(w, http.StatusBadGateway, "pdf service unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", q.Numero+".pdf"))
	_, _ = w.Write(pdf)
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
