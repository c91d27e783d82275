package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/decagraff/lc-service/internal/platform/httpx"
	"github.com/decagraff/lc-service/internal/rbac"
	"github.com/decagraff/lc-service/internal/shared"
)

// Handler exposes the reporting JSON endpoints plus CSV exports.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers report routes. Any authenticated user; the service
// narrows vendors to their assigned quotations and clients to their own.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireUser())
		r.Get("/reports/kpis", h.KPIs)
		r.Get("/reports/status", h.StatusCounts)
		r.Get("/reports/sales-by-period", h.SalesByPeriod)
		r.Get("/reports/sales-by-category", h.SalesByCategory)
		r.Get("/reports/top-products", h.TopProducts)
		r.Get("/reports/thesis-kpis", h.ThesisComparison)
		r.Get("/reports/export/kpis.csv", h.ExportKPIs)
		r.Get("/reports/export/sales.csv", h.ExportSales)
		r.Get("/reports/export/top-products.csv", h.ExportTopProducts)
	})
}

func parseFilter(r *http.Request) Filter {
	var f Filter
	q := r.URL.Query()
	if v := q.Get("desde"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.Desde = &t
		}
	}
	if v := q.Get("hasta"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			// Inclusive end of day.
			t = t.Add(24*time.Hour - time.Nanosecond)
			f.Hasta = &t
		}
	}
	if v := q.Get("vendedor_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			f.VendedorID = &id
		}
	}
	if v := q.Get("cliente_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			f.ClienteID = &id
		}
	}
	if v := q.Get("categoria_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			f.CategoriaID = &id
		}
	}
	if v := q.Get("estado"); v != "" {
		f.Estado = &v
	}
	return f
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (shared.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return shared.Actor{}, false
	}
	return actor, true
}

func (h *Handler) KPIs(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	out, err := h.service.KPIs(r.Context(), actor, parseFilter(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, out)
}

func (h *Handler) StatusCounts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	out, err := h.service.StatusCounts(r.Context(), actor, parseFilter(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, out)
}

func (h *Handler) SalesByPeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	out, err := h.service.SalesByPeriod(r.Context(), actor, parseFilter(r), r.URL.Query().Get("granularity"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, out)
}

func (h *Handler) SalesByCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	out, err := h.service.SalesByCategory(r.Context(), actor, parseFilter(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, out)
}

func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.service.TopProducts(r.Context(), actor, parseFilter(r), limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, out)
}

func (h *Handler) ThesisComparison(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	cutover := time.Now()
	if v := r.URL.Query().Get("cutover"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: cutover must be YYYY-MM-DD", httpx.ErrValidation))
			return
		}
		cutover = t
	}
	out, err := h.service.ThesisComparison(r.Context(), actor, cutover)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, out)
}

func (h *Handler) ExportKPIs(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	out, err := h.service.KPIs(r.Context(), actor, parseFilter(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	writeCSVHeaders(w, "kpis.csv")
	if err := WriteKPICSV(w, out); err != nil {
		h.logger.Error("write kpi csv", slog.Any("error", err))
	}
}

func (h *Handler) ExportSales(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	out, err := h.service.SalesByPeriod(r.Context(), actor, parseFilter(r), r.URL.Query().Get("granularity"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	writeCSVHeaders(w, "sales.csv")
	if err := WriteSalesCSV(w, out); err != nil {
		h.logger.Error("write sales csv", slog.Any("error", err))
	}
}

func (h *Handler) ExportTopProducts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.service.TopProducts(r.Context(), actor, parseFilter(r), limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	writeCSVHeaders(w, "top_products.csv")
	if err := WriteTopProductsCSV(w, out); err != nil {
		h.logger.Error("write top products csv", slog.Any("error", err))
	}
}

func writeCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}
