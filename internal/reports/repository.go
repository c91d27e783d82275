package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregation queries. All reads, no writes.
type Repository interface {
	KPIs(ctx context.Context, f Filter) (KPIs, error)
	StatusCounts(ctx context.Context, f Filter) ([]StatusCount, error)
	SalesByPeriod(ctx context.Context, f Filter, granularity string) ([]SalesPoint, error)
	SalesByCategory(ctx context.Context, f Filter) ([]CategorySales, error)
	TopProducts(ctx context.Context, f Filter, limit int) ([]TopProduct, error)
	PeriodStats(ctx context.Context, from, to time.Time, f Filter) (PeriodStats, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed reports repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// filterClause renders the shared WHERE fragment over cotizaciones c.
// dateCol is the column the desde/hasta range applies to.
func filterClause(f Filter, dateCol string, args []any) (string, []any) {
	var conds []string
	if f.Desde != nil {
		args = append(args, *f.Desde)
		conds = append(conds, fmt.Sprintf("%s >= $%d", dateCol, len(args)))
	}
	if f.Hasta != nil {
		args = append(args, *f.Hasta)
		conds = append(conds, fmt.Sprintf("%s <= $%d", dateCol, len(args)))
	}
	if f.VendedorID != nil {
		args = append(args, *f.VendedorID)
		conds = append(conds, fmt.Sprintf("c.vendedor_id = $%d", len(args)))
	}
	if f.ClienteID != nil {
		args = append(args, *f.ClienteID)
		conds = append(conds, fmt.Sprintf("c.cliente_id = $%d", len(args)))
	}
	if f.Estado != nil {
		args = append(args, *f.Estado)
		conds = append(conds, fmt.Sprintf("c.estado = $%d", len(args)))
	}
	if f.CategoriaID != nil {
		args = append(args, *f.CategoriaID)
		conds = append(conds, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM cotizacion_items fi
			JOIN equipos fe ON fe.id = fi.equipo_id
			WHERE fi.cotizacion_id = c.id AND fe.categoria_id = $%d)`, len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " AND " + strings.Join(conds, " AND "), args
}

func (r *repository) KPIs(ctx context.Context, f Filter) (KPIs, error) {
	where, args := filterClause(f, "c.created_at", nil)
	query := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(c.total) FILTER (WHERE c.estado = 'aprobada'), 0),
			COUNT(*) FILTER (WHERE c.estado = 'aprobada'),
			COUNT(*)
		FROM cotizaciones c
		WHERE TRUE%s`, where)

	var ventas float64
	var aprobadas, total int64
	err := r.pool.QueryRow(ctx, query, args...).Scan(&ventas, &aprobadas, &total)
	if err != nil {
		return KPIs{}, fmt.Errorf("kpis: %w", err)
	}
	return deriveKPIs(ventas, aprobadas, total), nil
}

// deriveKPIs turns the raw aggregate counts into the dashboard numbers.
// The conversion rate is aprobadas over every quotation in scope, pending
// ones included; both ratios are 0 when their denominator is 0.
func deriveKPIs(ventas float64, aprobadas, total int64) KPIs {
	out := KPIs{TotalVentas: ventas, TotalOrdenes: aprobadas}
	if aprobadas > 0 {
		out.TicketPromedio = ventas / float64(aprobadas)
	}
	if total > 0 {
		out.ConversionRate = float64(aprobadas) / float64(total)
	}
	return out
}

func (r *repository) StatusCounts(ctx context.Context, f Filter) ([]StatusCount, error) {
	where, args := filterClause(f, "c.created_at", nil)
	query := fmt.Sprintf(`
		SELECT c.estado, COUNT(*)
		FROM cotizaciones c
		WHERE TRUE%s
		GROUP BY c.estado
		ORDER BY c.estado`, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Estado, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

var granularities = map[string]string{
	"day":   "day",
	"week":  "week",
	"month": "month",
	"year":  "year",
}

func (r *repository) SalesByPeriod(ctx context.Context, f Filter, granularity string) ([]SalesPoint, error) {
	trunc, ok := granularities[granularity]
	if !ok {
		trunc = "month"
	}
	// Sales are keyed by the approval date, not the creation date.
	where, args := filterClause(f, "c.fecha_respuesta", nil)
	query := fmt.Sprintf(`
		SELECT date_trunc('%s', c.fecha_respuesta) AS periodo,
		       COALESCE(SUM(c.total), 0),
		       COUNT(*)
		FROM cotizaciones c
		WHERE c.estado = 'aprobada' AND c.fecha_respuesta IS NOT NULL%s
		GROUP BY periodo
		ORDER BY periodo`, trunc, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales by period: %w", err)
	}
	defer rows.Close()

	var out []SalesPoint
	for rows.Next() {
		var ts time.Time
		var p SalesPoint
		if err := rows.Scan(&ts, &p.Total, &p.Ordenes); err != nil {
			return nil, err
		}
		p.Period = formatPeriod(ts, trunc)
		out = append(out, p)
	}
	return out, rows.Err()
}

func formatPeriod(ts time.Time, granularity string) string {
	switch granularity {
	case "day", "week":
		return ts.Format("2006-01-02")
	case "year":
		return ts.Format("2006")
	default:
		return ts.Format("2006-01")
	}
}

func (r *repository) SalesByCategory(ctx context.Context, f Filter) ([]CategorySales, error) {
	where, args := filterClause(f, "c.fecha_respuesta", nil)
	query := fmt.Sprintf(`
		SELECT cat.id, cat.nombre,
		       COALESCE(SUM(ci.subtotal), 0),
		       COALESCE(SUM(ci.cantidad), 0)
		FROM cotizacion_items ci
		JOIN cotizaciones c ON c.id = ci.cotizacion_id
		JOIN equipos e ON e.id = ci.equipo_id
		JOIN categorias cat ON cat.id = e.categoria_id
		WHERE c.estado = 'aprobada'%s
		GROUP BY cat.id, cat.nombre
		ORDER BY 3 DESC`, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales by category: %w", err)
	}
	defer rows.Close()

	var out []CategorySales
	for rows.Next() {
		var cs CategorySales
		if err := rows.Scan(&cs.CategoriaID, &cs.Categoria, &cs.Total, &cs.Unidades); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (r *repository) TopProducts(ctx context.Context, f Filter, limit int) ([]TopProduct, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	// Ranked by units sold, not revenue.
	where, args := filterClause(f, "c.fecha_respuesta", nil)
	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT ci.equipo_id, ci.codigo, ci.nombre,
		       COALESCE(SUM(ci.cantidad), 0),
		       COALESCE(SUM(ci.subtotal), 0)
		FROM cotizacion_items ci
		JOIN cotizaciones c ON c.id = ci.cotizacion_id
		WHERE c.estado = 'aprobada'%s
		GROUP BY ci.equipo_id, ci.codigo, ci.nombre
		ORDER BY 4 DESC
		LIMIT $%d`, where, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var tp TopProduct
		if err := rows.Scan(&tp.EquipoID, &tp.Codigo, &tp.Nombre, &tp.Unidades, &tp.Total); err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

func (r *repository) PeriodStats(ctx context.Context, from, to time.Time, f Filter) (PeriodStats, error) {
	// The compared windows come from from/to; the filter's own date range
	// does not apply here.
	f.Desde, f.Hasta = nil, nil
	where, args := filterClause(f, "c.created_at", []any{from, to})
	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE c.estado = 'aprobada'),
			COALESCE(SUM(c.total) FILTER (WHERE c.estado = 'aprobada'), 0),
			COALESCE(AVG(EXTRACT(EPOCH FROM (c.fecha_respuesta - c.created_at)) / 3600)
				FILTER (WHERE c.fecha_respuesta IS NOT NULL), 0)
		FROM cotizaciones c
		WHERE c.created_at >= $1 AND c.created_at < $2%s`, where)

	var out PeriodStats
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&out.Cotizaciones, &out.Aprobadas, &out.TotalVentas, &out.AvgRespuestaHrs)
	if err != nil {
		return PeriodStats{}, fmt.Errorf("period stats: %w", err)
	}
	return out, nil
}
