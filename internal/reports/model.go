package reports

import "time"

// Filter defines the scope for report aggregation. The service pins
// VendedorID for vendor callers and ClienteID for client callers before the
// filter reaches the repository.
type Filter struct {
	Desde       *time.Time
	Hasta       *time.Time
	VendedorID  *int64
	ClienteID   *int64
	CategoriaID *int64
	Estado      *string
}

// KPIs are the dashboard headline numbers. Only approved quotations count as
// sales.
type KPIs struct {
	TotalVentas    float64 `json:"total_ventas"`
	TotalOrdenes   int64   `json:"total_ordenes"`
	TicketPromedio float64 `json:"ticket_promedio"`
	ConversionRate float64 `json:"conversion_rate"`
}

// StatusCount is a per-estado tally of quotations in scope.
type StatusCount struct {
	Estado string `json:"estado"`
	Count  int64  `json:"count"`
}

// SalesPoint is one bucket of the sales trend, keyed by the truncated period
// start.
type SalesPoint struct {
	Period  string  `json:"period"`
	Total   float64 `json:"total"`
	Ordenes int64   `json:"ordenes"`
}

// CategorySales aggregates approved line revenue per equipment category.
type CategorySales struct {
	CategoriaID int64   `json:"categoria_id"`
	Categoria   string  `json:"categoria"`
	Total       float64 `json:"total"`
	Unidades    int64   `json:"unidades"`
}

// TopProduct ranks equipment by approved revenue.
type TopProduct struct {
	EquipoID int64   `json:"equipo_id"`
	Codigo   string  `json:"codigo"`
	Nombre   string  `json:"nombre"`
	Unidades int64   `json:"unidades"`
	Total    float64 `json:"total"`
}

// PeriodStats captures the metrics compared across the thesis windows.
type PeriodStats struct {
	Cotizaciones    int64   `json:"cotizaciones"`
	Aprobadas       int64   `json:"aprobadas"`
	TotalVentas     float64 `json:"total_ventas"`
	AvgRespuestaHrs float64 `json:"avg_respuesta_horas"`
}

// ThesisComparison contrasts the 30 days before and after a cutover date,
// typically the system go-live.
type ThesisComparison struct {
	Cutover time.Time   `json:"cutover"`
	Antes   PeriodStats `json:"antes"`
	Despues PeriodStats `json:"despues"`
}
