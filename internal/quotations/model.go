package quotations

import (
	"time"

	"github.com/decagraff/lc-service/internal/shared"
)

// Estado is the quotation lifecycle status.
type Estado string

const (
	EstadoBorrador  Estado = "borrador"
	EstadoEnviada   Estado = "enviada"
	EstadoAprobada  Estado = "aprobada"
	EstadoRechazada Estado = "rechazada"
	EstadoVencida   Estado = "vencida"
)

// Valid reports whether the status belongs to the lifecycle set.
func (e Estado) Valid() bool {
	switch e {
	case EstadoBorrador, EstadoEnviada, EstadoAprobada, EstadoRechazada, EstadoVencida:
		return true
	}
	return false
}

// Terminal reports whether no further actor-driven transition exists.
func (e Estado) Terminal() bool {
	return e == EstadoAprobada || e == EstadoRechazada || e == EstadoVencida
}

// transitions maps each actor-driven transition to the roles allowed to
// perform it. vencida is absent on purpose: it is time-driven, applied by
// the expiry sweep and derived lazily on reads, never requested by an actor.
var transitions = map[Estado]map[Estado][]shared.Role{
	EstadoBorrador: {
		EstadoEnviada: {shared.RoleCliente, shared.RoleVendedor, shared.RoleAdmin},
	},
	EstadoEnviada: {
		EstadoAprobada:  {shared.RoleVendedor, shared.RoleAdmin},
		EstadoRechazada: {shared.RoleVendedor, shared.RoleAdmin},
	},
}

// transitionAllowed checks the guard table for (from, to, role).
func transitionAllowed(from, to Estado, role shared.Role) bool {
	allowed, ok := transitions[from][to]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// ClientSnapshot freezes the client's identity at quotation creation time.
// Later profile edits must not rewrite historical documents.
type ClientSnapshot struct {
	Nombre   string `json:"cliente_nombre"`
	Empresa  string `json:"cliente_empresa"`
	Email    string `json:"cliente_email"`
	Telefono string `json:"cliente_telefono"`
}

// Quotation is the central priced document.
type Quotation struct {
	ID               int64      `json:"id"`
	Numero           string     `json:"numero"`
	ClienteID        int64      `json:"cliente_id"`
	VendedorID       *int64     `json:"vendedor_id,omitempty"`
	Cliente          ClientSnapshot `json:"cliente"`
	Subtotal         float64    `json:"subtotal"`
	IGV              float64    `json:"igv"`
	Total            float64    `json:"total"`
	Estado           Estado     `json:"estado"`
	Notas            string     `json:"notas,omitempty"`
	FechaVencimiento *time.Time `json:"fecha_vencimiento,omitempty"`
	FechaRespuesta   *time.Time `json:"fecha_respuesta,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Items            []LineItem `json:"items,omitempty"`
}

// LineItem is an immutable snapshot of a cart line at creation time.
// Nombre and codigo are denormalized so historical quotations survive
// later equipment edits or deletion; precio_unitario never tracks catalog
// price changes.
type LineItem struct {
	ID             int64   `json:"id"`
	CotizacionID   int64   `json:"cotizacion_id"`
	EquipoID       int64   `json:"equipo_id"`
	Codigo         string  `json:"codigo"`
	Nombre         string  `json:"nombre"`
	Cantidad       int     `json:"cantidad"`
	PrecioUnitario float64 `json:"precio_unitario"`
	Subtotal       float64 `json:"subtotal"`
}

// EffectiveStatus derives vencida for live quotations whose expiration date
// has passed, without waiting for the sweep to persist it.
func (q *Quotation) EffectiveStatus(now time.Time) Estado {
	if (q.Estado == EstadoBorrador || q.Estado == EstadoEnviada) &&
		q.FechaVencimiento != nil && q.FechaVencimiento.Before(now) {
		return EstadoVencida
	}
	return q.Estado
}
