package quotations

import "time"

// CreateRequest is the payload for creating a quotation from the cart.
// ClienteID is required when the actor is vendedor or admin (they quote on a
// client's behalf); VendedorID may only be set by admin.
type CreateRequest struct {
	ClienteID        *int64     `json:"cliente_id,omitempty" validate:"omitempty,gt=0"`
	VendedorID       *int64     `json:"vendedor_id,omitempty" validate:"omitempty,gt=0"`
	Notas            string     `json:"notas,omitempty" validate:"max=1000"`
	FechaVencimiento *time.Time `json:"fecha_vencimiento,omitempty"`
}

// ChangeStatusRequest is the payload for a guarded status transition.
// vencida is deliberately not accepted: it is time-driven.
type ChangeStatusRequest struct {
	Estado string `json:"estado" validate:"required,oneof=enviada aprobada rechazada"`
}

// AssignVendorRequest assigns an unassigned quotation to a vendor.
type AssignVendorRequest struct {
	VendedorID int64 `json:"vendedor_id" validate:"required,gt=0"`
}

// ListFilter narrows quotation listings. Role scoping (cliente sees own,
// vendedor sees assigned) is applied by the service, not the caller.
type ListFilter struct {
	Estado      *Estado
	ClienteID   *int64
	VendedorID  *int64
	SinVendedor bool
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PerPage     int
}
