package cart

import "time"

// Item is one cart line for a user. Nombre, codigo, precio and imagen are
// denormalized from the equipment record for display; precio is refreshed on
// every merge so the cart always shows the current list price.
type Item struct {
	UsuarioID int64     `json:"-"`
	EquipoID  int64     `json:"equipo_id"`
	Codigo    string    `json:"codigo"`
	Nombre    string    `json:"nombre"`
	Precio    float64   `json:"precio"`
	ImagenURL string    `json:"imagen_url"`
	Cantidad  int       `json:"cantidad"`
	Subtotal  float64   `json:"subtotal"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View is the cart with computed money totals.
type View struct {
	Items    []Item  `json:"items"`
	Subtotal float64 `json:"subtotal"`
	IGV      float64 `json:"igv"`
	Total    float64 `json:"total"`
}

// AddItemRequest is the payload for adding equipment to the cart.
type AddItemRequest struct {
	EquipoID int64 `json:"equipo_id" validate:"required,gt=0"`
	Cantidad int   `json:"cantidad" validate:"required,gte=1"`
}

// SetQuantityRequest is the payload for replacing a line quantity.
// Cantidad 0 removes the line.
type SetQuantityRequest struct {
	Cantidad int `json:"cantidad" validate:"gte=0"`
}
