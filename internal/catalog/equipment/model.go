package equipment

import "time"

// Estado values for an equipment record.
const (
	EstadoActivo   = "activo"
	EstadoInactivo = "inactivo"
)

// Equipment is a sellable kitchen equipment record.
type Equipment struct {
	ID          int64     `json:"id"`
	CategoriaID int64     `json:"categoria_id"`
	Codigo      string    `json:"codigo"`
	Nombre      string    `json:"nombre"`
	Descripcion string    `json:"descripcion"`
	Material    string    `json:"material"`
	Dimensiones string    `json:"dimensiones"`
	Precio      float64   `json:"precio"`
	Stock       int       `json:"stock"`
	ImagenURL   string    `json:"imagen_url"`
	Estado      string    `json:"estado"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateEquipmentRequest is the payload for creating equipment.
type CreateEquipmentRequest struct {
	CategoriaID int64   `json:"categoria_id" validate:"required,gt=0"`
	Codigo      string  `json:"codigo" validate:"required,max=50"`
	Nombre      string  `json:"nombre" validate:"required,max=150"`
	Descripcion string  `json:"descripcion" validate:"max=1000"`
	Material    string  `json:"material" validate:"max=100"`
	Dimensiones string  `json:"dimensiones" validate:"max=100"`
	Precio      float64 `json:"precio" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	ImagenURL   string  `json:"imagen_url" validate:"omitempty,url"`
}

// UpdateEquipmentRequest is the payload for updating equipment.
type UpdateEquipmentRequest struct {
	CategoriaID int64   `json:"categoria_id" validate:"required,gt=0"`
	Codigo      string  `json:"codigo" validate:"required,max=50"`
	Nombre      string  `json:"nombre" validate:"required,max=150"`
	Descripcion string  `json:"descripcion" validate:"max=1000"`
	Material    string  `json:"material" validate:"max=100"`
	Dimensiones string  `json:"dimensiones" validate:"max=100"`
	Precio      float64 `json:"precio" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	ImagenURL   string  `json:"imagen_url" validate:"omitempty,url"`
	Estado      string  `json:"estado" validate:"required,oneof=activo inactivo"`
}

// ListFilter narrows equipment listings.
type ListFilter struct {
	Search      string
	CategoriaID *int64
	Estado      *string
	Page        int
	PerPage     int
}
