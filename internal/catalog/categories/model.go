package categories

import "time"

// Category groups equipment records for browsing and reporting.
type Category struct {
	ID          int64     `json:"id"`
	Nombre      string    `json:"nombre"`
	Descripcion string    `json:"descripcion"`
	EquipoCount int       `json:"equipo_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCategoryRequest is the payload for creating a category.
type CreateCategoryRequest struct {
	Nombre      string `json:"nombre" validate:"required,max=100"`
	Descripcion string `json:"descripcion" validate:"max=500"`
}

// UpdateCategoryRequest is the payload for updating a category.
type UpdateCategoryRequest struct {
	Nombre      string `json:"nombre" validate:"required,max=100"`
	Descripcion string `json:"descripcion" validate:"max=500"`
}
