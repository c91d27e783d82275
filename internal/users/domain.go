package users

import "time"

// User is an account row in usuarios. PasswordHash never leaves the package.
type User struct {
	ID           int64      `json:"id"`
	Nombre       string     `json:"nombre"`
	Apellido     string     `json:"apellido"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Rol          string     `json:"rol"`
	Telefono     string     `json:"telefono,omitempty"`
	Direccion    string     `json:"direccion,omitempty"`
	Empresa      string     `json:"empresa,omitempty"`
	Activo       bool       `json:"activo"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ListFilter narrows the user listing.
type ListFilter struct {
	Rol     string
	Activo  *bool
	Search  string
	Page    int
	PerPage int
}
