package auth

import "time"

// User represents an authenticated account as stored in usuarios.
type User struct {
	ID           int64
	Nombre       string
	Apellido     string
	Email        string
	PasswordHash string
	Rol          string
	Activo       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
