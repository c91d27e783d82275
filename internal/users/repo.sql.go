package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/decagraff/lc-service/internal/platform/httpx"
)

const userColumns = `id, nombre, apellido, email, password_hash, rol,
	COALESCE(telefono, ''), COALESCE(direccion, ''), COALESCE(empresa, ''),
	activo, created_at, updated_at`

// Repository provides PostgreSQL backed persistence over usuarios.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Nombre, &u.Apellido, &u.Email, &u.PasswordHash, &u.Rol,
		&u.Telefono, &u.Direccion, &u.Empresa, &u.Activo, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// List returns users matching the filter plus the unpaginated total.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]User, int, error) {
	conds := []string{"TRUE"}
	var args []any
	if f.Rol != "" {
		args = append(args, f.Rol)
		conds = append(conds, fmt.Sprintf("rol = $%d", len(args)))
	}
	if f.Activo != nil {
		args = append(args, *f.Activo)
		conds = append(conds, fmt.Sprintf("activo = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf(
			"(nombre ILIKE $%d OR apellido ILIKE $%d OR email ILIKE $%d OR empresa ILIKE $%d)",
			len(args), len(args), len(args), len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM usuarios WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if f.Page > 1 {
		offset = (f.Page - 1) * limit
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM usuarios WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// Get fetches one user by id.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	query := fmt.Sprintf(`SELECT %s FROM usuarios WHERE id = $1`, userColumns)
	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, httpx.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Create inserts a new user and returns it.
func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	const query = `
		INSERT INTO usuarios (nombre, apellido, email, password_hash, rol, telefono, direccion, empresa, activo)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		u.Nombre, u.Apellido, u.Email, u.PasswordHash, u.Rol,
		u.Telefono, u.Direccion, u.Empresa, u.Activo,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("%w: email %s", httpx.ErrDuplicate, u.Email)
		}
		return User{}, err
	}
	return u, nil
}

// Update rewrites the editable columns. Password is changed separately.
func (r *Repository) Update(ctx context.Context, u User) (User, error) {
	const query = `
		UPDATE usuarios
		SET nombre = $2, apellido = $3, email = $4, rol = $5,
		    telefono = NULLIF($6, ''), direccion = NULLIF($7, ''), empresa = NULLIF($8, ''),
		    activo = $9, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		u.ID, u.Nombre, u.Apellido, u.Email, u.Rol,
		u.Telefono, u.Direccion, u.Empresa, u.Activo,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, httpx.ErrNotFound
		}
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("%w: email %s", httpx.ErrDuplicate, u.Email)
		}
		return User{}, err
	}
	return u, nil
}

// SetPassword stores a new bcrypt hash.
func (r *Repository) SetPassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE usuarios SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// SetActive flips the activo flag. Accounts are never hard deleted.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE usuarios SET activo = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}
