package equipment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the equipment id does not resolve.
	ErrNotFound = errors.New("equipment not found")
	// ErrDuplicateCodigo indicates a SKU collision.
	ErrDuplicateCodigo = errors.New("codigo already exists")
)

// Repository provides PostgreSQL backed persistence for equipment.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Equipment, int, error)
	Get(ctx context.Context, id int64) (Equipment, error)
	GetByCodigo(ctx context.Context, codigo string) (Equipment, error)
	Create(ctx context.Context, e Equipment) (Equipment, error)
	Update(ctx context.Context, id int64, e Equipment) error
	Delete(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
	QuotationLineCount(ctx context.Context, id int64) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectCols = `id, categoria_id, codigo, nombre, descripcion, material,
	dimensiones, precio, stock, imagen_url, estado, created_at, updated_at`

func scanEquipment(row pgx.Row) (Equipment, error) {
	var e Equipment
	err := row.Scan(&e.ID, &e.CategoriaID, &e.Codigo, &e.Nombre, &e.Descripcion,
		&e.Material, &e.Dimensiones, &e.Precio, &e.Stock, &e.ImagenURL,
		&e.Estado, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Equipment, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argPos := 0

	if filter.Search != "" {
		argPos++
		where += fmt.Sprintf(" AND (nombre ILIKE $%d OR codigo ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.CategoriaID != nil {
		argPos++
		where += fmt.Sprintf(" AND categoria_id = $%d", argPos)
		args = append(args, *filter.CategoriaID)
	}
	if filter.Estado != nil {
		argPos++
		where += fmt.Sprintf(" AND estado = $%d", argPos)
		args = append(args, *filter.Estado)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM equipos"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + selectCols + " FROM equipos" + where + " ORDER BY nombre"
	if filter.PerPage > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos+1, argPos+2)
		args = append(args, filter.PerPage, (page-1)*filter.PerPage)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, e)
	}
	return list, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Equipment, error) {
	e, err := scanEquipment(r.pool.QueryRow(ctx, "SELECT "+selectCols+" FROM equipos WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Equipment{}, ErrNotFound
	}
	return e, err
}

func (r *repository) GetByCodigo(ctx context.Context, codigo string) (Equipment, error) {
	e, err := scanEquipment(r.pool.QueryRow(ctx, "SELECT "+selectCols+" FROM equipos WHERE codigo = $1", codigo))
	if errors.Is(err, pgx.ErrNoRows) {
		return Equipment{}, ErrNotFound
	}
	return e, err
}

func (r *repository) Create(ctx context.Context, e Equipment) (Equipment, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO equipos (categoria_id, codigo, nombre, descripcion, material,
			dimensiones, precio, stock, imagen_url, estado, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, e.CategoriaID, e.Codigo, e.Nombre, e.Descripcion, e.Material,
		e.Dimensiones, e.Precio, e.Stock, e.ImagenURL, e.Estado,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if isUniqueViolation(err) {
		return Equipment{}, ErrDuplicateCodigo
	}
	return e, err
}

func (r *repository) Update(ctx context.Context, id int64, e Equipment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE equipos SET categoria_id = $1, codigo = $2, nombre = $3,
			descripcion = $4, material = $5, dimensiones = $6, precio = $7,
			stock = $8, imagen_url = $9, estado = $10, updated_at = NOW()
		WHERE id = $11
	`, e.CategoriaID, e.Codigo, e.Nombre, e.Descripcion, e.Material,
		e.Dimensiones, e.Precio, e.Stock, e.ImagenURL, e.Estado, id)
	if isUniqueViolation(err) {
		return ErrDuplicateCodigo
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM equipos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE equipos SET estado = $1, updated_at = NOW() WHERE id = $2`, EstadoInactivo, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) QuotationLineCount(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cotizacion_items WHERE equipo_id = $1`, id).Scan(&n)
	return n, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
