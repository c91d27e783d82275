package categories

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the category id does not resolve.
var ErrNotFound = errors.New("category not found")

// Repository provides PostgreSQL backed persistence for categories.
type Repository interface {
	List(ctx context.Context, search string, page, perPage int) ([]Category, int, error)
	Get(ctx context.Context, id int64) (Category, error)
	Create(ctx context.Context, c Category) (Category, error)
	Update(ctx context.Context, id int64, c Category) error
	Delete(ctx context.Context, id int64) error
	EquipmentCount(ctx context.Context, id int64) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const listSelect = `
	SELECT c.id, c.nombre, c.descripcion,
	       (SELECT COUNT(*) FROM equipos e WHERE e.categoria_id = c.id) AS equipo_count,
	       c.created_at, c.updated_at
	FROM categorias c`

func (r *repository) List(ctx context.Context, search string, page, perPage int) ([]Category, int, error) {
	query := listSelect
	countQuery := `SELECT COUNT(*) FROM categorias c`
	args := []interface{}{}
	argPos := 0

	if search != "" {
		argPos++
		clause := ` WHERE c.nombre ILIKE $` + strconv.Itoa(argPos)
		query += clause
		countQuery += clause
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY c.nombre`
	if perPage > 0 {
		if page <= 0 {
			page = 1
		}
		query += ` LIMIT $` + strconv.Itoa(argPos+1) + ` OFFSET $` + strconv.Itoa(argPos+2)
		args = append(args, perPage, (page-1)*perPage)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Nombre, &c.Descripcion, &c.EquipoCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		cats = append(cats, c)
	}
	return cats, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, listSelect+` WHERE c.id = $1`, id).
		Scan(&c.ID, &c.Nombre, &c.Descripcion, &c.EquipoCount, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, c Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO categorias (nombre, descripcion, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, c.Nombre, c.Descripcion).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) Update(ctx context.Context, id int64, c Category) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE categorias SET nombre = $1, descripcion = $2, updated_at = NOW()
		WHERE id = $3
	`, c.Nombre, c.Descripcion, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categorias WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) EquipmentCount(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM equipos WHERE categoria_id = $1`, id).Scan(&n)
	return n, err
}
