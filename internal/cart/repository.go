package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the cart line does not exist.
var ErrNotFound = errors.New("cart item not found")

// Repository provides PostgreSQL backed persistence for cart lines.
// Cart rows live in Postgres, not Redis, so quotation creation can clear
// them inside the same transaction that writes the quotation.
type Repository interface {
	List(ctx context.Context, usuarioID int64) ([]Item, error)
	Get(ctx context.Context, usuarioID, equipoID int64) (Item, error)
	Upsert(ctx context.Context, item Item) error
	SetQuantity(ctx context.Context, usuarioID, equipoID int64, cantidad int) error
	Remove(ctx context.Context, usuarioID, equipoID int64) error
	Clear(ctx context.Context, usuarioID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, usuarioID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT usuario_id, equipo_id, codigo, nombre, precio, imagen_url, cantidad, updated_at
		FROM carrito_items
		WHERE usuario_id = $1
		ORDER BY created_at, equipo_id
	`, usuarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.UsuarioID, &it.EquipoID, &it.Codigo, &it.Nombre,
			&it.Precio, &it.ImagenURL, &it.Cantidad, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) Get(ctx context.Context, usuarioID, equipoID int64) (Item, error) {
	var it Item
	err := r.pool.QueryRow(ctx, `
		SELECT usuario_id, equipo_id, codigo, nombre, precio, imagen_url, cantidad, updated_at
		FROM carrito_items
		WHERE usuario_id = $1 AND equipo_id = $2
	`, usuarioID, equipoID).Scan(&it.UsuarioID, &it.EquipoID, &it.Codigo, &it.Nombre,
		&it.Precio, &it.ImagenURL, &it.Cantidad, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return it, err
}

func (r *repository) Upsert(ctx context.Context, item Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO carrito_items (usuario_id, equipo_id, codigo, nombre, precio, imagen_url, cantidad, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (usuario_id, equipo_id)
		DO UPDATE SET cantidad = $7, precio = $5, nombre = $4, imagen_url = $6, updated_at = NOW()
	`, item.UsuarioID, item.EquipoID, item.Codigo, item.Nombre, item.Precio, item.ImagenURL, item.Cantidad)
	return err
}

func (r *repository) SetQuantity(ctx context.Context, usuarioID, equipoID int64, cantidad int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE carrito_items SET cantidad = $1, updated_at = NOW()
		WHERE usuario_id = $2 AND equipo_id = $3
	`, cantidad, usuarioID, equipoID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Remove(ctx context.Context, usuarioID, equipoID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM carrito_items WHERE usuario_id = $1 AND equipo_id = $2`, usuarioID, equipoID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Clear(ctx context.Context, usuarioID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM carrito_items WHERE usuario_id = $1`, usuarioID)
	return err
}
