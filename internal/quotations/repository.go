package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/decagraff/lc-service/internal/platform/db"
)

var (
	// ErrNotFound indicates the quotation id does not resolve.
	ErrNotFound = errors.New("quotation not found")
	// ErrInsufficientStock indicates the stock guard failed on approval.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// CartLine is the slice of a cart row the snapshot needs.
type CartLine struct {
	EquipoID int64
	Codigo   string
	Nombre   string
	Precio   float64
	Cantidad int
}

// Repository provides PostgreSQL backed persistence for quotations.
// WithTx yields a transaction-scoped Repository so create-from-cart and
// approval run all-or-nothing.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	List(ctx context.Context, filter ListFilter) ([]Quotation, int, error)
	Create(ctx context.Context, q Quotation) (int64, error)
	InsertLine(ctx context.Context, line LineItem) error
	UpdateStatus(ctx context.Context, id int64, estado Estado, respondida bool) error
	AssignVendor(ctx context.Context, id, vendedorID int64) error
	Delete(ctx context.Context, id int64) error
	GenerateNumber(ctx context.Context, year int) (string, error)
	CartLines(ctx context.Context, usuarioID int64) ([]CartLine, error)
	ClearCart(ctx context.Context, usuarioID int64) error
	ClientSnapshot(ctx context.Context, clienteID int64) (ClientSnapshot, error)
	UserRole(ctx context.Context, userID int64) (string, error)
	DecrementStock(ctx context.Context, equipoID int64, cantidad int) error
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const headerCols = `id, numero, cliente_id, vendedor_id, cliente_nombre, cliente_empresa,
	cliente_email, cliente_telefono, subtotal, igv, total, estado, notas,
	fecha_vencimiento, fecha_respuesta, created_at, updated_at`

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	var notas *string
	err := row.Scan(&q.ID, &q.Numero, &q.ClienteID, &q.VendedorID,
		&q.Cliente.Nombre, &q.Cliente.Empresa, &q.Cliente.Email, &q.Cliente.Telefono,
		&q.Subtotal, &q.IGV, &q.Total, &q.Estado, &notas,
		&q.FechaVencimiento, &q.FechaRespuesta, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if notas != nil {
		q.Notas = *notas
	}
	return &q, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := scanQuotation(r.db.QueryRow(ctx,
		`SELECT `+headerCols+` FROM cotizaciones WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, cotizacion_id, equipo_id, codigo, nombre, cantidad, precio_unitario, subtotal
		FROM cotizacion_items WHERE cotizacion_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.CotizacionID, &it.EquipoID, &it.Codigo,
			&it.Nombre, &it.Cantidad, &it.PrecioUnitario, &it.Subtotal); err != nil {
			return nil, err
		}
		q.Items = append(q.Items, it)
	}
	return q, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Quotation, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argPos := 0

	if filter.Estado != nil {
		argPos++
		where += fmt.Sprintf(" AND estado = $%d", argPos)
		args = append(args, *filter.Estado)
	}
	if filter.ClienteID != nil {
		argPos++
		where += fmt.Sprintf(" AND cliente_id = $%d", argPos)
		args = append(args, *filter.ClienteID)
	}
	if filter.VendedorID != nil {
		argPos++
		if filter.SinVendedor {
			where += fmt.Sprintf(" AND (vendedor_id = $%d OR vendedor_id IS NULL)", argPos)
		} else {
			where += fmt.Sprintf(" AND vendedor_id = $%d", argPos)
		}
		args = append(args, *filter.VendedorID)
	}
	if filter.DateFrom != nil {
		argPos++
		where += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		argPos++
		where += fmt.Sprintf(" AND created_at <= $%d", argPos)
		args = append(args, *filter.DateTo)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM cotizaciones"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + headerCols + " FROM cotizaciones" + where + " ORDER BY created_at DESC, id DESC"
	if filter.PerPage > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos+1, argPos+2)
		args = append(args, filter.PerPage, (page-1)*filter.PerPage)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *q)
	}
	return list, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO cotizaciones (numero, cliente_id, vendedor_id, cliente_nombre,
			cliente_empresa, cliente_email, cliente_telefono, subtotal, igv, total,
			estado, notas, fecha_vencimiento, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING id
	`, q.Numero, q.ClienteID, q.VendedorID, q.Cliente.Nombre, q.Cliente.Empresa,
		q.Cliente.Email, q.Cliente.Telefono, q.Subtotal, q.IGV, q.Total,
		q.Estado, q.Notas, q.FechaVencimiento).Scan(&id)
	return id, err
}

func (r *repository) InsertLine(ctx context.Context, line LineItem) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO cotizacion_items (cotizacion_id, equipo_id, codigo, nombre,
			cantidad, precio_unitario, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, line.CotizacionID, line.EquipoID, line.Codigo, line.Nombre,
		line.Cantidad, line.PrecioUnitario, line.Subtotal)
	return err
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, estado Estado, respondida bool) error {
	query := `UPDATE cotizaciones SET estado = $1, updated_at = NOW()`
	if respondida {
		query += `, fecha_respuesta = NOW()`
	}
	query += ` WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, estado, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) AssignVendor(ctx context.Context, id, vendedorID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE cotizaciones SET vendedor_id = $1, updated_at = NOW() WHERE id = $2`, vendedorID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cotizacion_items WHERE cotizacion_id = $1`, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM cotizaciones WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateNumber allocates the next COT-<year>-<seq> number from a per-year
// upsert sequence.
func (r *repository) GenerateNumber(ctx context.Context, year int) (string, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO cotizacion_secuencias (anio, seq)
		VALUES ($1, 1)
		ON CONFLICT (anio)
		DO UPDATE SET seq = cotizacion_secuencias.seq + 1
		RETURNING seq
	`, year).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("COT-%d-%04d", year, seq), nil
}

func (r *repository) CartLines(ctx context.Context, usuarioID int64) ([]CartLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT equipo_id, codigo, nombre, precio, cantidad
		FROM carrito_items WHERE usuario_id = $1
		ORDER BY created_at, equipo_id
	`, usuarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.EquipoID, &l.Codigo, &l.Nombre, &l.Precio, &l.Cantidad); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) ClearCart(ctx context.Context, usuarioID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM carrito_items WHERE usuario_id = $1`, usuarioID)
	return err
}

func (r *repository) ClientSnapshot(ctx context.Context, clienteID int64) (ClientSnapshot, error) {
	var snap ClientSnapshot
	err := r.db.QueryRow(ctx, `
		SELECT nombre || ' ' || apellido, COALESCE(empresa, ''),
		       email, COALESCE(telefono, '')
		FROM usuarios WHERE id = $1
	`, clienteID).Scan(&snap.Nombre, &snap.Empresa, &snap.Email, &snap.Telefono)
	if errors.Is(err, pgx.ErrNoRows) {
		return ClientSnapshot{}, ErrNotFound
	}
	return snap, err
}

func (r *repository) UserRole(ctx context.Context, userID int64) (string, error) {
	var rol string
	err := r.db.QueryRow(ctx, `SELECT rol FROM usuarios WHERE id = $1`, userID).Scan(&rol)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return rol, err
}

// DecrementStock reserves stock for an approved line. The WHERE guard makes
// oversell impossible under concurrent approvals.
func (r *repository) DecrementStock(ctx context.Context, equipoID int64, cantidad int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE equipos SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
	`, cantidad, equipoID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: equipment %d", ErrInsufficientStock, equipoID)
	}
	return nil
}

// ExpireDue persists vencida for live quotations whose expiration date has
// passed. Returns the number of rows transitioned.
func (r *repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE cotizaciones
		SET estado = $1, updated_at = NOW()
		WHERE estado IN ($2, $3) AND fecha_vencimiento IS NOT NULL AND fecha_vencimiento < $4
	`, EstadoVencida, EstadoBorrador, EstadoEnviada, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
