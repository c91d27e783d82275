package quotations

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decagraff/lc-service/internal/platform/httpx"
	"github.com/decagraff/lc-service/internal/pricing"
	"github.com/decagraff/lc-service/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockUser struct {
	rol  string
	snap ClientSnapshot
}

type mockRepository struct {
	quotations map[int64]*Quotation
	lines      map[int64][]LineItem
	carts      map[int64][]CartLine
	users      map[int64]mockUser
	stock      map[int64]int
	nextID     int64
	seq        map[int]int64

	txFailAfterCreate bool
	bumps             int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		quotations: make(map[int64]*Quotation),
		lines:      make(map[int64][]LineItem),
		carts:      make(map[int64][]CartLine),
		users:      make(map[int64]mockUser),
		stock:      make(map[int64]int),
		seq:        make(map[int]int64),
		nextID:     1,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	// Snapshot state so a failing fn rolls everything back, like the real
	// transaction does.
	backup := m.clone()
	if err := fn(ctx, m); err != nil {
		m.restore(backup)
		return err
	}
	return nil
}

func (m *mockRepository) clone() *mockRepository {
	c := newMockRepository()
	for id, q := range m.quotations {
		cp := *q
		c.quotations[id] = &cp
	}
	for id, ls := range m.lines {
		c.lines[id] = append([]LineItem(nil), ls...)
	}
	for id, ls := range m.carts {
		c.carts[id] = append([]CartLine(nil), ls...)
	}
	for id, s := range m.stock {
		c.stock[id] = s
	}
	for y, s := range m.seq {
		c.seq[y] = s
	}
	c.nextID = m.nextID
	return c
}

func (m *mockRepository) restore(backup *mockRepository) {
	m.quotations = backup.quotations
	m.lines = backup.lines
	m.carts = backup.carts
	m.stock = backup.stock
	m.seq = backup.seq
	m.nextID = backup.nextID
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, ok := m.quotations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	cp.Items = append([]LineItem(nil), m.lines[id]...)
	return &cp, nil
}

func (m *mockRepository) List(ctx context.Context, filter ListFilter) ([]Quotation, int, error) {
	var out []Quotation
	for _, q := range m.quotations {
		if filter.Estado != nil && q.Estado != *filter.Estado {
			continue
		}
		if filter.ClienteID != nil && q.ClienteID != *filter.ClienteID {
			continue
		}
		if filter.VendedorID != nil {
			if q.VendedorID == nil {
				if !filter.SinVendedor {
					continue
				}
			} else if *q.VendedorID != *filter.VendedorID {
				continue
			}
		}
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (m *mockRepository) Create(ctx context.Context, q Quotation) (int64, error) {
	id := m.nextID
	m.nextID++
	q.ID = id
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	m.quotations[id] = &q
	if m.txFailAfterCreate {
		return id, fmt.Errorf("simulated write failure")
	}
	return id, nil
}

func (m *mockRepository) InsertLine(ctx context.Context, line LineItem) error {
	line.ID = int64(len(m.lines[line.CotizacionID]) + 1)
	m.lines[line.CotizacionID] = append(m.lines[line.CotizacionID], line)
	return nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id int64, estado Estado, respondida bool) error {
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	q.Estado = estado
	if respondida {
		now := time.Now()
		q.FechaRespuesta = &now
	}
	return nil
}

func (m *mockRepository) AssignVendor(ctx context.Context, id, vendedorID int64) error {
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	q.VendedorID = &vendedorID
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.quotations[id]; !ok {
		return ErrNotFound
	}
	delete(m.quotations, id)
	delete(m.lines, id)
	return nil
}

func (m *mockRepository) GenerateNumber(ctx context.Context, year int) (string, error) {
	m.seq[year]++
	return fmt.Sprintf("COT-%d-%04d", year, m.seq[year]), nil
}

func (m *mockRepository) CartLines(ctx context.Context, usuarioID int64) ([]CartLine, error) {
	return append([]CartLine(nil), m.carts[usuarioID]...), nil
}

func (m *mockRepository) ClearCart(ctx context.Context, usuarioID int64) error {
	delete(m.carts, usuarioID)
	return nil
}

func (m *mockRepository) ClientSnapshot(ctx context.Context, clienteID int64) (ClientSnapshot, error) {
	u, ok := m.users[clienteID]
	if !ok {
		return ClientSnapshot{}, ErrNotFound
	}
	return u.snap, nil
}

func (m *mockRepository) UserRole(ctx context.Context, userID int64) (string, error) {
	u, ok := m.users[userID]
	if !ok {
		return "", ErrNotFound
	}
	return u.rol, nil
}

func (m *mockRepository) DecrementStock(ctx context.Context, equipoID int64, cantidad int) error {
	if m.stock[equipoID] < cantidad {
		return fmt.Errorf("%w: equipment %d", ErrInsufficientStock, equipoID)
	}
	m.stock[equipoID] -= cantidad
	return nil
}

func (m *mockRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for _, q := range m.quotations {
		if (q.Estado == EstadoBorrador || q.Estado == EstadoEnviada) &&
			q.FechaVencimiento != nil && q.FechaVencimiento.Before(now) {
			q.Estado = EstadoVencida
			n++
		}
	}
	return n, nil
}

type mockBumper struct{ calls int }

func (b *mockBumper) Bump(ctx context.Context) error {
	b.calls++
	return nil
}

// ============================================================================
// FIXTURES
// ============================================================================

var (
	clienteActor  = shared.Actor{UserID: 10, Role: shared.RoleCliente}
	vendedorActor = shared.Actor{UserID: 20, Role: shared.RoleVendedor}
	adminActor    = shared.Actor{UserID: 1, Role: shared.RoleAdmin}
)

func newTestService(repo *mockRepository) *Service {
	return NewService(repo, slog.Default(), &mockBumper{}, nil)
}

func seedUsers(m *mockRepository) {
	m.users[10] = mockUser{rol: "cliente", snap: ClientSnapshot{
		Nombre: "Rosa Quispe", Empresa: "Cevicheria El Puerto", Email: "rosa@puerto.pe", Telefono: "999111222",
	}}
	m.users[11] = mockUser{rol: "cliente", snap: ClientSnapshot{Nombre: "Luis Torres", Email: "luis@mail.pe"}}
	m.users[20] = mockUser{rol: "vendedor"}
	m.users[1] = mockUser{rol: "admin"}
}

func seedCart(m *mockRepository, usuarioID int64) {
	m.carts[usuarioID] = []CartLine{
		{EquipoID: 100, Codigo: "COC-001", Nombre: "Cocina industrial 4 hornillas", Precio: 100.00, Cantidad: 2},
		{EquipoID: 101, Codigo: "MES-002", Nombre: "Mesa de trabajo acero", Precio: 50.00, Cantidad: 1},
	}
	m.stock[100] = 5
	m.stock[101] = 3
}

// ============================================================================
// CREATE FROM CART
// ============================================================================

func TestCreateFromCartAsCliente(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	seedCart(repo, 10)
	svc := newTestService(repo)

	q, err := svc.CreateFromCart(context.Background(), clienteActor, CreateRequest{Notas: "entrega en obra"})
	require.NoError(t, err)

	assert.Equal(t, EstadoBorrador, q.Estado)
	assert.Equal(t, 250.00, q.Subtotal)
	assert.Equal(t, 45.00, q.IGV)
	assert.Equal(t, 295.00, q.Total)
	assert.Equal(t, int64(10), q.ClienteID)
	assert.Nil(t, q.VendedorID)
	assert.Equal(t, "Rosa Quispe", q.Cliente.Nombre)
	assert.Equal(t, "Cevicheria El Puerto", q.Cliente.Empresa)
	assert.Len(t, q.Items, 2)
	assert.Equal(t, fmt.Sprintf("COT-%d-0001", time.Now().Year()), q.Numero)

	// Cart cleared on success.
	assert.Empty(t, repo.carts[10])
}

func TestCreateFromCartSubtotalMatchesLines(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	seedCart(repo, 10)
	svc := newTestService(repo)

	q, err := svc.CreateFromCart(context.Background(), clienteActor, CreateRequest{})
	require.NoError(t, err)

	var sum float64
	for _, it := range q.Items {
		assert.Equal(t, pricing.LineSubtotal(it.Cantidad, it.PrecioUnitario), it.Subtotal)
		sum += it.Subtotal
	}
	assert.Equal(t, pricing.Round2(sum), q.Subtotal)
}

func TestCreateFromCartEmptyCartFails(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	svc := newTestService(repo)

	_, err := svc.CreateFromCart(context.Background(), clienteActor, CreateRequest{})
	require.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.quotations, "no quotation may be persisted")
}

func TestCreateFromCartVendedorRequiresClienteID(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	seedCart(repo, 20)
	svc := newTestService(repo)

	_, err := svc.CreateFromCart(context.Background(), vendedorActor, CreateRequest{})
	require.ErrorIs(t, err, httpx.ErrValidation)

	clienteID := int64(10)
	q, err := svc.CreateFromCart(context.Background(), vendedorActor, CreateRequest{ClienteID: &clienteID})
	require.NoError(t, err)
	assert.Equal(t, int64(10), q.ClienteID)
	require.NotNil(t, q.VendedorID)
	assert.Equal(t, int64(20), *q.VendedorID)
}

func TestCreateFromCartAdminAssignsVendor(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	seedCart(repo, 1)
	svc := newTestService(repo)

	clienteID, vendedorID := int64(11), int64(20)
	q, err := svc.CreateFromCart(context.Background(), adminActor, CreateRequest{
		ClienteID: &clienteID, VendedorID: &vendedorID,
	})
	require.NoError(t, err)
	require.NotNil(t, q.VendedorID)
	assert.Equal(t, vendedorID, *q.VendedorID)
}

func TestCreateFromCartRejectsNonClientTarget(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	seedCart(repo, 1)
	svc := newTestService(repo)

	vendedorAsCliente := int64(20)
	_, err := svc.CreateFromCart(context.Background(), adminActor, CreateRequest{ClienteID: &vendedorAsCliente})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateFromCartRollsBackOnPartialFailure(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	seedCart(repo, 10)
	repo.txFailAfterCreate = true
	svc := newTestService(repo)

	_, err := svc.CreateFromCart(context.Background(), clienteActor, CreateRequest{})
	require.Error(t, err)
	assert.Empty(t, repo.quotations, "header must not survive a failed transaction")
	assert.NotEmpty(t, repo.carts[10], "cart must not be cleared on failure")
}

// ============================================================================
// STATUS MACHINE
// ============================================================================

func createDraft(t *testing.T, svc *Service, repo *mockRepository) *Quotation {
	t.Helper()
	seedCart(repo, 10)
	q, err := svc.CreateFromCart(context.Background(), clienteActor, CreateRequest{})
	require.NoError(t, err)
	return q
}

func TestHappyPathBorradorEnviadaAprobada(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	svc := newTestService(repo)
	q := createDraft(t, svc, repo)

	q, err := svc.ChangeStatus(context.Background(), clienteActor, q.ID, EstadoEnviada)
	require.NoError(t, err)
	assert.Equal(t, EstadoEnviada, q.Estado)

	q, err = svc.ChangeStatus(context.Background(), vendedorActor, q.ID, EstadoAprobada)
	require.NoError(t, err)
	assert.Equal(t, EstadoAprobada, q.Estado)
	assert.NotNil(t, q.FechaRespuesta)
}

func TestClienteCannotApprove(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	svc := newTestService(repo)
	q := createDraft(t, svc, repo)

	_, err := svc.ChangeStatus(context.Background(), clienteActor, q.ID, EstadoEnviada)
	require.NoError(t, err)

	_, err = svc.ChangeStatus(context.Background(), clienteActor, q.ID, EstadoAprobada)
	require.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestInvalidTransitionsRejected(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	svc := newTestService(repo)
	q := createDraft(t, svc, repo)

	// borrador -> aprobada skips enviada.
	_, err := svc.ChangeStatus(context.Background(), adminActor, q.ID, EstadoAprobada)
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)

	_, err = svc.ChangeStatus(context.Background(), adminActor, q.ID, EstadoEnviada)
	require.NoError(t, err)
	_, err = svc.ChangeStatus(context.Background(), adminActor, q.ID, EstadoRechazada)
	require.NoError(t, err)

	// Terminal states admit nothing further.
	_, err = svc.ChangeStatus(context.Background(), adminActor, q.ID, EstadoAprobada)
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)
	_, err = svc.ChangeStatus(context.Background(), adminActor, q.ID, EstadoEnviada)
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)
}

func TestVencidaNotRequestable(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	svc := newTestService(repo)
	q := createDraft(t, svc, repo)

	_, err := svc.ChangeStatus(context.Background(), adminActor, q.ID, EstadoVencida)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestApprovalDecrementsStock(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	svc := newTestService(repo)
	q := createDraft(t, svc, repo)

	_, err := svc.ChangeStatus(context.Background(), clienteActor, q.ID, EstadoEnviada)
	require.NoError(t, err)
	_, err = svc.ChangeStatus(context.Background(), vendedorActor, q.ID, EstadoAprobada)
	require.NoError(t, err)

	assert.Equal(t, 3, repo.stock[100], "2 of 5 reserved")
	assert.Equal(t, 2, repo.stock[101], "1 of 3 reserved")
}

func TestApprovalFailsOnInsufficientStock(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	svc := newTestService(repo)
	q := createDraft(t, svc, repo)

	_, err := svc.ChangeStatus(context.Background(), clienteActor, q.ID, EstadoEnviada)
	require.NoError(t, err)

	repo.stock[101] = 0
	_, err = svc.ChangeStatus(context.Background(), vendedorActor, q.ID, EstadoAprobada)
	require.ErrorIs(t, err, httpx.ErrConflict)

	got, err := svc.Get(context.Background(), adminActor, q.ID)
	require.NoError(t, err)
	assert.Equal(t, EstadoEnviada, got.Estado, "status unchanged after rollback")
	assert.Equal(t, 5, repo.stock[100], "no partial stock decrement may survive")
}

// ============================================================================
// DELETE
// ============================================================================

func TestDeleteOnlyInBorrador(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	svc := newTestService(repo)
	q := createDraft(t, svc, repo)

	_, err := svc.ChangeStatus(context.Background(), clienteActor, q.ID, EstadoEnviada)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), clienteActor, q.ID)
	require.ErrorIs(t, err, httpx.ErrConflict)

	q2 := createDraft(t, svc, repo)
	require.NoError(t, svc.Delete(context.Background(), clienteActor, q2.ID))
	_, err = svc.Get(context.Background(), adminActor, q2.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

// ============================================================================
// ROLE SCOPING AND EXPIRY
// ============================================================================

func TestRoleScopedVisibility(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	svc := newTestService(repo)
	q := createDraft(t, svc, repo) // cliente 10, unassigned

	otherCliente := shared.Actor{UserID: 11, Role: shared.RoleCliente}
	_, err := svc.Get(context.Background(), otherCliente, q.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)

	// Unassigned quotations are visible to any vendor.
	_, err = svc.Get(context.Background(), vendedorActor, q.ID)
	require.NoError(t, err)

	_, err = svc.AssignVendor(context.Background(), adminActor, q.ID, 20)
	require.NoError(t, err)
	otherVendedor := shared.Actor{UserID: 21, Role: shared.RoleVendedor}
	repo.users[21] = mockUser{rol: "vendedor"}
	_, err = svc.Get(context.Background(), otherVendedor, q.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestLazyVencidaDerivation(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	svc := newTestService(repo)
	q := createDraft(t, svc, repo)

	past := time.Now().Add(-24 * time.Hour)
	repo.quotations[q.ID].FechaVencimiento = &past

	got, err := svc.Get(context.Background(), adminActor, q.ID)
	require.NoError(t, err)
	assert.Equal(t, EstadoVencida, got.Estado)

	// An expired quotation can no longer be sent.
	_, err = svc.ChangeStatus(context.Background(), clienteActor, q.ID, EstadoEnviada)
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)
}

func TestExpireDueSweep(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	svc := newTestService(repo)
	q := createDraft(t, svc, repo)

	past := time.Now().Add(-time.Hour)
	repo.quotations[q.ID].FechaVencimiento = &past

	n, err := svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, EstadoVencida, repo.quotations[q.ID].Estado)
}

func TestListScoping(t *testing.T) {
	repo := newMockRepository()
	seedUsers(repo)
	svc := newTestService(repo)
	createDraft(t, svc, repo)

	seedCart(repo, 20)
	clienteID := int64(11)
	_, err := svc.CreateFromCart(context.Background(), vendedorActor, CreateRequest{ClienteID: &clienteID})
	require.NoError(t, err)

	list, total, err := svc.List(context.Background(), clienteActor, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, int64(10), list[0].ClienteID)

	_, total, err = svc.List(context.Background(), adminActor, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
