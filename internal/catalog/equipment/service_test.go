package equipment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decagraff/lc-service/internal/platform/httpx"
)

type fakeRepo struct {
	nextID   int64
	equipos  map[int64]Equipment
	lineRefs map[int64]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, equipos: map[int64]Equipment{}, lineRefs: map[int64]int{}}
}

func (r *fakeRepo) List(_ context.Context, _ ListFilter) ([]Equipment, int, error) {
	var out []Equipment
	for _, e := range r.equipos {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (r *fakeRepo) Get(_ context.Context, id int64) (Equipment, error) {
	e, ok := r.equipos[id]
	if !ok {
		return Equipment{}, ErrNotFound
	}
	return e, nil
}

func (r *fakeRepo) GetByCodigo(_ context.Context, codigo string) (Equipment, error) {
	for _, e := range r.equipos {
		if e.Codigo == codigo {
			return e, nil
		}
	}
	return Equipment{}, ErrNotFound
}

func (r *fakeRepo) Create(_ context.Context, e Equipment) (Equipment, error) {
	for _, existing := range r.equipos {
		if existing.Codigo == e.Codigo {
			return Equipment{}, ErrDuplicateCodigo
		}
	}
	e.ID = r.nextID
	r.nextID++
	r.equipos[e.ID] = e
	return e, nil
}

func (r *fakeRepo) Update(_ context.Context, id int64, e Equipment) error {
	if _, ok := r.equipos[id]; !ok {
		return ErrNotFound
	}
	for otherID, existing := range r.equipos {
		if otherID != id && existing.Codigo == e.Codigo {
			return ErrDuplicateCodigo
		}
	}
	e.ID = id
	r.equipos[id] = e
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.equipos[id]; !ok {
		return ErrNotFound
	}
	delete(r.equipos, id)
	return nil
}

func (r *fakeRepo) Deactivate(_ context.Context, id int64) error {
	e, ok := r.equipos[id]
	if !ok {
		return ErrNotFound
	}
	e.Estado = EstadoInactivo
	r.equipos[id] = e
	return nil
}

func (r *fakeRepo) QuotationLineCount(_ context.Context, id int64) (int, error) {
	return r.lineRefs[id], nil
}

func TestCreateDefaultsToActivo(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	e, err := svc.Create(context.Background(), CreateEquipmentRequest{
		CategoriaID: 1, Codigo: "COC-IND-001", Nombre: "Cocina industrial", Precio: 1500, Stock: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, EstadoActivo, e.Estado)
	assert.NotZero(t, e.ID)
}

func TestCreateDuplicateCodigo(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateEquipmentRequest{CategoriaID: 1, Codigo: "COC-IND-001", Nombre: "Cocina"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateEquipmentRequest{CategoriaID: 1, Codigo: "COC-IND-001", Nombre: "Otra cocina"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestGetNotFound(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestUpdateNotFound(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Update(context.Background(), 42, UpdateEquipmentRequest{
		CategoriaID: 1, Codigo: "X", Nombre: "X", Estado: EstadoActivo,
	})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeleteWithoutReferencesRemovesRow(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	e, err := svc.Create(ctx, CreateEquipmentRequest{CategoriaID: 1, Codigo: "MES-ACE-002", Nombre: "Mesa"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, e.ID))
	_, ok := repo.equipos[e.ID]
	assert.False(t, ok)
}

func TestDeleteReferencedEquipmentDeactivates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	e, err := svc.Create(ctx, CreateEquipmentRequest{CategoriaID: 1, Codigo: "HOR-PIZ-003", Nombre: "Horno"})
	require.NoError(t, err)
	repo.lineRefs[e.ID] = 3

	require.NoError(t, svc.Delete(ctx, e.ID))

	kept, ok := repo.equipos[e.ID]
	require.True(t, ok, "referenced equipment must survive as a row")
	assert.Equal(t, EstadoInactivo, kept.Estado)
}

func TestDeleteNotFound(t *testing.T) {
	svc := NewService(newFakeRepo())

	err := svc.Delete(context.Background(), 42)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
