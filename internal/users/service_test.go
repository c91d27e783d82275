package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/decagraff/lc-service/internal/platform/httpx"
	"github.com/decagraff/lc-service/internal/shared"
)

type fakeRepo struct {
	users  map[int64]User
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[int64]User), nextID: 1}
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	var out []User
	for _, u := range f.users {
		if filter.Rol != "" && u.Rol != filter.Rol {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, httpx.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) Create(ctx context.Context, u User) (User, error) {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return User{}, httpx.ErrDuplicate
		}
	}
	u.ID = f.nextID
	f.nextID++
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeRepo) Update(ctx context.Context, u User) (User, error) {
	stored, ok := f.users[u.ID]
	if !ok {
		return User{}, httpx.ErrNotFound
	}
	u.PasswordHash = stored.PasswordHash
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeRepo) SetPassword(ctx context.Context, id int64, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeRepo) SetActive(ctx context.Context, id int64, active bool) error {
	u, ok := f.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	u.Activo = active
	f.users[id] = u
	return nil
}

var admin = shared.Actor{UserID: 1, Role: shared.RoleAdmin}

func TestCreateHashesPassword(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	u, err := svc.Create(context.Background(), User{
		Nombre: "Carlos", Apellido: "Vega", Email: "carlos@lc.pe", Rol: "vendedor",
	}, "secreta123")
	require.NoError(t, err)

	assert.True(t, u.Activo)
	assert.NotEqual(t, "secreta123", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secreta123")))
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), User{
		Nombre: "X", Apellido: "Y", Email: "x@lc.pe", Rol: "gerente",
	}, "secreta123")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateDuplicateEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), User{Nombre: "A", Apellido: "B", Email: "dup@lc.pe", Rol: "cliente"}, "secreta123")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), User{Nombre: "C", Apellido: "D", Email: "dup@lc.pe", Rol: "cliente"}, "secreta123")
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestAdminCannotDemoteSelf(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	repo.users[1] = User{ID: 1, Nombre: "Root", Apellido: "Admin", Email: "root@lc.pe", Rol: "admin", Activo: true}

	_, err := svc.Update(context.Background(), admin, User{
		ID: 1, Nombre: "Root", Apellido: "Admin", Email: "root@lc.pe", Rol: "vendedor", Activo: true,
	})
	require.ErrorIs(t, err, httpx.ErrConflict)

	_, err = svc.Update(context.Background(), admin, User{
		ID: 1, Nombre: "Root", Apellido: "Admin", Email: "root@lc.pe", Rol: "admin", Activo: false,
	})
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestDeactivateSelfRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	repo.users[1] = User{ID: 1, Rol: "admin", Activo: true}
	repo.users[2] = User{ID: 2, Rol: "cliente", Activo: true}

	require.ErrorIs(t, svc.Deactivate(context.Background(), admin, 1), httpx.ErrConflict)

	require.NoError(t, svc.Deactivate(context.Background(), admin, 2))
	assert.False(t, repo.users[2].Activo)

	require.NoError(t, svc.Activate(context.Background(), 2))
	assert.True(t, repo.users[2].Activo)
}

func TestChangePasswordStoresNewHash(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	repo.users[2] = User{ID: 2, Rol: "cliente", PasswordHash: "old"}

	require.NoError(t, svc.ChangePassword(context.Background(), 2, "nueva456"))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[2].PasswordHash), []byte("nueva456")))
}
