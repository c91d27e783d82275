package users

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/decagraff/lc-service/internal/platform/httpx"
	"github.com/decagraff/lc-service/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, f ListFilter) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) (User, error)
	SetPassword(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service handles user management logic. All operations are admin only; the
// handler enforces that, the service enforces the data rules.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns users matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]User, int, error) {
	return s.repo.List(ctx, f)
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers an account with a freshly hashed password.
func (s *Service) Create(ctx context.Context, u User, password string) (User, error) {
	if _, err := shared.ParseRole(u.Rol); err != nil {
		return User{}, fmt.Errorf("%w: rol %q", httpx.ErrValidation, u.Rol)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = string(hash)
	u.Activo = true
	return s.repo.Create(ctx, u)
}

// Update rewrites profile fields. An admin may not demote or deactivate
// themselves; lockouts happen by someone else's hand.
func (s *Service) Update(ctx context.Context, actor shared.Actor, u User) (User, error) {
	if _, err := shared.ParseRole(u.Rol); err != nil {
		return User{}, fmt.Errorf("%w: rol %q", httpx.ErrValidation, u.Rol)
	}
	if u.ID == actor.UserID {
		if u.Rol != string(shared.RoleAdmin) {
			return User{}, fmt.Errorf("%w: cannot change own role", httpx.ErrConflict)
		}
		if !u.Activo {
			return User{}, fmt.Errorf("%w: cannot deactivate own account", httpx.ErrConflict)
		}
	}
	return s.repo.Update(ctx, u)
}

// ChangePassword rehashes and stores the new password.
func (s *Service) ChangePassword(ctx context.Context, id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, id, string(hash))
}

// Deactivate disables an account. There is no hard delete: quotations keep
// their usuario references forever.
func (s *Service) Deactivate(ctx context.Context, actor shared.Actor, id int64) error {
	if id == actor.UserID {
		return fmt.Errorf("%w: cannot deactivate own account", httpx.ErrConflict)
	}
	return s.repo.SetActive(ctx, id, false)
}

// Activate re-enables an account.
func (s *Service) Activate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, true)
}
