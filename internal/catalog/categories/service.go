package categories

import (
	"context"
	"errors"
	"fmt"

	"github.com/decagraff/lc-service/internal/platform/httpx"
)

// Service handles category business rules.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, search string, page, perPage int) ([]Category, int, error) {
	return s.repo.List(ctx, search, page, perPage)
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Category{}, fmt.Errorf("%w: category %d", httpx.ErrNotFound, id)
	}
	return c, err
}

func (s *Service) Create(ctx context.Context, req CreateCategoryRequest) (Category, error) {
	return s.repo.Create(ctx, Category{Nombre: req.Nombre, Descripcion: req.Descripcion})
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateCategoryRequest) (Category, error) {
	err := s.repo.Update(ctx, id, Category{Nombre: req.Nombre, Descripcion: req.Descripcion})
	if errors.Is(err, ErrNotFound) {
		return Category{}, fmt.Errorf("%w: category %d", httpx.ErrNotFound, id)
	}
	if err != nil {
		return Category{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a category. A category referenced by equipment cannot be
// deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	count, err := s.repo.EquipmentCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: category %d has %d associated equipment records", httpx.ErrConflict, id, count)
	}
	err = s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: category %d", httpx.ErrNotFound, id)
	}
	return err
}
