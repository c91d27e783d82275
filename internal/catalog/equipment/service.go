package equipment

import (
	"context"
	"errors"
	"fmt"

	"github.com/decagraff/lc-service/internal/platform/httpx"
)

// Service handles equipment business rules.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Equipment, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Equipment, error) {
	e, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Equipment{}, fmt.Errorf("%w: equipment %d", httpx.ErrNotFound, id)
	}
	return e, err
}

func (s *Service) Create(ctx context.Context, req CreateEquipmentRequest) (Equipment, error) {
	e, err := s.repo.Create(ctx, Equipment{
		CategoriaID: req.CategoriaID,
		Codigo:      req.Codigo,
		Nombre:      req.Nombre,
		Descripcion: req.Descripcion,
		Material:    req.Material,
		Dimensiones: req.Dimensiones,
		Precio:      req.Precio,
		Stock:       req.Stock,
		ImagenURL:   req.ImagenURL,
		Estado:      EstadoActivo,
	})
	if errors.Is(err, ErrDuplicateCodigo) {
		return Equipment{}, fmt.Errorf("%w: codigo %q", httpx.ErrDuplicate, req.Codigo)
	}
	return e, err
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateEquipmentRequest) (Equipment, error) {
	err := s.repo.Update(ctx, id, Equipment{
		CategoriaID: req.CategoriaID,
		Codigo:      req.Codigo,
		Nombre:      req.Nombre,
		Descripcion: req.Descripcion,
		Material:    req.Material,
		Dimensiones: req.Dimensiones,
		Precio:      req.Precio,
		Stock:       req.Stock,
		ImagenURL:   req.ImagenURL,
		Estado:      req.Estado,
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return Equipment{}, fmt.Errorf("%w: equipment %d", httpx.ErrNotFound, id)
	case errors.Is(err, ErrDuplicateCodigo):
		return Equipment{}, fmt.Errorf("%w: codigo %q", httpx.ErrDuplicate, req.Codigo)
	case err != nil:
		return Equipment{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes an equipment record. Equipment referenced by historical
// quotation lines is deactivated instead, so old quotations stay valid.
func (s *Service) Delete(ctx context.Context, id int64) error {
	refs, err := s.repo.QuotationLineCount(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		err = s.repo.Deactivate(ctx, id)
	} else {
		err = s.repo.Delete(ctx, id)
	}
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: equipment %d", httpx.ErrNotFound, id)
	}
	return err
}
