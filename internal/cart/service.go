package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/decagraff/lc-service/internal/catalog/equipment"
	"github.com/decagraff/lc-service/internal/platform/httpx"
	"github.com/decagraff/lc-service/internal/pricing"
)

// EquipmentReader is the slice of the catalog the cart needs.
type EquipmentReader interface {
	Get(ctx context.Context, id int64) (equipment.Equipment, error)
}

// Service handles cart business rules. Carts are scoped per authenticated
// user; no operation here touches another user's lines.
type Service struct {
	repo   Repository
	equipo EquipmentReader
}

// NewService builds a Service instance.
func NewService(repo Repository, equipo EquipmentReader) *Service {
	return &Service{repo: repo, equipo: equipo}
}

// Get returns the cart with computed subtotal, IGV and total.
func (s *Service) Get(ctx context.Context, usuarioID int64) (View, error) {
	items, err := s.repo.List(ctx, usuarioID)
	if err != nil {
		return View{}, err
	}
	lines := make([]pricing.Line, 0, len(items))
	for i := range items {
		items[i].Subtotal = pricing.LineSubtotal(items[i].Cantidad, items[i].Precio)
		lines = append(lines, pricing.Line{Cantidad: items[i].Cantidad, PrecioUnitario: items[i].Precio})
	}
	view := View{Items: items}
	view.Subtotal, view.IGV, view.Total = pricing.Totals(lines)
	if view.Items == nil {
		view.Items = []Item{}
	}
	return view, nil
}

// AddItem merges the requested quantity into an existing line or creates a
// new one. Quantities beyond current stock are rejected, not clamped.
func (s *Service) AddItem(ctx context.Context, usuarioID int64, req AddItemRequest) (View, error) {
	if req.Cantidad < 1 {
		return View{}, fmt.Errorf("%w: cantidad must be at least 1", httpx.ErrValidation)
	}

	eq, err := s.equipo.Get(ctx, req.EquipoID)
	if err != nil {
		if errors.Is(err, equipment.ErrNotFound) {
			return View{}, fmt.Errorf("%w: equipment %d", httpx.ErrNotFound, req.EquipoID)
		}
		return View{}, err
	}
	if eq.Estado != equipment.EstadoActivo {
		return View{}, fmt.Errorf("%w: equipment %q is not available", httpx.ErrValidation, eq.Codigo)
	}

	cantidad := req.Cantidad
	existing, err := s.repo.Get(ctx, usuarioID, req.EquipoID)
	if err == nil {
		cantidad += existing.Cantidad
	} else if !errors.Is(err, ErrNotFound) {
		return View{}, err
	}

	if cantidad > eq.Stock {
		return View{}, fmt.Errorf("%w: requested %d of %q but only %d in stock",
			httpx.ErrValidation, cantidad, eq.Codigo, eq.Stock)
	}

	item := Item{
		UsuarioID: usuarioID,
		EquipoID:  eq.ID,
		Codigo:    eq.Codigo,
		Nombre:    eq.Nombre,
		Precio:    eq.Precio,
		ImagenURL: eq.ImagenURL,
		Cantidad:  cantidad,
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return View{}, err
	}
	return s.Get(ctx, usuarioID)
}

// SetQuantity replaces a line quantity. Zero removes the line.
func (s *Service) SetQuantity(ctx context.Context, usuarioID, equipoID int64, cantidad int) (View, error) {
	if cantidad < 0 {
		return View{}, fmt.Errorf("%w: cantidad cannot be negative", httpx.ErrValidation)
	}

	if cantidad == 0 {
		if err := s.repo.Remove(ctx, usuarioID, equipoID); err != nil && !errors.Is(err, ErrNotFound) {
			return View{}, err
		}
		return s.Get(ctx, usuarioID)
	}

	eq, err := s.equipo.Get(ctx, equipoID)
	if err != nil {
		if errors.Is(err, equipment.ErrNotFound) {
			return View{}, fmt.Errorf("%w: equipment %d", httpx.ErrNotFound, equipoID)
		}
		return View{}, err
	}
	if cantidad > eq.Stock {
		return View{}, fmt.Errorf("%w: requested %d of %q but only %d in stock",
			httpx.ErrValidation, cantidad, eq.Codigo, eq.Stock)
	}

	if err := s.repo.SetQuantity(ctx, usuarioID, equipoID, cantidad); err != nil {
		if errors.Is(err, ErrNotFound) {
			return View{}, fmt.Errorf("%w: cart line for equipment %d", httpx.ErrNotFound, equipoID)
		}
		return View{}, err
	}
	return s.Get(ctx, usuarioID)
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, usuarioID, equipoID int64) (View, error) {
	if err := s.repo.Remove(ctx, usuarioID, equipoID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return View{}, fmt.Errorf("%w: cart line for equipment %d", httpx.ErrNotFound, equipoID)
		}
		return View{}, err
	}
	return s.Get(ctx, usuarioID)
}

// Clear removes every line for the user.
func (s *Service) Clear(ctx context.Context, usuarioID int64) error {
	return s.repo.Clear(ctx, usuarioID)
}
