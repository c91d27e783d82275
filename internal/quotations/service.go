package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/decagraff/lc-service/internal/platform/httpx"
	"github.com/decagraff/lc-service/internal/pricing"
	"github.com/decagraff/lc-service/internal/shared"
)

// CacheBumper invalidates report caches after quotation writes.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Notifier is told about status changes so a notification can be queued.
type Notifier interface {
	QuotationStatusChanged(ctx context.Context, q *Quotation) error
}

// TransitionCounter tallies status changes for the metrics endpoint.
type TransitionCounter interface {
	CountTransition(estado string)
}

// Service owns the quotation lifecycle: creation from a cart snapshot, the
// guarded status machine, and role-scoped reads.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	bumper   CacheBumper
	notifier Notifier
	counter  TransitionCounter
	now      func() time.Time
}

// NewService builds a Service. bumper and notifier may be nil.
func NewService(repo Repository, logger *slog.Logger, bumper CacheBumper, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		logger:   logger,
		bumper:   bumper,
		notifier: notifier,
		now:      time.Now,
	}
}

// SetTransitionCounter attaches the metrics counter. Optional.
func (s *Service) SetTransitionCounter(c TransitionCounter) {
	s.counter = c
}

func (s *Service) countTransition(estado Estado) {
	if s.counter != nil {
		s.counter.CountTransition(string(estado))
	}
}

// CreateFromCart snapshots the cart into a new borrador quotation. Header,
// line items and the cart clear commit in one transaction; a partial failure
// leaves nothing behind.
func (s *Service) CreateFromCart(ctx context.Context, actor shared.Actor, req CreateRequest) (*Quotation, error) {
	clienteID := actor.UserID
	var vendedorID *int64

	switch actor.Role {
	case shared.RoleCliente:
		if req.ClienteID != nil && *req.ClienteID != actor.UserID {
			return nil, fmt.Errorf("%w: clients may only quote for themselves", httpx.ErrForbidden)
		}
	case shared.RoleVendedor:
		if req.ClienteID == nil {
			return nil, fmt.Errorf("%w: cliente_id is required", httpx.ErrValidation)
		}
		clienteID = *req.ClienteID
		vendedorID = &actor.UserID
	case shared.RoleAdmin:
		if req.ClienteID == nil {
			return nil, fmt.Errorf("%w: cliente_id is required", httpx.ErrValidation)
		}
		clienteID = *req.ClienteID
		vendedorID = req.VendedorID
	default:
		return nil, httpx.ErrForbidden
	}

	if req.FechaVencimiento != nil && req.FechaVencimiento.Before(s.now()) {
		return nil, fmt.Errorf("%w: fecha_vencimiento is in the past", httpx.ErrValidation)
	}

	rol, err := s.repo.UserRole(ctx, clienteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: client %d", httpx.ErrNotFound, clienteID)
		}
		return nil, fmt.Errorf("verify client: %w", err)
	}
	if rol != string(shared.RoleCliente) {
		return nil, fmt.Errorf("%w: user %d is not a client", httpx.ErrValidation, clienteID)
	}
	if vendedorID != nil {
		rol, err := s.repo.UserRole(ctx, *vendedorID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: vendor %d", httpx.ErrNotFound, *vendedorID)
			}
			return nil, fmt.Errorf("verify vendor: %w", err)
		}
		if rol != string(shared.RoleVendedor) {
			return nil, fmt.Errorf("%w: user %d is not a vendor", httpx.ErrValidation, *vendedorID)
		}
	}

	// The cart that feeds the snapshot belongs to the acting user, not the
	// target client: a vendor builds the cart and quotes it on the client's
	// behalf.
	cartOwner := actor.UserID

	var quotationID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		lines, err := repo.CartLines(ctx, cartOwner)
		if err != nil {
			return fmt.Errorf("read cart: %w", err)
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w: cart is empty", httpx.ErrValidation)
		}

		snap, err := repo.ClientSnapshot(ctx, clienteID)
		if err != nil {
			return fmt.Errorf("snapshot client: %w", err)
		}

		priced := make([]pricing.Line, len(lines))
		for i, l := range lines {
			priced[i] = pricing.Line{Cantidad: l.Cantidad, PrecioUnitario: l.Precio}
		}
		subtotal, igv, total := pricing.Totals(priced)

		numero, err := repo.GenerateNumber(ctx, s.now().Year())
		if err != nil {
			return fmt.Errorf("generate numero: %w", err)
		}

		id, err := repo.Create(ctx, Quotation{
			Numero:           numero,
			ClienteID:        clienteID,
			VendedorID:       vendedorID,
			Cliente:          snap,
			Subtotal:         subtotal,
			IGV:              igv,
			Total:            total,
			Estado:           EstadoBorrador,
			Notas:            req.Notas,
			FechaVencimiento: req.FechaVencimiento,
		})
		if err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		quotationID = id

		for _, l := range lines {
			if err := repo.InsertLine(ctx, LineItem{
				CotizacionID:   id,
				EquipoID:       l.EquipoID,
				Codigo:         l.Codigo,
				Nombre:         l.Nombre,
				Cantidad:       l.Cantidad,
				PrecioUnitario: l.Precio,
				Subtotal:       pricing.LineSubtotal(l.Cantidad, l.Precio),
			}); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}

		if err := repo.ClearCart(ctx, cartOwner); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bump(ctx)
	return s.Get(ctx, actor, quotationID)
}

// Get returns a quotation the actor is allowed to see, with vencida derived
// lazily when the expiration date has passed.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id int64) (*Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	if err := s.canView(actor, q); err != nil {
		return nil, err
	}
	q.Estado = q.EffectiveStatus(s.now())
	return q, nil
}

// List returns quotations scoped to the actor's role.
func (s *Service) List(ctx context.Context, actor shared.Actor, filter ListFilter) ([]Quotation, int, error) {
	switch actor.Role {
	case shared.RoleCliente:
		filter.ClienteID = &actor.UserID
		filter.VendedorID = nil
	case shared.RoleVendedor:
		filter.VendedorID = &actor.UserID
		filter.SinVendedor = true
	case shared.RoleAdmin:
		// unrestricted
	}

	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for i := range list {
		list[i].Estado = list[i].EffectiveStatus(now)
	}
	return list, total, nil
}

// ChangeStatus performs a guarded transition. Approval decrements equipment
// stock in the same transaction; insufficient stock rolls everything back.
func (s *Service) ChangeStatus(ctx context.Context, actor shared.Actor, id int64, nuevo Estado) (*Quotation, error) {
	if !nuevo.Valid() || nuevo == EstadoVencida || nuevo == EstadoBorrador {
		return nil, fmt.Errorf("%w: %q is not a requestable status", httpx.ErrValidation, nuevo)
	}

	q, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	if err := s.canView(actor, q); err != nil {
		return nil, err
	}

	current := q.EffectiveStatus(s.now())
	if _, ok := transitions[current][nuevo]; !ok {
		return nil, fmt.Errorf("%w: %s -> %s", httpx.ErrInvalidTransition, current, nuevo)
	}
	if !transitionAllowed(current, nuevo, actor.Role) {
		return nil, fmt.Errorf("%w: role %s may not perform %s -> %s",
			httpx.ErrForbidden, actor.Role, current, nuevo)
	}
	// A client may only send their own draft; ownership of the rest is
	// covered by canView plus the role table.
	if actor.Role == shared.RoleCliente && q.ClienteID != actor.UserID {
		return nil, httpx.ErrForbidden
	}

	respondida := nuevo == EstadoAprobada || nuevo == EstadoRechazada
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if nuevo == EstadoAprobada {
			for _, it := range q.Items {
				if err := repo.DecrementStock(ctx, it.EquipoID, it.Cantidad); err != nil {
					if errors.Is(err, ErrInsufficientStock) {
						return fmt.Errorf("%w: not enough stock of %q to approve %s",
							httpx.ErrConflict, it.Codigo, q.Numero)
					}
					return err
				}
			}
		}
		return repo.UpdateStatus(ctx, id, nuevo, respondida)
	})
	if err != nil {
		return nil, err
	}

	s.bump(ctx)
	s.countTransition(nuevo)
	updated, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated)
	return updated, nil
}

// AssignVendor sets the vendor on a quotation. Admin only.
func (s *Service) AssignVendor(ctx context.Context, actor shared.Actor, id, vendedorID int64) (*Quotation, error) {
	if actor.Role != shared.RoleAdmin {
		return nil, fmt.Errorf("%w: only admin may assign vendors", httpx.ErrForbidden)
	}
	rol, err := s.repo.UserRole(ctx, vendedorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: vendor %d", httpx.ErrNotFound, vendedorID)
		}
		return nil, err
	}
	if rol != string(shared.RoleVendedor) {
		return nil, fmt.Errorf("%w: user %d is not a vendor", httpx.ErrValidation, vendedorID)
	}
	if err := s.repo.AssignVendor(ctx, id, vendedorID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Delete removes a quotation. Only drafts may be deleted: anything already
// shared with a client stays on record.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
		}
		return err
	}
	if err := s.canView(actor, q); err != nil {
		return err
	}
	if estado := q.EffectiveStatus(s.now()); estado != EstadoBorrador {
		return fmt.Errorf("%w: cannot delete a quotation in estado %s", httpx.ErrConflict, estado)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// ExpireDue persists vencida for past-due live quotations. Called from the
// nightly sweep job.
func (s *Service) ExpireDue(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.bump(ctx)
	}
	return n, nil
}

// canView enforces read scoping: cliente sees own, vendedor sees assigned or
// unassigned, admin sees all.
func (s *Service) canView(actor shared.Actor, q *Quotation) error {
	switch actor.Role {
	case shared.RoleAdmin:
		return nil
	case shared.RoleVendedor:
		if q.VendedorID == nil || *q.VendedorID == actor.UserID {
			return nil
		}
	case shared.RoleCliente:
		if q.ClienteID == actor.UserID {
			return nil
		}
	}
	return fmt.Errorf("%w: quotation %s", httpx.ErrForbidden, q.Numero)
}

func (s *Service) bump(ctx context.Context) {
	if s.bumper == nil {
		return
	}
	if err := s.bumper.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("report cache bump", slog.Any("error", err))
	}
}

func (s *Service) notify(ctx context.Context, q *Quotation) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.QuotationStatusChanged(ctx, q); err != nil && s.logger != nil {
		s.logger.Warn("status notification", slog.String("numero", q.Numero), slog.Any("error", err))
	}
}
