package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/decagraff/lc-service/internal/platform/httpx"
	"github.com/decagraff/lc-service/internal/shared"
)

// Service coordinates report queries with the cache layer. Every caller is
// scoped: vendors to their assigned quotations, clients to their own, admins
// see everything.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// scope pins the filter to the actor. Non-admins cannot widen their view by
// passing someone else's id in the filter.
func scope(actor shared.Actor, f Filter) (Filter, error) {
	switch actor.Role {
	case shared.RoleAdmin:
		return f, nil
	case shared.RoleVendedor:
		f.VendedorID = &actor.UserID
		return f, nil
	case shared.RoleCliente:
		f.ClienteID = &actor.UserID
		f.VendedorID = nil
		return f, nil
	default:
		return Filter{}, fmt.Errorf("%w: unknown role", httpx.ErrForbidden)
	}
}

// fetch runs the cache-aware, deduplicated load for one report key.
func (s *Service) fetch(ctx context.Context, keyParts []string, dest any, loader func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, keyParts...)
	if err != nil {
		return err
	}
	// Concurrent dashboard widgets ask for the same aggregates; collapse
	// them into a single query per key.
	ch := s.group.DoChan(key, func() (any, error) {
		var v any
		err := s.cache.FetchJSON(ctx, key, &v, loader)
		return v, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return remarshal(res.Val, dest)
	}
}

func (s *Service) KPIs(ctx context.Context, actor shared.Actor, f Filter) (KPIs, error) {
	f, err := scope(actor, f)
	if err != nil {
		return KPIs{}, err
	}
	var out KPIs
	err = s.fetch(ctx, cacheKey("kpis", f), &out, func(ctx context.Context) (any, error) {
		return s.repo.KPIs(ctx, f)
	})
	return out, err
}

func (s *Service) StatusCounts(ctx context.Context, actor shared.Actor, f Filter) ([]StatusCount, error) {
	f, err := scope(actor, f)
	if err != nil {
		return nil, err
	}
	var out []StatusCount
	err = s.fetch(ctx, cacheKey("status", f), &out, func(ctx context.Context) (any, error) {
		return s.repo.StatusCounts(ctx, f)
	})
	return out, err
}

func (s *Service) SalesByPeriod(ctx context.Context, actor shared.Actor, f Filter, granularity string) ([]SalesPoint, error) {
	f, err := scope(actor, f)
	if err != nil {
		return nil, err
	}
	if _, ok := granularities[granularity]; !ok {
		granularity = "month"
	}
	var out []SalesPoint
	err = s.fetch(ctx, cacheKey("sales", f, granularity), &out, func(ctx context.Context) (any, error) {
		return s.repo.SalesByPeriod(ctx, f, granularity)
	})
	return out, err
}

func (s *Service) SalesByCategory(ctx context.Context, actor shared.Actor, f Filter) ([]CategorySales, error) {
	f, err := scope(actor, f)
	if err != nil {
		return nil, err
	}
	var out []CategorySales
	err = s.fetch(ctx, cacheKey("categories", f), &out, func(ctx context.Context) (any, error) {
		return s.repo.SalesByCategory(ctx, f)
	})
	return out, err
}

func (s *Service) TopProducts(ctx context.Context, actor shared.Actor, f Filter, limit int) ([]TopProduct, error) {
	f, err := scope(actor, f)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	var out []TopProduct
	err = s.fetch(ctx, cacheKey("top", f, fmt.Sprintf("%d", limit)), &out, func(ctx context.Context) (any, error) {
		return s.repo.TopProducts(ctx, f, limit)
	})
	return out, err
}

// ThesisComparison contrasts the 30 days on each side of the cutover date.
// Used to quantify response-time improvement after go-live.
func (s *Service) ThesisComparison(ctx context.Context, actor shared.Actor, cutover time.Time) (ThesisComparison, error) {
	f, err := scope(actor, Filter{})
	if err != nil {
		return ThesisComparison{}, err
	}
	cutover = cutover.Truncate(24 * time.Hour)

	var out ThesisComparison
	key := cacheKey("thesis", f, cutover.Format("2006-01-02"))
	err = s.fetch(ctx, key, &out, func(ctx context.Context) (any, error) {
		antes, err := s.repo.PeriodStats(ctx, cutover.AddDate(0, 0, -30), cutover, f)
		if err != nil {
			return nil, err
		}
		despues, err := s.repo.PeriodStats(ctx, cutover, cutover.AddDate(0, 0, 30), f)
		if err != nil {
			return nil, err
		}
		return ThesisComparison{Cutover: cutover, Antes: antes, Despues: despues}, nil
	})
	return out, err
}

// Bump invalidates every cached report. Called after quotation writes.
func (s *Service) Bump(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// remarshal copies a singleflight result, which may be shared between
// callers, into the caller's destination.
func remarshal(v any, dest any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
