package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/decagraff/lc-service/internal/platform/httpx"
	"github.com/decagraff/lc-service/internal/shared"
	_ "github.com/decagraff/lc-service/testing"
)

type mockRepo struct {
	kpis       KPIs
	kpiCalls   int
	lastFilter Filter

	statuses   []StatusCount
	sales      []SalesPoint
	salesCalls int
	products   []TopProduct
	lastLimit  int
	stats      PeriodStats
	statCalls  int
}

func (m *mockRepo) KPIs(ctx context.Context, f Filter) (KPIs, error) {
	m.kpiCalls++
	m.lastFilter = f
	return m.kpis, nil
}

func (m *mockRepo) StatusCounts(ctx context.Context, f Filter) ([]StatusCount, error) {
	m.lastFilter = f
	return m.statuses, nil
}

func (m *mockRepo) SalesByPeriod(ctx context.Context, f Filter, granularity string) ([]SalesPoint, error) {
	m.salesCalls++
	m.lastFilter = f
	return m.sales, nil
}

func (m *mockRepo) SalesByCategory(ctx context.Context, f Filter) ([]CategorySales, error) {
	m.lastFilter = f
	return nil, nil
}

func (m *mockRepo) TopProducts(ctx context.Context, f Filter, limit int) ([]TopProduct, error) {
	m.lastFilter = f
	m.lastLimit = limit
	if limit < len(m.products) {
		return m.products[:limit], nil
	}
	return m.products, nil
}

func (m *mockRepo) PeriodStats(ctx context.Context, from, to time.Time, f Filter) (PeriodStats, error) {
	m.statCalls++
	return m.stats, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

var admin = shared.Actor{UserID: 1, Role: shared.RoleAdmin}

func TestKPIsCachesUntilBump(t *testing.T) {
	repo := &mockRepo{kpis: KPIs{TotalVentas: 295, TotalOrdenes: 1, TicketPromedio: 295, ConversionRate: 0.5}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	got, err := svc.KPIs(ctx, admin, Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalVentas != 295 {
		t.Fatalf("expected total 295 got %.2f", got.TotalVentas)
	}
	if repo.kpiCalls != 1 {
		t.Fatalf("expected 1 repo call, got %d", repo.kpiCalls)
	}

	// Second call should hit cache.
	if _, err := svc.KPIs(ctx, admin, Filter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.kpiCalls != 1 {
		t.Fatalf("expected cached result, repo called %d times", repo.kpiCalls)
	}

	// Bumping invalidates everything at once.
	if err := svc.Bump(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	repo.kpis.TotalVentas = 590
	got, err = svc.KPIs(ctx, admin, Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalVentas != 590 {
		t.Fatalf("expected refreshed value 590 got %.2f", got.TotalVentas)
	}
	if repo.kpiCalls != 2 {
		t.Fatalf("expected repo to refresh, calls %d", repo.kpiCalls)
	}
}

func TestVendorScopeForcedOntoFilter(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)

	vendedor := shared.Actor{UserID: 42, Role: shared.RoleVendedor}
	if _, err := svc.KPIs(context.Background(), vendedor, Filter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastFilter.VendedorID == nil || *repo.lastFilter.VendedorID != 42 {
		t.Fatalf("expected filter scoped to vendor 42, got %#v", repo.lastFilter.VendedorID)
	}
}

func TestClientScopeForcedOntoFilter(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)

	cliente := shared.Actor{UserID: 7, Role: shared.RoleCliente}
	otro := int64(99)
	if _, err := svc.KPIs(context.Background(), cliente, Filter{ClienteID: &otro, VendedorID: &otro}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastFilter.ClienteID == nil || *repo.lastFilter.ClienteID != 7 {
		t.Fatalf("expected filter scoped to client 7, got %#v", repo.lastFilter.ClienteID)
	}
	if repo.lastFilter.VendedorID != nil {
		t.Fatalf("client must not filter by vendor, got %#v", repo.lastFilter.VendedorID)
	}
}

func TestUnknownRoleForbidden(t *testing.T) {
	svc := newTestService(t, &mockRepo{})

	ghost := shared.Actor{UserID: 7, Role: shared.Role("auditor")}
	_, err := svc.KPIs(context.Background(), ghost, Filter{})
	if !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSalesGranularityIsolatedInCache(t *testing.T) {
	repo := &mockRepo{sales: []SalesPoint{{Period: "2026-08", Total: 295, Ordenes: 1}}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.SalesByPeriod(ctx, admin, Filter{}, "month"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.SalesByPeriod(ctx, admin, Filter{}, "day"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.salesCalls != 2 {
		t.Fatalf("different granularities must not share a key, calls %d", repo.salesCalls)
	}
	if _, err := svc.SalesByPeriod(ctx, admin, Filter{}, "day"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.salesCalls != 2 {
		t.Fatalf("expected cached day series, calls %d", repo.salesCalls)
	}
}

func TestThesisComparisonQueriesBothWindows(t *testing.T) {
	repo := &mockRepo{stats: PeriodStats{Cotizaciones: 12, Aprobadas: 4, TotalVentas: 5000, AvgRespuestaHrs: 8}}
	svc := newTestService(t, repo)

	cutover := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	out, err := svc.ThesisComparison(context.Background(), admin, cutover)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.statCalls != 2 {
		t.Fatalf("expected before and after queries, got %d", repo.statCalls)
	}
	if out.Antes.Cotizaciones != 12 || out.Despues.Cotizaciones != 12 {
		t.Fatalf("unexpected comparison %#v", out)
	}
	if !out.Cutover.Equal(cutover) {
		t.Fatalf("cutover not preserved: %v", out.Cutover)
	}
}

func TestTopProductsDefaultsToFive(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)

	if _, err := svc.TopProducts(context.Background(), admin, Filter{}, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastLimit != 5 {
		t.Fatalf("expected default limit 5, repo got %d", repo.lastLimit)
	}

	if _, err := svc.TopProducts(context.Background(), admin, Filter{}, 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastLimit != 12 {
		t.Fatalf("expected explicit limit to pass through, repo got %d", repo.lastLimit)
	}
}

func TestZeroRowsYieldZeroKPIs(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)

	got, err := svc.KPIs(context.Background(), admin, Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (KPIs{}) {
		t.Fatalf("expected zeroed KPIs, got %#v", got)
	}
}
