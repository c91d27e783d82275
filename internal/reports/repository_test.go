package reports

import "testing"

func TestDeriveKPIsCountsPendingInConversion(t *testing.T) {
	// 1 aprobada, 1 rechazada, 3 enviadas in scope: the conversion rate is
	// over all five, not just the answered ones.
	got := deriveKPIs(1500, 1, 5)
	if got.ConversionRate != 0.2 {
		t.Fatalf("expected conversion 0.2, got %v", got.ConversionRate)
	}
	if got.TicketPromedio != 1500 {
		t.Fatalf("expected ticket 1500, got %v", got.TicketPromedio)
	}
	if got.TotalOrdenes != 1 || got.TotalVentas != 1500 {
		t.Fatalf("unexpected kpis %#v", got)
	}
}

func TestDeriveKPIsZeroDenominators(t *testing.T) {
	if got := deriveKPIs(0, 0, 0); got != (KPIs{}) {
		t.Fatalf("expected zeroed KPIs, got %#v", got)
	}
	// Quotations in scope but none approved yet.
	got := deriveKPIs(0, 0, 4)
	if got.ConversionRate != 0 || got.TicketPromedio != 0 {
		t.Fatalf("expected zero ratios, got %#v", got)
	}
}
