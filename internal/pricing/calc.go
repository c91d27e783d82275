// Package pricing computes quotation money totals. All amounts are rounded
// to 2 decimals with a single rule so computed and stored totals never drift.
package pricing

import "math"

// IGVRate is the Peruvian value-added tax rate applied to every quotation.
const IGVRate = 0.18

// Line is a (quantity, unit price) pair.
type Line struct {
	Cantidad       int
	PrecioUnitario float64
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LineSubtotal returns the rounded extended price of a line.
func LineSubtotal(cantidad int, precioUnitario float64) float64 {
	return Round2(float64(cantidad) * precioUnitario)
}

// Totals derives subtotal, IGV and total from line items.
// Invariants: igv == Round2(subtotal*IGVRate), total == subtotal+igv.
func Totals(lines []Line) (subtotal, igv, total float64) {
	for _, l := range lines {
		subtotal += LineSubtotal(l.Cantidad, l.PrecioUnitario)
	}
	subtotal = Round2(subtotal)
	igv = Round2(subtotal * IGVRate)
	total = Round2(subtotal + igv)
	return subtotal, igv, total
}
