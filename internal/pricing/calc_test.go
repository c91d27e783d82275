package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotals(t *testing.T) {
	subtotal, igv, total := Totals([]Line{
		{Cantidad: 2, PrecioUnitario: 100.00},
		{Cantidad: 1, PrecioUnitario: 50.00},
	})
	assert.Equal(t, 250.00, subtotal)
	assert.Equal(t, 45.00, igv)
	assert.Equal(t, 295.00, total)
}

func TestTotalsEmpty(t *testing.T) {
	subtotal, igv, total := Totals(nil)
	assert.Equal(t, 0.0, subtotal)
	assert.Equal(t, 0.0, igv)
	assert.Equal(t, 0.0, total)
}

func TestTotalsRounding(t *testing.T) {
	// 3 * 33.335 = 100.005 -> line rounds to 100.01 before aggregation.
	subtotal, igv, total := Totals([]Line{{Cantidad: 3, PrecioUnitario: 33.335}})
	assert.Equal(t, 100.01, subtotal)
	assert.Equal(t, Round2(subtotal*IGVRate), igv)
	assert.Equal(t, Round2(subtotal+igv), total)
}

func TestTotalsInvariantHolds(t *testing.T) {
	cases := [][]Line{
		{{1, 0.01}},
		{{7, 19.99}, {3, 0.10}},
		{{100, 1234.56}, {1, 0.005}},
	}
	for _, lines := range cases {
		subtotal, igv, total := Totals(lines)
		assert.Equal(t, Round2(subtotal*IGVRate), igv)
		assert.Equal(t, Round2(subtotal+igv), total)
		var sum float64
		for _, l := range lines {
			sum += LineSubtotal(l.Cantidad, l.PrecioUnitario)
		}
		assert.Equal(t, Round2(sum), subtotal)
	}
}
