package quotations

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentHTML(t *testing.T) {
	vence := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	q := &Quotation{
		Numero: "COT-2025-0042",
		Cliente: ClientSnapshot{
			Nombre:  "María Quispe",
			Empresa: "Pollería El Buen Sabor",
			Email:   "maria@buensabor.pe",
		},
		Estado:           EstadoEnviada,
		Subtotal:         1250,
		IGV:              225,
		Total:            1475,
		Notas:            "Entrega en 15 días hábiles",
		FechaVencimiento: &vence,
		CreatedAt:        time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		Items: []LineItem{
			{Codigo: "COC-IND-001", Nombre: "Cocina industrial 4 hornillas", Cantidad: 1, PrecioUnitario: 1250, Subtotal: 1250},
		},
	}

	html, err := DocumentHTML(q)
	require.NoError(t, err)

	assert.Contains(t, html, "COT-2025-0042")
	assert.Contains(t, html, "María Quispe")
	assert.Contains(t, html, "Pollería El Buen Sabor")
	assert.Contains(t, html, "COC-IND-001")
	assert.Contains(t, html, "S/ 1250.00")
	assert.Contains(t, html, "S/ 225.00")
	assert.Contains(t, html, "S/ 1475.00")
	assert.Contains(t, html, "15/07/2025")
	assert.Contains(t, html, "Entrega en 15 días hábiles")
}

func TestDocumentHTMLEscapesClientInput(t *testing.T) {
	q := &Quotation{
		Numero:  "COT-2025-0001",
		Cliente: ClientSnapshot{Nombre: "<script>alert(1)</script>"},
		Estado:  EstadoBorrador,
	}

	html, err := DocumentHTML(q)
	require.NoError(t, err)

	assert.False(t, strings.Contains(html, "<script>alert(1)</script>"))
	assert.Contains(t, html, "&lt;script&gt;")
}
