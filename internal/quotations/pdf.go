package quotations

import (
	"html/template"
	"strings"
)

// documentTemplate is the printable cotización. Gotenberg turns this into
// the PDF handed to the client.
var documentTemplate = template.Must(template.New("cotizacion").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>{{.Numero}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 40px; color: #222; }
h1 { font-size: 20px; border-bottom: 2px solid #222; padding-bottom: 8px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border: 1px solid #999; padding: 6px 8px; font-size: 12px; text-align: left; }
th { background: #eee; }
td.num, th.num { text-align: right; }
.totals { margin-top: 12px; width: 40%; margin-left: auto; }
.meta { font-size: 12px; margin-top: 8px; }
.estado { text-transform: uppercase; font-weight: bold; }
</style>
</head>
<body>
<h1>Cotización {{.Numero}}</h1>
<div class="meta">
<p>Estado: <span class="estado">{{.Estado}}</span><br>
Fecha: {{.CreatedAt.Format "02/01/2006"}}{{if .FechaVencimiento}}<br>
Válida hasta: {{.FechaVencimiento.Format "02/01/2006"}}{{end}}</p>
<p>Cliente: {{.Cliente.Nombre}}{{if .Cliente.Empresa}} ({{.Cliente.Empresa}}){{end}}<br>
{{if .Cliente.Email}}Email: {{.Cliente.Email}}<br>{{end}}
{{if .Cliente.Telefono}}Teléfono: {{.Cliente.Telefono}}{{end}}</p>
</div>
<table>
<thead>
<tr><th>Código</th><th>Descripción</th><th class="num">Cantidad</th><th class="num">P. Unitario</th><th class="num">Subtotal</th></tr>
</thead>
<tbody>
{{range .Items}}<tr>
<td>{{.Codigo}}</td><td>{{.Nombre}}</td>
<td class="num">{{.Cantidad}}</td>
<td class="num">S/ {{printf "%.2f" .PrecioUnitario}}</td>
<td class="num">S/ {{printf "%.2f" .Subtotal}}</td>
</tr>{{end}}
</tbody>
</table>
<table class="totals">
<tr><th>Subtotal</th><td class="num">S/ {{printf "%.2f" .Subtotal}}</td></tr>
<tr><th>IGV (18%)</th><td class="num">S/ {{printf "%.2f" .IGV}}</td></tr>
<tr><th>Total</th><td class="num">S/ {{printf "%.2f" .Total}}</td></tr>
</table>
{{if .Notas}}<p class="meta">Notas: {{.Notas}}</p>{{end}}
</body>
</html>`))

// DocumentHTML renders the quotation as a standalone HTML document.
func DocumentHTML(q *Quotation) (string, error) {
	var buf strings.Builder
	if err := documentTemplate.Execute(&buf, q); err != nil {
		return "", err
	}
	return buf.String(), nil
}
