package reports

import (
	"encoding/csv"
	"io"
	"strconv"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// WriteKPICSV serialises the headline indicators to CSV.
func WriteKPICSV(w io.Writer, k KPIs) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"Total Ventas", formatFloat(k.TotalVentas)},
		{"Total Ordenes", formatInt(k.TotalOrdenes)},
		{"Ticket Promedio", formatFloat(k.TicketPromedio)},
		{"Conversion Rate", formatFloat(k.ConversionRate)},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSalesCSV emits the sales trend as CSV.
func WriteSalesCSV(w io.Writer, points []SalesPoint) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Period", "Total", "Ordenes"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := writer.Write([]string{p.Period, formatFloat(p.Total), formatInt(p.Ordenes)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTopProductsCSV prints the equipment ranking to CSV.
func WriteTopProductsCSV(w io.Writer, products []TopProduct) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Codigo", "Nombre", "Unidades", "Total"}); err != nil {
		return err
	}
	for _, p := range products {
		if err := writer.Write([]string{p.Codigo, p.Nombre, formatInt(p.Unidades), formatFloat(p.Total)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
