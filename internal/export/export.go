// Package export renders report tables as CSV, XLSX or printable HTML.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/money"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// Money marks a cell as an amount in cents. It is written with two decimals.
type Money int64

type Table struct {
	Title   string
	Sheet   string
	Summary [][2]string
	Headers []string
	Rows    [][]any
}

func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

func Extension(format string) string {
	if format == FormatPDF {
		return "html"
	}
	return format
}

// Write renders t in format. Unknown formats are rejected.
func Write(w io.Writer, format string, t Table) error {
	switch format {
	case FormatCSV:
		return CSV(w, t)
	case FormatXLSX:
		return XLSX(w, t)
	case FormatPDF:
		return HTML(w, t)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func CSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	for _, kv := range t.Summary {
		if err := cw.Write([]string{spreadsheetSafe(kv[0]), spreadsheetSafe(kv[1])}); err != nil {
			return err
		}
	}
	if len(t.Summary) > 0 {
		if err := cw.Write(nil); err != nil {
			return err
		}
	}
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(textRow(row, spreadsheetSafe)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func XLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := t.Sheet
	if sheet == "" {
		sheet = "Reporte"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}

	r := 1
	if t.Title != "" {
		if err := f.SetCellValue(sheet, "A1", t.Title); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", "A1", bold); err != nil {
			return err
		}
		r += 2
	}
	for _, kv := range t.Summary {
		if err := setRow(f, sheet, r, []any{kv[0], kv[1]}, amount); err != nil {
			return err
		}
		r++
	}
	if len(t.Summary) > 0 {
		r++
	}

	headers := make([]any, 0, len(t.Headers))
	for _, h := range t.Headers {
		headers = append(headers, h)
	}
	if err := setRow(f, sheet, r, headers, amount); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, r, r, bold); err != nil {
		return err
	}
	r++

	for _, row := range t.Rows {
		if err := setRow(f, sheet, r, row, amount); err != nil {
			return err
		}
		r++
	}

	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, r int, row []any, amountStyle int) error {
	for c, value := range row {
		cell, err := excelize.CoordinatesToCellName(c+1, r)
		if err != nil {
			return err
		}
		if m, ok := value.(Money); ok {
			if err := f.SetCellValue(sheet, cell, money.FromCents(int64(m)).InexactFloat64()); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, amountStyle); err != nil {
				return err
			}
			continue
		}
		if text, ok := value.(string); ok {
			value = spreadsheetSafe(text)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}

// spreadsheetSafe keeps free text such as customer names from being read as
// a formula by spreadsheet programs.
func spreadsheetSafe(text string) string {
	if text == "" {
		return text
	}
	switch text[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + text
	}
	return text
}

var tableHTMLTmpl = template.Must(template.New("export-table").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>{{.Title}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2 { margin-bottom: 4px; }
    @media print { body { margin: 0; } }
  </style>
</head>
<body onload="window.print()">
  <h2>{{.Title}}</h2>
  {{range .Summary}}<p><strong>{{index . 0}}:</strong> {{index . 1}}</p>
  {{end}}
  <table>
    <thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
    <tbody>
      {{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
      {{end}}
    </tbody>
  </table>
</body>
</html>
`))

// HTML renders a print-ready page; browsers save it as PDF.
func HTML(w io.Writer, t Table) error {
	view := struct {
		Title   string
		Summary [][2]string
		Headers []string
		Rows    [][]string
	}{
		Title:   t.Title,
		Summary: t.Summary,
		Headers: t.Headers,
		Rows:    make([][]string, 0, len(t.Rows)),
	}
	for _, row := range t.Rows {
		view.Rows = append(view.Rows, textRow(row, nil))
	}

	var buf bytes.Buffer
	if err := tableHTMLTmpl.Execute(&buf, view); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func textRow(row []any, escape func(string) string) []string {
	out := make([]string, 0, len(row))
	for _, value := range row {
		switch v := value.(type) {
		case Money:
			out = append(out, money.Format(int64(v)))
		case nil:
			out = append(out, "")
		case string:
			if escape != nil {
				v = escape(v)
			}
			out = append(out, v)
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

func optionalMoney(cents *int64) any {
	if cents == nil {
		return ""
	}
	return Money(*cents)
}

// SalesRangeTable lays out a range report with one row per sale.
func SalesRangeTable(report domain.SalesRangeReport, loc *time.Location) Table {
	if loc == nil {
		loc = time.UTC
	}
	t := Table{
		Title: fmt.Sprintf("Ventas del %s al %s", report.From, report.To),
		Sheet: "Ventas",
		Summary: [][2]string{
			{"Ventas", fmt.Sprint(report.Count)},
			{"Total", money.Format(report.TotalCents)},
			{"Efectivo", money.Format(report.CashCents)},
			{"Tarjeta", money.Format(report.CardCents)},
			{"Transferencia", money.Format(report.TransferCents)},
			{"MXN", money.Format(report.DomesticCents)},
			{"USD", money.Format(report.ForeignCents)},
		},
		Headers: []string{"Folio", "Fecha", "Cliente", "Cajero", "Canal", "Pago", "Moneda", "Productos", "Subtotal", "IVA", "Total", "Corte"},
		Rows:    make([][]any, 0, len(report.Sales)),
	}
	if report.PaymentMethod != "" {
		t.Summary = append([][2]string{{"Método de pago", report.PaymentMethod}}, t.Summary...)
	}

	for _, sale := range report.Sales {
		items := make([]string, 0, len(sale.Items))
		for _, item := range sale.Items {
			name := item.ProductName
			if item.Size != "" {
				name += " " + item.Size
			}
			items = append(items, fmt.Sprintf("%dx %s", item.Qty, name))
		}
		t.Rows = append(t.Rows, []any{
			sale.ID,
			sale.CreatedAt.In(loc).Format("2006-01-02 15:04"),
			sale.CustomerName,
			sale.Cashier,
			sale.Channel,
			sale.PaymentMethod,
			strings.ToUpper(sale.Currency),
			strings.Join(items, "; "),
			Money(sale.SubtotalCents),
			optionalMoney(sale.TaxCents),
			Money(sale.TotalCents),
			sale.CutID,
		})
	}
	return t
}

// ProductStatsTable lists products by units sold followed by the size ranking.
func ProductStatsTable(report domain.ProductStatsReport) Table {
	t := Table{
		Title:   fmt.Sprintf("Productos vendidos del %s al %s", report.From, report.To),
		Sheet:   "Productos",
		Headers: []string{"Producto", "Categoría", "Tamaño", "Unidades", "Ingresos"},
		Rows:    make([][]any, 0, len(report.Products)+len(report.Sizes)),
	}
	if report.Category != "" {
		t.Summary = append(t.Summary, [2]string{"Categoría", report.Category})
	}
	if report.BestSellingProduct != nil {
		t.Summary = append(t.Summary, [2]string{"Más vendido", report.BestSellingProduct.Name})
	}
	if report.BestSellingSize != nil {
		t.Summary = append(t.Summary, [2]string{"Tamaño más vendido", report.BestSellingSize.Size})
	}

	for _, p := range report.Products {
		t.Rows = append(t.Rows, []any{p.Name, p.Category, "", p.Units, Money(p.RevenueCents)})
	}
	for _, s := range report.Sizes {
		t.Rows = append(t.Rows, []any{"", "", s.Size, s.Units, Money(s.RevenueCents)})
	}
	return t
}
