package receipt

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/money"
)

var ErrEmptyTicket = errors.New("ticket has no items")

var (
	escInit      = []byte{0x1b, 0x40}
	escAlignLeft = []byte{0x1b, 0x61, 0x00}
	escAlignMid  = []byte{0x1b, 0x61, 0x01}
	escBoldOn    = []byte{0x1b, 0x45, 0x01}
	escBoldOff   = []byte{0x1b, 0x45, 0x00}
	escFeedCut   = []byte{0x1d, 0x56, 0x41, 0x10}
)

type itemView struct {
	Qty     int
	Name    string
	Details []string
	Amount  string
}

type ticketView struct {
	PaperWidthMM   int
	ShowLogo       bool
	HeaderLines    []string
	Folio          string
	Date           string
	Cashier        string
	Customer       string
	CustomerPhone  string
	Channel        string
	Items          []itemView
	Subtotal       string
	Tax            string
	Total          string
	PaymentMethod  string
	CashReceived   string
	Change         string
	FooterLines    []string
	LineCharacters int
}

var ticketTemplate = template.Must(template.New("ticket").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Ticket{{if .Folio}} {{.Folio}}{{end}}</title>
<style>
@page { size: {{.PaperWidthMM}}mm auto; margin: 0; }
body { width: {{.PaperWidthMM}}mm; margin: 0; padding: 2mm; font-family: monospace; font-size: 11px; }
.center { text-align: center; }
.row { display: flex; justify-content: space-between; }
.detail { padding-left: 4mm; font-size: 10px; }
.total { font-weight: bold; font-size: 13px; }
hr { border: 0; border-top: 1px dashed #000; }
</style>
</head>
<body>
{{- if .ShowLogo}}
<div class="center logo"><strong>CHEIKYS PIZZA</strong></div>
{{- end}}
<div class="center header">{{range .HeaderLines}}<div>{{.}}</div>{{end}}</div>
<hr>
{{- if .Folio}}
<div class="row"><span>Folio:</span><span>{{.Folio}}</span></div>
{{- end}}
{{- if .Date}}
<div class="row"><span>Fecha:</span><span>{{.Date}}</span></div>
{{- end}}
{{- if .Cashier}}
<div class="row"><span>Cajero:</span><span>{{.Cashier}}</span></div>
{{- end}}
{{- if .Customer}}
<div class="row"><span>Cliente:</span><span>{{.Customer}}</span></div>
{{- end}}
{{- if .CustomerPhone}}
<div class="row"><span>Tel:</span><span>{{.CustomerPhone}}</span></div>
{{- end}}
{{- if .Channel}}
<div class="row"><span>Tipo:</span><span>{{.Channel}}</span></div>
{{- end}}
<hr>
{{- range .Items}}
<div class="row"><span>{{.Qty}} x {{.Name}}</span><span>{{.Amount}}</span></div>
{{- range .Details}}
<div class="detail">{{.}}</div>
{{- end}}
{{- end}}
<hr>
<div class="row"><span>Subtotal:</span><span>{{.Subtotal}}</span></div>
{{- if .Tax}}
<div class="row"><span>IVA:</span><span>{{.Tax}}</span></div>
{{- end}}
<div class="row total"><span>TOTAL:</span><span>{{.Total}}</span></div>
<div class="row"><span>Método de pago:</span><span>{{.PaymentMethod}}</span></div>
{{- if .CashReceived}}
<div class="row"><span>Monto recibido:</span><span>{{.CashReceived}}</span></div>
{{- end}}
{{- if .Change}}
<div class="row"><span>Cambio:</span><span>{{.Change}}</span></div>
{{- end}}
<hr>
<div class="center footer">{{range .FooterLines}}<div>{{.}}</div>{{end}}</div>
</body>
</html>
`))

// Render builds the printable HTML, a plain-text preview and an ESC/POS
// stream for one ticket. Times are shown in loc; a nil loc means UTC.
func Render(ticket domain.Ticket, printer domain.PrinterSettings, loc *time.Location) (domain.ReceiptDocument, error) {
	if len(ticket.Items) == 0 {
		return domain.ReceiptDocument{}, ErrEmptyTicket
	}
	if loc == nil {
		loc = time.UTC
	}

	view := buildView(ticket, printer, loc)

	var html bytes.Buffer
	if err := ticketTemplate.Execute(&html, view); err != nil {
		return domain.ReceiptDocument{}, fmt.Errorf("render ticket html: %w", err)
	}

	lines := textLines(view)
	copies := printer.Copies
	if copies < 1 {
		copies = 1
	}

	fileName := "ticket-preview.html"
	if ticket.Folio != "" {
		fileName = fmt.Sprintf("ticket-%s.html", ticket.Folio)
	}

	return domain.ReceiptDocument{
		HTML:         html.String(),
		PreviewText:  strings.Join(lines, "\n"),
		EscposBase64: base64.StdEncoding.EncodeToString(escpos(view, lines, copies, printer.CutPaper)),
		FileName:     fileName,
		PaperWidthMM: view.PaperWidthMM,
		Copies:       copies,
		CutPaper:     printer.CutPaper,
	}, nil
}

func buildView(ticket domain.Ticket, printer domain.PrinterSettings, loc *time.Location) ticketView {
	width := printer.PaperWidthMM
	if width <= 0 {
		width = 58
	}
	chars := 32
	if width >= 80 {
		chars = 48
	}

	view := ticketView{
		PaperWidthMM:   width,
		ShowLogo:       printer.ShowLogo,
		HeaderLines:    splitLines(printer.HeaderText),
		Folio:          ticket.Folio,
		Customer:       ticket.CustomerName,
		CustomerPhone:  ticket.CustomerPhone,
		Channel:        channelLabel(ticket.Channel),
		Subtotal:       amount(ticket.SubtotalCents),
		Total:          amount(ticket.TotalCents),
		PaymentMethod:  paymentLabel(ticket.PaymentMethod),
		FooterLines:    splitLines(printer.FooterText),
		LineCharacters: chars,
	}
	if printer.ShowDate && ticket.IssuedAt != nil {
		view.Date = ticket.IssuedAt.In(loc).Format("02/01/2006 15:04")
	}
	if printer.ShowCashier {
		view.Cashier = ticket.Cashier
	}
	if ticket.TaxCents != nil {
		view.Tax = amount(*ticket.TaxCents)
	}
	if ticket.CashReceivedCents != nil {
		view.CashReceived = amount(*ticket.CashReceivedCents)
	}
	if ticket.ChangeCents != nil {
		view.Change = amount(*ticket.ChangeCents)
	}

	for _, item := range ticket.Items {
		iv := itemView{
			Qty:    item.Qty,
			Name:   item.ProductName,
			Amount: amount(item.SubtotalCents),
		}
		if iv.Name == "" {
			iv.Name = item.ProductID
		}
		if item.Size != "" {
			iv.Details = append(iv.Details, "Tamaño: "+item.Size)
		}
		if item.WithBoneless {
			detail := "Con boneless"
			if item.BonelessSauce != "" {
				detail += " (" + item.BonelessSauce + ")"
			}
			iv.Details = append(iv.Details, detail)
		}
		if item.Observations != "" {
			iv.Details = append(iv.Details, "Obs: "+item.Observations)
		}
		view.Items = append(view.Items, iv)
	}
	return view
}

func textLines(view ticketView) []string {
	w := view.LineCharacters
	sep := strings.Repeat("-", w)

	lines := make([]string, 0, 32)
	if view.ShowLogo {
		lines = append(lines, center("CHEIKYS PIZZA", w))
	}
	for _, line := range view.HeaderLines {
		lines = append(lines, center(line, w))
	}
	lines = append(lines, sep)
	for _, kv := range [][2]string{
		{"Folio:", view.Folio},
		{"Fecha:", view.Date},
		{"Cajero:", view.Cashier},
		{"Cliente:", view.Customer},
		{"Tel:", view.CustomerPhone},
		{"Tipo:", view.Channel},
	} {
		if kv[1] != "" {
			lines = append(lines, row(kv[0], kv[1], w))
		}
	}
	lines = append(lines, sep)
	for _, item := range view.Items {
		lines = append(lines, row(fmt.Sprintf("%d x %s", item.Qty, item.Name), item.Amount, w))
		for _, detail := range item.Details {
			lines = append(lines, "  "+detail)
		}
	}
	lines = append(lines, sep, row("Subtotal:", view.Subtotal, w))
	if view.Tax != "" {
		lines = append(lines, row("IVA:", view.Tax, w))
	}
	lines = append(lines,
		row("TOTAL:", view.Total, w),
		row("Método de pago:", view.PaymentMethod, w),
	)
	if view.CashReceived != "" {
		lines = append(lines, row("Monto recibido:", view.CashReceived, w))
	}
	if view.Change != "" {
		lines = append(lines, row("Cambio:", view.Change, w))
	}
	lines = append(lines, sep)
	for _, line := range view.FooterLines {
		lines = append(lines, center(line, w))
	}
	return lines
}

func escpos(view ticketView, lines []string, copies int, cut bool) []byte {
	headerCount := len(view.HeaderLines)
	if view.ShowLogo {
		headerCount++
	}

	one := make([]byte, 0, 1024)
	one = append(one, escInit...)
	one = append(one, escAlignMid...)
	for i, line := range lines {
		if i == headerCount {
			one = append(one, escAlignLeft...)
		}
		bold := strings.HasPrefix(line, "TOTAL:")
		if bold {
			one = append(one, escBoldOn...)
		}
		one = append(one, []byte(line)...)
		one = append(one, '\n')
		if bold {
			one = append(one, escBoldOff...)
		}
	}
	one = append(one, '\n', '\n', '\n')
	if cut {
		one = append(one, escFeedCut...)
	}

	out := make([]byte, 0, len(one)*copies)
	for i := 0; i < copies; i++ {
		out = append(out, one...)
	}
	return out
}

func amount(cents int64) string {
	return "$" + money.Format(cents)
}

func paymentLabel(method string) string {
	switch method {
	case domain.PaymentCash:
		return "Efectivo"
	case domain.PaymentCard:
		return "Tarjeta"
	case domain.PaymentTransfer:
		return "Transferencia"
	default:
		return method
	}
}

func channelLabel(channel string) string {
	switch channel {
	case domain.ChannelInStore:
		return "Mostrador"
	case domain.ChannelPhone:
		return "Teléfono"
	default:
		return channel
	}
}

func splitLines(text string) []string {
	lines := make([]string, 0, 4)
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func row(label string, value string, width int) string {
	gap := width - utf8.RuneCountInString(label) - utf8.RuneCountInString(value)
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value
}

func center(text string, width int) string {
	pad := (width - utf8.RuneCountInString(text)) / 2
	if pad < 1 {
		return text
	}
	return strings.Repeat(" ", pad) + text
}
