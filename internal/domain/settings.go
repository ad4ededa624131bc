package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SettingsKeyPrinter  = "printer"
	SettingsKeyTax      = "tax"
	SettingsKeyCurrency = "currency"
)

type PrinterSettings struct {
	PrinterName  string    `json:"printer_name"`
	PrinterIP    string    `json:"printer_ip"`
	PrinterPort  string    `json:"printer_port"`
	DevicePort   string    `json:"device_port"`
	DPI          int       `json:"dpi"`
	PaperWidthMM int       `json:"paper_width_mm"`
	Copies       int       `json:"copies"`
	CutPaper     bool      `json:"cut_paper"`
	ShowCashier  bool      `json:"show_cashier"`
	ShowDate     bool      `json:"show_date"`
	ShowLogo     bool      `json:"show_logo"`
	HeaderText   string    `json:"header_text"`
	FooterText   string    `json:"footer_text"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type TaxSettings struct {
	Enabled     bool            `json:"enabled"`
	RatePercent decimal.Decimal `json:"rate_percent"`
	AutoApply   bool            `json:"auto_apply"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Decimals kept for rates; sales store them with this precision.
const (
	ExchangeRateScale = 4
	TaxRateScale      = 3
)

type CurrencySettings struct {
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	ForeignEnabled bool            `json:"foreign_enabled"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Settings is loaded once per operation and passed down to pricing and
// receipt rendering.
type Settings struct {
	Printer  PrinterSettings  `json:"printer"`
	Tax      TaxSettings      `json:"tax"`
	Currency CurrencySettings `json:"currency"`
}

func DefaultPrinterSettings() PrinterSettings {
	return PrinterSettings{
		PrinterPort:  "9100",
		DPI:          203,
		PaperWidthMM: 58,
		Copies:       1,
		CutPaper:     true,
		ShowCashier:  true,
		ShowDate:     true,
		ShowLogo:     true,
		HeaderText:   "Cheikys Pizza\nDirección: Constitución #123\nTel: 555-123-4567",
		FooterText:   "¡Gracias por su compra! Visítenos pronto",
	}
}

func DefaultTaxSettings() TaxSettings {
	return TaxSettings{
		Enabled:     false,
		RatePercent: decimal.NewFromInt(16),
		AutoApply:   false,
	}
}

func DefaultCurrencySettings() CurrencySettings {
	return CurrencySettings{
		ExchangeRate:   decimal.RequireFromString("17.5"),
		ForeignEnabled: true,
	}
}

func DefaultSettings() Settings {
	return Settings{
		Printer:  DefaultPrinterSettings(),
		Tax:      DefaultTaxSettings(),
		Currency: DefaultCurrencySettings(),
	}
}

type PrinterSettingsUpdate struct {
	PrinterName  *string `json:"printer_name,omitempty"`
	PrinterIP    *string `json:"printer_ip,omitempty"`
	PrinterPort  *string `json:"printer_port,omitempty"`
	DevicePort   *string `json:"device_port,omitempty"`
	DPI          *int    `json:"dpi,omitempty"`
	PaperWidthMM *int    `json:"paper_width_mm,omitempty"`
	Copies       *int    `json:"copies,omitempty"`
	CutPaper     *bool   `json:"cut_paper,omitempty"`
	ShowCashier  *bool   `json:"show_cashier,omitempty"`
	ShowDate     *bool   `json:"show_date,omitempty"`
	ShowLogo     *bool   `json:"show_logo,omitempty"`
	HeaderText   *string `json:"header_text,omitempty"`
	FooterText   *string `json:"footer_text,omitempty"`
}

type TaxSettingsUpdate struct {
	Enabled     *bool            `json:"enabled,omitempty"`
	RatePercent *decimal.Decimal `json:"rate_percent,omitempty"`
	AutoApply   *bool            `json:"auto_apply,omitempty"`
}

type CurrencySettingsUpdate struct {
	ExchangeRate   *decimal.Decimal `json:"exchange_rate,omitempty"`
	ForeignEnabled *bool            `json:"foreign_enabled,omitempty"`
}
