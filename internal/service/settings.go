package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/store"
)

var maxTaxRate = decimal.NewFromInt(25)

// LoadSettings returns the printer, tax and currency documents in one value.
// Missing documents are created with their defaults.
func (s *Service) LoadSettings(ctx context.Context) (domain.Settings, error) {
	cached, generation, ok, cacheErr := s.settings.Get(ctx)
	if cacheErr != nil {
		log.Printf("[service] WARN: settings cache read failed: %v", cacheErr)
	} else if ok {
		return *cached, nil
	}

	settings := domain.DefaultSettings()
	for key, dest := range map[string]any{
		domain.SettingsKeyPrinter:  &settings.Printer,
		domain.SettingsKeyTax:      &settings.Tax,
		domain.SettingsKeyCurrency: &settings.Currency,
	} {
		if err := s.loadDocument(ctx, key, dest); err != nil {
			return domain.Settings{}, err
		}
	}

	if cacheErr != nil {
		return settings, nil
	}
	if err := s.settings.Set(ctx, generation, &settings, s.settingsTTL); err != nil {
		log.Printf("[service] WARN: settings cache write failed: %v", err)
	}
	return settings, nil
}

func (s *Service) loadDocument(ctx context.Context, key string, dest any) error {
	err := s.repo.GetSettings(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load %s settings: %w", key, err)
	}

	// dest still holds the defaults.
	if err := s.repo.PutSettings(ctx, key, dest, s.now().UTC()); err != nil {
		log.Printf("[service] WARN: failed to persist default %s settings: %v", key, err)
	}
	return nil
}

func (s *Service) UpdatePrinterSettings(ctx context.Context, req domain.PrinterSettingsUpdate) (domain.PrinterSettings, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.PrinterSettings{}, err
	}
	current, err := s.LoadSettings(ctx)
	if err != nil {
		return domain.PrinterSettings{}, err
	}

	next := current.Printer
	if req.PrinterName != nil {
		next.PrinterName = strings.TrimSpace(*req.PrinterName)
	}
	if req.PrinterIP != nil {
		next.PrinterIP = strings.TrimSpace(*req.PrinterIP)
	}
	if req.PrinterPort != nil {
		port := strings.TrimSpace(*req.PrinterPort)
		if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
			return domain.PrinterSettings{}, invalid("printer_port must be a TCP port")
		}
		next.PrinterPort = port
	}
	if req.DevicePort != nil {
		next.DevicePort = strings.TrimSpace(*req.DevicePort)
	}
	if req.DPI != nil {
		if *req.DPI < 1 {
			return domain.PrinterSettings{}, invalid("dpi must be positive")
		}
		next.DPI = *req.DPI
	}
	if req.PaperWidthMM != nil {
		if *req.PaperWidthMM != 58 && *req.PaperWidthMM != 80 {
			return domain.PrinterSettings{}, invalid("paper_width_mm must be 58 or 80")
		}
		next.PaperWidthMM = *req.PaperWidthMM
	}
	if req.Copies != nil {
		if *req.Copies < 1 || *req.Copies > 5 {
			return domain.PrinterSettings{}, invalid("copies must be between 1 and 5")
		}
		next.Copies = *req.Copies
	}
	if req.CutPaper != nil {
		next.CutPaper = *req.CutPaper
	}
	if req.ShowCashier != nil {
		next.ShowCashier = *req.ShowCashier
	}
	if req.ShowDate != nil {
		next.ShowDate = *req.ShowDate
	}
	if req.ShowLogo != nil {
		next.ShowLogo = *req.ShowLogo
	}
	if req.HeaderText != nil {
		next.HeaderText = strings.TrimSpace(*req.HeaderText)
	}
	if req.FooterText != nil {
		next.FooterText = strings.TrimSpace(*req.FooterText)
	}
	next.UpdatedAt = s.now().UTC()

	if err := s.saveDocument(ctx, domain.SettingsKeyPrinter, next); err != nil {
		return domain.PrinterSettings{}, err
	}
	s.logAudit(ctx, "settings_update", "settings", domain.SettingsKeyPrinter, fmt.Sprintf("paper=%dmm,copies=%d,cut=%t", next.PaperWidthMM, next.Copies, next.CutPaper))
	return next, nil
}

func (s *Service) UpdateTaxSettings(ctx context.Context, req domain.TaxSettingsUpdate) (domain.TaxSettings, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.TaxSettings{}, err
	}
	current, err := s.LoadSettings(ctx)
	if err != nil {
		return domain.TaxSettings{}, err
	}

	next := current.Tax
	if req.Enabled != nil {
		next.Enabled = *req.Enabled
	}
	if req.RatePercent != nil {
		rate := req.RatePercent.Round(domain.TaxRateScale)
		if rate.IsNegative() || rate.GreaterThan(maxTaxRate) {
			return domain.TaxSettings{}, invalid("rate_percent must be between 0 and 25")
		}
		next.RatePercent = rate
	}
	if req.AutoApply != nil {
		next.AutoApply = *req.AutoApply
	}
	next.UpdatedAt = s.now().UTC()

	if err := s.saveDocument(ctx, domain.SettingsKeyTax, next); err != nil {
		return domain.TaxSettings{}, err
	}
	s.logAudit(ctx, "settings_update", "settings", domain.SettingsKeyTax, fmt.Sprintf("enabled=%t,rate=%s,auto=%t", next.Enabled, next.RatePercent, next.AutoApply))
	return next, nil
}

func (s *Service) UpdateCurrencySettings(ctx context.Context, req domain.CurrencySettingsUpdate) (domain.CurrencySettings, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.CurrencySettings{}, err
	}
	current, err := s.LoadSettings(ctx)
	if err != nil {
		return domain.CurrencySettings{}, err
	}

	next := current.Currency
	if req.ExchangeRate != nil {
		rate := req.ExchangeRate.Round(domain.ExchangeRateScale)
		if !rate.IsPositive() {
			return domain.CurrencySettings{}, invalid("exchange_rate must be greater than zero")
		}
		next.ExchangeRate = rate
	}
	if req.ForeignEnabled != nil {
		next.ForeignEnabled = *req.ForeignEnabled
	}
	next.UpdatedAt = s.now().UTC()

	if err := s.saveDocument(ctx, domain.SettingsKeyCurrency, next); err != nil {
		return domain.CurrencySettings{}, err
	}
	s.logAudit(ctx, "settings_update", "settings", domain.SettingsKeyCurrency, fmt.Sprintf("rate=%s,foreign=%t", next.ExchangeRate, next.ForeignEnabled))
	return next, nil
}

func (s *Service) saveDocument(ctx context.Context, key string, value any) error {
	if err := s.repo.PutSettings(ctx, key, value, s.now().UTC()); err != nil {
		return err
	}
	if err := s.settings.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: settings cache invalidate failed: %v", err)
	}
	return nil
}
