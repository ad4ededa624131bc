package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/money"
	"github.com/Bodin4747/CheikysAdmin/internal/receipt"
	"github.com/Bodin4747/CheikysAdmin/internal/xid"
)

const defaultCustomerName = "Cliente"

// QuoteCheckout prices a cart without recording anything.
func (s *Service) QuoteCheckout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutQuote, error) {
	settings, err := s.LoadSettings(ctx)
	if err != nil {
		return domain.CheckoutQuote{}, err
	}
	req, err = normalizeCheckout(req, settings)
	if err != nil {
		return domain.CheckoutQuote{}, err
	}
	return s.quote(ctx, settings, req)
}

// Checkout prices the cart, records the sale and renders its receipt. A
// receipt that cannot be rendered leaves the sale recorded with printed=false.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	settings, err := s.LoadSettings(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	req, err = normalizeCheckout(req, settings)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	if req.Channel == domain.ChannelPhone && req.CustomerPhone == "" {
		return domain.CheckoutResponse{}, invalid("customer_phone is required for phone sales")
	}

	quote, err := s.quote(ctx, settings, req)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	if req.PaymentMethod == domain.PaymentCash && quote.CashReceivedCents != nil && quote.ChangeCents == nil {
		return domain.CheckoutResponse{}, invalid("cash received does not cover the total")
	}

	sale, err := s.RecordSale(ctx, domain.Sale{
		ID:                   xid.New("sale"),
		CreatedAt:            s.now().UTC(),
		CustomerName:         defaultString(req.CustomerName, defaultCustomerName),
		CustomerPhone:        req.CustomerPhone,
		Cashier:              actorName(ctx),
		Items:                quote.Items,
		SubtotalCents:        quote.SubtotalCents,
		TaxCents:             quote.TaxCents,
		TaxRatePercent:       quote.TaxRatePercent,
		TotalCents:           quote.TotalCents,
		PaymentMethod:        req.PaymentMethod,
		Currency:             req.Currency,
		Channel:              req.Channel,
		CashReceivedCents:    quote.CashReceivedCents,
		ForeignReceivedCents: quote.ForeignReceivedCents,
		ExchangeRate:         quote.ExchangeRate,
		ChangeCents:          quote.ChangeCents,
	})
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	doc, printed := s.renderReceipt(domain.TicketFromSale(sale), settings.Printer)
	return domain.CheckoutResponse{Sale: sale, Receipt: doc, Printed: printed}, nil
}

func normalizeCheckout(req domain.CheckoutRequest, settings domain.Settings) (domain.CheckoutRequest, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.PaymentMethod = strings.ToLower(defaultString(strings.TrimSpace(req.PaymentMethod), domain.PaymentCash))
	req.Currency = strings.ToLower(defaultString(strings.TrimSpace(req.Currency), domain.CurrencyDomestic))
	req.Channel = strings.ToLower(defaultString(strings.TrimSpace(req.Channel), domain.ChannelInStore))

	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return req, invalid("unsupported payment method %q", req.PaymentMethod)
	}
	if !isSupportedCurrency(req.Currency) {
		return req, invalid("unsupported currency %q", req.Currency)
	}
	if !isSupportedChannel(req.Channel) {
		return req, invalid("unsupported channel %q", req.Channel)
	}
	if req.Currency == domain.CurrencyForeign {
		if !settings.Currency.ForeignEnabled {
			return req, invalid("foreign currency payments are disabled")
		}
		if req.PaymentMethod != domain.PaymentCash {
			return req, invalid("foreign currency is accepted only in cash")
		}
	}
	if req.PaymentMethod != domain.PaymentCash {
		req.CashReceivedCents = nil
		req.ForeignReceivedCents = nil
	}
	if req.Currency == domain.CurrencyDomestic {
		req.ForeignReceivedCents = nil
	} else {
		req.CashReceivedCents = nil
	}
	if req.CashReceivedCents != nil && *req.CashReceivedCents < 0 {
		return req, invalid("cash_received_cents must not be negative")
	}
	if req.ForeignReceivedCents != nil && *req.ForeignReceivedCents < 0 {
		return req, invalid("foreign_received_cents must not be negative")
	}
	return req, nil
}

func (s *Service) quote(ctx context.Context, settings domain.Settings, req domain.CheckoutRequest) (domain.CheckoutQuote, error) {
	lines, subtotal, err := s.priceCart(ctx, req.CartItems)
	if err != nil {
		return domain.CheckoutQuote{}, err
	}

	quote := domain.CheckoutQuote{
		Items:         lines,
		SubtotalCents: subtotal,
		TotalCents:    subtotal,
	}

	if taxApplies(settings.Tax, req.ApplyTax) {
		rate := settings.Tax.RatePercent.Round(domain.TaxRateScale)
		tax := money.Tax(subtotal, rate)
		quote.TaxCents = &tax
		quote.TaxRatePercent = &rate
		quote.TotalCents = subtotal + tax
	}

	received := req.CashReceivedCents
	if req.Currency == domain.CurrencyForeign {
		rate := settings.Currency.ExchangeRate.Round(domain.ExchangeRateScale)
		if !rate.IsPositive() {
			return domain.CheckoutQuote{}, invalid("exchange rate is not configured")
		}
		quote.ExchangeRate = &rate
		quote.ForeignTotalCents = money.Ptr(money.ToForeign(quote.TotalCents, rate))
		if req.ForeignReceivedCents != nil {
			quote.ForeignReceivedCents = money.Ptr(*req.ForeignReceivedCents)
			received = money.Ptr(money.ToDomestic(*req.ForeignReceivedCents, rate))
		}
	}

	if received != nil {
		quote.CashReceivedCents = money.Ptr(*received)
		if change, ok := money.Change(*received, quote.TotalCents); ok {
			quote.ChangeCents = &change
		}
	}
	return quote, nil
}

func taxApplies(tax domain.TaxSettings, requested *bool) bool {
	if !tax.Enabled {
		return false
	}
	return tax.AutoApply || (requested != nil && *requested)
}

// RecordSale persists a finalized sale as open. The write is not retried; on
// error the caller must assume the sale does not exist.
func (s *Service) RecordSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	if err := validateSale(sale); err != nil {
		return domain.Sale{}, err
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = s.now().UTC()
	}
	sale.Closed = false
	sale.CutID = ""
	sale.ClosedAt = nil

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		log.Printf("[service] ERROR: failed to record sale total=%d payment=%s: %v", sale.TotalCents, sale.PaymentMethod, err)
		return domain.Sale{}, err
	}

	s.metrics.SaleRecorded(created.PaymentMethod, created.Channel, created.TotalCents)
	s.logAudit(ctx, "sale_create", "sale", created.ID, fmt.Sprintf("total=%d,payment=%s,currency=%s,channel=%s", created.TotalCents, created.PaymentMethod, created.Currency, created.Channel))
	return *created, nil
}

func validateSale(sale domain.Sale) error {
	if len(sale.Items) == 0 {
		return invalid("sale has no items")
	}
	sum := int64(0)
	for _, item := range sale.Items {
		if item.Qty < 1 {
			return invalid("item %s has a non-positive quantity", item.ProductID)
		}
		if item.UnitPriceCents*int64(item.Qty) != item.SubtotalCents {
			return invalid("item %s subtotal does not match its price", item.ProductID)
		}
		sum += item.SubtotalCents
	}
	if sum != sale.SubtotalCents {
		return invalid("subtotal does not match the items")
	}
	tax := int64(0)
	if sale.TaxCents != nil {
		if *sale.TaxCents < 0 {
			return invalid("tax must not be negative")
		}
		tax = *sale.TaxCents
	}
	if sale.TotalCents != sale.SubtotalCents+tax {
		return invalid("total does not match subtotal plus tax")
	}
	if !isSupportedPaymentMethod(sale.PaymentMethod) {
		return invalid("unsupported payment method %q", sale.PaymentMethod)
	}
	if !isSupportedCurrency(sale.Currency) {
		return invalid("unsupported currency %q", sale.Currency)
	}
	if !isSupportedChannel(sale.Channel) {
		return invalid("unsupported channel %q", sale.Channel)
	}
	return nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) RecentSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 20
	}
	return s.repo.ListSales(ctx, domain.SaleFilter{Limit: limit})
}

// ReprintReceipt renders the receipt of a stored sale again.
func (s *Service) ReprintReceipt(ctx context.Context, saleID string) (domain.ReceiptResponse, error) {
	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	settings, err := s.LoadSettings(ctx)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	doc, printed := s.renderReceipt(domain.TicketFromSale(sale), settings.Printer)
	return domain.ReceiptResponse{Receipt: doc, Printed: printed}, nil
}

// PreviewReceipt renders an arbitrary ticket with the current printer settings.
func (s *Service) PreviewReceipt(ctx context.Context, ticket domain.Ticket) (domain.ReceiptResponse, error) {
	settings, err := s.LoadSettings(ctx)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	doc, printed := s.renderReceipt(ticket, settings.Printer)
	return domain.ReceiptResponse{Receipt: doc, Printed: printed}, nil
}

func (s *Service) renderReceipt(ticket domain.Ticket, printer domain.PrinterSettings) (*domain.ReceiptDocument, bool) {
	doc, err := receipt.Render(ticket, printer, s.loc)
	s.metrics.ReceiptRendered(err == nil)
	if err != nil {
		log.Printf("[service] WARN: receipt render failed folio=%s: %v", ticket.Folio, err)
		return nil, false
	}
	return &doc, true
}

