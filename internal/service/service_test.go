package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/money"
	"github.com/Bodin4747/CheikysAdmin/internal/store"
	"github.com/Bodin4747/CheikysAdmin/internal/store/memory"
)

var testZone = time.FixedZone("CST", -6*3600)

// 2026-03-10 15:00 local.
var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, testZone)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	svc := New(repo, Options{
		Location: testZone,
		Now:      func() time.Time { return testNow },
	})
	return svc, repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleOwner})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: domain.RoleCashier})
}

func recordAt(t *testing.T, svc *Service, at time.Time, totalCents int64, method string) domain.Sale {
	t.Helper()
	sale, err := svc.RecordSale(cashierCtx(), domain.Sale{
		CreatedAt:     at.UTC(),
		Items:         []domain.LineItem{{ProductID: "bebida-refresco", ProductName: "Refresco 600ml", Category: domain.CategoryBebidas, UnitPriceCents: totalCents, Qty: 1, SubtotalCents: totalCents}},
		SubtotalCents: totalCents,
		TotalCents:    totalCents,
		PaymentMethod: method,
		Currency:      domain.CurrencyDomestic,
		Channel:       domain.ChannelInStore,
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	return sale
}

func TestDailyCutClosesTodaysOpenSalesOnce(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	morning := time.Date(2026, 3, 10, 9, 0, 0, 0, testZone)
	a := recordAt(t, svc, morning, 10000, domain.PaymentCash)
	b := recordAt(t, svc, morning.Add(time.Hour), 20000, domain.PaymentCard)
	c := recordAt(t, svc, morning.Add(2*time.Hour), 5000, domain.PaymentCash)
	yesterday := recordAt(t, svc, morning.Add(-24*time.Hour), 7000, domain.PaymentCash)

	result, err := svc.RunDailyCut(ctx, "")
	if err != nil {
		t.Fatalf("run daily cut: %v", err)
	}
	if !result.Created || result.Cut == nil {
		t.Fatalf("expected a cut to be created")
	}
	cut := result.Cut
	if cut.Count != 3 || cut.TotalCents != 35000 || cut.CashCents != 15000 || cut.CardCents != 20000 || cut.TransferCents != 0 {
		t.Fatalf("unexpected cut totals %+v", cut.SalesTotals)
	}
	if cut.DomesticCents != 35000 || cut.ForeignCents != 0 {
		t.Fatalf("unexpected currency partition %+v", cut.SalesTotals)
	}
	if cut.Operator != "admin" {
		t.Fatalf("expected operator admin, got %s", cut.Operator)
	}

	for _, id := range []string{a.ID, b.ID, c.ID} {
		sale, err := svc.GetSale(ctx, id)
		if err != nil {
			t.Fatalf("get sale: %v", err)
		}
		if !sale.Closed || sale.CutID != cut.ID {
			t.Fatalf("expected sale %s closed by %s", id, cut.ID)
		}
	}
	old, _ := svc.GetSale(ctx, yesterday.ID)
	if old.Closed {
		t.Fatalf("sale from yesterday must stay open")
	}

	again, err := svc.RunDailyCut(ctx, "")
	if err != nil {
		t.Fatalf("second cut: %v", err)
	}
	if again.Created || again.Cut != nil {
		t.Fatalf("expected second cut to be a no-op, got %+v", again)
	}
	cuts, _ := svc.ListCuts(ctx, 10)
	if len(cuts) != 1 {
		t.Fatalf("expected one stored cut, got %d", len(cuts))
	}
}

func TestDailyCutForPastDate(t *testing.T) {
	svc, _ := newTestService()
	recordAt(t, svc, time.Date(2026, 3, 9, 22, 0, 0, 0, testZone), 7000, domain.PaymentTransfer)

	result, err := svc.RunDailyCut(adminCtx(), "2026-03-09")
	if err != nil {
		t.Fatalf("run cut: %v", err)
	}
	if !result.Created || result.Cut.TransferCents != 7000 {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, err := svc.RunDailyCut(adminCtx(), "09/03/2026"); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected invalid date error, got %v", err)
	}
}

func TestSalesByRangeTotalsMatchDetails(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	recordAt(t, svc, time.Date(2026, 3, 1, 0, 0, 0, 0, testZone), 1000, domain.PaymentCash)
	recordAt(t, svc, time.Date(2026, 3, 5, 12, 0, 0, 0, testZone), 2000, domain.PaymentCard)
	recordAt(t, svc, time.Date(2026, 3, 7, 23, 59, 59, 0, testZone), 4000, domain.PaymentCash)
	recordAt(t, svc, time.Date(2026, 3, 8, 0, 0, 0, 0, testZone), 8000, domain.PaymentCash)
	recordAt(t, svc, time.Date(2026, 2, 28, 23, 59, 0, 0, testZone), 16000, domain.PaymentCash)

	report, err := svc.SalesByRange(ctx, domain.SalesRangeQuery{From: "2026-03-01", To: "2026-03-07"})
	if err != nil {
		t.Fatalf("sales by range: %v", err)
	}
	if report.Count != 3 || report.TotalCents != 7000 {
		t.Fatalf("expected 3 sales totalling 7000, got %d / %d", report.Count, report.TotalCents)
	}
	sum := int64(0)
	for _, sale := range report.Sales {
		sum += sale.TotalCents
	}
	if sum != report.TotalCents || len(report.Sales) != report.Count {
		t.Fatalf("detail list does not add up to the totals")
	}
	if report.CashCents+report.CardCents+report.TransferCents != report.TotalCents {
		t.Fatalf("payment partition does not add up")
	}
	if report.From != "2026-03-01" || report.To != "2026-03-07" {
		t.Fatalf("unexpected echoed range %s..%s", report.From, report.To)
	}

	cashOnly, err := svc.SalesByRange(ctx, domain.SalesRangeQuery{From: "2026-03-01", To: "2026-03-07", PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("cash only: %v", err)
	}
	if cashOnly.Count != 2 || cashOnly.TotalCents != 5000 {
		t.Fatalf("unexpected cash-only report %+v", cashOnly.SalesTotals)
	}

	if _, err := svc.SalesByRange(ctx, domain.SalesRangeQuery{From: "2026-03-07", To: "2026-03-01"}); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected inverted range to be rejected, got %v", err)
	}
}

func TestCheckoutAppliesTaxAndComputesChange(t *testing.T) {
	svc, _ := newTestService()
	enabled, auto := true, true
	if _, err := svc.UpdateTaxSettings(adminCtx(), domain.TaxSettingsUpdate{Enabled: &enabled, AutoApply: &auto}); err != nil {
		t.Fatalf("update tax: %v", err)
	}

	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		PaymentMethod:     domain.PaymentCash,
		CashReceivedCents: money.Ptr(5000),
		CartItems:         []domain.CartItem{{ProductID: "bebida-refresco", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	sale := resp.Sale
	if sale.SubtotalCents != 3000 || sale.TaxCents == nil || *sale.TaxCents != 480 || sale.TotalCents != 3480 {
		t.Fatalf("unexpected pricing %+v", sale)
	}
	if sale.ChangeCents == nil || *sale.ChangeCents != 1520 {
		t.Fatalf("expected change 1520, got %v", sale.ChangeCents)
	}
	if sale.Closed || sale.CustomerName != defaultCustomerName || sale.Cashier != "cashier" {
		t.Fatalf("unexpected sale header %+v", sale)
	}
	if !resp.Printed || resp.Receipt == nil {
		t.Fatalf("expected a rendered receipt")
	}
}

func TestCheckoutWithoutTaxLeavesTaxAbsent(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCard,
		CartItems:     []domain.CartItem{{ProductID: "bebida-refresco", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.Sale.TaxCents != nil || resp.Sale.CashReceivedCents != nil || resp.Sale.ChangeCents != nil {
		t.Fatalf("expected optional amounts to be absent, got %+v", resp.Sale)
	}
	if resp.Sale.TotalCents != 6000 {
		t.Fatalf("expected total 6000, got %d", resp.Sale.TotalCents)
	}
}

func TestCheckoutForeignCashConvertsTender(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		PaymentMethod:        domain.PaymentCash,
		Currency:             domain.CurrencyForeign,
		ForeignReceivedCents: money.Ptr(200),
		CartItems:            []domain.CartItem{{ProductID: "bebida-refresco", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	sale := resp.Sale
	if sale.CashReceivedCents == nil || *sale.CashReceivedCents != 3500 {
		t.Fatalf("expected 2 USD to be worth 3500 cents, got %v", sale.CashReceivedCents)
	}
	if sale.ChangeCents == nil || *sale.ChangeCents != 500 {
		t.Fatalf("expected change 500, got %v", sale.ChangeCents)
	}
	if sale.ExchangeRate == nil || !sale.ExchangeRate.Equal(decimal.RequireFromString("17.5")) {
		t.Fatalf("expected exchange rate to be stamped on the sale")
	}

	if _, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		PaymentMethod: domain.PaymentCard,
		Currency:      domain.CurrencyForeign,
		CartItems:     []domain.CartItem{{ProductID: "bebida-refresco", Qty: 1}},
	}); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected foreign card payment to be rejected, got %v", err)
	}
}

func TestRatesKeepStoredPrecision(t *testing.T) {
	svc, _ := newTestService()

	rate := decimal.RequireFromString("17.123456")
	updated, err := svc.UpdateCurrencySettings(adminCtx(), domain.CurrencySettingsUpdate{ExchangeRate: &rate})
	if err != nil {
		t.Fatalf("update currency: %v", err)
	}
	if !updated.ExchangeRate.Equal(decimal.RequireFromString("17.1235")) {
		t.Fatalf("expected rate rounded to 4 decimals, got %s", updated.ExchangeRate)
	}

	tiny := decimal.RequireFromString("0.00001")
	if _, err := svc.UpdateCurrencySettings(adminCtx(), domain.CurrencySettingsUpdate{ExchangeRate: &tiny}); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected rate that rounds to zero to be rejected, got %v", err)
	}

	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		PaymentMethod:        domain.PaymentCash,
		Currency:             domain.CurrencyForeign,
		ForeignReceivedCents: money.Ptr(1000),
		CartItems:            []domain.CartItem{{ProductID: "bebida-refresco", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	sale := resp.Sale
	if sale.ExchangeRate == nil || !sale.ExchangeRate.Equal(decimal.RequireFromString("17.1235")) {
		t.Fatalf("expected stored rate 17.1235, got %v", sale.ExchangeRate)
	}
	want := money.ToDomestic(1000, *sale.ExchangeRate)
	if sale.CashReceivedCents == nil || *sale.CashReceivedCents != want {
		t.Fatalf("expected received %d from the stored rate, got %v", want, sale.CashReceivedCents)
	}

	taxRate := decimal.RequireFromString("16.00049")
	tax, err := svc.UpdateTaxSettings(adminCtx(), domain.TaxSettingsUpdate{RatePercent: &taxRate})
	if err != nil {
		t.Fatalf("update tax: %v", err)
	}
	if !tax.RatePercent.Equal(decimal.RequireFromString("16")) {
		t.Fatalf("expected tax rate rounded to 3 decimals, got %s", tax.RatePercent)
	}
}

func TestCheckoutRejectsInvalidCarts(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()

	cases := map[string]domain.CheckoutRequest{
		"short cash": {
			PaymentMethod:     domain.PaymentCash,
			CashReceivedCents: money.Ptr(1000),
			CartItems:         []domain.CartItem{{ProductID: "bebida-refresco", Qty: 1}},
		},
		"unknown product": {
			CartItems: []domain.CartItem{{ProductID: "nope", Qty: 1}},
		},
		"missing size": {
			CartItems: []domain.CartItem{{ProductID: "pizza-pepperoni", Qty: 1}},
		},
		"boneless on small pizza": {
			CartItems: []domain.CartItem{{ProductID: "pizza-pepperoni", Qty: 1, Size: "chica", WithBoneless: true}},
		},
		"phone without number": {
			Channel:   domain.ChannelPhone,
			CartItems: []domain.CartItem{{ProductID: "bebida-refresco", Qty: 1}},
		},
		"empty cart": {},
		"bad payment": {
			PaymentMethod: "crypto",
			CartItems:     []domain.CartItem{{ProductID: "bebida-refresco", Qty: 1}},
		},
	}
	for name, req := range cases {
		if _, err := svc.Checkout(ctx, req); !errors.Is(err, store.ErrInvalidTransaction) {
			t.Fatalf("%s: expected invalid transaction, got %v", name, err)
		}
	}

	sales, _ := repo.ListSales(context.Background(), domain.SaleFilter{})
	if len(sales) != 0 {
		t.Fatalf("rejected checkouts must not write sales, found %d", len(sales))
	}
}

func TestQuoteMergesIdenticalLines(t *testing.T) {
	svc, _ := newTestService()

	quote, err := svc.QuoteCheckout(cashierCtx(), domain.CheckoutRequest{
		CartItems: []domain.CartItem{
			{ProductID: "pizza-pepperoni", Qty: 1, Size: "grande", WithBoneless: true, BonelessSauce: "bbq"},
			{ProductID: "pizza-pepperoni", Qty: 2, Size: "Grande ", WithBoneless: true, BonelessSauce: "bbq"},
			{ProductID: "pizza-pepperoni", Qty: 1, Size: "grande", Observations: "sin cebolla"},
		},
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if len(quote.Items) != 2 {
		t.Fatalf("expected 2 merged lines, got %d", len(quote.Items))
	}
	if quote.Items[0].Qty != 3 || quote.Items[0].SubtotalCents != 60000 {
		t.Fatalf("unexpected merged line %+v", quote.Items[0])
	}
	if quote.SubtotalCents != 80000 || quote.TotalCents != 80000 {
		t.Fatalf("unexpected subtotal %d", quote.SubtotalCents)
	}
}

func TestRecordSaleRejectsInconsistentTotals(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.RecordSale(cashierCtx(), domain.Sale{
		Items:         []domain.LineItem{{ProductID: "x", UnitPriceCents: 1000, Qty: 2, SubtotalCents: 2000}},
		SubtotalCents: 2000,
		TaxCents:      money.Ptr(320),
		TotalCents:    2000,
		PaymentMethod: domain.PaymentCash,
		Currency:      domain.CurrencyDomestic,
		Channel:       domain.ChannelInStore,
	})
	if !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected invalid transaction, got %v", err)
	}
}

func TestOrdersOnlyLeavePending(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName:  "Ana",
		CustomerPhone: "555-000-1111",
		CartItems:     []domain.CartItem{{ProductID: "pizza-hawaiana", Qty: 1, Size: "mediana"}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != domain.OrderStatusPending || order.TotalCents != 16500 {
		t.Fatalf("unexpected order %+v", order)
	}

	delivered, err := svc.DeliverOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", delivered.Status)
	}
	if _, err := svc.CancelOrder(ctx, order.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict cancelling a delivered order, got %v", err)
	}

	pending, err := svc.ListOrders(ctx, domain.OrderStatusPending, 10)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending orders, got %d", len(pending))
	}
	if _, err := svc.ListOrders(ctx, "lost", 10); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected unknown status to be rejected, got %v", err)
	}
}

func TestProductValidationAndRoles(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{Name: "Agua", Category: domain.CategoryBebidas, PriceCents: money.Ptr(2000)}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected cashier to be forbidden, got %v", err)
	}

	cases := map[string]domain.ProductCreateRequest{
		"pizza without sizes": {Name: "Vegetariana", Category: domain.CategoryPizzas, PriceCents: money.Ptr(15000)},
		"both shapes": {Name: "Mixta", Category: domain.CategoryOtro, PriceCents: money.Ptr(1000),
			Sizes: map[string]domain.SizeTier{"chica": {PriceCents: 1000, Enabled: true}}},
		"unknown size": {Name: "Gigante", Category: domain.CategoryPizzas,
			Sizes: map[string]domain.SizeTier{"mega": {PriceCents: 1000, Enabled: true}}},
		"unknown category": {Name: "Postre", Category: "postres", PriceCents: money.Ptr(1000)},
		"zero price":       {Name: "Gratis", Category: domain.CategoryOtro, PriceCents: money.Ptr(0)},
	}
	for name, req := range cases {
		if _, err := svc.CreateProduct(adminCtx(), req); !errors.Is(err, store.ErrInvalidTransaction) {
			t.Fatalf("%s: expected invalid transaction, got %v", name, err)
		}
	}

	created, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name:     "Vegetariana",
		Category: domain.CategoryPizzas,
		Sizes:    map[string]domain.SizeTier{"grande": {PriceCents: 19000, Enabled: true}},
	})
	if err != nil {
		t.Fatalf("create pizza: %v", err)
	}
	if created.Kind != domain.ProductKindPizza || !created.Available {
		t.Fatalf("unexpected product %+v", created)
	}

	price := int64(18000)
	if _, err := svc.UpdateProduct(adminCtx(), created.ID, domain.ProductUpdateRequest{PriceCents: &price}); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected flat price on a pizza to be rejected, got %v", err)
	}
}

func TestLoadSettingsPersistsDefaults(t *testing.T) {
	repo := memory.New()
	svc := New(repo, Options{Now: func() time.Time { return testNow }})

	settings, err := svc.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if settings.Tax.Enabled || !settings.Tax.RatePercent.Equal(decimal.NewFromInt(16)) {
		t.Fatalf("unexpected tax defaults %+v", settings.Tax)
	}
	if settings.Printer.PaperWidthMM != 58 || settings.Printer.PrinterPort != "9100" || settings.Printer.Copies != 1 {
		t.Fatalf("unexpected printer defaults %+v", settings.Printer)
	}

	var stored domain.CurrencySettings
	if err := repo.GetSettings(context.Background(), domain.SettingsKeyCurrency, &stored); err != nil {
		t.Fatalf("expected currency defaults to be persisted: %v", err)
	}
	if !stored.ExchangeRate.Equal(decimal.RequireFromString("17.5")) {
		t.Fatalf("unexpected stored rate %s", stored.ExchangeRate)
	}
}

type countingCache struct {
	generation  int64
	values      map[int64]domain.Settings
	invalidated int
	beforeSet   func()
}

func (c *countingCache) Get(_ context.Context) (*domain.Settings, int64, bool, error) {
	value, ok := c.values[c.generation]
	if !ok {
		return nil, c.generation, false, nil
	}
	return &value, c.generation, true, nil
}

func (c *countingCache) Set(_ context.Context, generation int64, value *domain.Settings, _ time.Duration) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	if c.values == nil {
		c.values = make(map[int64]domain.Settings)
	}
	c.values[generation] = *value
	return nil
}

func (c *countingCache) Invalidate(_ context.Context) error {
	c.generation++
	c.invalidated++
	return nil
}

func (c *countingCache) current() (domain.Settings, bool) {
	value, ok := c.values[c.generation]
	return value, ok
}

func TestSettingsUpdatesInvalidateCache(t *testing.T) {
	cached := &countingCache{}
	svc := New(memory.NewSeeded(), Options{SettingsCache: cached, Now: func() time.Time { return testNow }})

	if _, err := svc.LoadSettings(context.Background()); err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if _, ok := cached.current(); !ok {
		t.Fatalf("expected settings to be cached")
	}

	rate := decimal.RequireFromString("18.25")
	if _, err := svc.UpdateCurrencySettings(adminCtx(), domain.CurrencySettingsUpdate{ExchangeRate: &rate}); err != nil {
		t.Fatalf("update currency: %v", err)
	}
	if cached.invalidated != 1 {
		t.Fatalf("expected one invalidation, got %d", cached.invalidated)
	}

	settings, err := svc.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("reload settings: %v", err)
	}
	if !settings.Currency.ExchangeRate.Equal(rate) {
		t.Fatalf("expected fresh rate %s, got %s", rate, settings.Currency.ExchangeRate)
	}

	bad := decimal.NewFromInt(30)
	if _, err := svc.UpdateTaxSettings(adminCtx(), domain.TaxSettingsUpdate{RatePercent: &bad}); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected tax rate above 25 to be rejected, got %v", err)
	}
}

func TestSettingsUpdateDuringLoadIsNotShadowedByStaleCache(t *testing.T) {
	cached := &countingCache{}
	svc := New(memory.NewSeeded(), Options{SettingsCache: cached, Now: func() time.Time { return testNow }})

	rate := decimal.RequireFromString("19.10")
	cached.beforeSet = func() {
		if _, err := svc.UpdateCurrencySettings(adminCtx(), domain.CurrencySettingsUpdate{ExchangeRate: &rate}); err != nil {
			t.Fatalf("update currency: %v", err)
		}
	}
	stale, err := svc.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if stale.Currency.ExchangeRate.Equal(rate) {
		t.Fatalf("expected the racing load to have read the previous rate")
	}

	settings, err := svc.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("reload settings: %v", err)
	}
	if !settings.Currency.ExchangeRate.Equal(rate) {
		t.Fatalf("expected updated rate %s after racing load, got %s", rate, settings.Currency.ExchangeRate)
	}
}

func TestProductStatsPicksBestSellers(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	for _, cart := range [][]domain.CartItem{
		{{ProductID: "pizza-pepperoni", Qty: 2, Size: "grande"}, {ProductID: "bebida-refresco", Qty: 1}},
		{{ProductID: "pizza-hawaiana", Qty: 1, Size: "chica"}},
	} {
		if _, err := svc.Checkout(ctx, domain.CheckoutRequest{PaymentMethod: domain.PaymentCard, CartItems: cart}); err != nil {
			t.Fatalf("checkout: %v", err)
		}
	}

	report, err := svc.ProductStats(adminCtx(), domain.SalesRangeQuery{From: "2026-03-10", To: "2026-03-10", Category: domain.CategoryPizzas})
	if err != nil {
		t.Fatalf("product stats: %v", err)
	}
	if report.BestSellingProduct == nil || report.BestSellingProduct.ProductID != "pizza-pepperoni" {
		t.Fatalf("unexpected best seller %+v", report.BestSellingProduct)
	}
	if report.BestSellingSize == nil || report.BestSellingSize.Size != "grande" {
		t.Fatalf("unexpected best size %+v", report.BestSellingSize)
	}
	if len(report.Products) != 2 {
		t.Fatalf("category filter should leave 2 pizzas, got %d", len(report.Products))
	}

	summary, err := svc.TodaySummary(ctx)
	if err != nil {
		t.Fatalf("today summary: %v", err)
	}
	if summary.Count != 2 || summary.OpenCount != 2 || summary.Date != "2026-03-10" {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestReprintRendersStoredSale(t *testing.T) {
	svc, _ := newTestService()
	sale := recordAt(t, svc, testNow, 3000, domain.PaymentCash)

	resp, err := svc.ReprintReceipt(cashierCtx(), sale.ID)
	if err != nil {
		t.Fatalf("reprint: %v", err)
	}
	if !resp.Printed || resp.Receipt == nil {
		t.Fatalf("expected receipt to render")
	}

	preview, err := svc.PreviewReceipt(cashierCtx(), domain.Ticket{})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.Printed || preview.Receipt != nil {
		t.Fatalf("empty ticket must report printed=false")
	}

	if _, err := svc.ReprintReceipt(cashierCtx(), "sale-missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
