package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/store"
)

func recordSale(t *testing.T, s *Store, at time.Time, total int64, method string) *domain.Sale {
	t.Helper()
	sale, err := s.CreateSale(context.Background(), domain.Sale{
		CreatedAt:     at,
		Items:         []domain.LineItem{{ProductID: "bebida-refresco", ProductName: "Refresco 600ml", Qty: 1, UnitPriceCents: total, SubtotalCents: total}},
		SubtotalCents: total,
		TotalCents:    total,
		PaymentMethod: method,
		Currency:      domain.CurrencyDomestic,
		Channel:       domain.ChannelInStore,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	return sale
}

func TestCreateSaleForcesOpen(t *testing.T) {
	s := New()
	closedAt := time.Now()
	sale, err := s.CreateSale(context.Background(), domain.Sale{
		Items:      []domain.LineItem{{ProductID: "x", Qty: 1, SubtotalCents: 100}},
		TotalCents: 100,
		Closed:     true,
		CutID:      "cut-forged",
		ClosedAt:   &closedAt,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.Closed || sale.CutID != "" || sale.ClosedAt != nil {
		t.Fatalf("expected new sale to be open, got %+v", sale)
	}
}

func TestCloseDayOnlyTouchesOpenSalesInWindow(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	inside := recordSale(t, s, day.Add(10*time.Hour), 10000, domain.PaymentCash)
	yesterday := recordSale(t, s, day.Add(-time.Hour), 20000, domain.PaymentCash)
	tomorrow := recordSale(t, s, day.Add(24*time.Hour), 5000, domain.PaymentCard)

	cut, err := s.CloseDay(ctx, domain.CutRequest{Operator: "admin", From: day, To: day.Add(24 * time.Hour), At: day.Add(23 * time.Hour)})
	if err != nil {
		t.Fatalf("close day: %v", err)
	}
	if cut.Count != 1 || cut.TotalCents != 10000 || len(cut.SaleIDs) != 1 || cut.SaleIDs[0] != inside.ID {
		t.Fatalf("unexpected cut %+v", cut)
	}

	for _, id := range []string{yesterday.ID, tomorrow.ID} {
		sale, _ := s.GetSale(ctx, id)
		if sale.Closed || sale.CutID != "" {
			t.Fatalf("sale %s outside the window was touched", id)
		}
	}
	sale, _ := s.GetSale(ctx, inside.ID)
	if !sale.Closed || sale.CutID != cut.ID || sale.ClosedAt == nil {
		t.Fatalf("expected sale closed by cut %s, got %+v", cut.ID, sale)
	}

	if _, err := s.CloseDay(ctx, domain.CutRequest{Operator: "admin", From: day, To: day.Add(24 * time.Hour), At: day.Add(23 * time.Hour)}); !errors.Is(err, store.ErrNothingToCut) {
		t.Fatalf("expected ErrNothingToCut on second run, got %v", err)
	}
}

func TestConcurrentCloseDayCreatesSingleCut(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		recordSale(t, s, day.Add(time.Duration(i)*time.Minute), 1000, domain.PaymentCash)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CloseDay(ctx, domain.CutRequest{Operator: "op", From: day, To: day.Add(24 * time.Hour), At: day.Add(time.Hour)})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			} else if !errors.Is(err, store.ErrNothingToCut) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one cut, got %d", created)
	}
	cuts, _ := s.ListCuts(ctx, 0)
	if len(cuts) != 1 || cuts[0].Count != 20 || cuts[0].TotalCents != 20000 {
		t.Fatalf("unexpected cuts %+v", cuts)
	}
}

func TestTransitionOrderIsOneWay(t *testing.T) {
	s := New()
	ctx := context.Background()
	order, err := s.CreateOrder(ctx, domain.Order{
		CustomerName: "Ana",
		Items:        []domain.LineItem{{ProductID: "x", Qty: 1, SubtotalCents: 100}},
		TotalCents:   100,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}

	if _, err := s.TransitionOrder(ctx, order.ID, domain.OrderStatusDelivered, time.Now()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	for _, next := range []string{domain.OrderStatusPending, domain.OrderStatusCancelled, domain.OrderStatusDelivered} {
		if _, err := s.TransitionOrder(ctx, order.ID, next, time.Now()); !errors.Is(err, store.ErrConflict) {
			t.Fatalf("expected conflict moving delivered order to %s, got %v", next, err)
		}
	}
	if _, err := s.TransitionOrder(ctx, "missing", domain.OrderStatusDelivered, time.Now()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSettingsRoundTripAndMissing(t *testing.T) {
	s := New()
	ctx := context.Background()

	var tax domain.TaxSettings
	if err := s.GetSettings(ctx, domain.SettingsKeyTax, &tax); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for missing settings, got %v", err)
	}

	want := domain.DefaultTaxSettings()
	want.Enabled = true
	if err := s.PutSettings(ctx, domain.SettingsKeyTax, want, time.Now()); err != nil {
		t.Fatalf("put settings: %v", err)
	}
	if err := s.GetSettings(ctx, domain.SettingsKeyTax, &tax); err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if !tax.Enabled || !tax.RatePercent.Equal(want.RatePercent) {
		t.Fatalf("unexpected settings %+v", tax)
	}
}

func TestSeededCatalogRespectsPricingShape(t *testing.T) {
	s := NewSeeded()
	products, err := s.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) == 0 || products[0].Category != domain.CategoryPizzas {
		t.Fatalf("expected pizzas listed first")
	}
	for _, p := range products {
		if p.Sized() == (p.PriceCents != nil) {
			t.Fatalf("product %s must be either sized or flat priced", p.ID)
		}
	}
}

func TestCreateFirstUserOnlyWhenEmpty(t *testing.T) {
	s := New()
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.CreateFirstUser(ctx, domain.UserAccount{
				Username: "duena" + string(rune('a'+i)),
				Password: "hash",
				Role:     domain.RoleOwner,
				Active:   true,
			})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			if !errors.Is(err, store.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one first user, got %d", created)
	}
	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 stored user, got %d", len(users))
	}
}
