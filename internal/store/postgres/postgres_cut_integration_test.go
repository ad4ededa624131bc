package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("CHEIKYS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set CHEIKYS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestCloseDayClosesWindowOnce(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	// A far-away day keeps the window clear of other rows.
	stamp := time.Now().UnixNano()
	day := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(stamp%100000) * 24 * time.Hour)
	saleIDs := make([]string, 0, 3)

	t.Cleanup(func() {
		for _, id := range saleIDs {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
		}
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cuts WHERE operator = $1`, fmt.Sprintf("it-%d", stamp))
	})

	for i, sale := range []struct {
		total  int64
		method string
	}{
		{10000, domain.PaymentCash},
		{20000, domain.PaymentCard},
		{5000, domain.PaymentCash},
	} {
		tax := int64(0)
		created, err := s.CreateSale(ctx, domain.Sale{
			ID:            fmt.Sprintf("sale-it-%d-%d", stamp, i),
			CreatedAt:     day.Add(time.Duration(i+9) * time.Hour),
			Items:         []domain.LineItem{{ProductID: "it", ProductName: "IT", Qty: 1, UnitPriceCents: sale.total, SubtotalCents: sale.total}},
			SubtotalCents: sale.total,
			TaxCents:      &tax,
			TotalCents:    sale.total,
			PaymentMethod: sale.method,
			Currency:      domain.CurrencyDomestic,
			Channel:       domain.ChannelInStore,
		})
		if err != nil {
			t.Fatalf("create sale: %v", err)
		}
		saleIDs = append(saleIDs, created.ID)
	}

	req := domain.CutRequest{Operator: fmt.Sprintf("it-%d", stamp), From: day, To: day.Add(24 * time.Hour), At: day.Add(23 * time.Hour)}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var cuts []*domain.Cut
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cut, err := s.CloseDay(ctx, req)
			if err != nil {
				if !errors.Is(err, store.ErrNothingToCut) && !errors.Is(err, store.ErrConflict) {
					t.Errorf("unexpected close day error: %v", err)
				}
				return
			}
			mu.Lock()
			cuts = append(cuts, cut)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(cuts) != 1 {
		t.Fatalf("expected exactly one cut, got %d", len(cuts))
	}
	cut := cuts[0]
	if cut.Count != 3 || cut.TotalCents != 35000 || cut.CashCents != 15000 || cut.CardCents != 20000 {
		t.Fatalf("unexpected cut totals %+v", cut)
	}

	for _, id := range saleIDs {
		sale, err := s.GetSale(ctx, id)
		if err != nil {
			t.Fatalf("get sale: %v", err)
		}
		if !sale.Closed || sale.CutID != cut.ID || sale.ClosedAt == nil {
			t.Fatalf("expected sale %s closed by %s, got %+v", id, cut.ID, sale)
		}
		if sale.TaxCents == nil || *sale.TaxCents != 0 || sale.ChangeCents != nil {
			t.Fatalf("optional amounts lost their presence on %s", id)
		}
	}

	if _, err := s.CloseDay(ctx, req); !errors.Is(err, store.ErrNothingToCut) {
		t.Fatalf("expected ErrNothingToCut on rerun, got %v", err)
	}
}

func TestCreateFirstUserRefusedOnceAccountsExist(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	existing := fmt.Sprintf("it-user-%d", stamp)
	late := fmt.Sprintf("it-late-%d", stamp)
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM app_users WHERE username IN ($1, $2)`, existing, late)
	})

	if err := s.CreateUser(ctx, domain.UserAccount{Username: existing, Password: "hash", Role: domain.RoleCashier, Active: true}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	err := s.CreateFirstUser(ctx, domain.UserAccount{Username: late, Password: "hash", Role: domain.RoleOwner, Active: true})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict once accounts exist, got %v", err)
	}
	if _, err := s.GetUser(ctx, late); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no account to be written, got %v", err)
	}
}
