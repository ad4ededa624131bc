package memory

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/store"
	"github.com/Bodin4747/CheikysAdmin/internal/tally"
	"github.com/Bodin4747/CheikysAdmin/internal/xid"
)

type settingsDoc struct {
	payload   []byte
	updatedAt time.Time
}

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	salesByID       map[string]*domain.Sale
	cutsByID        map[string]domain.Cut
	ordersByID      map[string]domain.Order
	settings        map[string]settingsDoc
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// New returns an empty store with no catalog and no users.
func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		salesByID:       make(map[string]*domain.Sale),
		cutsByID:        make(map[string]domain.Cut),
		ordersByID:      make(map[string]domain.Order),
		settings:        make(map[string]settingsDoc),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD and
// fall back to dev defaults with a warning.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username    string
		displayName string
		password    string
		role        string
	}{
		{"admin", "Administrador", adminPwd, domain.RoleOwner},
		{"cashier", "Caja 1", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:    u.username,
			DisplayName: u.displayName,
			Password:    string(hash),
			Role:        u.role,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func pizzaSizes(personal, chica, mediana, grande, extragrande int64) map[string]domain.SizeTier {
	return map[string]domain.SizeTier{
		"personal":    {PriceCents: personal, Enabled: true},
		"chica":       {PriceCents: chica, Enabled: true},
		"mediana":     {PriceCents: mediana, Enabled: true, Boneless: true},
		"grande":      {PriceCents: grande, Enabled: true, Boneless: true},
		"extragrande": {PriceCents: extragrande, Enabled: true, Boneless: true},
	}
}

func flat(cents int64) *int64 {
	return &cents
}

// NewSeeded returns a store with a demo catalog and the seed accounts.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: "pizza-pepperoni", Name: "Pepperoni", Description: "Queso mozzarella y pepperoni", Category: domain.CategoryPizzas, Kind: domain.ProductKindPizza, Sizes: pizzaSizes(9000, 12000, 16000, 20000, 25000)},
		{ID: "pizza-hawaiana", Name: "Hawaiana", Description: "Jamón y piña", Category: domain.CategoryPizzas, Kind: domain.ProductKindPizza, Sizes: pizzaSizes(9500, 12500, 16500, 21000, 26000)},
		{ID: "pizza-mexicana", Name: "Mexicana", Description: "Chorizo, jalapeño y cebolla", Category: domain.CategoryPizzas, Kind: domain.ProductKindPizza, Sizes: pizzaSizes(10000, 13000, 17000, 22000, 27000)},
		{ID: "pizza-cheikys", Name: "Cheikys Especial", Description: "Especialidad de la casa", Category: domain.CategoryPizzas, Kind: domain.ProductKindPizza, Sizes: pizzaSizes(11000, 14000, 18500, 23500, 29000)},
		{ID: "boneless-orden", Name: "Orden de Boneless", Description: "Con salsa a elegir", Category: domain.CategoryBoneless, Kind: "boneless", PriceCents: flat(13000)},
		{ID: "comp-papas", Name: "Papas a la francesa", Category: domain.CategoryComplementos, Kind: "complemento", PriceCents: flat(6000)},
		{ID: "comp-banderillas", Name: "Banderillas", Category: domain.CategoryComplementos, Kind: "complemento", PriceCents: flat(5500)},
		{ID: "bebida-refresco", Name: "Refresco 600ml", Category: domain.CategoryBebidas, Kind: "bebida", PriceCents: flat(3000)},
		{ID: "bebida-agua", Name: "Agua natural 1L", Category: domain.CategoryBebidas, Kind: "bebida", PriceCents: flat(2500)},
	}
	for _, p := range products {
		p.Available = true
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
	}
	s.usersByUsername = seedUsers()
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, cloneProduct(p))
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		if a.Category == domain.CategoryPizzas {
			return -1
		}
		if b.Category == domain.CategoryPizzas {
			return 1
		}
		return strings.Compare(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	dup := cloneProduct(product)
	return &dup, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			result[id] = cloneProduct(product)
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Sized() == (product.PriceCents != nil) {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalidTransaction
	}
	s.products[product.ID] = cloneProduct(product)
	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Sized() == (product.PriceCents != nil) {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.products[product.ID] = cloneProduct(product)
	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if _, exists := s.salesByID[sale.ID]; exists {
		return nil, store.ErrInvalidTransaction
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.Closed = false
	sale.CutID = ""
	sale.ClosedAt = nil

	s.salesByID[sale.ID] = cloneSale(&sale)
	return cloneSale(&sale), nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectSales(filter), nil
}

// selectSales must be called with s.mu held.
func (s *Store) selectSales(filter domain.SaleFilter) []domain.Sale {
	result := make([]domain.Sale, 0, 64)
	for _, sale := range s.salesByID {
		if !filter.From.IsZero() && sale.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !sale.CreatedAt.Before(filter.To) {
			continue
		}
		if filter.PaymentMethod != "" && sale.PaymentMethod != filter.PaymentMethod {
			continue
		}
		if filter.OnlyOpen && sale.Closed {
			continue
		}
		result = append(result, *cloneSale(sale))
	}

	slices.SortFunc(result, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result
}

// CloseDay holds the write lock across selection, cut creation and the flag
// flip, so concurrent cuts serialize and the second one sees nothing open.
func (s *Store) CloseDay(_ context.Context, req domain.CutRequest) (*domain.Cut, error) {
	if req.From.IsZero() || req.To.IsZero() || !req.From.Before(req.To) {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	open := s.selectSales(domain.SaleFilter{From: req.From, To: req.To, OnlyOpen: true})
	if len(open) == 0 {
		return nil, store.ErrNothingToCut
	}

	cut := domain.Cut{
		ID:          req.CutID,
		CreatedAt:   req.At,
		Operator:    req.Operator,
		SalesTotals: tally.Sales(open),
		SaleIDs:     make([]string, 0, len(open)),
	}
	if cut.ID == "" {
		cut.ID = xid.New("cut")
	}
	if cut.CreatedAt.IsZero() {
		cut.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.cutsByID[cut.ID]; exists {
		return nil, store.ErrConflict
	}

	closedAt := cut.CreatedAt
	for _, sale := range open {
		cut.SaleIDs = append(cut.SaleIDs, sale.ID)
		stored := s.salesByID[sale.ID]
		stored.Closed = true
		stored.CutID = cut.ID
		stored.ClosedAt = &closedAt
	}
	s.cutsByID[cut.ID] = cloneCut(cut)
	return &cut, nil
}

func (s *Store) GetCut(_ context.Context, id string) (*domain.Cut, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cut, exists := s.cutsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	dup := cloneCut(cut)
	return &dup, nil
}

func (s *Store) ListCuts(_ context.Context, limit int) ([]domain.Cut, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cuts := make([]domain.Cut, 0, len(s.cutsByID))
	for _, cut := range s.cutsByID {
		cuts = append(cuts, cloneCut(cut))
	}
	slices.SortFunc(cuts, func(a, b domain.Cut) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(cuts) > limit {
		cuts = cuts[:limit]
	}
	return cuts, nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	if len(order.Items) == 0 || strings.TrimSpace(order.CustomerName) == "" {
		return nil, store.ErrInvalidTransaction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = xid.New("order")
	}
	if _, exists := s.ordersByID[order.ID]; exists {
		return nil, store.ErrInvalidTransaction
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	order.Status = domain.OrderStatusPending

	s.ordersByID[order.ID] = cloneOrder(order)
	created := cloneOrder(order)
	return &created, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	dup := cloneOrder(order)
	return &dup, nil
}

func (s *Store) ListOrders(_ context.Context, status string, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		if status != "" && order.Status != status {
			continue
		}
		orders = append(orders, cloneOrder(order))
	}
	slices.SortFunc(orders, func(a, b domain.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) TransitionOrder(_ context.Context, id string, status string, at time.Time) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if !domain.CanTransitionOrder(order.Status, status) {
		return nil, store.ErrConflict
	}
	order.Status = status
	order.UpdatedAt = at
	s.ordersByID[id] = order
	updated := cloneOrder(order)
	return &updated, nil
}

func (s *Store) GetSettings(_ context.Context, key string, dest any) error {
	s.mu.RLock()
	doc, exists := s.settings[key]
	s.mu.RUnlock()
	if !exists {
		return store.ErrNotFound
	}
	return json.Unmarshal(doc.payload, dest)
}

func (s *Store) PutSettings(_ context.Context, key string, value any, at time.Time) error {
	if strings.TrimSpace(key) == "" {
		return store.ErrInvalidTransaction
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = settingsDoc{payload: payload, updatedAt: at}
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertUserLocked(user)
}

func (s *Store) CreateFirstUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.usersByUsername) > 0 {
		return store.ErrConflict
	}
	return s.insertUserLocked(user)
}

func (s *Store) insertUserLocked(user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidTransaction
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidTransaction
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	existing, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	existing.DisplayName = user.DisplayName
	existing.Role = user.Role
	existing.Active = user.Active
	existing.UpdatedAt = time.Now().UTC()
	s.usersByUsername[username] = existing
	return nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidTransaction
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	user.UpdatedAt = time.Now().UTC()
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if _, exists := s.usersByUsername[username]; !exists {
		return store.ErrNotFound
	}
	delete(s.usersByUsername, username)
	return nil
}

func cloneProduct(src domain.Product) domain.Product {
	dup := src
	if src.PriceCents != nil {
		price := *src.PriceCents
		dup.PriceCents = &price
	}
	if src.Sizes != nil {
		dup.Sizes = make(map[string]domain.SizeTier, len(src.Sizes))
		for k, v := range src.Sizes {
			dup.Sizes[k] = v
		}
	}
	return dup
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dup := *src
	dup.Items = slices.Clone(src.Items)
	if src.ClosedAt != nil {
		at := *src.ClosedAt
		dup.ClosedAt = &at
	}
	return &dup
}

func cloneCut(src domain.Cut) domain.Cut {
	dup := src
	dup.SaleIDs = slices.Clone(src.SaleIDs)
	return dup
}

func cloneOrder(src domain.Order) domain.Order {
	dup := src
	dup.Items = slices.Clone(src.Items)
	return dup
}
