package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/store"
	"github.com/Bodin4747/CheikysAdmin/internal/tally"
	"github.com/Bodin4747/CheikysAdmin/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the bundled schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";\n") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const productColumns = `id, name, description, category, kind, image_url, price_cents, sizes, available, created_at, updated_at`

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var price sql.NullInt64
	var sizes []byte
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Kind, &p.ImageURL, &price, &sizes, &p.Available, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Product{}, err
	}
	p.PriceCents = int64Ptr(price)
	if len(sizes) > 0 {
		if err := json.Unmarshal(sizes, &p.Sizes); err != nil {
			return domain.Product{}, err
		}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY (category = 'pizzas') DESC, category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Sized() == (product.PriceCents != nil) {
		return nil, store.ErrInvalidTransaction
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	sizes, err := sizesParam(product)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, category, kind, image_url, price_cents, sizes, available, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, product.ID, product.Name, product.Description, product.Category, product.Kind, product.ImageURL,
		nullInt64(product.PriceCents), sizes, product.Available, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidTransaction
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Sized() == (product.PriceCents != nil) {
		return nil, store.ErrInvalidTransaction
	}
	sizes, err := sizesParam(product)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, category = $4, kind = $5, image_url = $6,
			price_cents = $7, sizes = $8, available = $9, updated_at = $10
		WHERE id = $1
	`, product.ID, product.Name, product.Description, product.Category, product.Kind, product.ImageURL,
		nullInt64(product.PriceCents), sizes, product.Available, product.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

const saleColumns = `id, created_at, customer_name, customer_phone, cashier, items, subtotal_cents,
	tax_cents, tax_rate_percent, total_cents, payment_method, currency, channel,
	cash_received_cents, foreign_received_cents, exchange_rate, change_cents,
	closed, cut_id, closed_at`

func scanSale(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	var items []byte
	var tax, cashReceived, foreignReceived, change sql.NullInt64
	var taxRate, rate decimal.NullDecimal
	var cutID sql.NullString
	var closedAt sql.NullTime

	err := row.Scan(
		&sale.ID,
		&sale.CreatedAt,
		&sale.CustomerName,
		&sale.CustomerPhone,
		&sale.Cashier,
		&items,
		&sale.SubtotalCents,
		&tax,
		&taxRate,
		&sale.TotalCents,
		&sale.PaymentMethod,
		&sale.Currency,
		&sale.Channel,
		&cashReceived,
		&foreignReceived,
		&rate,
		&change,
		&sale.Closed,
		&cutID,
		&closedAt,
	)
	if err != nil {
		return domain.Sale{}, err
	}
	if err := json.Unmarshal(items, &sale.Items); err != nil {
		return domain.Sale{}, err
	}

	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.TaxCents = int64Ptr(tax)
	sale.TaxRatePercent = decimalPtr(taxRate)
	sale.CashReceivedCents = int64Ptr(cashReceived)
	sale.ForeignReceivedCents = int64Ptr(foreignReceived)
	sale.ExchangeRate = decimalPtr(rate)
	sale.ChangeCents = int64Ptr(change)
	sale.CutID = cutID.String
	if closedAt.Valid {
		at := closedAt.Time.UTC()
		sale.ClosedAt = &at
	}
	return sale, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidTransaction
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.Closed = false
	sale.CutID = ""
	sale.ClosedAt = nil

	items, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales (
			id, created_at, customer_name, customer_phone, cashier, items, subtotal_cents,
			tax_cents, tax_rate_percent, total_cents, payment_method, currency, channel,
			cash_received_cents, foreign_received_cents, exchange_rate, change_cents, closed
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,false)
	`,
		sale.ID, sale.CreatedAt, sale.CustomerName, sale.CustomerPhone, sale.Cashier, string(items), sale.SubtotalCents,
		nullInt64(sale.TaxCents), nullDecimal(sale.TaxRatePercent), sale.TotalCents, sale.PaymentMethod, sale.Currency, sale.Channel,
		nullInt64(sale.CashReceivedCents), nullInt64(sale.ForeignReceivedCents), nullDecimal(sale.ExchangeRate), nullInt64(sale.ChangeCents),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidTransaction
		}
		return nil, err
	}
	created := sale
	return &created, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	conds := make([]string, 0, 4)
	args := make([]any, 0, 5)
	where := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !filter.From.IsZero() {
		where("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		where("created_at < $%d", filter.To)
	}
	if filter.PaymentMethod != "" {
		where("payment_method = $%d", filter.PaymentMethod)
	}
	if filter.OnlyOpen {
		conds = append(conds, "closed = false")
	}

	query := `SELECT ` + saleColumns + ` FROM sales`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

// CloseDay runs the whole cut in one SERIALIZABLE transaction: the open sales
// of the window are locked, the cut row is written and the same rows are
// flipped to closed. A concurrent cut either waits and finds nothing open or
// fails with ErrConflict.
func (s *Store) CloseDay(ctx context.Context, req domain.CutRequest) (*domain.Cut, error) {
	if req.From.IsZero() || req.To.IsZero() || !req.From.Before(req.To) {
		return nil, store.ErrInvalidTransaction
	}
	if req.CutID == "" {
		req.CutID = xid.New("cut")
	}
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	rows, err := pgTx.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE created_at >= $1 AND created_at < $2 AND closed = false
		ORDER BY created_at, id
		FOR UPDATE
	`, req.From, req.To)
	if err != nil {
		return nil, mapTxError(err)
	}
	open := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		open = append(open, sale)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, mapTxError(err)
	}
	_ = rows.Close()

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
	for _, sale := range open {
		cut.SaleIDs = append(cut.SaleIDs, sale.ID)
	}
	saleIDs, err := json.Marshal(cut.SaleIDs)
	if err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO cuts (
			id, created_at, operator, sales_count, total_cents, cash_cents, card_cents,
			transfer_cents, domestic_cents, foreign_cents, sale_ids
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, cut.ID, cut.CreatedAt, cut.Operator, cut.Count, cut.TotalCents, cut.CashCents, cut.CardCents,
		cut.TransferCents, cut.DomesticCents, cut.ForeignCents, string(saleIDs))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, mapTxError(err)
	}

	res, err := pgTx.ExecContext(ctx, `
		UPDATE sales
		SET closed = true, cut_id = $1, closed_at = $2
		WHERE created_at >= $3 AND created_at < $4 AND closed = false
	`, cut.ID, cut.CreatedAt, req.From, req.To)
	if err != nil {
		return nil, mapTxError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected != int64(len(open)) {
		return nil, store.ErrConflict
	}

	if err := pgTx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return &cut, nil
}

const cutColumns = `id, created_at, operator, sales_count, total_cents, cash_cents, card_cents,
	transfer_cents, domestic_cents, foreign_cents, sale_ids`

func scanCut(row rowScanner) (domain.Cut, error) {
	var cut domain.Cut
	var saleIDs []byte
	err := row.Scan(
		&cut.ID,
		&cut.CreatedAt,
		&cut.Operator,
		&cut.Count,
		&cut.TotalCents,
		&cut.CashCents,
		&cut.CardCents,
		&cut.TransferCents,
		&cut.DomesticCents,
		&cut.ForeignCents,
		&saleIDs,
	)
	if err != nil {
		return domain.Cut{}, err
	}
	if err := json.Unmarshal(saleIDs, &cut.SaleIDs); err != nil {
		return domain.Cut{}, err
	}
	cut.CreatedAt = cut.CreatedAt.UTC()
	return cut, nil
}

func (s *Store) GetCut(ctx context.Context, id string) (*domain.Cut, error) {
	cut, err := scanCut(s.db.QueryRowContext(ctx, `SELECT `+cutColumns+` FROM cuts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &cut, nil
}

func (s *Store) ListCuts(ctx context.Context, limit int) ([]domain.Cut, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cutColumns+`
		FROM cuts
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cuts := make([]domain.Cut, 0, limit)
	for rows.Next() {
		cut, err := scanCut(rows)
		if err != nil {
			return nil, err
		}
		cuts = append(cuts, cut)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cuts, nil
}

const orderColumns = `id, customer_name, customer_phone, customer_address, items, total_cents, status, created_at, updated_at`

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	var items []byte
	err := row.Scan(&order.ID, &order.CustomerName, &order.CustomerPhone, &order.CustomerAddress, &items, &order.TotalCents, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return domain.Order{}, err
	}
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return order, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if len(order.Items) == 0 || strings.TrimSpace(order.CustomerName) == "" {
		return nil, store.ErrInvalidTransaction
	}
	if order.ID == "" {
		order.ID = xid.New("order")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	order.Status = domain.OrderStatusPending

	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, customer_name, customer_phone, customer_address, items, total_cents, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, order.ID, order.CustomerName, order.CustomerPhone, order.CustomerAddress, string(items), order.TotalCents, order.Status, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidTransaction
		}
		return nil, err
	}
	created := order
	return &created, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// TransitionOrder only matches rows still pending, so two racing transitions
// cannot both succeed.
func (s *Store) TransitionOrder(ctx context.Context, id string, status string, at time.Time) (*domain.Order, error) {
	if !domain.CanTransitionOrder(domain.OrderStatusPending, status) {
		return nil, store.ErrConflict
	}

	order, err := scanOrder(s.db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING `+orderColumns, id, status, at))
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrConflict
}

func (s *Store) GetSettings(ctx context.Context, key string, dest any) error {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM settings WHERE key = $1`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(payload, dest)
}

func (s *Store) PutSettings(ctx context.Context, key string, value any, at time.Time) error {
	if strings.TrimSpace(key) == "" {
		return store.ErrInvalidTransaction
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, payload, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (key)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`, key, string(payload), at)
	return err
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1
			AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidTransaction
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, display_name, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$6)
	`, user.Username, user.DisplayName, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidTransaction
		}
		return err
	}
	return nil
}

func (s *Store) CreateFirstUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidTransaction
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO app_users (username, display_name, password, role, active, created_at, updated_at)
		SELECT $1,$2,$3,$4,$5,$6,$6
		WHERE NOT EXISTS (SELECT 1 FROM app_users)
	`, user.Username, user.DisplayName, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return mapTxError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrConflict
	}
	return mapTxError(tx.Commit())
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, display_name, password, role, active, created_at, updated_at
		FROM app_users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(&user.Username, &user.DisplayName, &user.Password, &user.Role, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, display_name, password, role, active, created_at, updated_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.DisplayName, &user.Password, &user.Role, &user.Active, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		user.UpdatedAt = user.UpdatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.UserAccount) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET display_name = $2, role = $3, active = $4, updated_at = now()
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(user.Username)), user.DisplayName, user.Role, user.Active)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidTransaction
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM app_users WHERE username = $1`, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func sizesParam(product domain.Product) (any, error) {
	if !product.Sized() {
		return nil, nil
	}
	payload, err := json.Marshal(product.Sizes)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// mapTxError turns serialization and deadlock failures into ErrConflict.
func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.Message)
	}
	return err
}

func int64Ptr(val sql.NullInt64) *int64 {
	if !val.Valid {
		return nil
	}
	v := val.Int64
	return &v
}

func decimalPtr(val decimal.NullDecimal) *decimal.Decimal {
	if !val.Valid {
		return nil
	}
	v := val.Decimal
	return &v
}

func nullInt64(val *int64) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullDecimal(val *decimal.Decimal) any {
	if val == nil {
		return nil
	}
	return val.String()
}
