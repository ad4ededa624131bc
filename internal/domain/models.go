package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

const (
	CurrencyDomestic = "mxn"
	CurrencyForeign  = "usd"
)

const (
	ChannelInStore = "in_store"
	ChannelPhone   = "phone"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

const (
	RoleOwner    = "owner"
	RoleAdmin    = "admin"
	RoleCashier  = "cashier"
	RoleEmployee = "employee"
)

const (
	CategoryPizzas       = "pizzas"
	CategoryComplementos = "complementos"
	CategoryBebidas      = "bebidas"
	CategoryBoneless     = "boneless"
	CategoryOtro         = "otro"
)

const ProductKindPizza = "pizza"

// SizeOrder is the display order of the size tiers a sized product may carry.
var SizeOrder = []string{"personal", "chica", "mediana", "grande", "extragrande", "familiar"}

type SizeTier struct {
	PriceCents int64 `json:"price_cents"`
	Enabled    bool  `json:"enabled"`
	Boneless   bool  `json:"boneless"`
}

type Product struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Kind        string              `json:"kind"`
	ImageURL    string              `json:"image_url,omitempty"`
	PriceCents  *int64              `json:"price_cents,omitempty"`
	Sizes       map[string]SizeTier `json:"sizes,omitempty"`
	Available   bool                `json:"available"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (p Product) Sized() bool {
	return len(p.Sizes) > 0
}

// PriceFor resolves the unit price of the product for the given size label.
// Flat-priced products ignore the label.
func (p Product) PriceFor(size string) (int64, bool) {
	if !p.Sized() {
		if p.PriceCents == nil {
			return 0, false
		}
		return *p.PriceCents, true
	}
	tier, ok := p.Sizes[size]
	if !ok || !tier.Enabled {
		return 0, false
	}
	return tier.PriceCents, true
}

type ProductCreateRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Kind        string              `json:"kind"`
	ImageURL    string              `json:"image_url"`
	PriceCents  *int64              `json:"price_cents,omitempty"`
	Sizes       map[string]SizeTier `json:"sizes,omitempty"`
	Available   *bool               `json:"available,omitempty"`
}

type ProductUpdateRequest struct {
	Name        *string              `json:"name,omitempty"`
	Description *string              `json:"description,omitempty"`
	Category    *string              `json:"category,omitempty"`
	ImageURL    *string              `json:"image_url,omitempty"`
	PriceCents  *int64               `json:"price_cents,omitempty"`
	Sizes       *map[string]SizeTier `json:"sizes,omitempty"`
	Available   *bool                `json:"available,omitempty"`
}

type LineItem struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Category       string `json:"category"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
	SubtotalCents  int64  `json:"subtotal_cents"`
	Size           string `json:"size,omitempty"`
	Observations   string `json:"observations,omitempty"`
	WithBoneless   bool   `json:"with_boneless"`
	BonelessSauce  string `json:"boneless_sauce,omitempty"`
}

type CartItem struct {
	ProductID     string `json:"product_id"`
	Qty           int    `json:"qty"`
	Size          string `json:"size,omitempty"`
	Observations  string `json:"observations,omitempty"`
	WithBoneless  bool   `json:"with_boneless"`
	BonelessSauce string `json:"boneless_sauce,omitempty"`
}

// Sale is immutable once recorded except for Closed, CutID and ClosedAt,
// which are stamped once by the daily cut.
type Sale struct {
	ID                   string           `json:"id"`
	CreatedAt            time.Time        `json:"created_at"`
	CustomerName         string           `json:"customer_name"`
	CustomerPhone        string           `json:"customer_phone,omitempty"`
	Cashier              string           `json:"cashier"`
	Items                []LineItem       `json:"items"`
	SubtotalCents        int64            `json:"subtotal_cents"`
	TaxCents             *int64           `json:"tax_cents,omitempty"`
	TaxRatePercent       *decimal.Decimal `json:"tax_rate_percent,omitempty"`
	TotalCents           int64            `json:"total_cents"`
	PaymentMethod        string           `json:"payment_method"`
	Currency             string           `json:"currency"`
	Channel              string           `json:"channel"`
	CashReceivedCents    *int64           `json:"cash_received_cents,omitempty"`
	ForeignReceivedCents *int64           `json:"foreign_received_cents,omitempty"`
	ExchangeRate         *decimal.Decimal `json:"exchange_rate,omitempty"`
	ChangeCents          *int64           `json:"change_cents,omitempty"`
	Closed               bool             `json:"closed"`
	CutID                string           `json:"cut_id,omitempty"`
	ClosedAt             *time.Time       `json:"closed_at,omitempty"`
}

type CheckoutRequest struct {
	CustomerName         string     `json:"customer_name"`
	CustomerPhone        string     `json:"customer_phone"`
	Channel              string     `json:"channel"`
	PaymentMethod        string     `json:"payment_method"`
	Currency             string     `json:"currency"`
	ApplyTax             *bool      `json:"apply_tax,omitempty"`
	CashReceivedCents    *int64     `json:"cash_received_cents,omitempty"`
	ForeignReceivedCents *int64     `json:"foreign_received_cents,omitempty"`
	CartItems            []CartItem `json:"cart_items"`
}

type CheckoutQuote struct {
	Items                []LineItem       `json:"items"`
	SubtotalCents        int64            `json:"subtotal_cents"`
	TaxCents             *int64           `json:"tax_cents,omitempty"`
	TaxRatePercent       *decimal.Decimal `json:"tax_rate_percent,omitempty"`
	TotalCents           int64            `json:"total_cents"`
	ForeignTotalCents    *int64           `json:"foreign_total_cents,omitempty"`
	ExchangeRate         *decimal.Decimal `json:"exchange_rate,omitempty"`
	CashReceivedCents    *int64           `json:"cash_received_cents,omitempty"`
	ForeignReceivedCents *int64           `json:"foreign_received_cents,omitempty"`
	ChangeCents          *int64           `json:"change_cents,omitempty"`
}

type CheckoutResponse struct {
	Sale    Sale             `json:"sale"`
	Receipt *ReceiptDocument `json:"receipt,omitempty"`
	Printed bool             `json:"printed"`
}

type SalesTotals struct {
	Count         int   `json:"count"`
	TotalCents    int64 `json:"total_cents"`
	CashCents     int64 `json:"cash_cents"`
	CardCents     int64 `json:"card_cents"`
	TransferCents int64 `json:"transfer_cents"`
	DomesticCents int64 `json:"domestic_cents"`
	ForeignCents  int64 `json:"foreign_cents"`
}

type Cut struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Operator  string    `json:"operator"`
	SalesTotals
	SaleIDs []string `json:"sale_ids"`
}

type CutRequest struct {
	CutID    string
	Operator string
	From     time.Time
	To       time.Time
	At       time.Time
}

type CutResult struct {
	Cut     *Cut `json:"cut,omitempty"`
	Created bool `json:"created"`
}

type SaleFilter struct {
	From          time.Time
	To            time.Time
	PaymentMethod string
	OnlyOpen      bool
	Limit         int
}

type SalesRangeQuery struct {
	From          string `json:"from"`
	To            string `json:"to"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Category      string `json:"category,omitempty"`
}

type SalesRangeReport struct {
	From          string `json:"from"`
	To            string `json:"to"`
	PaymentMethod string `json:"payment_method,omitempty"`
	SalesTotals
	Sales []Sale `json:"sales"`
}

type ProductStat struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Units        int    `json:"units"`
	RevenueCents int64  `json:"revenue_cents"`
}

type SizeStat struct {
	Size         string `json:"size"`
	Units        int    `json:"units"`
	RevenueCents int64  `json:"revenue_cents"`
}

type ProductStatsReport struct {
	From               string        `json:"from"`
	To                 string        `json:"to"`
	Category           string        `json:"category,omitempty"`
	Products           []ProductStat `json:"products"`
	Sizes              []SizeStat    `json:"sizes"`
	BestSellingProduct *ProductStat  `json:"best_selling_product,omitempty"`
	BestSellingSize    *SizeStat     `json:"best_selling_size,omitempty"`
}

type TodaySummary struct {
	Date string `json:"date"`
	SalesTotals
	OpenCount      int   `json:"open_count"`
	OpenTotalCents int64 `json:"open_total_cents"`
}

type Order struct {
	ID              string     `json:"id"`
	CustomerName    string     `json:"customer_name"`
	CustomerPhone   string     `json:"customer_phone"`
	CustomerAddress string     `json:"customer_address,omitempty"`
	Items           []LineItem `json:"items"`
	TotalCents      int64      `json:"total_cents"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type OrderCreateRequest struct {
	CustomerName    string     `json:"customer_name"`
	CustomerPhone   string     `json:"customer_phone"`
	CustomerAddress string     `json:"customer_address"`
	CartItems       []CartItem `json:"cart_items"`
}

// CanTransitionOrder reports whether an order may move from one status to
// another. Pending is the only non-terminal status.
func CanTransitionOrder(from string, to string) bool {
	if from != OrderStatusPending {
		return false
	}
	return to == OrderStatusDelivered || to == OrderStatusCancelled
}

// Ticket is the receipt payload. Nil pointers are absent fields and are left
// off the rendered receipt.
type Ticket struct {
	Folio             string     `json:"folio,omitempty"`
	CustomerName      string     `json:"customer_name,omitempty"`
	CustomerPhone     string     `json:"customer_phone,omitempty"`
	Cashier           string     `json:"cashier,omitempty"`
	IssuedAt          *time.Time `json:"issued_at,omitempty"`
	Channel           string     `json:"channel,omitempty"`
	Items             []LineItem `json:"items"`
	SubtotalCents     int64      `json:"subtotal_cents"`
	TaxCents          *int64     `json:"tax_cents,omitempty"`
	TotalCents        int64      `json:"total_cents"`
	PaymentMethod     string     `json:"payment_method"`
	CashReceivedCents *int64     `json:"cash_received_cents,omitempty"`
	ChangeCents       *int64     `json:"change_cents,omitempty"`
}

func TicketFromSale(sale Sale) Ticket {
	issuedAt := sale.CreatedAt
	return Ticket{
		Folio:             sale.ID,
		CustomerName:      sale.CustomerName,
		CustomerPhone:     sale.CustomerPhone,
		Cashier:           sale.Cashier,
		IssuedAt:          &issuedAt,
		Channel:           sale.Channel,
		Items:             sale.Items,
		SubtotalCents:     sale.SubtotalCents,
		TaxCents:          sale.TaxCents,
		TotalCents:        sale.TotalCents,
		PaymentMethod:     sale.PaymentMethod,
		CashReceivedCents: sale.CashReceivedCents,
		ChangeCents:       sale.ChangeCents,
	}
}

type ReceiptDocument struct {
	HTML         string `json:"html"`
	PreviewText  string `json:"preview_text"`
	EscposBase64 string `json:"escpos_base64"`
	FileName     string `json:"file_name"`
	PaperWidthMM int    `json:"paper_width_mm"`
	Copies       int    `json:"copies"`
	CutPaper     bool   `json:"cut_paper"`
}

type ReceiptResponse struct {
	Receipt *ReceiptDocument `json:"receipt,omitempty"`
	Printed bool             `json:"printed"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username    string
	DisplayName string
	Password    string
	Role        string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type User struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type UserCreateRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

type UserUpdateRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Role        *string `json:"role,omitempty"`
	Active      *bool   `json:"active,omitempty"`
	Password    *string `json:"password,omitempty"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

func IsAdminRole(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

func IsKnownRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleCashier, RoleEmployee:
		return true
	default:
		return false
	}
}
