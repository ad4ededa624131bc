package store

import (
	"context"
	"errors"
	"time"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrConflict           = errors.New("conflict")
	ErrNothingToCut       = errors.New("no open sales to cut")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error)

	// CloseDay selects the open sales created in [req.From, req.To), writes one
	// cut over them and marks each of them closed, all in one transaction.
	// It returns ErrNothingToCut when the selection is empty.
	CloseDay(ctx context.Context, req domain.CutRequest) (*domain.Cut, error)
	GetCut(ctx context.Context, id string) (*domain.Cut, error)
	ListCuts(ctx context.Context, limit int) ([]domain.Cut, error)

	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error)
	// TransitionOrder moves a pending order to status. It returns ErrConflict
	// when the order already reached a terminal status.
	TransitionOrder(ctx context.Context, id string, status string, at time.Time) (*domain.Order, error)

	// GetSettings decodes the settings document stored under key into dest and
	// returns ErrNotFound when the document does not exist yet.
	GetSettings(ctx context.Context, key string, dest any) error
	PutSettings(ctx context.Context, key string, value any, at time.Time) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	// CreateFirstUser inserts user only when no account exists yet, and
	// returns ErrConflict otherwise.
	CreateFirstUser(ctx context.Context, user domain.UserAccount) error
	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUser(ctx context.Context, user domain.UserAccount) error
	UpdateUserPassword(ctx context.Context, username string, password string) error
	DeleteUser(ctx context.Context, username string) error
}
