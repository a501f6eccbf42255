package store

import (
	"context"
	"errors"

	"motomarket/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrValidation         = errors.New("validation failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Repository is the single source of truth for all record collections.
// List methods return records in insertion order. Create methods persist the
// record exactly as given (ids are assigned by the caller via xid) and are
// atomic with their stock adjustment where one applies: CreateSale decrements
// the product quantity or fails ErrInsufficientStock with no partial state,
// CreateIncomingStock increments it.
//
// DeleteSale and DeleteIncomingStock take a reverse flag: when true the stock
// adjustment the record caused is rolled back in the same operation. The
// default configuration keeps the original system's non-reversing behavior.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListSellers(ctx context.Context) ([]domain.Seller, error)
	GetSeller(ctx context.Context, id string) (*domain.Seller, error)
	CreateSeller(ctx context.Context, seller domain.Seller) (*domain.Seller, error)
	DeleteSeller(ctx context.Context, id string) error

	ListSales(ctx context.Context) ([]domain.Sale, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	DeleteSale(ctx context.Context, id string, reverse bool) error

	ListExpenses(ctx context.Context) ([]domain.Expense, error)
	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	ListIncomingStock(ctx context.Context) ([]domain.IncomingStock, error)
	CreateIncomingStock(ctx context.Context, receipt domain.IncomingStock) (*domain.IncomingStock, error)
	DeleteIncomingStock(ctx context.Context, id string, reverse bool) error

	GetSettings(ctx context.Context) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, settings domain.Settings) (*domain.Settings, error)
}
