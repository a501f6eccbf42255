package memory

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"motomarket/backend/internal/domain"
	"motomarket/backend/internal/store"
	"motomarket/backend/internal/xid"
)

// Store keeps every collection as an insertion-ordered slice so List methods
// observe the same ordering contract as the postgres store. A single RWMutex
// serializes access; the atomicity of sale/receipt stock adjustments falls out
// of holding the write lock across both changes.
type Store struct {
	mu            sync.RWMutex
	products      []domain.Product
	sellers       []domain.Seller
	sales         []domain.Sale
	expenses      []domain.Expense
	incomingStock []domain.IncomingStock
	settings      domain.Settings
}

func New() *Store {
	return &Store{settings: seedSettings()}
}

// seedSettings builds the initial singleton for dev/demo mode. The director
// password is read from SEED_DIRECTOR_PASSWORD; if unset, the historical
// default "1234" is used with a warning printed to stdout. These credentials
// are never used in production (the backend uses PostgreSQL when DATABASE_URL
// is set).
func seedSettings() domain.Settings {
	password := os.Getenv("SEED_DIRECTOR_PASSWORD")
	if password == "" {
		password = "1234"
		log.Println("[memory-store] WARNING: using default director password. Set SEED_DIRECTOR_PASSWORD to override.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed director password: %v", err)
	}
	return domain.Settings{
		DirectorPasswordHash: string(hash),
		ShopName:             "Motomarket",
		Currency:             "UZS",
	}
}

// NewSeeded returns a store preloaded with a small demo catalog.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	s.products = []domain.Product{
		{ID: xid.New("prod"), Name: "Motoblok Shina", Model: "6.00-12", Quantity: 40, CostCents: 28000000, SalePriceCents: 35000000},
		{ID: xid.New("prod"), Name: "Zanjir", Model: "428H-118L", Quantity: 80, CostCents: 4500000, SalePriceCents: 6200000},
		{ID: xid.New("prod"), Name: "Karbyurator", Model: "PZ30", Quantity: 25, CostCents: 18000000, SalePriceCents: 24000000},
		{ID: xid.New("prod"), Name: "Moy Filtri", Model: "HF-303", Quantity: 150, CostCents: 1200000, SalePriceCents: 1900000},
		{ID: xid.New("prod"), Name: "Akkumulyator", Model: "YTX7A-BS", Quantity: 30, CostCents: 22000000, SalePriceCents: 29500000},
	}
	s.sellers = []domain.Seller{
		{ID: xid.New("seller"), Name: "Aziz", Phone: "+998901234567", CreatedAt: now},
		{ID: xid.New("seller"), Name: "Jasur", Phone: "+998907654321", CreatedAt: now},
	}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, len(s.products))
	copy(products, s.products)
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	product := s.products[idx]
	return &product, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" {
		return nil, store.ErrValidation
	}
	if product.Quantity < 0 || product.CostCents < 0 || product.SalePriceCents < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.productIndex(product.ID) >= 0 {
		return nil, store.ErrValidation
	}
	s.products = append(s.products, product)
	created := product
	return &created, nil
}

// UpdateProduct rewrites the catalog fields only. Quantity moves exclusively
// through sales and receipts; the caller's copy of it is ignored so a stale
// read can never undo a concurrent stock adjustment.
func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.CostCents < 0 || product.SalePriceCents < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(product.ID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	product.Quantity = s.products[idx].Quantity
	s.products[idx] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return store.ErrNotFound
	}
	s.products = append(s.products[:idx], s.products[idx+1:]...)
	return nil
}

func (s *Store) ListSellers(_ context.Context) ([]domain.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sellers := make([]domain.Seller, len(s.sellers))
	copy(sellers, s.sellers)
	return sellers, nil
}

func (s *Store) GetSeller(_ context.Context, id string) (*domain.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, seller := range s.sellers {
		if seller.ID == id {
			found := seller
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateSeller(_ context.Context, seller domain.Seller) (*domain.Seller, error) {
	if seller.ID == "" || seller.Name == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sellers = append(s.sellers, seller)
	created := seller
	return &created, nil
}

func (s *Store) DeleteSeller(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, seller := range s.sellers {
		if seller.ID == id {
			s.sellers = append(s.sellers[:idx], s.sellers[idx+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, len(s.sales))
	copy(sales, s.sales)
	return sales, nil
}

// CreateSale decrements the product quantity and appends the sale under one
// write lock: both happen or neither does.
func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || sale.ProductID == "" || sale.Quantity < 1 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(sale.ProductID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	if s.products[idx].Quantity < sale.Quantity {
		return nil, store.ErrInsufficientStock
	}

	s.products[idx].Quantity -= sale.Quantity
	s.sales = append(s.sales, sale)
	created := sale
	return &created, nil
}

func (s *Store) DeleteSale(_ context.Context, id string, reverse bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, sale := range s.sales {
		if sale.ID != id {
			continue
		}
		if reverse {
			if pIdx := s.productIndex(sale.ProductID); pIdx >= 0 {
				s.products[pIdx].Quantity += sale.Quantity
			}
		}
		s.sales = append(s.sales[:idx], s.sales[idx+1:]...)
		return nil
	}
	return store.ErrNotFound
}

func (s *Store) ListExpenses(_ context.Context) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, len(s.expenses))
	copy(expenses, s.expenses)
	return expenses, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.ID == "" || expense.Description == "" || expense.AmountCents < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.expenses = append(s.expenses, expense)
	created := expense
	return &created, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, expense := range s.expenses {
		if expense.ID == id {
			s.expenses = append(s.expenses[:idx], s.expenses[idx+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListIncomingStock(_ context.Context) ([]domain.IncomingStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipts := make([]domain.IncomingStock, len(s.incomingStock))
	copy(receipts, s.incomingStock)
	return receipts, nil
}

func (s *Store) CreateIncomingStock(_ context.Context, receipt domain.IncomingStock) (*domain.IncomingStock, error) {
	if receipt.ID == "" || receipt.ProductID == "" || receipt.QuantityReceived < 1 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(receipt.ProductID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}

	s.products[idx].Quantity += receipt.QuantityReceived
	s.incomingStock = append(s.incomingStock, receipt)
	created := receipt
	return &created, nil
}

func (s *Store) DeleteIncomingStock(_ context.Context, id string, reverse bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, receipt := range s.incomingStock {
		if receipt.ID != id {
			continue
		}
		if reverse {
			pIdx := s.productIndex(receipt.ProductID)
			if pIdx >= 0 {
				if s.products[pIdx].Quantity < receipt.QuantityReceived {
					return store.ErrInsufficientStock
				}
				s.products[pIdx].Quantity -= receipt.QuantityReceived
			}
		}
		s.incomingStock = append(s.incomingStock[:idx], s.incomingStock[idx+1:]...)
		return nil
	}
	return store.ErrNotFound
}

func (s *Store) GetSettings(_ context.Context) (*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := s.settings
	return &settings, nil
}

func (s *Store) UpdateSettings(_ context.Context, settings domain.Settings) (*domain.Settings, error) {
	if settings.DirectorPasswordHash == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings
	updated := settings
	return &updated, nil
}

// productIndex must be called with the lock held.
func (s *Store) productIndex(id string) int {
	for idx, product := range s.products {
		if product.ID == id {
			return idx
		}
	}
	return -1
}
