package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"

	"motomarket/backend/internal/cache"
	"motomarket/backend/internal/domain"
	"motomarket/backend/internal/policy"
	"motomarket/backend/internal/store"
	"motomarket/backend/internal/xid"
)

var (
	ErrAuthFailure = errors.New("authentication failed")
	ErrForbidden   = errors.New("forbidden")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo                 store.Repository
	stats                cache.StatisticsCache
	statsTTL             time.Duration
	reverseStockOnDelete bool

	// statsStale is set when a cache invalidation fails; while set, reads
	// skip the cache so a mutation is never hidden behind a stale entry.
	statsStale atomic.Bool
}

func New(repo store.Repository, stats cache.StatisticsCache, statsTTL time.Duration, reverseStockOnDelete bool) *Service {
	if stats == nil {
		stats = cache.NoopStatisticsCache{}
	}
	if statsTTL <= 0 {
		statsTTL = 30 * time.Second
	}

	return &Service{
		repo:                 repo,
		stats:                stats,
		statsTTL:             statsTTL,
		reverseStockOnDelete: reverseStockOnDelete,
	}
}

// requireAccess is the mutation-path policy check: every service entry point
// calls it, so access rules hold even for callers that bypass the HTTP layer.
func (s *Service) requireAccess(ctx context.Context, action policy.Action) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || !policy.CanAccess(actor.Role, action) {
		return domain.Actor{}, fmt.Errorf("%w: %s", ErrForbidden, action)
	}
	return actor, nil
}

// --- Products ---

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	actor, err := s.requireAccess(ctx, policy.ActionListProducts)
	if err != nil {
		return nil, err
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	if !policy.CanAccess(actor.Role, policy.ActionViewCostPrice) {
		for i := range products {
			products[i].CostCents = 0
		}
	}
	return products, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if _, err := s.requireAccess(ctx, policy.ActionManageProducts); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Model = strings.TrimSpace(req.Model)
	if req.Name == "" || req.Model == "" {
		return domain.Product{}, store.ErrValidation
	}
	if req.Quantity < 0 || req.CostCents < 0 || req.SalePriceCents < 0 {
		return domain.Product{}, store.ErrValidation
	}

	product := domain.Product{
		ID:             xid.New("prod"),
		Name:           req.Name,
		Model:          req.Model,
		Quantity:       req.Quantity,
		CostCents:      req.CostCents,
		SalePriceCents: req.SalePriceCents,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateStats(ctx)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if _, err := s.requireAccess(ctx, policy.ActionManageProducts); err != nil {
		return domain.Product{}, err
	}
	if id == "" {
		return domain.Product{}, store.ErrValidation
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.Name = name
	}
	if req.Model != nil {
		model := strings.TrimSpace(*req.Model)
		if model == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.Model = model
	}
	if req.CostCents != nil {
		if *req.CostCents < 0 {
			return domain.Product{}, store.ErrValidation
		}
		updated.CostCents = *req.CostCents
	}
	if req.SalePriceCents != nil {
		if *req.SalePriceCents < 0 {
			return domain.Product{}, store.ErrValidation
		}
		updated.SalePriceCents = *req.SalePriceCents
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

// DeleteProduct removes a product from the catalog. Historical sales and
// receipts keep their name/model/price snapshots and are untouched.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.requireAccess(ctx, policy.ActionManageProducts); err != nil {
		return err
	}
	if id == "" {
		return store.ErrValidation
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

// --- Sellers ---

func (s *Service) ListSellers(ctx context.Context) ([]domain.Seller, error) {
	if _, err := s.requireAccess(ctx, policy.ActionManageSellers); err != nil {
		return nil, err
	}
	return s.repo.ListSellers(ctx)
}

func (s *Service) CreateSeller(ctx context.Context, req domain.SellerCreateRequest) (domain.Seller, error) {
	if _, err := s.requireAccess(ctx, policy.ActionManageSellers); err != nil {
		return domain.Seller{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Seller{}, store.ErrValidation
	}

	seller := domain.Seller{
		ID:        xid.New("seller"),
		Name:      req.Name,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.repo.CreateSeller(ctx, seller)
	if err != nil {
		return domain.Seller{}, err
	}
	return *created, nil
}

// DeleteSeller never cascades: sales attributed to the seller keep their
// seller-name snapshot and remain listed.
func (s *Service) DeleteSeller(ctx context.Context, id string) error {
	if _, err := s.requireAccess(ctx, policy.ActionManageSellers); err != nil {
		return err
	}
	if id == "" {
		return store.ErrValidation
	}
	return s.repo.DeleteSeller(ctx, id)
}

func (s *Service) GetSellerStatistics(ctx context.Context, sellerID string) (domain.SellerStatistics, error) {
	if _, err := s.requireAccess(ctx, policy.ActionViewSellerStats); err != nil {
		return domain.SellerStatistics{}, err
	}
	if sellerID == "" {
		return domain.SellerStatistics{}, store.ErrValidation
	}

	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.SellerStatistics{}, err
	}

	var stats domain.SellerStatistics
	for _, sale := range sales {
		if sale.SellerID != sellerID {
			continue
		}
		stats.SaleCount++
		stats.TotalAmountCents += sale.TotalCents
		stats.TotalProfitCents += sale.ProfitCents
	}
	return stats, nil
}

// --- Sales ---

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	actor, err := s.requireAccess(ctx, policy.ActionListSales)
	if err != nil {
		return nil, err
	}

	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}

	if !policy.CanAccess(actor.Role, policy.ActionViewCostPrice) {
		for i := range sales {
			sales[i].ProfitCents = 0
		}
	}
	return sales, nil
}

// CreateSale values the sale against the product's current cost and price,
// then hands the finished record to the store, which decrements stock
// atomically with the insert. Total and profit are frozen here: later product
// edits never change them.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	actor, err := s.requireAccess(ctx, policy.ActionRecordSale)
	if err != nil {
		return domain.Sale{}, err
	}

	if req.ProductID == "" || req.SellerID == "" {
		return domain.Sale{}, store.ErrValidation
	}
	if req.Quantity < 1 {
		return domain.Sale{}, store.ErrValidation
	}

	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.Sale{}, err
	}
	seller, err := s.repo.GetSeller(ctx, req.SellerID)
	if err != nil {
		return domain.Sale{}, err
	}

	if req.Quantity > product.Quantity {
		return domain.Sale{}, store.ErrInsufficientStock
	}

	unitPrice := product.SalePriceCents
	if req.UnitPriceCents != nil {
		// Operator override; below cost is allowed and yields negative profit.
		if *req.UnitPriceCents < 0 {
			return domain.Sale{}, store.ErrValidation
		}
		unitPrice = *req.UnitPriceCents
	}

	quantity := int64(req.Quantity)
	sale := domain.Sale{
		ID:             xid.New("sale"),
		CreatedAt:      time.Now().UTC(),
		ProductID:      product.ID,
		ProductName:    product.Name,
		ProductModel:   product.Model,
		Quantity:       req.Quantity,
		UnitPriceCents: unitPrice,
		TotalCents:     quantity * unitPrice,
		ProfitCents:    quantity * (unitPrice - product.CostCents),
		SellerID:       seller.ID,
		SellerName:     seller.Name,
		Customer:       strings.TrimSpace(req.Customer),
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidateStats(ctx)

	// The stored record keeps the real profit; the response is redacted the
	// same way ListSales is, or the profit would leak the cost basis right
	// back to the recording seller.
	result := *created
	if !policy.CanAccess(actor.Role, policy.ActionViewCostPrice) {
		result.ProfitCents = 0
	}
	return result, nil
}

// DeleteSale does not restock by default; the original system never reversed
// stock adjustments on deletion. REVERSE_STOCK_ON_DELETE opts in to reversal.
func (s *Service) DeleteSale(ctx context.Context, id string) error {
	if _, err := s.requireAccess(ctx, policy.ActionDeleteSale); err != nil {
		return err
	}
	if id == "" {
		return store.ErrValidation
	}
	if err := s.repo.DeleteSale(ctx, id, s.reverseStockOnDelete); err != nil {
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

// --- Expenses ---

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	if _, err := s.requireAccess(ctx, policy.ActionManageExpenses); err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx)
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	if _, err := s.requireAccess(ctx, policy.ActionManageExpenses); err != nil {
		return domain.Expense{}, err
	}

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" || req.AmountCents < 0 {
		return domain.Expense{}, store.ErrValidation
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return domain.Expense{}, store.ErrValidation
	}

	expense := domain.Expense{
		ID:          xid.New("exp"),
		Date:        date,
		Description: req.Description,
		AmountCents: req.AmountCents,
		Category:    strings.TrimSpace(req.Category),
	}

	created, err := s.repo.CreateExpense(ctx, expense)
	if err != nil {
		return domain.Expense{}, err
	}

	s.invalidateStats(ctx)
	return *created, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	if _, err := s.requireAccess(ctx, policy.ActionManageExpenses); err != nil {
		return err
	}
	if id == "" {
		return store.ErrValidation
	}
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

// --- Incoming stock ---

func (s *Service) ListIncomingStock(ctx context.Context) ([]domain.IncomingStock, error) {
	if _, err := s.requireAccess(ctx, policy.ActionManageIncoming); err != nil {
		return nil, err
	}
	return s.repo.ListIncomingStock(ctx)
}

func (s *Service) CreateIncomingStock(ctx context.Context, req domain.IncomingStockCreateRequest) (domain.IncomingStock, error) {
	if _, err := s.requireAccess(ctx, policy.ActionManageIncoming); err != nil {
		return domain.IncomingStock{}, err
	}

	if req.ProductID == "" || req.Quantity < 1 || req.UnitCostCents < 0 {
		return domain.IncomingStock{}, store.ErrValidation
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return domain.IncomingStock{}, store.ErrValidation
	}

	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.IncomingStock{}, err
	}

	receipt := domain.IncomingStock{
		ID:               xid.New("in"),
		Date:             date,
		ProductID:        product.ID,
		ProductName:      product.Name,
		ProductModel:     product.Model,
		QuantityReceived: req.Quantity,
		UnitCostCents:    req.UnitCostCents,
		TotalCostCents:   int64(req.Quantity) * req.UnitCostCents,
		Note:             strings.TrimSpace(req.Note),
	}

	created, err := s.repo.CreateIncomingStock(ctx, receipt)
	if err != nil {
		return domain.IncomingStock{}, err
	}

	s.invalidateStats(ctx)
	return *created, nil
}

func (s *Service) DeleteIncomingStock(ctx context.Context, id string) error {
	if _, err := s.requireAccess(ctx, policy.ActionManageIncoming); err != nil {
		return err
	}
	if id == "" {
		return store.ErrValidation
	}
	if err := s.repo.DeleteIncomingStock(ctx, id, s.reverseStockOnDelete); err != nil {
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

// --- Settings ---

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	if _, err := s.requireAccess(ctx, policy.ActionManageSettings); err != nil {
		return domain.Settings{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	return *settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	if _, err := s.requireAccess(ctx, policy.ActionManageSettings); err != nil {
		return domain.Settings{}, err
	}

	existing, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	updated := *existing
	if req.ShopName != nil {
		updated.ShopName = strings.TrimSpace(*req.ShopName)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Currency != nil {
		currency := strings.TrimSpace(*req.Currency)
		if currency == "" {
			return domain.Settings{}, store.ErrValidation
		}
		updated.Currency = currency
	}

	saved, err := s.repo.UpdateSettings(ctx, updated)
	if err != nil {
		return domain.Settings{}, err
	}
	return *saved, nil
}

func (s *Service) ChangeDirectorPassword(ctx context.Context, req domain.PasswordChangeRequest) error {
	if _, err := s.requireAccess(ctx, policy.ActionManageSettings); err != nil {
		return err
	}
	if len(req.NewPassword) < 4 {
		return store.ErrValidation
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(settings.DirectorPasswordHash), []byte(req.CurrentPassword)) != nil {
		return ErrAuthFailure
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	settings.DirectorPasswordHash = string(hash)
	_, err = s.repo.UpdateSettings(ctx, *settings)
	return err
}

// VerifyDirectorPassword needs no actor: it is itself the authentication step.
func (s *Service) VerifyDirectorPassword(ctx context.Context, candidate string) (bool, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(settings.DirectorPasswordHash), []byte(candidate)) == nil, nil
}

// --- Statistics ---

// GetStatistics aggregates sales and expenses over an optional inclusive
// calendar-date range. Stock count is always the current snapshot and is
// never date-filtered. Bounds are midnight-UTC dates.
func (s *Service) GetStatistics(ctx context.Context, start, end *time.Time) (domain.Statistics, error) {
	if _, err := s.requireAccess(ctx, policy.ActionViewStatistics); err != nil {
		return domain.Statistics{}, err
	}

	key := rangeKey(start, end)
	if !s.statsStale.Load() {
		if cached, ok, err := s.stats.Get(ctx, key); err == nil && ok {
			return *cached, nil
		} else if err != nil {
			log.Printf("[service] WARN: statistics cache read failed: %v", err)
		}
	}

	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.Statistics{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return domain.Statistics{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.Statistics{}, err
	}

	var stats domain.Statistics
	for _, sale := range sales {
		if !withinRange(sale.CreatedAt, start, end) {
			continue
		}
		stats.TotalRevenueCents += sale.TotalCents
		stats.TotalGrossProfitCents += sale.ProfitCents
	}
	for _, expense := range expenses {
		if !withinRange(expense.Date, start, end) {
			continue
		}
		stats.TotalExpensesCents += expense.AmountCents
	}
	stats.NetProfitCents = stats.TotalGrossProfitCents - stats.TotalExpensesCents
	for _, product := range products {
		stats.StockCount += product.Quantity
	}

	if err := s.stats.Set(ctx, key, &stats, s.statsTTL); err != nil {
		log.Printf("[service] WARN: statistics cache write failed: %v", err)
	}
	return stats, nil
}

func (s *Service) invalidateStats(ctx context.Context) {
	if err := s.stats.Invalidate(ctx); err != nil {
		s.statsStale.Store(true)
		log.Printf("[service] WARN: statistics cache invalidation failed, serving uncached statistics: %v", err)
		return
	}
	s.statsStale.Store(false)
}

// withinRange treats bounds as inclusive calendar dates: a record stamped any
// time on the end date still counts.
func withinRange(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && !t.Before(end.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

func rangeKey(start, end *time.Time) string {
	from, to := "-", "-"
	if start != nil {
		from = start.Format("2006-01-02")
	}
	if end != nil {
		to = end.Format("2006-01-02")
	}
	return from + ":" + to
}

func parseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}
