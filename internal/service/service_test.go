package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"motomarket/backend/internal/cache"
	"motomarket/backend/internal/domain"
	"motomarket/backend/internal/store"
	"motomarket/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.New(), cache.NoopStatisticsCache{}, 5*time.Second, false)
}

func directorCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Role: domain.RoleDirector})
}

func sellerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Role: domain.RoleSeller})
}

func mustCreateProduct(t *testing.T, svc *Service, ctx context.Context, name string, qty int, cost, price int64) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:           name,
		Model:          "TEST-1",
		Quantity:       qty,
		CostCents:      cost,
		SalePriceCents: price,
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func mustCreateSeller(t *testing.T, svc *Service, ctx context.Context, name string) domain.Seller {
	t.Helper()
	seller, err := svc.CreateSeller(ctx, domain.SellerCreateRequest{Name: name})
	if err != nil {
		t.Fatalf("create seller failed: %v", err)
	}
	return seller
}

func TestCreateSaleFreezesTotalAndProfit(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Shina", 10, 100, 150)
	seller := mustCreateSeller(t, svc, ctx, "Aziz")

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID,
		Quantity:  3,
		SellerID:  seller.ID,
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if sale.TotalCents != 450 {
		t.Fatalf("expected total 450, got %d", sale.TotalCents)
	}
	if sale.ProfitCents != 150 {
		t.Fatalf("expected profit 150, got %d", sale.ProfitCents)
	}

	after, err := svc.repo.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if after.Quantity != 7 {
		t.Fatalf("expected stock 7 after selling 3, got %d", after.Quantity)
	}
}

func TestSaleSnapshotsSurviveProductEdit(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Zanjir", 10, 100, 150)
	seller := mustCreateSeller(t, svc, ctx, "Aziz")

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID,
		Quantity:  2,
		SellerID:  seller.ID,
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	newName := "Zanjir Premium"
	newPrice := int64(999)
	if _, err := svc.UpdateProduct(ctx, product.ID, domain.ProductUpdateRequest{
		Name:           &newName,
		SalePriceCents: &newPrice,
	}); err != nil {
		t.Fatalf("update product failed: %v", err)
	}

	sales, err := svc.ListSales(ctx)
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected 1 sale, got %d", len(sales))
	}
	if sales[0].ProductName != "Zanjir" {
		t.Fatalf("expected snapshot name Zanjir, got %s", sales[0].ProductName)
	}
	if sales[0].TotalCents != sale.TotalCents {
		t.Fatalf("expected frozen total %d, got %d", sale.TotalCents, sales[0].TotalCents)
	}
}

func TestCreateSaleInsufficientStockLeavesQuantityUnchanged(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Karbyurator", 5, 100, 150)
	seller := mustCreateSeller(t, svc, ctx, "Aziz")

	_, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID,
		Quantity:  6,
		SellerID:  seller.ID,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	after, err := svc.repo.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if after.Quantity != 5 {
		t.Fatalf("expected stock unchanged at 5, got %d", after.Quantity)
	}

	sales, err := svc.ListSales(ctx)
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sale to be recorded, got %d", len(sales))
	}
}

func TestSequentialSalesExhaustStock(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Filtr", 7, 50, 80)
	seller := mustCreateSeller(t, svc, ctx, "Jasur")

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 3, SellerID: seller.ID}); err != nil {
		t.Fatalf("first sale failed: %v", err)
	}
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 4, SellerID: seller.ID}); err != nil {
		t.Fatalf("second sale failed: %v", err)
	}
	_, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 5, SellerID: seller.ID})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock on third sale, got %v", err)
	}

	after, err := svc.repo.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if after.Quantity != 0 {
		t.Fatalf("expected stock 0, got %d", after.Quantity)
	}
}

func TestSalePriceOverrideAllowsNegativeProfit(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Akkumulyator", 10, 100, 150)
	seller := mustCreateSeller(t, svc, ctx, "Aziz")

	override := int64(90)
	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		ProductID:      product.ID,
		Quantity:       2,
		UnitPriceCents: &override,
		SellerID:       seller.ID,
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if sale.TotalCents != 180 {
		t.Fatalf("expected total 180, got %d", sale.TotalCents)
	}
	if sale.ProfitCents != -20 {
		t.Fatalf("expected profit -20, got %d", sale.ProfitCents)
	}
}

func TestIncomingStockIncrementsQuantityAndFreezesCost(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Shina", 10, 100, 150)

	receipt, err := svc.CreateIncomingStock(ctx, domain.IncomingStockCreateRequest{
		Date:          "2026-03-01",
		ProductID:     product.ID,
		Quantity:      20,
		UnitCostCents: 80,
	})
	if err != nil {
		t.Fatalf("create incoming stock failed: %v", err)
	}
	if receipt.TotalCostCents != 1600 {
		t.Fatalf("expected total cost 1600, got %d", receipt.TotalCostCents)
	}

	after, err := svc.repo.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if after.Quantity != 30 {
		t.Fatalf("expected stock 30 after receipt, got %d", after.Quantity)
	}
	if after.CostCents != 100 {
		t.Fatalf("expected catalog cost unchanged at 100, got %d", after.CostCents)
	}
}

func TestStatisticsNetProfitCanGoNegative(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Shina", 10, 100, 150)
	seller := mustCreateSeller(t, svc, ctx, "Aziz")

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 3, SellerID: seller.ID}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if _, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{
		Date:        time.Now().UTC().Format("2006-01-02"),
		Description: "Arenda",
		AmountCents: 200,
	}); err != nil {
		t.Fatalf("create expense failed: %v", err)
	}

	stats, err := svc.GetStatistics(ctx, nil, nil)
	if err != nil {
		t.Fatalf("get statistics failed: %v", err)
	}
	if stats.TotalRevenueCents != 450 {
		t.Fatalf("expected revenue 450, got %d", stats.TotalRevenueCents)
	}
	if stats.TotalGrossProfitCents != 150 {
		t.Fatalf("expected gross profit 150, got %d", stats.TotalGrossProfitCents)
	}
	if stats.TotalExpensesCents != 200 {
		t.Fatalf("expected expenses 200, got %d", stats.TotalExpensesCents)
	}
	if stats.NetProfitCents != -50 {
		t.Fatalf("expected net profit -50, got %d", stats.NetProfitCents)
	}
	if stats.StockCount != 7 {
		t.Fatalf("expected stock count 7, got %d", stats.StockCount)
	}
}

func TestStatisticsDateRangeIsInclusive(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Shina", 10, 100, 150)
	seller := mustCreateSeller(t, svc, ctx, "Aziz")

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 1, SellerID: seller.ID}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	stats, err := svc.GetStatistics(ctx, &today, &today)
	if err != nil {
		t.Fatalf("get statistics failed: %v", err)
	}
	if stats.TotalRevenueCents != 150 {
		t.Fatalf("expected today's sale inside inclusive range, revenue %d", stats.TotalRevenueCents)
	}

	yesterday := today.AddDate(0, 0, -1)
	empty, err := svc.GetStatistics(ctx, &yesterday, &yesterday)
	if err != nil {
		t.Fatalf("get statistics failed: %v", err)
	}
	if empty.TotalRevenueCents != 0 {
		t.Fatalf("expected no revenue yesterday, got %d", empty.TotalRevenueCents)
	}
	// Stock count ignores the date filter.
	if empty.StockCount != 9 {
		t.Fatalf("expected stock count 9 regardless of range, got %d", empty.StockCount)
	}
}

func TestSellerStatisticsSumOnlyThatSeller(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Shina", 20, 100, 150)
	aziz := mustCreateSeller(t, svc, ctx, "Aziz")
	jasur := mustCreateSeller(t, svc, ctx, "Jasur")

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 2, SellerID: aziz.ID}); err != nil {
		t.Fatalf("sale for aziz failed: %v", err)
	}
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 3, SellerID: aziz.ID}); err != nil {
		t.Fatalf("sale for aziz failed: %v", err)
	}
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 1, SellerID: jasur.ID}); err != nil {
		t.Fatalf("sale for jasur failed: %v", err)
	}

	stats, err := svc.GetSellerStatistics(ctx, aziz.ID)
	if err != nil {
		t.Fatalf("seller statistics failed: %v", err)
	}
	if stats.SaleCount != 2 {
		t.Fatalf("expected 2 sales for aziz, got %d", stats.SaleCount)
	}
	if stats.TotalAmountCents != 750 {
		t.Fatalf("expected total 750, got %d", stats.TotalAmountCents)
	}
	if stats.TotalProfitCents != 250 {
		t.Fatalf("expected profit 250, got %d", stats.TotalProfitCents)
	}
}

func TestDeleteSellerKeepsAttributedSales(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Shina", 10, 100, 150)
	seller := mustCreateSeller(t, svc, ctx, "Aziz")

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 1, SellerID: seller.ID}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if err := svc.DeleteSeller(ctx, seller.ID); err != nil {
		t.Fatalf("delete seller failed: %v", err)
	}

	sales, err := svc.ListSales(ctx)
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected sale to survive seller deletion, got %d sales", len(sales))
	}
	if sales[0].SellerName != "Aziz" {
		t.Fatalf("expected seller name snapshot Aziz, got %s", sales[0].SellerName)
	}
}

func TestDeleteSaleDoesNotRestockByDefault(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Shina", 10, 100, 150)
	seller := mustCreateSeller(t, svc, ctx, "Aziz")

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 4, SellerID: seller.ID})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if err := svc.DeleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("delete sale failed: %v", err)
	}

	after, err := svc.repo.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if after.Quantity != 6 {
		t.Fatalf("expected stock to stay at 6 after deletion, got %d", after.Quantity)
	}
}

func TestDeleteSaleRestocksWhenReversalEnabled(t *testing.T) {
	svc := New(memory.New(), cache.NoopStatisticsCache{}, 5*time.Second, true)
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Shina", 10, 100, 150)
	seller := mustCreateSeller(t, svc, ctx, "Aziz")

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 4, SellerID: seller.ID})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if err := svc.DeleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("delete sale failed: %v", err)
	}

	after, err := svc.repo.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if after.Quantity != 10 {
		t.Fatalf("expected stock restored to 10, got %d", after.Quantity)
	}
}

func TestSellerRoleCannotSeeCostOrProfit(t *testing.T) {
	svc := newTestService()
	director := directorCtx()

	product := mustCreateProduct(t, svc, director, "Shina", 10, 100, 150)
	seller := mustCreateSeller(t, svc, director, "Aziz")
	if _, err := svc.CreateSale(director, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 1, SellerID: seller.ID}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	products, err := svc.ListProducts(sellerCtx())
	if err != nil {
		t.Fatalf("list products as seller failed: %v", err)
	}
	for _, p := range products {
		if p.CostCents != 0 {
			t.Fatalf("expected cost redacted for seller role, got %d", p.CostCents)
		}
	}

	sales, err := svc.ListSales(sellerCtx())
	if err != nil {
		t.Fatalf("list sales as seller failed: %v", err)
	}
	for _, sale := range sales {
		if sale.ProfitCents != 0 {
			t.Fatalf("expected profit redacted for seller role, got %d", sale.ProfitCents)
		}
	}

	// Recording a sale is the seller's own path; the created response must be
	// redacted too, or profit/quantity would hand back the cost basis.
	recorded, err := svc.CreateSale(sellerCtx(), domain.SaleCreateRequest{ProductID: product.ID, Quantity: 2, SellerID: seller.ID})
	if err != nil {
		t.Fatalf("create sale as seller failed: %v", err)
	}
	if recorded.ProfitCents != 0 {
		t.Fatalf("expected profit redacted in seller's create response, got %d", recorded.ProfitCents)
	}

	directorSales, err := svc.ListSales(directorCtx())
	if err != nil {
		t.Fatalf("list sales as director failed: %v", err)
	}
	if got := directorSales[len(directorSales)-1].ProfitCents; got != 100 {
		t.Fatalf("expected stored profit 100 for director view, got %d", got)
	}
}

func TestSellerRoleDeniedManagementOperations(t *testing.T) {
	svc := newTestService()
	director := directorCtx()
	seller := sellerCtx()

	product := mustCreateProduct(t, svc, director, "Shina", 10, 100, 150)

	if _, err := svc.CreateProduct(seller, domain.ProductCreateRequest{Name: "X", Model: "Y", Quantity: 1}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for seller create product, got %v", err)
	}
	if err := svc.DeleteProduct(seller, product.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for seller delete product, got %v", err)
	}
	if _, err := svc.ListExpenses(seller); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for seller list expenses, got %v", err)
	}
	if _, err := svc.GetStatistics(seller, nil, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for seller statistics, got %v", err)
	}
	if _, err := svc.GetSettings(seller); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for seller settings, got %v", err)
	}
}

func TestUnauthenticatedContextIsRejected(t *testing.T) {
	svc := newTestService()

	if _, err := svc.ListProducts(context.Background()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden without actor, got %v", err)
	}
}

func TestChangeDirectorPassword(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	err := svc.ChangeDirectorPassword(ctx, domain.PasswordChangeRequest{
		CurrentPassword: "wrong",
		NewPassword:     "secret99",
	})
	if !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure for wrong current password, got %v", err)
	}

	if err := svc.ChangeDirectorPassword(ctx, domain.PasswordChangeRequest{
		CurrentPassword: "1234",
		NewPassword:     "secret99",
	}); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	ok, err := svc.VerifyDirectorPassword(ctx, "secret99")
	if err != nil {
		t.Fatalf("verify password failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected new password to verify")
	}
	if ok, _ := svc.VerifyDirectorPassword(ctx, "1234"); ok {
		t.Fatalf("expected old password to stop working")
	}
}

func TestChangeDirectorPasswordRejectsShortPassword(t *testing.T) {
	svc := newTestService()

	err := svc.ChangeDirectorPassword(directorCtx(), domain.PasswordChangeRequest{
		CurrentPassword: "1234",
		NewPassword:     "abc",
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for short password, got %v", err)
	}
}

func TestCreateExpenseRejectsBadDate(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateExpense(directorCtx(), domain.ExpenseCreateRequest{
		Date:        "03.01.2026",
		Description: "Arenda",
		AmountCents: 100,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for DD.MM.YYYY date, got %v", err)
	}
}

func TestCreateSaleRejectsUnknownProductAndSeller(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	seller := mustCreateSeller(t, svc, ctx, "Aziz")
	_, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: "prod_missing", Quantity: 1, SellerID: seller.ID})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown product, got %v", err)
	}

	product := mustCreateProduct(t, svc, ctx, "Shina", 5, 100, 150)
	_, err = svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 1, SellerID: "seller_missing"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown seller, got %v", err)
	}
}

func TestUpdateSettingsPartial(t *testing.T) {
	svc := newTestService()
	ctx := directorCtx()

	shopName := "Moto Bozor"
	updated, err := svc.UpdateSettings(ctx, domain.SettingsUpdateRequest{ShopName: &shopName})
	if err != nil {
		t.Fatalf("update settings failed: %v", err)
	}
	if updated.ShopName != "Moto Bozor" {
		t.Fatalf("expected updated shop name, got %s", updated.ShopName)
	}
	if updated.Currency != "UZS" {
		t.Fatalf("expected untouched currency UZS, got %s", updated.Currency)
	}
}

type recordingCache struct {
	cache.NoopStatisticsCache
	invalidations int
}

func (c *recordingCache) Invalidate(_ context.Context) error {
	c.invalidations++
	return nil
}

type failingInvalidateCache struct {
	stale domain.Statistics
	gets  int
}

func (c *failingInvalidateCache) Get(_ context.Context, _ string) (*domain.Statistics, bool, error) {
	c.gets++
	copied := c.stale
	return &copied, true, nil
}

func (c *failingInvalidateCache) Set(_ context.Context, _ string, _ *domain.Statistics, _ time.Duration) error {
	return nil
}

func (c *failingInvalidateCache) Invalidate(_ context.Context) error {
	return errors.New("redis down")
}

func TestStatisticsBypassCacheAfterFailedInvalidation(t *testing.T) {
	stale := &failingInvalidateCache{stale: domain.Statistics{TotalRevenueCents: 999999}}
	svc := New(memory.New(), stale, 5*time.Second, false)
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Shina", 10, 100, 150)
	seller := mustCreateSeller(t, svc, ctx, "Aziz")
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 3, SellerID: seller.ID}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	stats, err := svc.GetStatistics(ctx, nil, nil)
	if err != nil {
		t.Fatalf("get statistics failed: %v", err)
	}
	if stats.TotalRevenueCents != 450 {
		t.Fatalf("expected freshly computed revenue 450, got %d", stats.TotalRevenueCents)
	}
	if stale.gets != 0 {
		t.Fatalf("expected cache reads to be skipped after failed invalidation, got %d reads", stale.gets)
	}
}

func TestMutationsInvalidateStatisticsCache(t *testing.T) {
	rec := &recordingCache{}
	svc := New(memory.New(), rec, 5*time.Second, false)
	ctx := directorCtx()

	product := mustCreateProduct(t, svc, ctx, "Shina", 10, 100, 150)
	seller := mustCreateSeller(t, svc, ctx, "Aziz")
	before := rec.invalidations

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, Quantity: 1, SellerID: seller.ID}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if rec.invalidations != before+1 {
		t.Fatalf("expected sale creation to invalidate statistics cache")
	}
}
