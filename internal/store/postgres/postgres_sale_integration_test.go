package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"motomarket/backend/internal/domain"
	"motomarket/backend/internal/store"
)

func TestCreateSaleDecrementsStockAtomically(t *testing.T) {
	databaseURL := os.Getenv("MOTOMARKET_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set MOTOMARKET_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prod-it-%d", stamp)
	saleID := fmt.Sprintf("sale-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	if _, err := s.CreateProduct(ctx, domain.Product{
		ID:             productID,
		Name:           "Integration Shina",
		Model:          "6.00-12",
		Quantity:       10,
		CostCents:      10000,
		SalePriceCents: 15000,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	created, err := s.CreateSale(ctx, domain.Sale{
		ID:             saleID,
		CreatedAt:      time.Now().UTC(),
		ProductID:      productID,
		ProductName:    "Integration Shina",
		ProductModel:   "6.00-12",
		Quantity:       3,
		UnitPriceCents: 15000,
		TotalCents:     45000,
		ProfitCents:    15000,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if created.TotalCents != 45000 {
		t.Fatalf("expected total 45000, got %d", created.TotalCents)
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Quantity != 7 {
		t.Fatalf("expected stock 7 after sale, got %d", product.Quantity)
	}

	_, err = s.CreateSale(ctx, domain.Sale{
		ID:             saleID + "-over",
		CreatedAt:      time.Now().UTC(),
		ProductID:      productID,
		Quantity:       8,
		UnitPriceCents: 15000,
		TotalCents:     120000,
		ProfitCents:    40000,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for oversell, got %v", err)
	}

	product, err = s.GetProduct(ctx, productID)
	if err != nil {
		t.Fatalf("get product after oversell: %v", err)
	}
	if product.Quantity != 7 {
		t.Fatalf("expected stock unchanged at 7 after refused oversell, got %d", product.Quantity)
	}
}
