package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/bcrypt"

	"motomarket/backend/internal/domain"
	"motomarket/backend/internal/store"
)

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
		return nil, fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.seedSettings(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates the tables on first start. Each table carries a seq
// column so List methods can return insertion order.
func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			cost_cents BIGINT NOT NULL DEFAULT 0,
			sale_price_cents BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS sellers (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			product_model TEXT NOT NULL DEFAULT '',
			quantity INT NOT NULL CHECK (quantity > 0),
			unit_price_cents BIGINT NOT NULL,
			total_cents BIGINT NOT NULL,
			profit_cents BIGINT NOT NULL,
			seller_id TEXT NOT NULL DEFAULT '',
			seller_name TEXT NOT NULL DEFAULT '',
			customer TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			expense_date TIMESTAMPTZ NOT NULL,
			description TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			category TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS incoming_stock (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			received_date TIMESTAMPTZ NOT NULL,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			product_model TEXT NOT NULL DEFAULT '',
			quantity_received INT NOT NULL CHECK (quantity_received > 0),
			unit_cost_cents BIGINT NOT NULL,
			total_cost_cents BIGINT NOT NULL,
			note TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INT PRIMARY KEY CHECK (id = 1),
			director_password_hash TEXT NOT NULL,
			shop_name TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT 'UZS'
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: schema bootstrap: %v", store.ErrStorageUnavailable, err)
		}
	}
	return nil
}

// seedSettings inserts the settings singleton on first start so the director
// can log in before anything else is configured. The initial password comes
// from SEED_DIRECTOR_PASSWORD, falling back to "1234" with a warning; change
// it through the password endpoint right after first login.
func (s *Store) seedSettings(ctx context.Context) error {
	password := os.Getenv("SEED_DIRECTOR_PASSWORD")
	if password == "" {
		password = "1234"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, director_password_hash)
		VALUES (1, $1)
		ON CONFLICT (id) DO NOTHING
	`, string(hash))
	if err != nil {
		return storageErr(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 1 && os.Getenv("SEED_DIRECTOR_PASSWORD") == "" {
		log.Println("[postgres-store] WARNING: seeded default director password. Set SEED_DIRECTOR_PASSWORD or change it after first login.")
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, model, quantity, cost_cents, sale_price_cents
		FROM products
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Model, &p.Quantity, &p.CostCents, &p.SalePriceCents); err != nil {
			return nil, storageErr(err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, model, quantity, cost_cents, sale_price_cents
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Model, &p.Quantity, &p.CostCents, &p.SalePriceCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" {
		return nil, store.ErrValidation
	}
	if product.Quantity < 0 || product.CostCents < 0 || product.SalePriceCents < 0 {
		return nil, store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, model, quantity, cost_cents, sale_price_cents)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, product.ID, product.Name, product.Model, product.Quantity, product.CostCents, product.SalePriceCents)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, storageErr(err)
	}

	created := product
	return &created, nil
}

// UpdateProduct rewrites the catalog fields only; quantity is deliberately
// absent from the SET list so that an edit racing a sale can never undo the
// sale's decrement. The stored quantity comes back via RETURNING.
func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.CostCents < 0 || product.SalePriceCents < 0 {
		return nil, store.ErrValidation
	}

	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, model = $3, cost_cents = $4, sale_price_cents = $5
		WHERE id = $1
		RETURNING quantity
	`, product.ID, product.Name, product.Model, product.CostCents, product.SalePriceCents).Scan(&product.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, storageErr(err)
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "products", id)
}

func (s *Store) ListSellers(ctx context.Context) ([]domain.Seller, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, created_at
		FROM sellers
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	sellers := make([]domain.Seller, 0, 16)
	for rows.Next() {
		var seller domain.Seller
		if err := rows.Scan(&seller.ID, &seller.Name, &seller.Phone, &seller.CreatedAt); err != nil {
			return nil, storageErr(err)
		}
		seller.CreatedAt = seller.CreatedAt.UTC()
		sellers = append(sellers, seller)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return sellers, nil
}

func (s *Store) GetSeller(ctx context.Context, id string) (*domain.Seller, error) {
	var seller domain.Seller
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, created_at
		FROM sellers
		WHERE id = $1
	`, id).Scan(&seller.ID, &seller.Name, &seller.Phone, &seller.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, storageErr(err)
	}
	seller.CreatedAt = seller.CreatedAt.UTC()
	return &seller, nil
}

func (s *Store) CreateSeller(ctx context.Context, seller domain.Seller) (*domain.Seller, error) {
	if seller.ID == "" || seller.Name == "" {
		return nil, store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sellers (id, name, phone, created_at)
		VALUES ($1,$2,$3,$4)
	`, seller.ID, seller.Name, seller.Phone, seller.CreatedAt)
	if err != nil {
		return nil, storageErr(err)
	}

	created := seller
	return &created, nil
}

func (s *Store) DeleteSeller(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "sellers", id)
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, product_id, product_name, product_model,
		       quantity, unit_price_cents, total_cents, profit_cents,
		       seller_id, seller_name, customer
		FROM sales
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 128)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(
			&sale.ID, &sale.CreatedAt, &sale.ProductID, &sale.ProductName, &sale.ProductModel,
			&sale.Quantity, &sale.UnitPriceCents, &sale.TotalCents, &sale.ProfitCents,
			&sale.SellerID, &sale.SellerName, &sale.Customer,
		); err != nil {
			return nil, storageErr(err)
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return sales, nil
}

// CreateSale runs in a serializable transaction: the stock decrement is a
// conditional update, so a quantity short of the sale leaves zero rows
// affected and the whole transaction rolls back.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || sale.ProductID == "" || sale.Quantity < 1 {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, storageErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - $2
		WHERE id = $1 AND quantity >= $2
	`, sale.ProductID, sale.Quantity)
	if err != nil {
		return nil, storageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storageErr(err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, sale.ProductID).Scan(&exists); err != nil {
			return nil, storageErr(err)
		}
		if !exists {
			return nil, store.ErrNotFound
		}
		return nil, store.ErrInsufficientStock
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, created_at, product_id, product_name, product_model,
		                   quantity, unit_price_cents, total_cents, profit_cents,
		                   seller_id, seller_name, customer)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, sale.ID, sale.CreatedAt, sale.ProductID, sale.ProductName, sale.ProductModel,
		sale.Quantity, sale.UnitPriceCents, sale.TotalCents, sale.ProfitCents,
		sale.SellerID, sale.SellerName, sale.Customer)
	if err != nil {
		return nil, storageErr(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr(err)
	}

	created := sale
	return &created, nil
}

func (s *Store) DeleteSale(ctx context.Context, id string, reverse bool) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return storageErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	var productID string
	var quantity int
	err = tx.QueryRowContext(ctx, `
		SELECT product_id, quantity FROM sales WHERE id = $1
	`, id).Scan(&productID, &quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return storageErr(err)
	}

	if reverse {
		// The product may have been deleted since; restock only if it still exists.
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET quantity = quantity + $2 WHERE id = $1
		`, productID, quantity); err != nil {
			return storageErr(err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id); err != nil {
		return storageErr(err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, expense_date, description, amount_cents, category
		FROM expenses
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 64)
	for rows.Next() {
		var expense domain.Expense
		if err := rows.Scan(&expense.ID, &expense.Date, &expense.Description, &expense.AmountCents, &expense.Category); err != nil {
			return nil, storageErr(err)
		}
		expense.Date = expense.Date.UTC()
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return expenses, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.ID == "" || expense.Description == "" || expense.AmountCents < 0 {
		return nil, store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, expense_date, description, amount_cents, category)
		VALUES ($1,$2,$3,$4,$5)
	`, expense.ID, expense.Date, expense.Description, expense.AmountCents, expense.Category)
	if err != nil {
		return nil, storageErr(err)
	}

	created := expense
	return &created, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "expenses", id)
}

func (s *Store) ListIncomingStock(ctx context.Context) ([]domain.IncomingStock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, received_date, product_id, product_name, product_model,
		       quantity_received, unit_cost_cents, total_cost_cents, note
		FROM incoming_stock
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	receipts := make([]domain.IncomingStock, 0, 64)
	for rows.Next() {
		var receipt domain.IncomingStock
		if err := rows.Scan(
			&receipt.ID, &receipt.Date, &receipt.ProductID, &receipt.ProductName, &receipt.ProductModel,
			&receipt.QuantityReceived, &receipt.UnitCostCents, &receipt.TotalCostCents, &receipt.Note,
		); err != nil {
			return nil, storageErr(err)
		}
		receipt.Date = receipt.Date.UTC()
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return receipts, nil
}

func (s *Store) CreateIncomingStock(ctx context.Context, receipt domain.IncomingStock) (*domain.IncomingStock, error) {
	if receipt.ID == "" || receipt.ProductID == "" || receipt.QuantityReceived < 1 {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, storageErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE products SET quantity = quantity + $2 WHERE id = $1
	`, receipt.ProductID, receipt.QuantityReceived)
	if err != nil {
		return nil, storageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storageErr(err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO incoming_stock (id, received_date, product_id, product_name, product_model,
		                            quantity_received, unit_cost_cents, total_cost_cents, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, receipt.ID, receipt.Date, receipt.ProductID, receipt.ProductName, receipt.ProductModel,
		receipt.QuantityReceived, receipt.UnitCostCents, receipt.TotalCostCents, receipt.Note)
	if err != nil {
		return nil, storageErr(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr(err)
	}

	created := receipt
	return &created, nil
}

func (s *Store) DeleteIncomingStock(ctx context.Context, id string, reverse bool) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return storageErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	var productID string
	var quantity int
	err = tx.QueryRowContext(ctx, `
		SELECT product_id, quantity_received FROM incoming_stock WHERE id = $1
	`, id).Scan(&productID, &quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return storageErr(err)
	}

	if reverse {
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET quantity = quantity - $2 WHERE id = $1 AND quantity >= $2
		`, productID, quantity)
		if err != nil {
			return storageErr(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return storageErr(err)
		}
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
			return storageErr(err)
		}
		if affected == 0 && exists {
			return store.ErrInsufficientStock
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM incoming_stock WHERE id = $1`, id); err != nil {
		return storageErr(err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	var settings domain.Settings
	err := s.db.QueryRowContext(ctx, `
		SELECT director_password_hash, shop_name, address, phone, currency
		FROM settings
		WHERE id = 1
	`).Scan(&settings.DirectorPasswordHash, &settings.ShopName, &settings.Address, &settings.Phone, &settings.Currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &settings, nil
}

func (s *Store) UpdateSettings(ctx context.Context, settings domain.Settings) (*domain.Settings, error) {
	if settings.DirectorPasswordHash == "" {
		return nil, store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, director_password_hash, shop_name, address, phone, currency)
		VALUES (1,$1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
			director_password_hash = EXCLUDED.director_password_hash,
			shop_name = EXCLUDED.shop_name,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			currency = EXCLUDED.currency
	`, settings.DirectorPasswordHash, settings.ShopName, settings.Address, settings.Phone, settings.Currency)
	if err != nil {
		return nil, storageErr(err)
	}

	updated := settings
	return &updated, nil
}

func (s *Store) deleteByID(ctx context.Context, table string, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return storageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// storageErr tags driver failures so callers can distinguish "persistence
// rejected the call" from domain errors.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
}
