package domain

import "time"

// Roles recognised by the access policy. The director sees cost prices and
// profit and manages every collection; the seller records sales and browses
// the catalog.
const (
	RoleDirector = "director"
	RoleSeller   = "seller"
)

// All currency amounts are int64 cents (tiyin). Arithmetic stays in integers
// end to end; floats never touch money.

type Product struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Model          string `json:"model"`
	Quantity       int    `json:"quantity"`
	CostCents      int64  `json:"cost_cents"`
	SalePriceCents int64  `json:"sale_price_cents"`
}

type ProductCreateRequest struct {
	Name           string `json:"name"`
	Model          string `json:"model"`
	Quantity       int    `json:"quantity"`
	CostCents      int64  `json:"cost_cents"`
	SalePriceCents int64  `json:"sale_price_cents"`
}

type ProductUpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	Model          *string `json:"model,omitempty"`
	CostCents      *int64  `json:"cost_cents,omitempty"`
	SalePriceCents *int64  `json:"sale_price_cents,omitempty"`
}

type Seller struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SellerCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Sale is immutable once created except for deletion. ProductName,
// ProductModel and SellerName are snapshots taken at creation so history
// survives product/seller deletion. TotalCents and ProfitCents are computed
// once at creation against the product's cost at that moment and never
// recomputed.
type Sale struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	ProductID      string    `json:"product_id"`
	ProductName    string    `json:"product_name"`
	ProductModel   string    `json:"product_model"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	TotalCents     int64     `json:"total_cents"`
	ProfitCents    int64     `json:"profit_cents"`
	SellerID       string    `json:"seller_id"`
	SellerName     string    `json:"seller_name"`
	Customer       string    `json:"customer,omitempty"`
}

type SaleCreateRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	// UnitPriceCents overrides the product's sale price when set; nil means
	// sell at the catalog price. Below-cost overrides are valid and yield
	// negative profit.
	UnitPriceCents *int64 `json:"unit_price_cents,omitempty"`
	SellerID       string `json:"seller_id"`
	Customer       string `json:"customer"`
}

type Expense struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category,omitempty"`
}

type ExpenseCreateRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
}

// IncomingStock records a receiving event. Product name/model are snapshots;
// TotalCostCents = QuantityReceived * UnitCostCents, fixed at creation.
type IncomingStock struct {
	ID               string    `json:"id"`
	Date             time.Time `json:"date"`
	ProductID        string    `json:"product_id"`
	ProductName      string    `json:"product_name"`
	ProductModel     string    `json:"product_model"`
	QuantityReceived int       `json:"quantity_received"`
	UnitCostCents    int64     `json:"unit_cost_cents"`
	TotalCostCents   int64     `json:"total_cost_cents"`
	Note             string    `json:"note,omitempty"`
}

type IncomingStockCreateRequest struct {
	Date          string `json:"date"`
	ProductID     string `json:"product_id"`
	Quantity      int    `json:"quantity"`
	UnitCostCents int64  `json:"unit_cost_cents"`
	Note          string `json:"note"`
}

// Settings is a process-wide singleton. The director password is stored as a
// bcrypt hash and never serialized to clients.
type Settings struct {
	DirectorPasswordHash string `json:"-"`
	ShopName             string `json:"shop_name,omitempty"`
	Address              string `json:"address,omitempty"`
	Phone                string `json:"phone,omitempty"`
	Currency             string `json:"currency,omitempty"`
}

type SettingsUpdateRequest struct {
	ShopName *string `json:"shop_name,omitempty"`
	Address  *string `json:"address,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Currency *string `json:"currency,omitempty"`
}

type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type Statistics struct {
	TotalRevenueCents     int64 `json:"total_revenue_cents"`
	TotalGrossProfitCents int64 `json:"total_gross_profit_cents"`
	TotalExpensesCents    int64 `json:"total_expenses_cents"`
	NetProfitCents        int64 `json:"net_profit_cents"`
	StockCount            int   `json:"stock_count"`
}

type SellerStatistics struct {
	SaleCount        int   `json:"sale_count"`
	TotalAmountCents int64 `json:"total_amount_cents"`
	TotalProfitCents int64 `json:"total_profit_cents"`
}

type LoginRequest struct {
	Role     string `json:"role"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor identifies the caller for the duration of one operation. It travels
// explicitly in the request context; nothing reads ambient global state.
type Actor struct {
	Role string
}
