// Package policy is the single source of truth for what each role may do.
// CanAccess is pure; the service layer consults it before every mutation and
// before disclosing restricted fields, so a bypassed UI cannot widen access.
package policy

import "motomarket/backend/internal/domain"

type Action string

const (
	ActionListProducts    Action = "products.list"
	ActionManageProducts  Action = "products.manage"
	ActionViewCostPrice   Action = "products.view_cost"
	ActionRecordSale      Action = "sales.record"
	ActionListSales       Action = "sales.list"
	ActionDeleteSale      Action = "sales.delete"
	ActionManageSellers   Action = "sellers.manage"
	ActionViewSellerStats Action = "sellers.view_stats"
	ActionManageExpenses  Action = "expenses.manage"
	ActionManageIncoming  Action = "incoming_stock.manage"
	ActionViewStatistics  Action = "statistics.view"
	ActionManageSettings  Action = "settings.manage"
)

// sellerAllowed lists the seller role's whole surface; the director has full
// access. Unknown roles get nothing.
var sellerAllowed = map[Action]bool{
	ActionListProducts: true,
	ActionRecordSale:   true,
	ActionListSales:    true,
}

func CanAccess(role string, action Action) bool {
	switch role {
	case domain.RoleDirector:
		return true
	case domain.RoleSeller:
		return sellerAllowed[action]
	}
	return false
}
