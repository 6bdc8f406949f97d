package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// View is the priced cart representation returned to clients. Prices are
// resolved from the catalog at read time and never stored on the cart.
type View struct {
	CartID   uuid.UUID       `json:"cart_id"`
	Lines    []LineView      `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// LineView is one cart line joined with its current catalog data.
type LineView struct {
	FoodItemID  uuid.UUID       `json:"food_item_id"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	IsAvailable bool            `json:"is_available"`
}
