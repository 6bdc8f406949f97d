package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	"github.com/suyogshakya/khajaghar-backend/pkg/types"
)

// CreateInput carries the checkout request. Line prices are intentionally
// absent; the service resolves them from the catalog.
type CreateInput struct {
	UserID          uuid.UUID
	Lines           []CreateLineInput
	PaymentMethod   enums.PaymentMethod
	DeliveryDetails types.DeliveryDetails
}

// CreateLineInput identifies one requested item and its quantity.
type CreateLineInput struct {
	FoodItemID uuid.UUID
	Quantity   int
}

// UpdateStatusInput carries a fulfillment status change request.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	Target      enums.FulfillmentStatus
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// ListFilters narrows order listings.
type ListFilters struct {
	UserID        *uuid.UUID
	Status        *enums.FulfillmentStatus
	PaymentStatus *enums.PaymentStatus
}

// List is one page of orders plus the cursor for the next page.
type List struct {
	Orders     []models.Order
	NextCursor *string
}

// Detail is an order with its snapshot lines.
type Detail struct {
	Order models.Order
	Lines []models.OrderLine
}

// StatusView is the lightweight polling shape for buyers.
type StatusView struct {
	OrderID       uuid.UUID               `json:"order_id"`
	Status        enums.FulfillmentStatus `json:"status"`
	PaymentStatus enums.PaymentStatus     `json:"payment_status"`
	Total         decimal.Decimal         `json:"total"`
	UpdatedAt     time.Time               `json:"updated_at"`
}
