package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one food item line inside a CartRecord. Quantity only;
// prices are always re-resolved from the catalog.
type CartItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID     uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_food"`
	FoodItemID uuid.UUID `gorm:"column:food_item_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_food"`
	Quantity   int       `gorm:"column:quantity;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
