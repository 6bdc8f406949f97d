package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
)

// Repository defines persistence operations for user carts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error)
	Create(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error)
	FindItem(ctx context.Context, cartID, foodItemID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, cartID, foodItemID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
}

// Notifier receives cart mutation events for user-facing feedback.
type Notifier interface {
	ItemAdded(ctx context.Context, userID uuid.UUID, itemName string, quantity int)
	ItemRemoved(ctx context.Context, userID uuid.UUID, itemName string)
	CartCleared(ctx context.Context, userID uuid.UUID)
}
