package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	"github.com/suyogshakya/khajaghar-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateLines(ctx context.Context, lines []models.OrderLine) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error)
	// UpdateStatusGuarded flips the fulfillment status only when the row
	// still holds the expected current status. Returns the number of rows
	// changed so callers can detect races.
	UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from, to enums.FulfillmentStatus, cancelledAt *time.Time) (int64, error)
	// MarkPaidGuarded flips payment status UNPAID -> PAID only when the
	// order is still unpaid and not cancelled.
	MarkPaidGuarded(ctx context.Context, id uuid.UUID, paidAt time.Time) (int64, error)
}
