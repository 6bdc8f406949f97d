package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	"github.com/suyogshakya/khajaghar-backend/pkg/pagination"
	"github.com/suyogshakya/khajaghar-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ordersTable := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  payment_status TEXT NOT NULL DEFAULT 'UNPAID',
  payment_method TEXT NOT NULL,
  subtotal NUMERIC NOT NULL,
  tax_rate NUMERIC NOT NULL,
  tax_amount NUMERIC NOT NULL,
  delivery_charge NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  delivery_details TEXT,
  paid_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderLines := `
CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  food_item_id TEXT,
  name TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  line_total NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ordersTable).Error)
	require.NoError(t, db.Exec(orderLines).Error)
	return db
}

func createTestOrder(t *testing.T, repo Repository, userID uuid.UUID, created time.Time, status enums.FulfillmentStatus, paymentStatus enums.PaymentStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:             uuid.New(),
		UserID:         userID,
		Status:         status,
		PaymentStatus:  paymentStatus,
		PaymentMethod:  enums.PaymentMethodCash,
		Subtotal:       decimal.RequireFromString("19.98"),
		TaxRate:        decimal.RequireFromString("0.08"),
		TaxAmount:      decimal.RequireFromString("1.60"),
		DeliveryCharge: decimal.RequireFromString("3.99"),
		Total:          decimal.RequireFromString("25.57"),
		DeliveryDetails: types.DeliveryDetails{
			Name:    "Suyog Shakya",
			Phone:   "9800000000",
			Address: "Lazimpat",
			City:    "Kathmandu",
		},
		CreatedAt: created,
	}
	_, err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	return order
}

func TestUpdateStatusGuarded(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := createTestOrder(t, repo, uuid.New(), time.Now(), enums.FulfillmentStatusPending, enums.PaymentStatusUnpaid)

	rows, err := repo.UpdateStatusGuarded(ctx, order.ID, enums.FulfillmentStatusPending, enums.FulfillmentStatusProcessing, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// The guard sees the stale expected status and touches nothing.
	rows, err = repo.UpdateStatusGuarded(ctx, order.ID, enums.FulfillmentStatusPending, enums.FulfillmentStatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentStatusProcessing, reloaded.Status)
}

func TestUpdateStatusGuardedRecordsCancelledAt(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := createTestOrder(t, repo, uuid.New(), time.Now(), enums.FulfillmentStatusPending, enums.PaymentStatusUnpaid)

	cancelledAt := time.Now().UTC().Truncate(time.Second)
	rows, err := repo.UpdateStatusGuarded(ctx, order.ID, enums.FulfillmentStatusPending, enums.FulfillmentStatusCancelled, &cancelledAt)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentStatusCancelled, reloaded.Status)
	require.NotNil(t, reloaded.CancelledAt)
	assert.WithinDuration(t, cancelledAt, *reloaded.CancelledAt, time.Second)
}

func TestMarkPaidGuarded(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := createTestOrder(t, repo, uuid.New(), time.Now(), enums.FulfillmentStatusPending, enums.PaymentStatusUnpaid)

	paidAt := time.Now().UTC()
	rows, err := repo.MarkPaidGuarded(ctx, order.ID, paidAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
	require.NotNil(t, reloaded.PaidAt)

	// Already paid: the guard is a no-op.
	rows, err = repo.MarkPaidGuarded(ctx, order.ID, paidAt)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestMarkPaidGuardedSkipsCancelledOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := createTestOrder(t, repo, uuid.New(), time.Now(), enums.FulfillmentStatusCancelled, enums.PaymentStatusUnpaid)

	rows, err := repo.MarkPaidGuarded(ctx, order.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusUnpaid, reloaded.PaymentStatus)
}

func TestFindDetailReturnsLines(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := createTestOrder(t, repo, uuid.New(), time.Now(), enums.FulfillmentStatusPending, enums.PaymentStatusUnpaid)
	foodItemID := uuid.New()
	lines := []models.OrderLine{
		{
			ID:         uuid.New(),
			OrderID:    order.ID,
			FoodItemID: &foodItemID,
			Name:       "Chicken Momo",
			UnitPrice:  decimal.RequireFromString("9.99"),
			Quantity:   2,
			LineTotal:  decimal.RequireFromString("19.98"),
		},
	}
	require.NoError(t, repo.CreateLines(ctx, lines))

	detail, err := repo.FindDetail(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, detail.Order.ID)
	require.Len(t, detail.Lines, 1)
	assert.Equal(t, "Chicken Momo", detail.Lines[0].Name)
	assert.Equal(t, 2, detail.Lines[0].Quantity)
}

func TestListCursorPagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first := createTestOrder(t, repo, userID, base, enums.FulfillmentStatusPending, enums.PaymentStatusUnpaid)
	second := createTestOrder(t, repo, userID, base.Add(time.Minute), enums.FulfillmentStatusPending, enums.PaymentStatusUnpaid)
	third := createTestOrder(t, repo, userID, base.Add(2*time.Minute), enums.FulfillmentStatusCompleted, enums.PaymentStatusPaid)

	page, err := repo.List(ctx, pagination.Params{Limit: 2}, ListFilters{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, third.ID, page.Orders[0].ID)
	assert.Equal(t, second.ID, page.Orders[1].ID)
	require.NotNil(t, page.NextCursor)

	rest, err := repo.List(ctx, pagination.Params{Limit: 2, Cursor: *page.NextCursor}, ListFilters{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Equal(t, first.ID, rest.Orders[0].ID)
	assert.Nil(t, rest.NextCursor)

	status := enums.FulfillmentStatusCompleted
	filtered, err := repo.List(ctx, pagination.Params{}, ListFilters{UserID: &userID, Status: &status})
	require.NoError(t, err)
	require.Len(t, filtered.Orders, 1)
	assert.Equal(t, third.ID, filtered.Orders[0].ID)
}
