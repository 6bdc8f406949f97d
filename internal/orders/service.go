package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/suyogshakya/khajaghar-backend/internal/catalog"
	"github.com/suyogshakya/khajaghar-backend/internal/settings"
	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
	"github.com/suyogshakya/khajaghar-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartClearer interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Service defines order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Detail, error)
	Get(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.UserRole) (*Detail, error)
	GetStatus(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.UserRole) (*StatusView, error)
	List(ctx context.Context, actorUserID uuid.UUID, actorRole enums.UserRole, params pagination.Params, filters ListFilters) (*List, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
}

type service struct {
	repo     Repository
	catalog  catalog.Repository
	settings settings.Service
	cart     cartClearer
	tx       txRunner
	now      func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, settingsSvc settings.Service, cart cartClearer, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if settingsSvc == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if cart == nil {
		return nil, fmt.Errorf("cart clearer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		catalog:  catalogRepo,
		settings: settingsSvc,
		cart:     cart,
		tx:       tx,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Detail, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one line")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if missing := input.DeliveryDetails.Validate(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery details incomplete").
			WithDetails(map[string]any{"missing": missing})
	}

	seen := map[uuid.UUID]bool{}
	ids := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.FoodItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "food item id required")
		}
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be at least 1")
		}
		if seen[line.FoodItemID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate food item in order")
		}
		seen[line.FoodItemID] = true
		ids = append(ids, line.FoodItemID)
	}

	// Prices always come from the catalog; anything the client sent for
	// amounts is ignored.
	foods, err := s.catalog.FindFoodItemsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load food items")
	}
	byID := make(map[uuid.UUID]models.FoodItem, len(foods))
	for _, food := range foods {
		byID[food.ID] = food
	}

	quoteLines := make([]QuoteLine, 0, len(input.Lines))
	orderLines := make([]models.OrderLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		food, ok := byID[line.FoodItemID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "food item not found").
				WithDetails(map[string]string{"food_item_id": line.FoodItemID.String()})
		}
		if !food.IsAvailable {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "food item is not available").
				WithDetails(map[string]string{"food_item_id": food.ID.String()})
		}
		quoteLines = append(quoteLines, QuoteLine{UnitPrice: food.Price, Quantity: line.Quantity})
		foodID := food.ID
		orderLines = append(orderLines, models.OrderLine{
			FoodItemID: &foodID,
			Name:       food.Name,
			UnitPrice:  food.Price,
			Quantity:   line.Quantity,
			LineTotal:  food.Price.Mul(decimalFromInt(line.Quantity)),
		})
	}

	setting, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	quote, err := ComputeQuote(quoteLines, setting.TaxRate, setting.DeliveryEnabled, setting.DeliveryCharge)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          input.UserID,
		Status:          enums.FulfillmentStatusPending,
		PaymentStatus:   enums.PaymentStatusUnpaid,
		PaymentMethod:   input.PaymentMethod,
		Subtotal:        quote.Subtotal,
		TaxRate:         quote.TaxRate,
		TaxAmount:       quote.TaxAmount,
		DeliveryCharge:  quote.DeliveryCharge,
		Total:           quote.Total,
		DeliveryDetails: input.DeliveryDetails,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range orderLines {
			orderLines[i].OrderID = created.ID
		}
		if err := repo.CreateLines(ctx, orderLines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order lines")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Cart clearing is best-effort; the order is already committed.
	_ = s.cart.Clear(ctx, input.UserID)

	return &Detail{Order: *order, Lines: orderLines}, nil
}

func (s *service) Get(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.UserRole) (*Detail, error) {
	detail, err := s.loadDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(&detail.Order, actorUserID, actorRole); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *service) GetStatus(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.UserRole) (*StatusView, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := authorizeRead(order, actorUserID, actorRole); err != nil {
		return nil, err
	}
	return &StatusView{
		OrderID:       order.ID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
		UpdatedAt:     order.UpdatedAt,
	}, nil
}

func (s *service) List(ctx context.Context, actorUserID uuid.UUID, actorRole enums.UserRole, params pagination.Params, filters ListFilters) (*List, error) {
	if actorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	// Non-admins only ever see their own orders.
	if actorRole != enums.UserRoleAdmin {
		filters.UserID = &actorUserID
	}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if input.ActorRole != enums.UserRoleAdmin {
		// Buyers may only cancel their own order, and only while it is
		// still PENDING or PROCESSING.
		if order.UserID != input.ActorUserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if input.Target != enums.FulfillmentStatusCancelled {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only cancellation is allowed")
		}
		if order.Status != enums.FulfillmentStatusPending && order.Status != enums.FulfillmentStatusProcessing {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		}
	}

	if err := GuardTransition(order.Status, input.Target); err != nil {
		return nil, err
	}

	var cancelledAt *time.Time
	if input.Target == enums.FulfillmentStatusCancelled {
		now := s.now()
		cancelledAt = &now
	}

	rows, err := s.repo.UpdateStatusGuarded(ctx, order.ID, order.Status, input.Target, cancelledAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if rows == 0 {
		// Someone else moved the order between our read and write.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	updated, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return updated, nil
}

func (s *service) loadDetail(ctx context.Context, orderID uuid.UUID) (*Detail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	detail, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return detail, nil
}

func authorizeRead(order *models.Order, actorUserID uuid.UUID, actorRole enums.UserRole) error {
	if actorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actorRole == enums.UserRoleAdmin {
		return nil
	}
	if order.UserID != actorUserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return nil
}
