package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/suyogshakya/khajaghar-backend/internal/catalog"
	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines cart mutations and the priced read view.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, userID, foodItemID uuid.UUID, quantity int) (*View, error)
	SetQuantity(ctx context.Context, userID, foodItemID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, userID, foodItemID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     Repository
	catalog  catalog.Repository
	tx       txRunner
	notifier Notifier
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner, notifier Notifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		repo:     repo,
		catalog:  catalogRepo,
		tx:       tx,
		notifier: notifier,
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	record, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &View{Lines: []LineView{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.buildView(ctx, record)
}

func (s *service) AddItem(ctx context.Context, userID, foodItemID uuid.UUID, quantity int) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if foodItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "food item id required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	item, err := s.catalog.FindFoodItemByID(ctx, foodItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "food item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load food item")
	}
	if !item.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "food item is not available")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := s.findOrCreateRecord(ctx, repo, userID)
		if err != nil {
			return err
		}

		existing, err := repo.FindItem(ctx, record.ID, foodItemID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
			}
			_, err = repo.CreateItem(ctx, &models.CartItem{
				CartID:     record.ID,
				FoodItemID: foodItemID,
				Quantity:   quantity,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
			}
			return nil
		}

		// Same item added again merges into one line.
		if err := repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item quantity")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.ItemAdded(ctx, userID, item.Name, quantity)
	return s.Get(ctx, userID)
}

func (s *service) SetQuantity(ctx context.Context, userID, foodItemID uuid.UUID, quantity int) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if foodItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "food item id required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	record, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	item, err := s.repo.FindItem(ctx, record.ID, foodItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item quantity")
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, foodItemID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if foodItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "food item id required")
	}

	record, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &View{Lines: []LineView{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var itemName string
	if item, err := s.catalog.FindFoodItemByID(ctx, foodItemID); err == nil {
		itemName = item.Name
	}

	if err := s.repo.DeleteItem(ctx, record.ID, foodItemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}

	if itemName != "" {
		s.notifier.ItemRemoved(ctx, userID, itemName)
	}
	return s.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	record, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	if err := s.repo.ClearItems(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}

	s.notifier.CartCleared(ctx, userID)
	return nil
}

func (s *service) findOrCreateRecord(ctx context.Context, repo Repository, userID uuid.UUID) (*models.CartRecord, error) {
	record, err := repo.FindByUserID(ctx, userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	record, err = repo.Create(ctx, &models.CartRecord{UserID: userID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return record, nil
}

func (s *service) buildView(ctx context.Context, record *models.CartRecord) (*View, error) {
	view := &View{
		CartID: record.ID,
		Lines:  make([]LineView, 0, len(record.Items)),
	}
	if len(record.Items) == 0 {
		return view, nil
	}

	ids := make([]uuid.UUID, 0, len(record.Items))
	for _, item := range record.Items {
		ids = append(ids, item.FoodItemID)
	}

	foods, err := s.catalog.FindFoodItemsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart food items")
	}
	byID := make(map[uuid.UUID]models.FoodItem, len(foods))
	for _, food := range foods {
		byID[food.ID] = food
	}

	for _, item := range record.Items {
		food, ok := byID[item.FoodItemID]
		if !ok {
			// Item removed from the catalog; skip the line.
			continue
		}
		lineTotal := food.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Lines = append(view.Lines, LineView{
			FoodItemID:  food.ID,
			Name:        food.Name,
			UnitPrice:   food.Price,
			Quantity:    item.Quantity,
			LineTotal:   lineTotal,
			IsAvailable: food.IsAvailable,
		})
		view.Subtotal = view.Subtotal.Add(lineTotal)
	}
	return view, nil
}
