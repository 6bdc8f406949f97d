package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
)

// Repository defines persistence operations for the menu catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateCategory(ctx context.Context, category *models.Category) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	CreateFoodItem(ctx context.Context, item *models.FoodItem) (*models.FoodItem, error)
	UpdateFoodItem(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindFoodItemByID(ctx context.Context, id uuid.UUID) (*models.FoodItem, error)
	FindFoodItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.FoodItem, error)
	ListFoodItems(ctx context.Context, filters FoodItemFilters) ([]models.FoodItem, error)
}

// FoodItemFilters narrows catalog listings.
type FoodItemFilters struct {
	CategoryID    *uuid.UUID
	OnlyAvailable bool
	Search        string
}
