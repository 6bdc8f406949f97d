package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
)

// Service exposes catalog reads for the storefront and writes for admins.
type Service interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListFoodItems(ctx context.Context, filters FoodItemFilters) ([]models.FoodItem, error)
	GetFoodItem(ctx context.Context, id uuid.UUID) (*models.FoodItem, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*models.Category, error)
	CreateFoodItem(ctx context.Context, input CreateFoodItemInput) (*models.FoodItem, error)
	UpdateFoodItem(ctx context.Context, id uuid.UUID, input UpdateFoodItemInput) (*models.FoodItem, error)
}

// CreateCategoryInput carries the admin-provided category fields.
type CreateCategoryInput struct {
	Name     string
	ImageURL *string
}

// CreateFoodItemInput carries the admin-provided menu item fields.
type CreateFoodItemInput struct {
	CategoryID  uuid.UUID
	Name        string
	Description *string
	Price       decimal.Decimal
	ImageURL    *string
	Ingredients []string
	IsAvailable bool
}

// UpdateFoodItemInput applies partial updates; nil fields are untouched.
type UpdateFoodItemInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	ImageURL    *string
	Ingredients []string
	IsAvailable *bool
}

type service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

func (s *service) ListFoodItems(ctx context.Context, filters FoodItemFilters) ([]models.FoodItem, error) {
	items, err := s.repo.ListFoodItems(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list food items")
	}
	return items, nil
}

func (s *service) GetFoodItem(ctx context.Context, id uuid.UUID) (*models.FoodItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "food item id required")
	}
	item, err := s.repo.FindFoodItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "food item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load food item")
	}
	return item, nil
}

func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name required")
	}

	category, err := s.repo.CreateCategory(ctx, &models.Category{
		Name:     name,
		ImageURL: input.ImageURL,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return category, nil
}

func (s *service) CreateFoodItem(ctx context.Context, input CreateFoodItemInput) (*models.FoodItem, error) {
	if input.CategoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "food item name required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	if _, err := s.repo.FindCategoryByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	item, err := s.repo.CreateFoodItem(ctx, &models.FoodItem{
		CategoryID:  input.CategoryID,
		Name:        name,
		Description: input.Description,
		Price:       input.Price,
		ImageURL:    input.ImageURL,
		Ingredients: pq.StringArray(input.Ingredients),
		IsAvailable: input.IsAvailable,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create food item")
	}
	return item, nil
}

func (s *service) UpdateFoodItem(ctx context.Context, id uuid.UUID, input UpdateFoodItemInput) (*models.FoodItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "food item id required")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "food item name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price"] = *input.Price
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.Ingredients != nil {
		updates["ingredients"] = pq.StringArray(input.Ingredients)
	}
	if input.IsAvailable != nil {
		updates["is_available"] = *input.IsAvailable
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if _, err := s.repo.FindFoodItemByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "food item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load food item")
	}

	if err := s.repo.UpdateFoodItem(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update food item")
	}

	item, err := s.repo.FindFoodItemByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload food item")
	}
	return item, nil
}
