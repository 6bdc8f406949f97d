package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/suyogshakya/khajaghar-backend/pkg/config"
	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
)

// Service serves the shop-level checkout configuration, falling back to
// the configured defaults until an admin writes a row.
type Service interface {
	Get(ctx context.Context) (*models.ShopSetting, error)
	Update(ctx context.Context, input UpdateInput) (*models.ShopSetting, error)
}

// UpdateInput applies partial updates; nil fields are untouched.
type UpdateInput struct {
	TaxRate         *decimal.Decimal
	DeliveryEnabled *bool
	DeliveryCharge  *decimal.Decimal
}

type service struct {
	repo            Repository
	defaultTaxRate  decimal.Decimal
	defaultDelivery decimal.Decimal
}

// NewService builds a settings service seeded with defaults from config.
func NewService(repo Repository, cfg config.CheckoutConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	taxRate, err := decimal.NewFromString(cfg.DefaultTaxRate)
	if err != nil {
		return nil, fmt.Errorf("invalid default tax rate %q: %w", cfg.DefaultTaxRate, err)
	}
	deliveryCharge, err := decimal.NewFromString(cfg.DefaultDeliveryCharge)
	if err != nil {
		return nil, fmt.Errorf("invalid default delivery charge %q: %w", cfg.DefaultDeliveryCharge, err)
	}
	return &service{
		repo:            repo,
		defaultTaxRate:  taxRate,
		defaultDelivery: deliveryCharge,
	}, nil
}

func (s *service) Get(ctx context.Context) (*models.ShopSetting, error) {
	setting, err := s.repo.Find(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.ShopSetting{
				TaxRate:         s.defaultTaxRate,
				DeliveryEnabled: true,
				DeliveryCharge:  s.defaultDelivery,
			}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop settings")
	}
	return setting, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.ShopSetting, error) {
	if input.TaxRate != nil {
		if input.TaxRate.IsNegative() || input.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate must be between 0 and 1")
		}
	}
	if input.DeliveryCharge != nil && input.DeliveryCharge.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery charge cannot be negative")
	}

	setting, err := s.repo.Find(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop settings")
		}
		setting, err = s.repo.Create(ctx, &models.ShopSetting{
			TaxRate:         s.defaultTaxRate,
			DeliveryEnabled: true,
			DeliveryCharge:  s.defaultDelivery,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shop settings")
		}
	}

	if input.TaxRate != nil {
		setting.TaxRate = *input.TaxRate
	}
	if input.DeliveryEnabled != nil {
		setting.DeliveryEnabled = *input.DeliveryEnabled
	}
	if input.DeliveryCharge != nil {
		setting.DeliveryCharge = *input.DeliveryCharge
	}

	if err := s.repo.Update(ctx, setting); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shop settings")
	}
	return setting, nil
}
