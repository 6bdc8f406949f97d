package settings

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/suyogshakya/khajaghar-backend/pkg/config"
	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
)

type stubSettingsRepo struct {
	setting *models.ShopSetting
}

func (s *stubSettingsRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubSettingsRepo) Find(context.Context) (*models.ShopSetting, error) {
	if s.setting == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.setting, nil
}

func (s *stubSettingsRepo) Create(_ context.Context, setting *models.ShopSetting) (*models.ShopSetting, error) {
	s.setting = setting
	return setting, nil
}

func (s *stubSettingsRepo) Update(_ context.Context, setting *models.ShopSetting) error {
	s.setting = setting
	return nil
}

func buildSettingsService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, config.CheckoutConfig{
		DefaultTaxRate:        "0.08",
		DefaultDeliveryCharge: "3.99",
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestGetFallsBackToDefaults(t *testing.T) {
	svc := buildSettingsService(t, &stubSettingsRepo{})

	setting, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !setting.TaxRate.Equal(decimal.RequireFromString("0.08")) {
		t.Fatalf("expected default tax rate 0.08, got %s", setting.TaxRate)
	}
	if !setting.DeliveryCharge.Equal(decimal.RequireFromString("3.99")) {
		t.Fatalf("expected default delivery charge 3.99, got %s", setting.DeliveryCharge)
	}
	if !setting.DeliveryEnabled {
		t.Fatalf("expected delivery enabled by default")
	}
}

func TestUpdateSeedsRowFromDefaults(t *testing.T) {
	repo := &stubSettingsRepo{}
	svc := buildSettingsService(t, repo)

	rate := decimal.RequireFromString("0.13")
	setting, err := svc.Update(context.Background(), UpdateInput{TaxRate: &rate})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if !setting.TaxRate.Equal(rate) {
		t.Fatalf("expected tax rate 0.13, got %s", setting.TaxRate)
	}
	// Untouched fields keep their defaults.
	if !setting.DeliveryCharge.Equal(decimal.RequireFromString("3.99")) {
		t.Fatalf("expected delivery charge 3.99, got %s", setting.DeliveryCharge)
	}
	if repo.setting == nil {
		t.Fatalf("expected settings row persisted")
	}
}

func TestUpdatePartialFields(t *testing.T) {
	repo := &stubSettingsRepo{setting: &models.ShopSetting{
		TaxRate:         decimal.RequireFromString("0.08"),
		DeliveryEnabled: true,
		DeliveryCharge:  decimal.RequireFromString("3.99"),
	}}
	svc := buildSettingsService(t, repo)

	disabled := false
	setting, err := svc.Update(context.Background(), UpdateInput{DeliveryEnabled: &disabled})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if setting.DeliveryEnabled {
		t.Fatalf("expected delivery disabled")
	}
	if !setting.TaxRate.Equal(decimal.RequireFromString("0.08")) {
		t.Fatalf("expected tax rate untouched, got %s", setting.TaxRate)
	}
}

func TestUpdateValidatesBounds(t *testing.T) {
	svc := buildSettingsService(t, &stubSettingsRepo{})

	cases := []struct {
		name  string
		input UpdateInput
	}{
		{"negative tax rate", UpdateInput{TaxRate: decimalPtr("-0.01")}},
		{"tax rate above one", UpdateInput{TaxRate: decimalPtr("1.01")}},
		{"negative delivery charge", UpdateInput{DeliveryCharge: decimalPtr("-1.00")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
