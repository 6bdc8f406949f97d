package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShopSetting is the single-row shop configuration used by checkout pricing.
type ShopSetting struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TaxRate         decimal.Decimal `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	DeliveryEnabled bool            `gorm:"column:delivery_enabled;not null;default:true"`
	DeliveryCharge  decimal.Decimal `gorm:"column:delivery_charge;type:numeric(10,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
