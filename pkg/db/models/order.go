package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	"github.com/suyogshakya/khajaghar-backend/pkg/types"
)

// Order is the immutable priced snapshot created at checkout. Amounts are
// never recomputed after creation; only the two status fields move.
type Order struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Status          enums.FulfillmentStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PaymentStatus   enums.PaymentStatus     `gorm:"column:payment_status;type:text;not null;default:'UNPAID'"`
	PaymentMethod   enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null"`
	Subtotal        decimal.Decimal         `gorm:"column:subtotal;type:numeric(10,2);not null"`
	TaxRate         decimal.Decimal         `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	TaxAmount       decimal.Decimal         `gorm:"column:tax_amount;type:numeric(10,2);not null"`
	DeliveryCharge  decimal.Decimal         `gorm:"column:delivery_charge;type:numeric(10,2);not null"`
	Total           decimal.Decimal         `gorm:"column:total;type:numeric(10,2);not null"`
	DeliveryDetails types.DeliveryDetails   `gorm:"column:delivery_details;type:jsonb;serializer:json"`
	Lines           []OrderLine             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaidAt          *time.Time              `gorm:"column:paid_at"`
	CancelledAt     *time.Time              `gorm:"column:cancelled_at"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
