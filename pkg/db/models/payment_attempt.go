package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
)

// PaymentAttempt records one gateway initiation for an order. The unique
// transaction ref makes verification idempotent.
type PaymentAttempt struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID                  `gorm:"column:order_id;type:uuid;not null;index"`
	Gateway        enums.PaymentMethod        `gorm:"column:gateway;type:text;not null"`
	TransactionRef string                     `gorm:"column:transaction_ref;type:text;not null;uniqueIndex"`
	Amount         decimal.Decimal            `gorm:"column:amount;type:numeric(10,2);not null"`
	Status         enums.PaymentAttemptStatus `gorm:"column:status;type:text;not null;default:'INITIATED'"`
	ProviderRef    *string                    `gorm:"column:provider_ref"`
	FailureReason  *string                    `gorm:"column:failure_reason"`
	VerifiedAt     *time.Time                 `gorm:"column:verified_at"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
