package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
)

// Repository defines persistence for payment attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, error)
	FindByTransactionRef(ctx context.Context, ref string) (*models.PaymentAttempt, error)
	FindLatestByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentAttempt, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentAttemptStatus, updates AttemptUpdates) error
	ListStaleInitiated(ctx context.Context, olderThan, newerThan time.Time, limit int) ([]models.PaymentAttempt, error)
}

// AttemptUpdates carries the optional columns set during verification.
type AttemptUpdates struct {
	ProviderRef   *string
	FailureReason *string
	VerifiedAt    *time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, error) {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *repository) FindByTransactionRef(ctx context.Context, ref string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("transaction_ref = ?", ref).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) FindLatestByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentAttemptStatus, updates AttemptUpdates) error {
	fields := map[string]any{"status": status}
	if updates.ProviderRef != nil {
		fields["provider_ref"] = *updates.ProviderRef
	}
	if updates.FailureReason != nil {
		fields["failure_reason"] = *updates.FailureReason
	}
	if updates.VerifiedAt != nil {
		fields["verified_at"] = *updates.VerifiedAt
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) ListStaleInitiated(ctx context.Context, olderThan, newerThan time.Time, limit int) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ? AND created_at > ?",
			enums.PaymentAttemptStatusInitiated, olderThan, newerThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
