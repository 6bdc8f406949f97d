package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/suyogshakya/khajaghar-backend/internal/orders"
	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	"github.com/suyogshakya/khajaghar-backend/pkg/enums"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
	"github.com/suyogshakya/khajaghar-backend/pkg/logger"
	"github.com/suyogshakya/khajaghar-backend/pkg/redis"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Reconciler owns the payment side of the order state machine: initiating
// gateway attempts, applying verified results exactly once, and settling
// cash orders on operator confirmation.
type Reconciler interface {
	Initiate(ctx context.Context, orderID, actorUserID uuid.UUID, method enums.PaymentMethod) (*InitiateResult, error)
	VerifyCallback(ctx context.Context, method enums.PaymentMethod, callback Callback) (*models.Order, error)
	MarkCashPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ReconcileStale(ctx context.Context, olderThan, newerThan time.Time, limit int) error
}

// ReconcilerConfig tunes callback deduplication.
type ReconcilerConfig struct {
	CallbackDedupeTTL time.Duration
}

type reconciler struct {
	orders   orders.Repository
	attempts Repository
	adapters map[enums.PaymentMethod]Adapter
	dedupe   redis.IdempotencyStore
	tx       txRunner
	logg     *logger.Logger
	cfg      ReconcilerConfig
	now      func() time.Time
}

// NewReconciler builds the payment reconciler with the required dependencies.
func NewReconciler(
	ordersRepo orders.Repository,
	attempts Repository,
	adapters []Adapter,
	dedupe redis.IdempotencyStore,
	tx txRunner,
	logg *logger.Logger,
	cfg ReconcilerConfig,
) (Reconciler, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("at least one gateway adapter required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	byMethod := make(map[enums.PaymentMethod]Adapter, len(adapters))
	for _, adapter := range adapters {
		byMethod[adapter.Method()] = adapter
	}
	if cfg.CallbackDedupeTTL <= 0 {
		cfg.CallbackDedupeTTL = 24 * time.Hour
	}
	return &reconciler{
		orders:   ordersRepo,
		attempts: attempts,
		adapters: byMethod,
		dedupe:   dedupe,
		tx:       tx,
		logg:     logg,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

func (r *reconciler) Initiate(ctx context.Context, orderID, actorUserID uuid.UUID, method enums.PaymentMethod) (*InitiateResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	adapter, ok := r.adapters[method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}

	order, err := r.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != actorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status == enums.FulfillmentStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}

	// Every attempt gets a fresh ref; refs are never reused across retries.
	// Server-initiated gateways replace it with their own identifier.
	ref := uuid.NewString()
	result, err := adapter.Initiate(ctx, order, ref)
	if err != nil {
		return nil, err
	}

	_, err = r.attempts.Create(ctx, &models.PaymentAttempt{
		OrderID:        order.ID,
		Gateway:        method,
		TransactionRef: result.TransactionRef,
		Amount:         order.Total,
		Status:         enums.PaymentAttemptStatusInitiated,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment attempt")
	}

	return result, nil
}

func (r *reconciler) VerifyCallback(ctx context.Context, method enums.PaymentMethod, callback Callback) (*models.Order, error) {
	adapter, ok := r.adapters[method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	if callback.TransactionRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction ref required")
	}

	attempt, err := r.attempts.FindByTransactionRef(ctx, callback.TransactionRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown payment attempt")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment attempt")
	}
	if attempt.Gateway != method {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway mismatch for transaction ref")
	}

	// Replayed callbacks are a no-op returning current state.
	if attempt.Status == enums.PaymentAttemptStatusVerified {
		return r.loadOrder(ctx, attempt.OrderID)
	}

	// Gateways retry callbacks; the SetNX guard collapses concurrent
	// deliveries of the same ref into one verification.
	dedupeKey := r.dedupe.CallbackKey(method.String(), callback.TransactionRef)
	acquired, err := r.dedupe.SetNX(ctx, dedupeKey, r.now().UTC().Format(time.RFC3339), r.cfg.CallbackDedupeTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "callback dedupe check")
	}
	if !acquired {
		return r.loadOrder(ctx, attempt.OrderID)
	}

	order, err := r.applyVerification(ctx, adapter, attempt, callback)
	if err != nil {
		// Let the gateway's next retry re-enter verification.
		_ = r.dedupe.Del(ctx, dedupeKey)
		return nil, err
	}
	return order, nil
}

func (r *reconciler) applyVerification(ctx context.Context, adapter Adapter, attempt *models.PaymentAttempt, callback Callback) (*models.Order, error) {
	result, err := adapter.Verify(ctx, callback)
	if err != nil {
		return nil, err
	}

	if !result.Succeeded {
		reason := "verification failed"
		if result.FailureReason != nil {
			reason = *result.FailureReason
		}
		if err := r.attempts.UpdateStatus(ctx, attempt.ID, enums.PaymentAttemptStatusFailed, AttemptUpdates{
			FailureReason: &reason,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record failed attempt")
		}
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "payment verification failed").
			WithDetails(map[string]string{"reason": reason})
	}

	// A verified amount that disagrees with what we initiated is treated
	// as tampering, not success.
	if !result.Amount.Equal(attempt.Amount) {
		reason := fmt.Sprintf("amount mismatch: expected %s got %s", attempt.Amount, result.Amount)
		if err := r.attempts.UpdateStatus(ctx, attempt.ID, enums.PaymentAttemptStatusFailed, AttemptUpdates{
			FailureReason: &reason,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record failed attempt")
		}
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "payment verification failed").
			WithDetails(map[string]string{"reason": "amount mismatch"})
	}

	now := r.now()
	err = r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := r.orders.WithTx(tx)
		attemptsRepo := r.attempts.WithTx(tx)

		if err := attemptsRepo.UpdateStatus(ctx, attempt.ID, enums.PaymentAttemptStatusVerified, AttemptUpdates{
			ProviderRef: result.ProviderRef,
			VerifiedAt:  &now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark attempt verified")
		}

		rows, err := ordersRepo.MarkPaidGuarded(ctx, attempt.OrderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if rows == 0 {
			order, err := ordersRepo.FindByID(ctx, attempt.OrderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			// Already paid via another attempt: idempotent success.
			if order.PaymentStatus == enums.PaymentStatusPaid {
				return nil
			}
			// The guard lost to a concurrent cancellation.
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment arrived for a cancelled order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = r.logg.WithOrderID(ctx, attempt.OrderID.String())
	r.logg.Info(ctx, fmt.Sprintf("payment verified via %s", attempt.Gateway))

	return r.loadOrder(ctx, attempt.OrderID)
}

func (r *reconciler) MarkCashPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := r.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodCash {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a cash order")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return order, nil
	}

	rows, err := r.orders.MarkPaidGuarded(ctx, orderID, r.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be marked paid")
	}
	return r.loadOrder(ctx, orderID)
}

// ReconcileStale re-verifies gateway attempts stuck in INITIATED, catching
// payments whose return redirect never reached us.
func (r *reconciler) ReconcileStale(ctx context.Context, olderThan, newerThan time.Time, limit int) error {
	attempts, err := r.attempts.ListStaleInitiated(ctx, olderThan, newerThan, limit)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale attempts")
	}

	var errs error
	for _, attempt := range attempts {
		if attempt.Gateway == enums.PaymentMethodCash {
			continue
		}
		adapter, ok := r.adapters[attempt.Gateway]
		if !ok {
			continue
		}
		_, err := r.applyVerification(ctx, adapter, &attempt, Callback{
			OrderID:        attempt.OrderID,
			TransactionRef: attempt.TransactionRef,
		})
		if err != nil {
			// Failed verifications are recorded on the attempt; only
			// infrastructure errors bubble up.
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeGateway {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("attempt %s: %w", attempt.ID, err))
		}
	}
	return errs
}

func (r *reconciler) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := r.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
