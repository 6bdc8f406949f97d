package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/suyogshakya/khajaghar-backend/internal/payments"
	"github.com/suyogshakya/khajaghar-backend/pkg/config"
)

// PaymentReconcileJob re-verifies gateway attempts stuck in INITIATED,
// recovering payments whose browser redirect never came back.
type PaymentReconcileJob struct {
	reconciler payments.Reconciler
	cfg        config.CronConfig
	now        func() time.Time
}

// NewPaymentReconcileJob builds the reconcile job.
func NewPaymentReconcileJob(reconciler payments.Reconciler, cfg config.CronConfig) (*PaymentReconcileJob, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("payment reconciler required")
	}
	return &PaymentReconcileJob{
		reconciler: reconciler,
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// Name implements Job.
func (j *PaymentReconcileJob) Name() string {
	return "payment_reconcile"
}

// Run implements Job. Attempts younger than MinAge are skipped so a buyer
// mid-redirect is not raced; attempts older than MaxAge are left for manual
// review.
func (j *PaymentReconcileJob) Run(ctx context.Context) error {
	now := j.now()
	olderThan := now.Add(-j.cfg.ReconcileMinAge)
	newerThan := now.Add(-j.cfg.ReconcileMaxAge)
	return j.reconciler.ReconcileStale(ctx, olderThan, newerThan, j.cfg.ReconcileBatch)
}
