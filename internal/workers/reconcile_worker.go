package workers

import (
	"context"
	"time"

	"eligibility_backend/internal/logger"
	"eligibility_backend/internal/services"

	"gorm.io/gorm"
)

// ReconcileWorker is the background hardening path: it re-verifies
// PENDING transactions the webhook never reached (webhook loss,
// network partition) and retries side effects for completed rows that
// were never notified. It only ever funnels results through the same
// shared transition, so it can run alongside live traffic safely.
type ReconcileWorker struct {
	db      *gorm.DB
	payment services.PaymentService

	interval   time.Duration
	pendingAge time.Duration
	batchSize  int
	effectsAge time.Duration
}

func NewReconcileWorker(db *gorm.DB, payment services.PaymentService) *ReconcileWorker {
	return &ReconcileWorker{
		db:         db,
		payment:    payment,
		interval:   5 * time.Minute,
		pendingAge: 15 * time.Minute,
		batchSize:  50,
		effectsAge: 5 * time.Minute,
	}
}

func (w *ReconcileWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *ReconcileWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("reconcile worker stopped")
			return
		case <-ticker.C:
			err := w.payment.ReconcileStalePending(ctx, w.db, w.pendingAge, w.batchSize)
			logger.WorkerLog("reconcile", "verify_stale_pending", err)

			err = w.payment.RetryUnnotifiedEffects(ctx, w.db, w.effectsAge, w.batchSize)
			logger.WorkerLog("reconcile", "retry_unnotified_effects", err)
		}
	}
}
