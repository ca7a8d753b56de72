package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"eligibility_backend/internal/config"
	"eligibility_backend/internal/gateway"
	"eligibility_backend/internal/logger"
	"eligibility_backend/internal/models"
	"eligibility_backend/internal/repositories"
	"eligibility_backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// amountTolerance is the absolute tolerance (in base currency units)
// when reconciling the gateway-reported amount against the amount
// fixed at initialization. One subunit covers float conversion noise;
// anything beyond it is treated as a tampered or misrouted charge.
const amountTolerance = 0.01

// GatewayClient is the outbound surface of the payment gateway.
type GatewayClient interface {
	Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeData, error)
	Verify(ctx context.Context, reference string) (*gateway.ChargeResult, error)
}

// TransitionOutcome reports what applying a gateway result did.
type TransitionOutcome int

const (
	// OutcomeCompleted: this caller's conditional update flipped the
	// row to COMPLETED. Exactly one caller per reference ever sees it.
	OutcomeCompleted TransitionOutcome = iota
	// OutcomeAlreadyCompleted: the row was already terminal, nothing
	// was applied.
	OutcomeAlreadyCompleted
	// OutcomeAmountMismatch: gateway amount disagreed with the stored
	// amount beyond tolerance. The row never becomes COMPLETED.
	OutcomeAmountMismatch
	// OutcomeFailed: the gateway reported failure or abandonment.
	OutcomeFailed
	// OutcomePending: the gateway has not resolved the charge yet; no
	// state was mutated.
	OutcomePending
)

type PaymentService interface {
	InitializePayment(ctx context.Context, db *gorm.DB, req *models.InitializePaymentRequest) (*models.InitializePaymentResponse, error)
	VerifyPayment(ctx context.Context, db *gorm.DB, reference string) (*models.VerifyPaymentResponse, error)

	// HandleWebhookEvent processes a signature-verified raw webhook
	// body. Any returned error is for logging only: the HTTP layer
	// acknowledges 200 regardless, so the gateway never retry-storms.
	HandleWebhookEvent(ctx context.Context, db *gorm.DB, rawBody []byte) error

	// ReconcileStalePending re-verifies old PENDING transactions
	// against the gateway (background hardening path).
	ReconcileStalePending(ctx context.Context, db *gorm.DB, olderThan time.Duration, limit int) error

	// RetryUnnotifiedEffects re-runs side effects for completed
	// transactions whose effects never ran (crash between transition
	// and notification). The transition itself is never re-run.
	RetryUnnotifiedEffects(ctx context.Context, db *gorm.DB, olderThan time.Duration, limit int) error
}

type paymentService struct {
	txRepo  repositories.TransactionRepository
	gateway GatewayClient
	notify  NotifyService
	receipt ReceiptService
	cfg     *config.Config
}

func NewPaymentService(
	txRepo repositories.TransactionRepository,
	gatewayClient GatewayClient,
	notify NotifyService,
	receipt ReceiptService,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		txRepo:  txRepo,
		gateway: gatewayClient,
		notify:  notify,
		receipt: receipt,
		cfg:     cfg,
	}
}

// newReference builds a fresh transaction reference. Collision odds are
// negligible; it is not a capability, so it does not need to be
// unguessable (only result IDs gate artifact access).
func newReference() string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("PAY-%d-%s", time.Now().UnixMilli(), suffix)
}

func (s *paymentService) InitializePayment(ctx context.Context, db *gorm.DB, req *models.InitializePaymentRequest) (*models.InitializePaymentResponse, error) {
	reference := newReference()

	callbackURL := strings.TrimRight(s.cfg.Gateway.CallbackBaseURL, "/") + "/payment/callback?reference=" + reference

	data, err := s.gateway.Initialize(ctx, gateway.InitializeRequest{
		Email:       req.Email,
		Amount:      int64(math.Round(req.Amount * 100)),
		Reference:   reference,
		CallbackURL: callbackURL,
		Currency:    s.cfg.Gateway.Currency,
		Metadata: map[string]string{
			"course_category": req.CourseCategory,
			"result_id":       req.ResultID,
		},
	})
	if err != nil {
		return nil, apperrors.ErrGateway(err)
	}

	tx := &models.PaymentTransaction{
		Reference:      reference,
		Status:         models.TransactionStatusPending,
		Amount:         req.Amount,
		Email:          req.Email,
		PhoneNumber:    req.Phone,
		Name:           req.Name,
		CourseCategory: req.CourseCategory,
		ResultID:       req.ResultID,
	}

	// The gateway call succeeded, so money may already be in motion.
	// A failed durable write must not fail the user-visible flow: the
	// verify and webhook paths can still reconcile through the gateway
	// by reference. Log loudly and carry on.
	if err := s.txRepo.Create(db, tx); err != nil {
		logger.CtxError(ctx, "failed to persist transaction after successful gateway init; relying on gateway reconciliation",
			"reference", reference,
			"error", err.Error(),
		)
	}

	logger.CtxInfo(ctx, "payment initialized",
		"reference", reference,
		"amount", req.Amount,
		"email", req.Email,
	)

	return &models.InitializePaymentResponse{
		Success:          true,
		AccessCode:       data.AccessCode,
		AuthorizationURL: data.AuthorizationURL,
		Reference:        reference,
	}, nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, db *gorm.DB, reference string) (*models.VerifyPaymentResponse, error) {
	tx, err := s.txRepo.FindByReference(db, reference)
	if err != nil {
		if err == repositories.ErrTransactionNotFound {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.ErrDatabase(err)
	}

	// Short-circuit on a cached terminal success: no gateway call, no
	// chance of exhausting the gateway's rate limits on hot polling.
	if tx.Status == models.TransactionStatusCompleted {
		return verifiedResponse(tx), nil
	}

	charge, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		// Upstream trouble is absorbed into "pending": the client is
		// expected to poll again, and the webhook path may still land.
		logger.CtxWarn(ctx, "gateway verify unavailable, reporting pending",
			"reference", reference,
			"error", err.Error(),
		)
		return pendingResponse(tx), nil
	}

	outcome, err := s.applyChargeResult(ctx, db, tx, charge, nil)
	if err != nil {
		return nil, err
	}

	switch outcome {
	case OutcomeCompleted, OutcomeAlreadyCompleted:
		refreshed, err := s.txRepo.FindByReference(db, reference)
		if err == nil {
			tx = refreshed
		}
		return verifiedResponse(tx), nil
	case OutcomePending:
		return pendingResponse(tx), nil
	default:
		// OutcomeFailed, OutcomeAmountMismatch
		return &models.VerifyPaymentResponse{
			Success:   true,
			Status:    "failed",
			Verified:  false,
			Amount:    tx.Amount,
			Reference: tx.Reference,
			Email:     tx.Email,
			ResultID:  tx.ResultID,
		}, nil
	}
}

func (s *paymentService) HandleWebhookEvent(ctx context.Context, db *gorm.DB, rawBody []byte) error {
	event, err := gateway.ParseWebhookEvent(rawBody)
	if err != nil {
		logger.CtxWarn(ctx, "unparseable webhook body acknowledged", "error", err.Error())
		return nil
	}

	// Other event types are acknowledged and ignored, not errors.
	if event.Event != gateway.EventChargeSuccess {
		logger.CtxDebug(ctx, "ignoring webhook event", "event", event.Event)
		return nil
	}

	tx, err := s.txRepo.FindByReference(db, event.Data.Reference)
	if err != nil {
		if err == repositories.ErrTransactionNotFound {
			// Acknowledge so the gateway stops retrying an event we
			// cannot reconcile, but keep a trace of the anomaly.
			logger.CtxWarn(ctx, "webhook for unknown reference acknowledged",
				"reference", event.Data.Reference,
			)
			return nil
		}
		return err
	}

	if tx.Status == models.TransactionStatusCompleted {
		logger.CtxDebug(ctx, "webhook redelivery for completed transaction", "reference", tx.Reference)
		return nil
	}

	_, err = s.applyChargeResult(ctx, db, tx, &event.Data, rawBody)
	return err
}

// applyChargeResult is the one state-transition entry point shared by
// the webhook (push) and verify (pull) paths. Safe to call
// concurrently for the same reference: the terminal transition is a
// conditional single-statement update, and side effects fire only in
// the caller whose update actually changed the row.
func (s *paymentService) applyChargeResult(ctx context.Context, db *gorm.DB, tx *models.PaymentTransaction, charge *gateway.ChargeResult, rawBody []byte) (TransitionOutcome, error) {
	switch charge.Status {
	case gateway.ChargeStatusSuccess:
		observed := charge.AmountBaseUnits()
		if math.Abs(observed-tx.Amount) > amountTolerance {
			logger.SecurityLog("payment_amount_mismatch",
				"reference", tx.Reference,
				"expected", tx.Amount,
				"observed", observed,
				"gateway_reference", charge.GatewayReference(),
			)
			// Never COMPLETED on a mismatch, no matter how often the
			// same signal is redelivered.
			if _, err := s.txRepo.MarkFailed(db, tx.Reference, rawBody); err != nil {
				return OutcomeAmountMismatch, apperrors.ErrDatabase(err)
			}
			return OutcomeAmountMismatch, nil
		}

		completedAt := time.Now()
		transitioned, err := s.txRepo.MarkCompleted(db, tx.Reference, charge.GatewayReference(), rawBody, completedAt)
		if err != nil {
			return OutcomeAlreadyCompleted, apperrors.ErrDatabase(err)
		}
		if !transitioned {
			return OutcomeAlreadyCompleted, nil
		}

		logger.CtxInfo(ctx, "transaction completed",
			"reference", tx.Reference,
			"gateway_reference", charge.GatewayReference(),
			"amount", tx.Amount,
		)

		completed := *tx
		completed.Status = models.TransactionStatusCompleted
		completed.GatewayReference = charge.GatewayReference()
		completed.CompletedAt = &completedAt

		s.runCompletionEffects(ctx, db, &completed)
		return OutcomeCompleted, nil

	case gateway.ChargeStatusFailed, gateway.ChargeStatusAbandoned:
		transitioned, err := s.txRepo.MarkFailed(db, tx.Reference, rawBody)
		if err != nil {
			return OutcomeFailed, apperrors.ErrDatabase(err)
		}
		if transitioned {
			logger.CtxInfo(ctx, "transaction failed",
				"reference", tx.Reference,
				"gateway_status", charge.Status,
			)
		}
		return OutcomeFailed, nil

	default:
		return OutcomePending, nil
	}
}

// runCompletionEffects fires the downstream side effects for the one
// caller that performed the transition. Each effect is individually
// swallowed; the stored state never depends on any of them. The
// detached context keeps a client disconnect from cancelling them
// mid-flight.
func (s *paymentService) runCompletionEffects(ctx context.Context, db *gorm.DB, tx *models.PaymentTransaction) {
	effectsCtx := context.WithoutCancel(ctx)

	notifyErr := s.notify.ForwardCompletedPayment(effectsCtx, tx)
	_ = s.receipt.SendReceipt(effectsCtx, tx) // logged inside, never retried here

	// Only a successful forward marks the row notified; a failed one
	// stays eligible for the background retry.
	if notifyErr == nil {
		if err := s.txRepo.MarkNotified(db, tx.Reference, time.Now()); err != nil {
			logger.CtxWithError(effectsCtx, "failed to mark transaction notified", err, "reference", tx.Reference)
		}
	}
}

func (s *paymentService) ReconcileStalePending(ctx context.Context, db *gorm.DB, olderThan time.Duration, limit int) error {
	stale, err := s.txRepo.FindStalePending(db, olderThan, limit)
	if err != nil {
		return err
	}

	for i := range stale {
		tx := &stale[i]
		charge, err := s.gateway.Verify(ctx, tx.Reference)
		if err != nil {
			logger.CtxWarn(ctx, "reconciliation verify failed",
				"reference", tx.Reference,
				"error", err.Error(),
			)
			continue
		}
		if _, err := s.applyChargeResult(ctx, db, tx, charge, nil); err != nil {
			logger.CtxWithError(ctx, "reconciliation apply failed", err, "reference", tx.Reference)
		}
	}
	return nil
}

func (s *paymentService) RetryUnnotifiedEffects(ctx context.Context, db *gorm.DB, olderThan time.Duration, limit int) error {
	pending, err := s.txRepo.FindCompletedUnnotified(db, olderThan, limit)
	if err != nil {
		return err
	}

	for i := range pending {
		tx := &pending[i]
		if err := s.notify.ForwardCompletedPayment(ctx, tx); err != nil {
			continue
		}
		if err := s.txRepo.MarkNotified(db, tx.Reference, time.Now()); err != nil {
			logger.CtxWithError(ctx, "failed to mark transaction notified", err, "reference", tx.Reference)
		}
	}
	return nil
}

func verifiedResponse(tx *models.PaymentTransaction) *models.VerifyPaymentResponse {
	return &models.VerifyPaymentResponse{
		Success:   true,
		Status:    "success",
		Verified:  true,
		Amount:    tx.Amount,
		Reference: tx.Reference,
		Email:     tx.Email,
		ResultID:  tx.ResultID,
	}
}

func pendingResponse(tx *models.PaymentTransaction) *models.VerifyPaymentResponse {
	return &models.VerifyPaymentResponse{
		Success:   true,
		Status:    "pending",
		Verified:  false,
		Amount:    tx.Amount,
		Reference: tx.Reference,
		Email:     tx.Email,
		ResultID:  tx.ResultID,
	}
}
