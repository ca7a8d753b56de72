package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"eligibility_backend/internal/config"
	"eligibility_backend/internal/gateway"
	"eligibility_backend/internal/models"
	"eligibility_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// fakeTransactionRepo keeps rows in a mutex-guarded map and mirrors the
// real repository's conditional-update semantics, so race and
// redelivery behavior can be tested without a database.
type fakeTransactionRepo struct {
	mu   sync.Mutex
	rows map[string]*models.PaymentTransaction

	createErr      error
	markCompletedN int
	markFailedN    int
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{rows: make(map[string]*models.PaymentTransaction)}
}

func (f *fakeTransactionRepo) Create(_ *gorm.DB, tx *models.PaymentTransaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *tx
	f.rows[tx.Reference] = &cp
	return nil
}

func (f *fakeTransactionRepo) FindByReference(_ *gorm.DB, reference string) (*models.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[reference]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeTransactionRepo) FindCompletedByResultID(_ *gorm.DB, resultID string) (*models.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ResultID == resultID && row.Status == models.TransactionStatusCompleted {
			cp := *row
			return &cp, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (f *fakeTransactionRepo) MarkCompleted(_ *gorm.DB, reference, gatewayReference string, webhookData []byte, completedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCompletedN++
	row, ok := f.rows[reference]
	if !ok || row.Status == models.TransactionStatusCompleted {
		return false, nil
	}
	row.Status = models.TransactionStatusCompleted
	row.GatewayReference = gatewayReference
	row.CompletedAt = &completedAt
	if len(webhookData) > 0 {
		row.WebhookData = datatypes.JSON(webhookData)
	}
	return true, nil
}

func (f *fakeTransactionRepo) MarkFailed(_ *gorm.DB, reference string, webhookData []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markFailedN++
	row, ok := f.rows[reference]
	if !ok || row.Status != models.TransactionStatusPending {
		return false, nil
	}
	row.Status = models.TransactionStatusFailed
	if len(webhookData) > 0 {
		row.WebhookData = datatypes.JSON(webhookData)
	}
	return true, nil
}

func (f *fakeTransactionRepo) MarkNotified(_ *gorm.DB, reference string, notifiedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[reference]; ok {
		row.NotifiedAt = &notifiedAt
	}
	return nil
}

func (f *fakeTransactionRepo) FindStalePending(_ *gorm.DB, _ time.Duration, limit int) ([]models.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentTransaction
	for _, row := range f.rows {
		if row.Status == models.TransactionStatusPending && len(out) < limit {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeTransactionRepo) FindCompletedUnnotified(_ *gorm.DB, _ time.Duration, limit int) ([]models.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentTransaction
	for _, row := range f.rows {
		if row.Status == models.TransactionStatusCompleted && row.NotifiedAt == nil && len(out) < limit {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeTransactionRepo) FindAll(_ *gorm.DB, limit, offset int) ([]models.PaymentTransaction, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentTransaction
	for _, row := range f.rows {
		out = append(out, *row)
	}
	return out, int64(len(out)), nil
}

func (f *fakeTransactionRepo) get(reference string) *models.PaymentTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[reference]; ok {
		cp := *row
		return &cp
	}
	return nil
}

func (f *fakeTransactionRepo) seed(tx models.PaymentTransaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[tx.Reference] = &tx
}

type fakeGateway struct {
	mu          sync.Mutex
	initErr     error
	verifyErr   error
	charge      *gateway.ChargeResult
	verifyCalls int
}

func (f *fakeGateway) Initialize(_ context.Context, req gateway.InitializeRequest) (*gateway.InitializeData, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &gateway.InitializeData{
		AccessCode:       "access_code_test",
		AuthorizationURL: "https://checkout.example.com/" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (f *fakeGateway) Verify(_ context.Context, reference string) (*gateway.ChargeResult, error) {
	f.mu.Lock()
	f.verifyCalls++
	f.mu.Unlock()
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	cp := *f.charge
	cp.Reference = reference
	return &cp, nil
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls
}

type fakeNotify struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNotify) ForwardCompletedPayment(_ context.Context, _ *models.PaymentTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeNotify) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeReceipt struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeReceipt) SendReceipt(_ context.Context, _ *models.PaymentTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Gateway.CallbackBaseURL = "https://app.example.com"
	cfg.Gateway.Currency = "NGN"
	return cfg
}

type paymentFixture struct {
	repo    *fakeTransactionRepo
	gw      *fakeGateway
	notify  *fakeNotify
	receipt *fakeReceipt
	svc     PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		repo:    newFakeTransactionRepo(),
		gw:      &fakeGateway{},
		notify:  &fakeNotify{},
		receipt: &fakeReceipt{},
	}
	f.svc = NewPaymentService(f.repo, f.gw, f.notify, f.receipt, testConfig())
	return f
}

func pendingTx(reference string, amount float64) models.PaymentTransaction {
	return models.PaymentTransaction{
		Reference: reference,
		Status:    models.TransactionStatusPending,
		Amount:    amount,
		Email:     "student@example.com",
		ResultID:  "res-1",
	}
}

func successWebhook(reference string, subunits int64) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"charge.success","data":{"id":101,"status":"success","reference":"%s","amount":%d}}`,
		reference, subunits,
	))
}

func TestInitializePayment_Success(t *testing.T) {
	f := newPaymentFixture()

	resp, err := f.svc.InitializePayment(context.Background(), nil, &models.InitializePaymentRequest{
		Email:  "student@example.com",
		Amount: 1500,
	})

	assert.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "access_code_test", resp.AccessCode)
	assert.NotEmpty(t, resp.Reference)

	stored := f.repo.get(resp.Reference)
	assert.NotNil(t, stored)
	assert.Equal(t, models.TransactionStatusPending, stored.Status)
	assert.Equal(t, 1500.0, stored.Amount)
}

func TestInitializePayment_GatewayFailure(t *testing.T) {
	f := newPaymentFixture()
	f.gw.initErr = errors.New("gateway down")

	resp, err := f.svc.InitializePayment(context.Background(), nil, &models.InitializePaymentRequest{
		Email:  "student@example.com",
		Amount: 1500,
	})

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, f.repo.rows)
}

func TestInitializePayment_PersistFailureStillSucceeds(t *testing.T) {
	f := newPaymentFixture()
	f.repo.createErr = errors.New("db unavailable")

	// Gateway init already succeeded, so the flow must not fail: the
	// verify path can reconcile by reference later.
	resp, err := f.svc.InitializePayment(context.Background(), nil, &models.InitializePaymentRequest{
		Email:  "student@example.com",
		Amount: 1500,
	})

	assert.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.AuthorizationURL)
}

func TestVerifyPayment_UnknownReference(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.VerifyPayment(context.Background(), nil, "no-such-ref")
	assert.Error(t, err)
}

func TestVerifyPayment_CompletedShortCircuitsGateway(t *testing.T) {
	f := newPaymentFixture()
	completedAt := time.Now()
	tx := pendingTx("PAY-done", 1500)
	tx.Status = models.TransactionStatusCompleted
	tx.CompletedAt = &completedAt
	f.repo.seed(tx)

	resp, err := f.svc.VerifyPayment(context.Background(), nil, "PAY-done")

	assert.NoError(t, err)
	assert.True(t, resp.Verified)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 0, f.gw.calls(), "cached success must not hit the gateway")
}

func TestVerifyPayment_GatewayUnavailableReportsPending(t *testing.T) {
	f := newPaymentFixture()
	f.repo.seed(pendingTx("PAY-1", 1500))
	f.gw.verifyErr = errors.New("timeout")

	resp, err := f.svc.VerifyPayment(context.Background(), nil, "PAY-1")

	assert.NoError(t, err)
	assert.False(t, resp.Verified)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, models.TransactionStatusPending, f.repo.get("PAY-1").Status)
}

func TestVerifyPayment_SuccessfulChargeCompletesAndNotifies(t *testing.T) {
	f := newPaymentFixture()
	f.repo.seed(pendingTx("PAY-2", 1500))
	f.gw.charge = &gateway.ChargeResult{ID: 55, Status: gateway.ChargeStatusSuccess, Amount: 150000}

	resp, err := f.svc.VerifyPayment(context.Background(), nil, "PAY-2")

	assert.NoError(t, err)
	assert.True(t, resp.Verified)

	stored := f.repo.get("PAY-2")
	assert.Equal(t, models.TransactionStatusCompleted, stored.Status)
	assert.Equal(t, "55", stored.GatewayReference)
	assert.NotNil(t, stored.CompletedAt)
	assert.NotNil(t, stored.NotifiedAt)
	assert.Equal(t, 1, f.notify.count())
	assert.Equal(t, 1, f.receipt.calls)
}

func TestVerifyPayment_FailedCharge(t *testing.T) {
	f := newPaymentFixture()
	f.repo.seed(pendingTx("PAY-3", 1500))
	f.gw.charge = &gateway.ChargeResult{ID: 56, Status: gateway.ChargeStatusFailed, Amount: 150000}

	resp, err := f.svc.VerifyPayment(context.Background(), nil, "PAY-3")

	assert.NoError(t, err)
	assert.False(t, resp.Verified)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, models.TransactionStatusFailed, f.repo.get("PAY-3").Status)
	assert.Equal(t, 0, f.notify.count())
}

func TestHandleWebhookEvent_CompletesTransaction(t *testing.T) {
	f := newPaymentFixture()
	f.repo.seed(pendingTx("PAY-4", 1500))

	err := f.svc.HandleWebhookEvent(context.Background(), nil, successWebhook("PAY-4", 150000))

	assert.NoError(t, err)
	stored := f.repo.get("PAY-4")
	assert.Equal(t, models.TransactionStatusCompleted, stored.Status)
	assert.NotEmpty(t, stored.WebhookData, "raw payload must be stored for audit")
	assert.Equal(t, 1, f.notify.count())
}

func TestHandleWebhookEvent_RedeliveryIsIdempotent(t *testing.T) {
	f := newPaymentFixture()
	f.repo.seed(pendingTx("PAY-5", 1500))

	body := successWebhook("PAY-5", 150000)
	for i := 0; i < 5; i++ {
		assert.NoError(t, f.svc.HandleWebhookEvent(context.Background(), nil, body))
	}

	assert.Equal(t, models.TransactionStatusCompleted, f.repo.get("PAY-5").Status)
	assert.Equal(t, 1, f.notify.count(), "redeliveries must not refire side effects")
	assert.Equal(t, 1, f.receipt.calls)
}

func TestHandleWebhookEvent_ConcurrentWithVerify_OneWinner(t *testing.T) {
	f := newPaymentFixture()
	f.repo.seed(pendingTx("PAY-6", 1500))
	f.gw.charge = &gateway.ChargeResult{ID: 77, Status: gateway.ChargeStatusSuccess, Amount: 150000}

	body := successWebhook("PAY-6", 150000)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = f.svc.HandleWebhookEvent(context.Background(), nil, body)
		}()
		go func() {
			defer wg.Done()
			_, _ = f.svc.VerifyPayment(context.Background(), nil, "PAY-6")
		}()
	}
	wg.Wait()

	assert.Equal(t, models.TransactionStatusCompleted, f.repo.get("PAY-6").Status)
	assert.Equal(t, 1, f.notify.count(), "exactly one racer owns the side effects")
}

func TestHandleWebhookEvent_AmountMismatchNeverCompletes(t *testing.T) {
	f := newPaymentFixture()
	f.repo.seed(pendingTx("PAY-7", 1500))

	// Gateway reports 999.00 against an expected 1500.00.
	body := successWebhook("PAY-7", 99900)
	for i := 0; i < 3; i++ {
		assert.NoError(t, f.svc.HandleWebhookEvent(context.Background(), nil, body))
	}

	stored := f.repo.get("PAY-7")
	assert.Equal(t, models.TransactionStatusFailed, stored.Status)
	assert.Equal(t, 0, f.notify.count())
}

func TestHandleWebhookEvent_AmountWithinTolerance(t *testing.T) {
	f := newPaymentFixture()
	f.repo.seed(pendingTx("PAY-8", 1500))

	// One subunit off: 1499.99 vs 1500.00 stays within tolerance.
	err := f.svc.HandleWebhookEvent(context.Background(), nil, successWebhook("PAY-8", 149999))

	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, f.repo.get("PAY-8").Status)
}

func TestHandleWebhookEvent_IgnoresOtherEvents(t *testing.T) {
	f := newPaymentFixture()
	f.repo.seed(pendingTx("PAY-9", 1500))

	body := []byte(`{"event":"transfer.success","data":{"reference":"PAY-9","status":"success","amount":150000}}`)
	assert.NoError(t, f.svc.HandleWebhookEvent(context.Background(), nil, body))
	assert.Equal(t, models.TransactionStatusPending, f.repo.get("PAY-9").Status)
}

func TestHandleWebhookEvent_UnknownReferenceAcknowledged(t *testing.T) {
	f := newPaymentFixture()

	err := f.svc.HandleWebhookEvent(context.Background(), nil, successWebhook("ghost-ref", 150000))
	assert.NoError(t, err)
}

func TestHandleWebhookEvent_MalformedBodyAcknowledged(t *testing.T) {
	f := newPaymentFixture()

	err := f.svc.HandleWebhookEvent(context.Background(), nil, []byte(`{broken`))
	assert.NoError(t, err)
}

func TestHandleWebhookEvent_FailedForwardLeavesUnnotified(t *testing.T) {
	f := newPaymentFixture()
	f.repo.seed(pendingTx("PAY-10", 1500))
	f.notify.err = errors.New("downstream down")

	assert.NoError(t, f.svc.HandleWebhookEvent(context.Background(), nil, successWebhook("PAY-10", 150000)))

	stored := f.repo.get("PAY-10")
	assert.Equal(t, models.TransactionStatusCompleted, stored.Status)
	assert.Nil(t, stored.NotifiedAt, "failed forward stays eligible for background retry")
}

func TestRetryUnnotifiedEffects(t *testing.T) {
	f := newPaymentFixture()
	completedAt := time.Now().Add(-time.Hour)
	tx := pendingTx("PAY-11", 1500)
	tx.Status = models.TransactionStatusCompleted
	tx.CompletedAt = &completedAt
	f.repo.seed(tx)

	assert.NoError(t, f.svc.RetryUnnotifiedEffects(context.Background(), nil, 5*time.Minute, 10))

	assert.Equal(t, 1, f.notify.count())
	assert.NotNil(t, f.repo.get("PAY-11").NotifiedAt)

	// A second sweep finds nothing left to forward.
	assert.NoError(t, f.svc.RetryUnnotifiedEffects(context.Background(), nil, 5*time.Minute, 10))
	assert.Equal(t, 1, f.notify.count())
}

func TestReconcileStalePending_CompletesThroughGateway(t *testing.T) {
	f := newPaymentFixture()
	f.repo.seed(pendingTx("PAY-12", 1500))
	f.gw.charge = &gateway.ChargeResult{ID: 88, Status: gateway.ChargeStatusSuccess, Amount: 150000}

	assert.NoError(t, f.svc.ReconcileStalePending(context.Background(), nil, 15*time.Minute, 50))

	assert.Equal(t, models.TransactionStatusCompleted, f.repo.get("PAY-12").Status)
	assert.Equal(t, 1, f.notify.count())
}

func TestReconcileStalePending_GatewayErrorSkipsRow(t *testing.T) {
	f := newPaymentFixture()
	f.repo.seed(pendingTx("PAY-13", 1500))
	f.gw.verifyErr = errors.New("unreachable")

	assert.NoError(t, f.svc.ReconcileStalePending(context.Background(), nil, 15*time.Minute, 50))
	assert.Equal(t, models.TransactionStatusPending, f.repo.get("PAY-13").Status)
}
