package repositories

import (
	"errors"
	"time"

	"eligibility_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrTransactionNotFound = errors.New("payment transaction not found")

// TransactionRepository is the only component that touches the
// payment_transactions table. Terminal transitions are conditional
// single-statement updates; callers learn from the affected-row count
// whether their call was the one that flipped the state.
type TransactionRepository interface {
	Create(db *gorm.DB, tx *models.PaymentTransaction) error
	FindByReference(db *gorm.DB, reference string) (*models.PaymentTransaction, error)
	FindCompletedByResultID(db *gorm.DB, resultID string) (*models.PaymentTransaction, error)

	// MarkCompleted applies the one allowed transition into COMPLETED.
	// Returns true only for the single caller whose update changed the
	// row; redeliveries and racing callers get false with no error.
	MarkCompleted(db *gorm.DB, reference, gatewayReference string, webhookData []byte, completedAt time.Time) (bool, error)

	// MarkFailed transitions PENDING into FAILED. Completed rows are
	// never demoted.
	MarkFailed(db *gorm.DB, reference string, webhookData []byte) (bool, error)

	// MarkNotified records that side effects ran for a completed
	// transaction.
	MarkNotified(db *gorm.DB, reference string, notifiedAt time.Time) error

	FindStalePending(db *gorm.DB, olderThan time.Duration, limit int) ([]models.PaymentTransaction, error)
	FindCompletedUnnotified(db *gorm.DB, olderThan time.Duration, limit int) ([]models.PaymentTransaction, error)
	FindAll(db *gorm.DB, limit, offset int) ([]models.PaymentTransaction, int64, error)
}

type TransactionRepositoryImpl struct{}

func NewTransactionRepository() TransactionRepository {
	return &TransactionRepositoryImpl{}
}

func (r *TransactionRepositoryImpl) Create(db *gorm.DB, tx *models.PaymentTransaction) error {
	return db.Create(tx).Error
}

func (r *TransactionRepositoryImpl) FindByReference(db *gorm.DB, reference string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	err := db.Where("reference = ?", reference).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepositoryImpl) FindCompletedByResultID(db *gorm.DB, resultID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	err := db.Where("result_id = ? AND status = ?", resultID, models.TransactionStatusCompleted).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepositoryImpl) MarkCompleted(db *gorm.DB, reference, gatewayReference string, webhookData []byte, completedAt time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":            models.TransactionStatusCompleted,
		"gateway_reference": gatewayReference,
		"completed_at":      completedAt,
	}
	if len(webhookData) > 0 {
		updates["webhook_data"] = datatypes.JSON(webhookData)
	}

	// The status guard in the WHERE clause is the whole idempotency
	// story: under a webhook/poll race only one UPDATE matches a row.
	res := db.Model(&models.PaymentTransaction{}).
		Where("reference = ? AND status <> ?", reference, models.TransactionStatusCompleted).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *TransactionRepositoryImpl) MarkFailed(db *gorm.DB, reference string, webhookData []byte) (bool, error) {
	updates := map[string]interface{}{
		"status":       models.TransactionStatusFailed,
		"completed_at": time.Now(),
	}
	if len(webhookData) > 0 {
		updates["webhook_data"] = datatypes.JSON(webhookData)
	}

	res := db.Model(&models.PaymentTransaction{}).
		Where("reference = ? AND status = ?", reference, models.TransactionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *TransactionRepositoryImpl) MarkNotified(db *gorm.DB, reference string, notifiedAt time.Time) error {
	return db.Model(&models.PaymentTransaction{}).
		Where("reference = ?", reference).
		Update("notified_at", notifiedAt).Error
}

func (r *TransactionRepositoryImpl) FindCompletedUnnotified(db *gorm.DB, olderThan time.Duration, limit int) ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	cutoff := time.Now().Add(-olderThan)
	err := db.Where("status = ? AND notified_at IS NULL AND completed_at < ?", models.TransactionStatusCompleted, cutoff).
		Order("completed_at ASC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *TransactionRepositoryImpl) FindStalePending(db *gorm.DB, olderThan time.Duration, limit int) ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	cutoff := time.Now().Add(-olderThan)
	err := db.Where("status = ? AND created_at < ?", models.TransactionStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *TransactionRepositoryImpl) FindAll(db *gorm.DB, limit, offset int) ([]models.PaymentTransaction, int64, error) {
	var txs []models.PaymentTransaction
	var total int64

	if err := db.Model(&models.PaymentTransaction{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	return txs, total, err
}
