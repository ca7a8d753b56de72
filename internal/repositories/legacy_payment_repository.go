package repositories

import (
	"errors"

	"eligibility_backend/internal/models"

	"gorm.io/gorm"
)

// LegacyPaymentRepository reads the older payment recording path. Used
// only as an access-gate fallback; this service never writes to it.
type LegacyPaymentRepository interface {
	ExistsByResultID(db *gorm.DB, resultID string) (bool, error)
}

type LegacyPaymentRepositoryImpl struct{}

func NewLegacyPaymentRepository() LegacyPaymentRepository {
	return &LegacyPaymentRepositoryImpl{}
}

func (r *LegacyPaymentRepositoryImpl) ExistsByResultID(db *gorm.DB, resultID string) (bool, error) {
	var record models.LegacyPaymentRecord
	err := db.Where("result_id = ?", resultID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
