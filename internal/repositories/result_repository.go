package repositories

import (
	"errors"

	"eligibility_backend/internal/models"

	"gorm.io/gorm"
)

var ErrResultNotFound = errors.New("eligibility result not found")

type ResultRepository interface {
	FindByID(db *gorm.DB, id string) (*models.EligibilityResult, error)
	Create(db *gorm.DB, result *models.EligibilityResult) error
}

type ResultRepositoryImpl struct{}

func NewResultRepository() ResultRepository {
	return &ResultRepositoryImpl{}
}

func (r *ResultRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.EligibilityResult, error) {
	var result models.EligibilityResult
	err := db.Where("id = ?", id).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *ResultRepositoryImpl) Create(db *gorm.DB, result *models.EligibilityResult) error {
	return db.Create(result).Error
}
