package services

import (
	"context"

	"eligibility_backend/internal/logger"
	"eligibility_backend/internal/models"
	"eligibility_backend/internal/repositories"
	"eligibility_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// AccessService decides whether the computed artifact behind a result
// ID may be released. Possession of the result ID alone is not enough:
// release requires durable proof of a completed payment tied to that
// exact ID, or an authenticated admin.
//
// The old heuristic fallback ("release when the result row carries
// non-placeholder contact details") was a latent authorization hole
// and is intentionally gone.
type AccessService interface {
	// GetResult returns the artifact when access is allowed, and
	// ErrPaymentRequired / ErrNotFound otherwise.
	GetResult(ctx context.Context, db *gorm.DB, resultID string, isAdmin bool) (*models.EligibilityResult, error)
}

type accessService struct {
	resultRepo repositories.ResultRepository
	txRepo     repositories.TransactionRepository
	legacyRepo repositories.LegacyPaymentRepository
}

func NewAccessService(
	resultRepo repositories.ResultRepository,
	txRepo repositories.TransactionRepository,
	legacyRepo repositories.LegacyPaymentRepository,
) AccessService {
	return &accessService{
		resultRepo: resultRepo,
		txRepo:     txRepo,
		legacyRepo: legacyRepo,
	}
}

func (s *accessService) GetResult(ctx context.Context, db *gorm.DB, resultID string, isAdmin bool) (*models.EligibilityResult, error) {
	result, err := s.resultRepo.FindByID(db, resultID)
	if err != nil {
		if err == repositories.ErrResultNotFound {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.ErrDatabase(err)
	}

	allowed, err := s.isReleaseAllowed(ctx, db, resultID, isAdmin)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrPaymentRequired("Payment is required to access this report")
	}

	return result, nil
}

// isReleaseAllowed short-circuits on the first satisfied check:
// admin identity, a COMPLETED transaction for the result, or a legacy
// payment record from the older recording path.
func (s *accessService) isReleaseAllowed(ctx context.Context, db *gorm.DB, resultID string, isAdmin bool) (bool, error) {
	if isAdmin {
		logger.CtxInfo(ctx, "artifact released via admin override", "result_id", resultID)
		return true, nil
	}

	_, err := s.txRepo.FindCompletedByResultID(db, resultID)
	if err == nil {
		return true, nil
	}
	if err != repositories.ErrTransactionNotFound {
		return false, apperrors.ErrDatabase(err)
	}

	hasLegacy, err := s.legacyRepo.ExistsByResultID(db, resultID)
	if err != nil {
		return false, apperrors.ErrDatabase(err)
	}
	if hasLegacy {
		return true, nil
	}

	return false, nil
}
