package services

import (
	"eligibility_backend/internal/auth"
	"eligibility_backend/internal/models"
	"eligibility_backend/internal/repositories"
	"eligibility_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// AuthService handles admin login only; there is no end-user account
// system in this service.
type AuthService interface {
	Login(db *gorm.DB, req *models.LoginRequest) (*models.LoginResponse, error)
}

type authService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{userRepo: userRepo}
}

func (s *authService) Login(db *gorm.DB, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(db, req.Email)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			// Same error as a wrong password: no account enumeration.
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.ErrDatabase(err)
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &models.LoginResponse{
		Token: token,
		Email: user.Email,
		Role:  string(user.Role),
	}, nil
}
