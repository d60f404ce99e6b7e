package services

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/momentum-app/momentum-api/internal/constants"
	"github.com/momentum-app/momentum-api/internal/models"
	"github.com/momentum-app/momentum-api/internal/repository"
	"github.com/momentum-app/momentum-api/internal/utils"
)

var (
	ErrHandleTaken          = errors.New("handle already exists")
	ErrInvalidHandle        = errors.New("handle must be 3-30 lowercase letters, digits or underscores")
	ErrInvalidCredentials   = errors.New("invalid handle or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		userRepo: userRepo,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Handle      string
	DisplayName string
	Password    string
	Timezone    string
}

// Signup creates a new user along with a zeroed stats row.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	handle := strings.ToLower(strings.TrimSpace(input.Handle))
	if len(handle) < constants.MinHandleLength || len(handle) > constants.MaxHandleLength || !utils.ValidHandle(handle) {
		return nil, ErrInvalidHandle
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByHandle(handle); err == nil {
		return nil, ErrHandleTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check handle: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = handle
	}
	timezone := input.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	user := &models.User{
		Handle:       handle,
		DisplayName:  displayName,
		PasswordHash: string(hashedPassword),
		Timezone:     timezone,
	}
	stats := &models.UserStats{}

	if err := s.userRepo.CreateWithStats(user, stats); err != nil {
		if errors.Is(err, repository.ErrCreateUser) || errors.Is(err, repository.ErrCreateUserStats) {
			return nil, ErrFailedToCreateUser
		}
		return nil, fmt.Errorf("failed to complete signup: %w", err)
	}

	user.Stats = stats
	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Handle   string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByHandle(strings.ToLower(strings.TrimSpace(input.Handle)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}
