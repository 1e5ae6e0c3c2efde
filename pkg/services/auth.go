package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ekaya-inc/datadoc-engine/pkg/apperrors"
	"github.com/ekaya-inc/datadoc-engine/pkg/logging"
	"github.com/ekaya-inc/datadoc-engine/pkg/models"
	"github.com/ekaya-inc/datadoc-engine/pkg/repositories"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// TokenIssuer signs login tokens.
type TokenIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
}

// RegisterRequest carries a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// LoginResult is returned by a successful registration or login.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// AccountService registers users and logs them in.
type AccountService interface {
	// Register creates the account and logs it in.
	Register(ctx context.Context, req RegisterRequest) (*LoginResult, error)
	// Login accepts either the email or the user name as login. It returns
	// apperrors.ErrInvalidCredentials for an unknown login or a wrong password.
	Login(ctx context.Context, login, password string) (*LoginResult, error)
}

type accountService struct {
	users  repositories.UserRepository
	tokens TokenIssuer
	cost   int
	logger *zap.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(users repositories.UserRepository, tokens TokenIssuer, logger *zap.Logger) AccountService {
	return &accountService{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		logger: logger.Named("account"),
	}
}

var _ AccountService = (*accountService)(nil)

func (s *accountService) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	email := strings.TrimSpace(req.Email)
	userName := strings.TrimSpace(req.UserName)

	if email == "" || userName == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email, userName and password are required", apperrors.ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is not valid", apperrors.ErrInvalidInput)
	}
	if strings.Contains(userName, "@") {
		return nil, fmt.Errorf("%w: userName must not contain @", apperrors.ErrInvalidInput)
	}
	if len(req.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password is too long", apperrors.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		UserName:     userName,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Debug("Registration rejected",
			zap.String("email", logging.RedactEmail(email)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", logging.RedactEmail(email)))
	return s.issue(user)
}

func (s *accountService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	user, err := s.lookup(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return result, nil
}

// lookup resolves a login to a user. Logins containing "@" are emails.
func (s *accountService) lookup(ctx context.Context, login string) (*models.User, error) {
	if login == "" {
		return nil, apperrors.ErrNotFound
	}
	if strings.Contains(login, "@") {
		return s.users.GetByEmail(ctx, login)
	}
	return s.users.GetByUserName(ctx, login)
}

func (s *accountService) issue(user *models.User) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error("Failed to issue token",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		return nil, err
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
