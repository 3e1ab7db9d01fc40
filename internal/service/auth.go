package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/snippet-oracle/snippet-oracle/internal/apperror"
	"github.com/snippet-oracle/snippet-oracle/internal/auth"
	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/repository"
)

// Account rules: handles are 2-20 word characters, passwords 8-60 chars.
const (
	MinUsernameLength = 2
	MaxUsernameLength = 20
	MinPasswordLength = 8
	MaxPasswordLength = 60
)

var usernameRegex = regexp.MustCompile(`^\w{2,20}$`)

// AuthService implements signup and login on first-party credentials.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, passwords: passwords, logger: logger}
}

// Register creates a new account. The handle is stored with the case the
// user typed but is unique case-insensitively.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if !usernameRegex.MatchString(username) {
		return nil, apperror.ValidationFailed("username", fmt.Sprintf(
			"username must be %d-%d letters, digits, or underscores",
			MinUsernameLength, MaxUsernameLength))
	}
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return nil, apperror.ValidationFailed("password", fmt.Sprintf(
			"password must be %d-%d characters", MinPasswordLength, MaxPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{Name: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.Int64("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and returns the account. Unknown user and wrong
// password collapse into the same error so handles cannot be probed.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, error) {
	invalid := apperror.ValidationFailed("credentials", "invalid username or password")

	user, err := s.users.GetUserByName(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, err
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, invalid
		}
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	return user, nil
}
