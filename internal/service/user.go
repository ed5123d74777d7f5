package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/draftline/draftline/internal/auth"
	"github.com/draftline/draftline/internal/model"
	"github.com/draftline/draftline/internal/repository"
)

// UserService handles registration, login and profile lookup.
type UserService struct {
	repo   *repository.Repository
	tokens *auth.TokenIssuer
}

// NewUserService creates a new UserService.
func NewUserService(repo *repository.Repository, tokens *auth.TokenIssuer) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
	}
}

// RegisterInput defines input for user registration.
// Registration always creates a USER account; admins are provisioned
// out of band.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Register creates a new account and returns the user with a signed token.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, string, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	if msgs := checkStruct(input); len(msgs) > 0 {
		return nil, "", &ValidationError{Errors: msgs}
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           newID(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, "", ErrUsernameExists
		case errors.Is(err, repository.ErrEmailExists):
			return nil, "", ErrEmailExists
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	return user, token, nil
}

// LoginInput defines input for login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials and returns the user with a signed token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*model.User, string, error) {
	input.Email = strings.TrimSpace(input.Email)

	if msgs := checkStruct(input); len(msgs) > 0 {
		return nil, "", &ValidationError{Errors: msgs}
	}

	user, err := s.repo.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user by email: %w", err)
	}

	match, err := auth.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !match {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	return user, token, nil
}

// GetUser retrieves a user profile by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// TokenTTL exposes the configured token lifetime for response metadata.
func (s *UserService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}
