// Package auth implements account signup, login and request identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"pepper/internal/domain"
	"pepper/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	minChildAge       = 3
	maxChildAge       = 18
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validation and credential errors surfaced to the user.
var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrMissingName        = errors.New("name is required")
	ErrInvalidAge         = errors.New("age must be between 3 and 18")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service provides signup and login against the user store.
type Service struct {
	repo     store.Repository
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates an auth service.
func NewService(repo store.Repository, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		repo:     repo,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// SignupRequest carries the fields collected at account creation.
type SignupRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
	Age      *int        `json:"age,omitempty"`
}

// Signup validates the request, hashes the password and creates the user.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	if req.Name == "" {
		return nil, ErrMissingName
	}
	if !emailPattern.MatchString(req.Email) {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if req.Role != domain.RoleChild && req.Role != domain.RoleStaff {
		return nil, fmt.Errorf("invalid role %q", req.Role)
	}
	if req.Role == domain.RoleChild {
		if req.Age == nil || *req.Age < minChildAge || *req.Age > maxChildAge {
			return nil, ErrInvalidAge
		}
	} else {
		req.Age = nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		UserID:       uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Age:          req.Age,
		CreatedAt:    time.Now(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and returns the user with a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := GenerateToken(user.UserID, user.Role, s.secret, s.tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	return user, token, nil
}
