package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"school-api/config"
	"school-api/internal/core/security"
	"school-api/internal/database"
	"school-api/internal/database/model"
	"school-api/pkg/logger"
)

var (
	ErrEmailTaken                = errors.New("email already registered")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrUnauthorized              = errors.New("could not validate credentials")
	ErrTokenExpired              = errors.New("token has expired")
	ErrAdminRegistrationDisabled = errors.New("admin registration is disabled")
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,strongpassword"`
	Role     string `json:"role" validate:"omitempty,oneof=admin teacher"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type Options struct {
	AllowAdminRegistration bool
}

type Service struct {
	users   UserRepository
	hasher  *security.Hasher
	tokens  *security.TokenIssuer
	revoker security.Revoker
	opts    Options
}

func NewService(users UserRepository, hasher *security.Hasher, tokens *security.TokenIssuer, revoker security.Revoker, opts Options) *Service {
	return &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		revoker: revoker,
		opts:    opts,
	}
}

// Normalize trims the email so validation sees what will be stored.
func (r *RegisterRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

// NormalizeEmail trims and lower-cases an address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register stores a new active user with a bcrypt hash of the password.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	role := req.Role
	if role == "" {
		role = model.RoleTeacher
	}
	if role == model.RoleAdmin && !s.opts.AllowAdminRegistration {
		return nil, ErrAdminRegistrationDisabled
	}

	email := NormalizeEmail(req.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"module":  config.ModuleAuth,
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("user registered")
	return user, nil
}

// Login checks the credentials and issues a bearer token for the user.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.hasher.Check(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	token, _, err := s.tokens.Issue(user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

// Authenticate resolves the user named by a bearer token.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, *security.Claims, error) {
	if token == "" {
		return nil, nil, ErrUnauthorized
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, nil, ErrTokenExpired
		}
		return nil, nil, ErrUnauthorized
	}

	if claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, nil, ErrUnauthorized
		}
	}

	user, err := s.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrUnauthorized
	}
	return user, claims, nil
}

// Logout revokes the token described by claims until it expires.
func (s *Service) Logout(ctx context.Context, claims *security.Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return ErrUnauthorized
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
