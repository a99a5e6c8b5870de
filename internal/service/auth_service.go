package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"modellion/internal/config"
	"modellion/internal/domain"
	"modellion/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims represents the JWT claims; the subject is the username
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Login(ctx context.Context, username, password string) (token string, expiresIn time.Duration, user *domain.User, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUser(ctx context.Context, username string) (*domain.User, error)
	EnsureAdmin(ctx context.Context) error
}

type authService struct {
	users  repository.UserRepository
	cfg    config.JWTConfig
	admin  config.AdminConfig
	logger *zap.Logger
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(users repository.UserRepository, cfg config.JWTConfig, admin config.AdminConfig, logger *zap.Logger) AuthService {
	return &authService{users: users, cfg: cfg, admin: admin, logger: logger}
}

// Login authenticates a user and returns a signed access token
func (s *authService) Login(ctx context.Context, username, password string) (string, time.Duration, *domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", 0, nil, ErrInvalidCredentials
		}
		return "", 0, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", 0, nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", 0, nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return token, s.cfg.ExpiresIn, user, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetUser retrieves a user by username
func (s *authService) GetUser(ctx context.Context, username string) (*domain.User, error) {
	return s.users.FindByUsername(ctx, username)
}

// EnsureAdmin bootstraps the configured admin account at startup. If the
// account exists but the configured plaintext no longer verifies against the
// stored hash, the hash is re-derived, which supports credential rotation
// through configuration alone.
func (s *authService) EnsureAdmin(ctx context.Context) error {
	user, err := s.users.FindByUsername(ctx, s.admin.Username)
	if errors.Is(err, repository.ErrUserNotFound) {
		hashed, err := hashPassword(s.admin.Password)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}
		role := s.admin.Role
		if role == "" {
			role = domain.RoleAdmin
		}
		user = &domain.User{
			Username:     s.admin.Username,
			PasswordHash: hashed,
			Role:         role,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		s.logger.Info("Admin user initialized", zap.String("username", user.Username))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(s.admin.Password)) != nil {
		hashed, err := hashPassword(s.admin.Password)
		if err != nil {
			return fmt.Errorf("failed to hash rotated admin password: %w", err)
		}
		if err := s.users.UpdatePasswordHash(ctx, user.ID, hashed); err != nil {
			return fmt.Errorf("failed to rotate admin password: %w", err)
		}
		s.logger.Info("Admin password migrated", zap.String("username", user.Username))
	}

	return nil
}

func (s *authService) generateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

func hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}
