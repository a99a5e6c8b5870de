package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"modellion/internal/config"
	"modellion/internal/domain"
	"modellion/internal/middleware"
	"modellion/internal/repository"
	"modellion/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Mock repositories for testing
type mockUserRepository struct {
	users  map[string]*domain.User
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Username]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, exists := m.users[username]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	for _, user := range m.users {
		if user.ID == id {
			user.PasswordHash = passwordHash
			return nil
		}
	}
	return repository.ErrUserNotFound
}

const testJWTSecret = "test-secret-key"

func newAuthFixture(t *testing.T) (service.AuthService, *chi.Mux) {
	t.Helper()
	logger := zap.NewNop()

	userRepo := newMockUserRepository()
	for username, role := range map[string]string{
		"admin":  domain.RoleAdmin,
		"viewer": domain.RoleReadonly,
	} {
		hashed, err := bcrypt.GenerateFromPassword([]byte(username+"-pass"), service.BcryptCost)
		if err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}
		userRepo.Create(context.Background(), &domain.User{
			Username:     username,
			PasswordHash: string(hashed),
			Role:         role,
			CreatedAt:    time.Now().UTC(),
		})
	}

	authService := service.NewAuthService(userRepo, config.JWTConfig{
		Secret:    testJWTSecret,
		ExpiresIn: time.Hour,
	}, config.AdminConfig{}, logger)

	router := chi.NewRouter()
	authMiddleware := middleware.AuthMiddleware(testJWTSecret, logger)
	NewAuthHandler(authService, logger).RegisterRoutes(router, authMiddleware, nil)

	return authService, router
}

func postJSON(router http.Handler, path string, body any, token string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoginEndpoint(t *testing.T) {
	_, router := newAuthFixture(t)

	t.Run("valid credentials return a bearer token", func(t *testing.T) {
		w := postJSON(router, "/api/auth/login", LoginRequest{Username: "admin", Password: "admin-pass"}, "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var resp LoginResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.AccessToken == "" {
			t.Error("expected a non-empty access token")
		}
		if resp.TokenType != "bearer" {
			t.Errorf("expected token type bearer, got %q", resp.TokenType)
		}
		if resp.User.Role != domain.RoleAdmin {
			t.Errorf("expected admin role, got %q", resp.User.Role)
		}
	})

	t.Run("wrong password yields 401", func(t *testing.T) {
		w := postJSON(router, "/api/auth/login", LoginRequest{Username: "admin", Password: "wrong"}, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}

		var resp middleware.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode error: %v", err)
		}
		if resp.Error.Message != "用户名或密码错误" {
			t.Errorf("unexpected error message: %q", resp.Error.Message)
		}
	})

	t.Run("unknown username yields the same 401", func(t *testing.T) {
		w := postJSON(router, "/api/auth/login", LoginRequest{Username: "nobody", Password: "x"}, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("missing fields yield validation errors", func(t *testing.T) {
		w := postJSON(router, "/api/auth/login", map[string]string{"username": "admin"}, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestMeEndpoint(t *testing.T) {
	_, router := newAuthFixture(t)

	w := postJSON(router, "/api/auth/login", LoginRequest{Username: "viewer", Password: "viewer-pass"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d", w.Code)
	}
	var login LoginResponse
	json.Unmarshal(w.Body.Bytes(), &login)

	t.Run("with token returns the profile", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+login.AccessToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var profile UserProfile
		if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
			t.Fatalf("failed to decode profile: %v", err)
		}
		if profile.Username != "viewer" || profile.Role != domain.RoleReadonly {
			t.Errorf("unexpected profile: %+v", profile)
		}
	})

	t.Run("without token is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/auth/me", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}
