package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"modellion/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return tokenString
}

// Feature: catalog-admin, Property 8: Protected endpoints reject missing tokens
// Validates: Requirements 7.3
func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			logger := zap.NewNop()
			middleware := AuthMiddleware("test-secret", logger)

			handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			path := "/" + pathSuffix
			if path == "/" {
				path = "/test"
			}

			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: catalog-admin, Property 9: Expired tokens are rejected
// Validates: Requirements 7.4
func TestProperty_ExpiredTokensAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("expired tokens are rejected with 401", prop.ForAll(
		func(username string, role string) bool {
			logger := zap.NewNop()
			secret := "test-secret"
			middleware := AuthMiddleware(secret, logger)

			claims := jwt.MapClaims{
				"sub":  username,
				"role": role,
				"exp":  time.Now().Add(-1 * time.Hour).Unix(),
			}
			tokenString := signToken(t, secret, claims)

			handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+tokenString)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.RegexMatch(`[a-z][a-z0-9_]{2,15}`),
		gen.OneConstOf(domain.RoleAdmin, domain.RoleReadonly),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: catalog-admin, Property 10: Valid tokens allow processing
// Validates: Requirements 7.2
func TestProperty_ValidTokensAllowProcessing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid tokens carry username and role into the context", prop.ForAll(
		func(username string, role string) bool {
			logger := zap.NewNop()
			secret := "test-secret"
			middleware := AuthMiddleware(secret, logger)

			claims := jwt.MapClaims{
				"sub":  username,
				"role": role,
				"exp":  time.Now().Add(1 * time.Hour).Unix(),
			}
			tokenString := signToken(t, secret, claims)

			handlerCalled := false

			handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true

				ctxUsername, ok1 := GetUsername(r.Context())
				ctxRole, ok2 := GetUserRole(r.Context())

				if !ok1 || !ok2 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}

				if ctxUsername != username || ctxRole != role {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}

				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+tokenString)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return handlerCalled && w.Code == http.StatusOK
		},
		gen.RegexMatch(`[a-z][a-z0-9_]{2,15}`),
		gen.OneConstOf(domain.RoleAdmin, domain.RoleReadonly),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Test invalid token format
func TestProperty_InvalidTokenFormatRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("invalid token formats are rejected", prop.ForAll(
		func(invalidToken string) bool {
			logger := zap.NewNop()
			middleware := AuthMiddleware("test-secret", logger)

			handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+invalidToken)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRequireAdmin(t *testing.T) {
	logger := zap.NewNop()
	secret := "test-secret"
	protect := func(next http.Handler) http.Handler {
		return AuthMiddleware(secret, logger)(RequireAdmin(logger)(next))
	}

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	request := func(role string) *httptest.ResponseRecorder {
		tokenString := signToken(t, secret, jwt.MapClaims{
			"sub":  "someone",
			"role": role,
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest("POST", "/api/products", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()
		protect(okHandler).ServeHTTP(w, req)
		return w
	}

	t.Run("admin role passes", func(t *testing.T) {
		if w := request(domain.RoleAdmin); w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})

	t.Run("readonly role is forbidden", func(t *testing.T) {
		if w := request(domain.RoleReadonly); w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
	})

	t.Run("missing role context is forbidden", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/products", nil)
		w := httptest.NewRecorder()
		RequireAdmin(logger)(okHandler).ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
	})
}
