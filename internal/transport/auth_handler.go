package transport

import (
	"net/http"

	"modellion/internal/middleware"
	"modellion/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        UserProfile `json:"user"`
}

// UserProfile represents the authenticated user
type UserProfile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers all auth routes. The optional rate limiter guards
// the login endpoint.
func (h *AuthHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler, loginLimiter func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if loginLimiter != nil {
				r.Use(loginLimiter)
			}
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/me", h.Me)
		})
	})
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expiresIn, user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))

		if err == service.ErrInvalidCredentials {
			middleware.RespondWithError(w, http.StatusUnauthorized, "用户名或密码错误")
			return
		}

		middleware.RespondWithError(w, http.StatusInternalServerError, "登录失败")
		return
	}

	h.logger.Info("User logged in", zap.String("username", user.Username))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(expiresIn.Seconds()),
		User: UserProfile{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
		},
	})
}

// Me returns the profile of the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsername(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	user, err := h.authService.GetUser(r.Context(), username)
	if err != nil {
		h.logger.Error("Failed to load authenticated user", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, UserProfile{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}
