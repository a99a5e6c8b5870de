package transport

import (
	"net/http"

	"modellion/internal/middleware"
	"modellion/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StatsHandler handles HTTP requests for catalog statistics
type StatsHandler struct {
	statsService service.StatsService
	logger       *zap.Logger
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(statsService service.StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		logger:       logger,
	}
}

// RegisterRoutes registers all stats routes
func (h *StatsHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/stats", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/overview", h.Overview)
	})
}

// Overview returns the dashboard counters
func (h *StatsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.statsService.Overview(r.Context())
	if err != nil {
		h.logger.Error("Failed to build stats overview", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "统计查询失败")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, overview)
}
