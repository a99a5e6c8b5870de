package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"modellion/internal/config"
	"modellion/internal/database"
	"modellion/internal/importer"
	custommiddleware "modellion/internal/middleware"
	"modellion/internal/repository"
	"modellion/internal/service"
	"modellion/internal/storage"
	"modellion/internal/translate"
	"modellion/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	appName    = "modellion-admin"
	appVersion = "0.1.0"
)

type Server struct {
	*http.Server
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
	authService service.AuthService
}

// NewServer wires repositories, services and handlers into an HTTP server
func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, store storage.ObjectStore) *Server {
	// Create router
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, database.Health(db))
	})
	router.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{
			"name":    appName,
			"version": appVersion,
		})
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	imageRepo := repository.NewImageRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.JWT, cfg.Admin, logger)
	productService := service.NewProductService(productRepo)
	imageService := service.NewImageService(productRepo, imageRepo, store, logger)
	statsService := service.NewStatsService(productRepo, imageRepo)

	translator := translate.New(cfg.Translate, logger)
	reconciler := importer.NewReconciler(productRepo, imageRepo, store, translator,
		cfg.Translate.SourceLang, cfg.Translate.TargetLang, logger)
	batchImporter := importer.NewBatchImporter(reconciler, logger)

	// Initialize handlers
	authHandler := transport.NewAuthHandler(authService, logger)
	productHandler := transport.NewProductHandler(productService, imageService, logger)
	imageHandler := transport.NewImageHandler(imageService, logger)
	importHandler := transport.NewImportHandler(batchImporter, cfg.Import.DataDir, logger)
	statsHandler := transport.NewStatsHandler(statsService, logger)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	requireAdmin := custommiddleware.RequireAdmin(logger)

	// The login rate limit only runs when Redis is configured
	var redisClient *redis.Client
	var loginLimiter func(http.Handler) http.Handler
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		loginLimiter = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: 10,
			Window:            time.Minute,
			KeyPrefix:         "ratelimit:login",
		}, logger)
	}

	// Register routes
	authHandler.RegisterRoutes(router, authMiddleware, loginLimiter)
	productHandler.RegisterRoutes(router, authMiddleware, requireAdmin)
	imageHandler.RegisterRoutes(router, authMiddleware, requireAdmin)
	importHandler.RegisterRoutes(router, authMiddleware, requireAdmin)
	statsHandler.RegisterRoutes(router, authMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		authService: authService,
	}

	return server
}

// EnsureAdmin bootstraps the configured admin account
func (s *Server) EnsureAdmin(ctx context.Context) error {
	return s.authService.EnsureAdmin(ctx)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
