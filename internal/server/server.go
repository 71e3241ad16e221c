package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"shoptalk/internal/analytics"
	"shoptalk/internal/config"
	"shoptalk/internal/interpreter"
	"shoptalk/internal/ledger"
	custommiddleware "shoptalk/internal/middleware"
	"shoptalk/internal/nlu"
	"shoptalk/internal/repository"
	"shoptalk/internal/service"
	"shoptalk/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// chat endpoint rate limit: writes per user per minute
const (
	chatRequestsPerWindow = 30
	chatWindow            = time.Minute
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Initialize repositories
	store := repository.NewStore(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	userRepo := repository.NewUserRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// The external parser is optional; without an API key the
	// interpreter runs on patterns alone.
	var parser interpreter.Parser
	if cfg.NLU.APIKey != "" {
		parser = nlu.New(cfg.NLU, logger)
		logger.Info("External intent parser enabled", zap.String("model", cfg.NLU.Model))
	} else {
		logger.Info("External intent parser disabled, using pattern rules only")
	}

	// Initialize services
	interp := interpreter.New(parser, logger)
	engine := ledger.NewEngine(store, logger)
	projections := analytics.NewService(productRepo, saleRepo, logger)
	assistantService := service.NewAssistantService(interp, engine, projections, productRepo, invoiceRepo, logger)
	userService := service.NewUserService(userRepo, cfg.JWT.Secret, cfg.JWT.AccessExpiry)

	// Initialize handlers
	chatHandler := transport.NewChatHandler(assistantService, logger)
	userHandler := transport.NewUserHandler(userService, statsRepo, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	// Rate limit the chat surface only when Redis is configured
	var rateLimiter func(http.Handler) http.Handler
	if redisClient != nil {
		rateLimiter = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: chatRequestsPerWindow,
			Window:            chatWindow,
			KeyPrefix:         "ratelimit:chat",
		}, logger)
	}

	// Register routes
	chatHandler.RegisterRoutes(router, authMiddleware, rateLimiter)
	userHandler.RegisterRoutes(router, authMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
