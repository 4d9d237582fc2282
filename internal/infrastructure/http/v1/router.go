// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"gestock/internal/domain/ledger"
	"gestock/internal/domain/transfer"
	"gestock/internal/infrastructure/http/v1/handlers"
	"gestock/internal/infrastructure/http/v1/middleware"
	"gestock/internal/infrastructure/storage/postgres"
	"gestock/internal/infrastructure/storage/postgres/ledger_repo"
	"gestock/internal/infrastructure/storage/postgres/transfer_repo"
	"gestock/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// TxManager runs repository operations in transactions
	TxManager *postgres.TxManager

	// Audit records entity snapshots (optional)
	Audit *postgres.AuditService

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AlertPublisher emits reorder alerts via the outbox (optional)
	AlertPublisher ledger.AlertPublisher

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool

	// IdempotencyTTL is the replay window for idempotency keys
	IdempotencyTTL time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		// Apply idempotency middleware for mutating operations
		if cfg.IdempotencyEnabled {
			ttl := cfg.IdempotencyTTL
			if ttl == 0 {
				ttl = 10 * time.Minute
			}
			store := postgres.NewIdempotencyStore(cfg.TxManager, ttl)
			protected.Use(middleware.Idempotency(store))
		}

		registerLedgerRoutes(protected, cfg)
		registerTransferRoutes(protected, cfg)
	}

	return router
}

// registerLedgerRoutes wires the ledger aggregate endpoints.
func registerLedgerRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	repo := ledger_repo.NewLedgerRepo(cfg.TxManager, cfg.Audit)

	opts := []ledger.Option{}
	if cfg.AlertPublisher != nil {
		opts = append(opts, ledger.WithAlertPublisher(cfg.AlertPublisher))
	}
	service := ledger.NewService(repo, cfg.TxManager, opts...)

	baseHandler := handlers.NewBaseHandler()
	handler := handlers.NewLedgerHandler(baseHandler, service)
	handler.RegisterRoutes(rg.Group("/ledgers"))
}

// registerTransferRoutes wires the inter-ledger transfer endpoints.
func registerTransferRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	ledgers := ledger_repo.NewLedgerRepo(cfg.TxManager, cfg.Audit)
	transfers := transfer_repo.NewTransferRepo(cfg.TxManager)
	service := transfer.NewService(ledgers, transfers, cfg.TxManager)

	baseHandler := handlers.NewBaseHandler()
	handler := handlers.NewTransferHandler(baseHandler, service)
	handler.RegisterRoutes(rg.Group("/transfers"))
}
