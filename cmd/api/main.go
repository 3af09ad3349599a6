package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	apidocs "wallet-ledger/docs/api"
	"wallet-ledger/internal/adapter/events"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/storage/memory"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"
	"wallet-ledger/pkg/money"

	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	startingBalance, err := money.Parse(cfg.Wallet.StartingBalance)
	if err != nil || startingBalance.IsNegative() {
		log.Fatal().Err(err).Str("value", cfg.Wallet.StartingBalance).Msg("Invalid wallet.starting_balance")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Store.Driver).
		Str("starting_balance", startingBalance.String()).
		Msg("Starting Wallet Ledger")

	ctx := context.Background()

	var (
		store     ports.WalletStore
		auditRepo ports.AuditRepository
		checkers  []ports.HealthChecker
	)

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store = memory.NewWalletStore(cfg.Wallet.MaxHistory)
		log.Warn().Msg("Using in-memory wallet store, balances are lost on restart")

	default:
		if cfg.Database.Migrate {
			if err := pgStorage.Migrate(cfg.Database.DSN(), log); err != nil {
				log.Fatal().Err(err).Msg("Failed to apply database migrations")
			}
		}

		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		log.Info().Msg("PostgreSQL connected")

		store = pgStorage.NewWalletStore(pool, cfg.Wallet.MaxHistory)
		auditRepo = pgStorage.NewAuditRepository(pool)
		checkers = append(checkers, pgStorage.NewHealthCheck(pool))
	}

	// Redis backs the read cache and rate limits; without it both are off.
	var (
		cache   ports.WalletCache
		limiter ports.RateLimiter
	)
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without wallet cache and rate limits")
	} else {
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		limiter = redisStorage.NewRateLimitStore(rdb)
		if cfg.Cache.WalletTTL > 0 {
			cache = redisStorage.NewWalletCache(rdb, cfg.Cache.WalletTTL)
		}
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	}

	publisher := newEventPublisher(cfg.Events, log)
	defer publisher.Close()

	// Initialize services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	ledgerSvc := service.NewLedgerService(store, cache, publisher, service.LedgerConfig{
		StartingBalance: startingBalance,
		MaxRetries:      cfg.Wallet.MaxRetries,
	}, log)
	auditSvc := service.NewAuditService(auditRepo, log)

	httpHandler.SetSwaggerSpec(apidocs.OpenAPI)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		TokenSvc:       tokenSvc,
		RateLimiter:    limiter,
		AuditSvc:       auditSvc,
		HealthCheckers: checkers,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// newEventPublisher connects to RabbitMQ when configured and falls back to
// dropping events otherwise, so a broker outage never blocks startup.
func newEventPublisher(cfg config.EventsConfig, log zerolog.Logger) ports.EventPublisher {
	if cfg.AMQPURL == "" {
		log.Info().Msg("events.amqp_url not set, ledger events disabled")
		return events.NewNopPublisher(log)
	}

	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange, log)
	if err != nil {
		log.Warn().Err(err).Msg("RabbitMQ unavailable, ledger events disabled")
		return events.NewNopPublisher(log)
	}
	log.Info().Str("exchange", cfg.Exchange).Msg("RabbitMQ connected")
	return publisher
}
