package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payment-reconciler/config"
	"payment-reconciler/internal/adapter/downstream"
	"payment-reconciler/internal/adapter/gateway"
	httpHandler "payment-reconciler/internal/adapter/http/handler"
	pgStorage "payment-reconciler/internal/adapter/storage/postgres"
	redisStorage "payment-reconciler/internal/adapter/storage/redis"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/internal/core/reference"
	"payment-reconciler/internal/service"
	"payment-reconciler/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	hashPassword := flag.String("hash-password", "", "print the argon2id hash of the given password and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := service.NewArgon2HashService().Hash(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty, "payment-reconciler")

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting Payment Reconciler")

	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Repositories
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	historyRepo := pgStorage.NewHistoryRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Redis stores
	gatewayCache := redisStorage.NewGatewayCache(rdb)
	txLock := redisStorage.NewTransactionLock(rdb, cfg.Reconcile.LockTTL, cfg.Reconcile.LockWait)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Outbound clients
	gatewayClient := gateway.NewClient(cfg.Gateway, &http.Client{Timeout: cfg.Gateway.Timeout}, gatewayCache, log)
	downstreamClient := downstream.NewClient(cfg.Downstream, &http.Client{Timeout: cfg.Downstream.Timeout}, log)
	if cfg.Downstream.UpdateURL == "" || cfg.Downstream.GenerateURL == "" {
		log.Warn().Msg("downstream URLs not fully configured, flagged payments will report evaError")
	}

	// Core services
	decoder := reference.NewDecoder(cfg.Reconcile.SeriesPrefixes...)
	dispatcher := service.NewDispatcher(cfg.Reconcile.NotifyMarker)
	verifier := service.NewEventChecksumVerifier(cfg.Gateway.EventsSecret)
	if !verifier.Enabled() {
		log.Warn().Msg("gateway events secret not set, webhook checksums are not verified")
	}
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	notifier, err := service.NewNotificationService(downstreamClient, cfg.Downstream, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize notification service")
	}
	ledgerWriter := service.NewLedgerWriter(ledgerRepo, transactor, log)
	webhookSvc := service.NewWebhookService(decoder, ledgerWriter, ledgerRepo, historyRepo, verifier, dispatcher, notifier, log)
	confirmationSvc := service.NewConfirmationService(
		gatewayClient,
		decoder,
		historyRepo,
		ledgerRepo,
		transactor,
		txLock,
		dispatcher,
		notifier,
		log,
	)
	historySvc := service.NewHistoryService(historyRepo, ledgerRepo)
	authSvc := service.NewAuthService(cfg.Admin, hashSvc, tokenSvc, log)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI document loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI document not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WebhookSvc:      webhookSvc,
		ConfirmationSvc: confirmationSvc,
		HistorySvc:      historySvc,
		AuthSvc:         authSvc,
		TokenSvc:        tokenSvc,
		RateLimitStore:  rateLimitStore,
		Database:        pgHealth,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		Server:          cfg.Server,
		Logger:          log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

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
