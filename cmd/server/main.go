// Package main initializes and starts the envelope budgeting API server,
// setting up configuration, logging, the database connection, repositories,
// services, handlers, and the external identity and bank-feed clients.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlasov/envelope/internal/bankfeed"
	"github.com/ivlasov/envelope/internal/config"
	"github.com/ivlasov/envelope/internal/db"
	"github.com/ivlasov/envelope/internal/identity"
	"github.com/ivlasov/envelope/internal/logger"
	"github.com/ivlasov/envelope/internal/middleware"
	"github.com/ivlasov/envelope/internal/repository"
	"github.com/ivlasov/envelope/internal/server/handler/http"
	"github.com/ivlasov/envelope/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, .env, and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL and apply migrations.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Long-lived external clients, constructed once and injected.
	idp, err := identity.NewProvider(ctx, options.CognitoRegion, options.CognitoClientID)
	if err != nil {
		zapLogger.Fatal("cannot init identity provider", zap.Error(err))
	}
	feed := bankfeed.NewClient(bankfeed.Config{
		Environment: options.PlaidEnv,
		ClientID:    options.PlaidClientID,
		Secret:      options.PlaidSecret,
		ClientName:  "Envelope Budgeting App",
	})

	// Initialize repositories.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	envelopeRepo := repository.NewPostgresEnvelopeRepository(postgresDB)
	ruleRepo := repository.NewPostgresRuleRepository(postgresDB)
	txRepo := repository.NewPostgresTransactionRepository(postgresDB)

	// Initialize business-logic services.
	userService := service.NewUserService(idp, userRepo)
	envelopeService := service.NewEnvelopeService(envelopeRepo, ruleRepo)
	txService := service.NewTransactionService(txRepo, envelopeRepo, ruleRepo)
	bankService := service.NewBankService(feed, userRepo)
	syncService := service.NewSyncService(userRepo, ruleRepo, txRepo, feed, zapLogger)

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{UserService: userService}
	envelopeHandler := &http.EnvelopeHandler{EnvelopeService: envelopeService}
	transactionHandler := &http.TransactionHandler{TransactionService: txService}
	bankHandler := &http.BankHandler{BankService: bankService, SyncRunner: syncService}

	// Build the router with middleware and routes.
	authMW := middleware.BearerAuth(idp, userRepo)
	router := http.NewRouter(authHandler, envelopeHandler, transactionHandler, bankHandler, authMW, options.CORSOrigin, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Fatal("server error", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
