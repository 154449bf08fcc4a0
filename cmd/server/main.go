// Package main initializes and starts the RADIUS account API server,
// setting up configuration, logging, the account store, services,
// handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/JohanU89-coder/radius-api/internal/config"
	"github.com/JohanU89-coder/radius-api/internal/db"
	"github.com/JohanU89-coder/radius-api/internal/logger"
	"github.com/JohanU89-coder/radius-api/internal/repository"
	"github.com/JohanU89-coder/radius-api/internal/rowops"
	"github.com/JohanU89-coder/radius-api/internal/server/handler/http"
	"github.com/JohanU89-coder/radius-api/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, .env, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(options.LogLevel, logger.WithFile(options.LogFile)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Close() }()
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pick the account store.
	var repo service.AccountRepository
	switch options.Store {
	case config.StoreMemory:
		zapLogger.Warn("using in-memory account store; data is lost on exit")
		repo = repository.NewMemoryAccountRepository()
	default:
		postgresDB, err := db.InitPostgres(options.DSN())
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer postgresDB.Close()

		if retention := time.Duration(options.AcctRetention); retention > 0 {
			db.StartAccountingCleaner(ctx, postgresDB,
				time.Duration(options.AcctCleanInterval),
				retention,
				zapLogger,
			)
		}
		repo = repository.NewPostgresAccountRepository(postgresDB)
	}

	// Initialize business logic and handlers.
	builder := rowops.NewBuilder(options.ProfileEnabled)
	accountService := service.NewAccountService(repo, builder, zapLogger)
	accountHandler := &http.AccountHandler{AccountService: accountService, Log: zapLogger}

	// Build the router with middleware and routes.
	router := http.NewRouter(accountHandler, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tlsEnabled := options.TLSCert != ""
	if tlsEnabled {
		cert, err := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
		if err != nil {
			zapLogger.Fatal("failed to load server TLS cert/key", zap.Error(err))
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting server",
			zap.String("addr", options.Address),
			zap.String("store", options.Store),
			zap.Bool("tls", tlsEnabled),
			zap.Bool("profiles", options.ProfileEnabled),
		)
		if tlsEnabled {
			errCh <- server.ListenAndServeTLS("", "")
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
