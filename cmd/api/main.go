package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/events"
	"github.com/safar/go-storefront/internal/httpapi"
	"github.com/safar/go-storefront/internal/logging"
	"github.com/safar/go-storefront/internal/payment"
	"github.com/safar/go-storefront/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Load config: %v", err)
	}

	logger := logging.New(cfg.Log)
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	if cfg.Database.RunMigrations {
		if err := database.Migrate(cfg.Database.URL, database.MigrateUp, logger); err != nil {
			logger.WithError(err).Fatal("Run migrations")
		}
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Connect to database")
	}
	defer db.Close()

	logger.Info("Connected to database successfully")

	publisher, err := events.New(cfg.Events, logger)
	if err != nil {
		logger.WithError(err).Error("Connect to event broker; order events are disabled")
		publisher = events.Nop{}
	}
	defer publisher.Close()

	payments := payment.NewPlaceholder(cfg.Payment)
	logger.WithField("payments_configured", payments.Configured()).Info("Checkout ready")

	api := httpapi.NewServer(httpapi.Deps{
		Backend:        store.New(db),
		Auth:           auth.NewMiddleware(auth.NewVerifier(cfg.Auth), logger),
		Payments:       payments,
		Events:         publisher,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server error")
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}
