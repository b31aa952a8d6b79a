package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/subledger/internal/catalog"
	"github.com/MrJamesThe3rd/subledger/internal/config"
	"github.com/MrJamesThe3rd/subledger/internal/dashboard"
	ledgerHttp "github.com/MrJamesThe3rd/subledger/internal/http"
	catalogHandler "github.com/MrJamesThe3rd/subledger/internal/http/catalog"
	dashboardHandler "github.com/MrJamesThe3rd/subledger/internal/http/dashboard"
	reconcileHandler "github.com/MrJamesThe3rd/subledger/internal/http/reconcile"
	subscriptionHandler "github.com/MrJamesThe3rd/subledger/internal/http/subscription"
	txHandler "github.com/MrJamesThe3rd/subledger/internal/http/transaction"
	walletHandler "github.com/MrJamesThe3rd/subledger/internal/http/wallet"
	"github.com/MrJamesThe3rd/subledger/internal/ledger"
	"github.com/MrJamesThe3rd/subledger/internal/reconcile"
	"github.com/MrJamesThe3rd/subledger/internal/storage"
	"github.com/MrJamesThe3rd/subledger/internal/subscription"
	"github.com/MrJamesThe3rd/subledger/internal/wallet"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	if cfg.Auth.JWTSecret == "" {
		slog.Warn("AUTH_JWT_SECRET is empty, every request runs as the dev user", "user_id", cfg.Auth.DevUserID)
	}

	var (
		walletService       = wallet.NewService(backend.Wallets)
		subscriptionService = subscription.NewService(backend.Subscriptions)
		ledgerService       = ledger.NewService(backend.Ledger)
		catalogService      = catalog.NewService(backend.Catalog)
		reconcileService    = reconcile.NewService(backend.Reconcile)
		dashboardService    = dashboard.NewService(walletService, subscriptionService, ledgerService, catalogService)
	)

	var (
		transactionH  = txHandler.NewHandler(ledgerService)
		walletH       = walletHandler.NewHandler(walletService, ledgerService)
		subscriptionH = subscriptionHandler.NewHandler(subscriptionService, walletService, ledgerService)
		catalogH      = catalogHandler.NewHandler(catalogService)
		dashboardH    = dashboardHandler.NewHandler(dashboardService)
		reconcileH    = reconcileHandler.NewHandler(reconcileService)
	)

	router := ledgerHttp.New(ledgerHttp.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		DevUserID:      cfg.Auth.DevUserID,
		Ping:           backend.Ping,
	}, transactionH, walletH, subscriptionH, catalogH, dashboardH, reconcileH)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	go func() {
		slog.Info("starting server", "port", server.Addr, "storage", cfg.Storage.Driver)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
}
