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

	"github.com/MrJamesThe3rd/tally/internal/auth"
	"github.com/MrJamesThe3rd/tally/internal/category"
	categoryStore "github.com/MrJamesThe3rd/tally/internal/category/store"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/customer"
	customerStore "github.com/MrJamesThe3rd/tally/internal/customer/store"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/export"
	tallyHttp "github.com/MrJamesThe3rd/tally/internal/http"
	categoryHandler "github.com/MrJamesThe3rd/tally/internal/http/category"
	customerHandler "github.com/MrJamesThe3rd/tally/internal/http/customer"
	exportHandler "github.com/MrJamesThe3rd/tally/internal/http/export"
	importHandler "github.com/MrJamesThe3rd/tally/internal/http/importcsv"
	invoiceHandler "github.com/MrJamesThe3rd/tally/internal/http/invoice"
	matchingHandler "github.com/MrJamesThe3rd/tally/internal/http/matching"
	"github.com/MrJamesThe3rd/tally/internal/http/middleware"
	settingsHandler "github.com/MrJamesThe3rd/tally/internal/http/settings"
	txHandler "github.com/MrJamesThe3rd/tally/internal/http/transaction"
	userHandler "github.com/MrJamesThe3rd/tally/internal/http/user"
	"github.com/MrJamesThe3rd/tally/internal/idempotency"
	idempotencyStore "github.com/MrJamesThe3rd/tally/internal/idempotency/store"
	"github.com/MrJamesThe3rd/tally/internal/ids"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	invoiceStore "github.com/MrJamesThe3rd/tally/internal/invoice/store"
	"github.com/MrJamesThe3rd/tally/internal/logging"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/tally/internal/matching/store"
	"github.com/MrJamesThe3rd/tally/internal/metrics"
	"github.com/MrJamesThe3rd/tally/internal/settings"
	settingsStore "github.com/MrJamesThe3rd/tally/internal/settings/store"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	txStore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
	"github.com/MrJamesThe3rd/tally/internal/user"
	userStore "github.com/MrJamesThe3rd/tally/internal/user/store"
)

const limiterSweepInterval = time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(cfg.ConnectionString(), database.Up); err != nil {
			return err
		}
	}

	db, err := database.New(cfg.ConnectionString(), database.WithPool(database.Pool{
		MaxOpen:     cfg.DB.MaxOpenConns,
		MaxIdle:     cfg.DB.MaxIdleConns,
		MaxLifetime: cfg.DB.ConnMaxLifetime,
	}))
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	node, err := ids.NewNode(cfg.IDs.Node)
	if err != nil {
		return err
	}

	var issuer *auth.Issuer

	if cfg.Auth.Secret == "" {
		slog.Warn("AUTH_SECRET is not set: API is unauthenticated and login is disabled")
	} else if issuer, err = auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL); err != nil {
		return err
	}

	m := metrics.New()

	var (
		categoryService    = category.NewService(categoryStore.New(db), node)
		customerService    = customer.NewService(customerStore.New(db), node)
		settingsService    = settings.NewService(settingsStore.New(db))
		userService        = user.NewService(userStore.New(db))
		matchingService    = matching.NewService(matchingStore.New(db), node)
		importService      = importer.NewService()
		idempotencyService = idempotency.NewService(idempotencyStore.New(db))
		transactionService = transaction.NewService(txStore.New(db), categoryService, node,
			transaction.WithStrictCategoryType(cfg.Ledger.StrictCategoryType))
		invoiceService = invoice.NewService(invoiceStore.New(db), node, invoice.WithObserver(m))
		exportService  = export.NewService(transactionService, invoiceService, customerService, settingsService)
	)

	handlers := tallyHttp.Handlers{
		Invoices:     invoiceHandler.NewHandler(invoiceService, exportService),
		Transactions: txHandler.NewHandler(transactionService),
		Categories:   categoryHandler.NewHandler(categoryService),
		Customers:    customerHandler.NewHandler(customerService),
		Users:        userHandler.NewHandler(userService, issuer),
		Settings:     settingsHandler.NewHandler(settingsService),
		Rules:        matchingHandler.NewHandler(matchingService),
		Import:       importHandler.NewHandler(importService, transactionService, matchingService, categoryService),
		Export:       exportHandler.NewHandler(exportService),
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	router := tallyHttp.New(handlers, tallyHttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Timeout:        cfg.Server.Timeout,
		Issuer:         issuer,
		RateLimiter:    limiter,
		Idempotency:    idempotencyService,
		Metrics:        m,
		Health:         db.PingContext,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Sweep()
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "addr", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return nil
}
