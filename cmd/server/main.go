// Package main is the entry point for the coin wallet engine.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"coin-wallet-engine/internal/config"
	"coin-wallet-engine/internal/handler"
	"coin-wallet-engine/internal/pkg/auth"
	"coin-wallet-engine/internal/pkg/db"
	"coin-wallet-engine/internal/pkg/lock"
	"coin-wallet-engine/internal/registry"
	"coin-wallet-engine/internal/repository"
	"coin-wallet-engine/internal/router"
	"coin-wallet-engine/internal/server"
	"coin-wallet-engine/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	walletRepo := repository.NewWalletRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	withdrawalRepo := repository.NewWithdrawalRepository(dbPool.Pool)
	giftRepo := repository.NewGiftRepository(dbPool.Pool)
	appRepo := repository.NewResourceAppRepository(dbPool.Pool)

	// Initialize the registry client and the per-wallet lock
	registryClient := registry.NewClient(cfg.External.CallTimeout, cfg.External.NotifyTimeout)
	walletLock := lock.NewKeyLock()
	notifier := service.NewNotifier(registryClient, cfg.External.NotifyTimeout)

	// Initialize services
	ledgerService := service.NewLedgerService(
		dbPool.Pool,
		walletRepo,
		txRepo,
		giftRepo,
		appRepo,
		registryClient,
		walletLock,
		notifier,
	)
	withdrawalService := service.NewWithdrawalService(
		dbPool.Pool,
		walletRepo,
		txRepo,
		withdrawalRepo,
		appRepo,
		registryClient,
		walletLock,
		notifier,
		service.WithdrawalPolicy{
			MinAmount:  cfg.Withdrawal.MinAmount,
			DailyLimit: int64(cfg.Withdrawal.DailyLimit),
		},
	)

	// Wire the HTTP surface
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	h := handler.New(ledgerService, withdrawalService, dbPool)
	srv := server.New(&cfg.Server, router.New(h, verifier))

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Let in-flight notifications drain before the process exits
	notifier.Wait()
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create wallets table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wallets (
			user_id VARCHAR(255) NOT NULL,
			app_name VARCHAR(255) NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			total_earned BIGINT NOT NULL DEFAULT 0,
			total_spent BIGINT NOT NULL DEFAULT 0,
			total_withdrawn BIGINT NOT NULL DEFAULT 0,
			is_frozen BOOLEAN NOT NULL DEFAULT FALSE,
			freeze_reason TEXT,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			verification_level INT NOT NULL DEFAULT 0,
			last_transaction_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, app_name)
		);
		CREATE INDEX IF NOT EXISTS idx_wallets_app ON wallets(app_name);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: wallets table created")

	// Migration 2: Create transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			transaction_id VARCHAR(255) NOT NULL UNIQUE,
			user_id VARCHAR(255) NOT NULL,
			app_name VARCHAR(255) NOT NULL,
			type VARCHAR(50) NOT NULL,
			status VARCHAR(50) NOT NULL,
			amount BIGINT NOT NULL,
			balance_before BIGINT NOT NULL,
			balance_after BIGINT NOT NULL,
			gift_id VARCHAR(255),
			recipient_user_id VARCHAR(255),
			sender_user_id VARCHAR(255),
			post_id VARCHAR(255),
			withdrawal_id VARCHAR(255),
			admin_user_id VARCHAR(255),
			payment_gateway VARCHAR(255),
			payment_transaction_id VARCHAR(255),
			description TEXT,
			error_message TEXT,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_wallet ON transactions(user_id, app_name, id DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(app_name, type);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: transactions table created")

	// Migration 3: Create withdrawals table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS withdrawals (
			id BIGSERIAL PRIMARY KEY,
			withdrawal_id VARCHAR(255) NOT NULL UNIQUE,
			user_id VARCHAR(255) NOT NULL,
			app_name VARCHAR(255) NOT NULL,
			coin_amount BIGINT NOT NULL,
			balance_before BIGINT NOT NULL,
			balance_after BIGINT NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'pending',
			admin_user_id VARCHAR(255),
			reviewed_at TIMESTAMPTZ,
			review_notes TEXT,
			rejection_reason TEXT,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_withdrawals_user ON withdrawals(user_id, app_name, id DESC);
		CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals(status, id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: withdrawals table created")

	// Migration 4: Create gift catalog table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS gifts (
			gift_id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			display_name VARCHAR(255) NOT NULL,
			coin_value BIGINT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: gifts table created")

	// Migration 5: Create resource app registry table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS resource_apps (
			app_name VARCHAR(255) PRIMARY KEY,
			profile_endpoint TEXT NOT NULL,
			verification_endpoint TEXT NOT NULL,
			notification_endpoint TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: resource_apps table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
