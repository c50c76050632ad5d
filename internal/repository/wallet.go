package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coin-wallet-engine/internal/model"
)

const walletColumns = `user_id, app_name, balance, total_earned, total_spent, total_withdrawn,
		is_frozen, freeze_reason, is_verified, verification_level, last_transaction_at,
		created_at, updated_at`

// BalanceUpdate describes a wallet balance write. NewBalance is the value
// the engine computed after reading the current balance under the wallet
// lock; the deltas keep the lifetime counters consistent with the
// transaction log.
type BalanceUpdate struct {
	NewBalance     int64
	EarnedDelta    int64
	SpentDelta     int64
	WithdrawnDelta int64
}

// WalletRepository handles wallet persistence.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository instance.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

func scanWallet(row pgx.Row) (*model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(
		&w.UserID,
		&w.AppName,
		&w.Balance,
		&w.TotalEarned,
		&w.TotalSpent,
		&w.TotalWithdrawn,
		&w.IsFrozen,
		&w.FreezeReason,
		&w.IsVerified,
		&w.VerificationLevel,
		&w.LastTransactionAt,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Get retrieves the wallet for a (userId, appName) pair.
// Returns ErrWalletNotFound if the wallet does not exist.
func (r *WalletRepository) Get(ctx context.Context, q Querier, userID, appName string) (*model.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND app_name = $2`

	wallet, err := scanWallet(q.QueryRow(ctx, query, userID, appName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

// Create creates a zero-balance wallet for the pair.
// Returns ErrWalletExists if a wallet for the pair already exists.
func (r *WalletRepository) Create(ctx context.Context, q Querier, userID, appName string) (*model.Wallet, error) {
	query := `
		INSERT INTO wallets (user_id, app_name, balance, total_earned, total_spent, total_withdrawn,
			is_frozen, is_verified, verification_level, created_at, updated_at)
		VALUES ($1, $2, 0, 0, 0, 0, FALSE, FALSE, 0, NOW(), NOW())
		RETURNING ` + walletColumns

	wallet, err := scanWallet(q.QueryRow(ctx, query, userID, appName))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrWalletExists
		}
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return wallet, nil
}

// GetOrCreate retrieves the wallet for a pair, creating a zero-balance one
// on first touch. Insert-if-absent makes it safe under concurrent first
// touch: the losing inserter falls through to the select.
func (r *WalletRepository) GetOrCreate(ctx context.Context, q Querier, userID, appName string) (*model.Wallet, bool, error) {
	insert := `
		INSERT INTO wallets (user_id, app_name, balance, total_earned, total_spent, total_withdrawn,
			is_frozen, is_verified, verification_level, created_at, updated_at)
		VALUES ($1, $2, 0, 0, 0, 0, FALSE, FALSE, 0, NOW(), NOW())
		ON CONFLICT (user_id, app_name) DO NOTHING`

	tag, err := q.Exec(ctx, insert, userID, appName)
	if err != nil {
		return nil, false, fmt.Errorf("failed to provision wallet: %w", err)
	}
	created := tag.RowsAffected() > 0

	wallet, err := r.Get(ctx, q, userID, appName)
	if err != nil {
		return nil, false, err
	}
	return wallet, created, nil
}

// UpdateBalance sets a wallet's balance to the value computed by the engine
// and applies the lifetime counter deltas. The caller must hold the wallet's
// lock for the whole read-compute-write sequence.
// Returns ErrWalletNotFound if the wallet does not exist.
func (r *WalletRepository) UpdateBalance(ctx context.Context, q Querier, userID, appName string, upd BalanceUpdate) (*model.Wallet, error) {
	query := `
		UPDATE wallets
		SET balance = $3,
			total_earned = total_earned + $4,
			total_spent = total_spent + $5,
			total_withdrawn = total_withdrawn + $6,
			last_transaction_at = NOW(),
			updated_at = NOW()
		WHERE user_id = $1 AND app_name = $2
		RETURNING ` + walletColumns

	wallet, err := scanWallet(q.QueryRow(ctx, query,
		userID, appName, upd.NewBalance, upd.EarnedDelta, upd.SpentDelta, upd.WithdrawnDelta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return wallet, nil
}

// Freeze suspends a wallet's ability to spend. The balance is untouched.
func (r *WalletRepository) Freeze(ctx context.Context, userID, appName, reason string) (*model.Wallet, error) {
	query := `
		UPDATE wallets
		SET is_frozen = TRUE, freeze_reason = $3, updated_at = NOW()
		WHERE user_id = $1 AND app_name = $2
		RETURNING ` + walletColumns

	wallet, err := scanWallet(r.pool.QueryRow(ctx, query, userID, appName, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to freeze wallet: %w", err)
	}
	return wallet, nil
}

// Unfreeze lifts a wallet's spending suspension and clears the reason.
func (r *WalletRepository) Unfreeze(ctx context.Context, userID, appName string) (*model.Wallet, error) {
	query := `
		UPDATE wallets
		SET is_frozen = FALSE, freeze_reason = NULL, updated_at = NOW()
		WHERE user_id = $1 AND app_name = $2
		RETURNING ` + walletColumns

	wallet, err := scanWallet(r.pool.QueryRow(ctx, query, userID, appName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to unfreeze wallet: %w", err)
	}
	return wallet, nil
}

// ListByUser retrieves all of a user's wallets across apps.
func (r *WalletRepository) ListByUser(ctx context.Context, userID string) ([]*model.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 ORDER BY app_name`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*model.Wallet
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, wallet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallets: %w", err)
	}

	return wallets, nil
}

// StatsForApp returns the wallet rollup for an app.
func (r *WalletRepository) StatsForApp(ctx context.Context, appName string) (*model.WalletStats, error) {
	const query = `
		SELECT COUNT(*),
			COALESCE(SUM(balance), 0),
			COALESCE(SUM(total_earned), 0),
			COALESCE(SUM(total_spent), 0),
			COALESCE(SUM(total_withdrawn), 0),
			COALESCE(SUM(CASE WHEN is_frozen THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_verified THEN 1 ELSE 0 END), 0)
		FROM wallets
		WHERE app_name = $1
	`

	var stats model.WalletStats
	err := r.pool.QueryRow(ctx, query, appName).Scan(
		&stats.TotalWallets,
		&stats.TotalBalance,
		&stats.TotalEarned,
		&stats.TotalSpent,
		&stats.TotalWithdrawn,
		&stats.FrozenWallets,
		&stats.VerifiedWallets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet stats: %w", err)
	}

	return &stats, nil
}
