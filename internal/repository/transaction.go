package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coin-wallet-engine/internal/model"
)

const transactionColumns = `id, transaction_id, user_id, app_name, type, status, amount,
		balance_before, balance_after, gift_id, recipient_user_id, sender_user_id, post_id,
		withdrawal_id, admin_user_id, payment_gateway, payment_transaction_id,
		description, error_message, metadata, created_at`

// TransactionRepository handles the append-only transaction log.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.TransactionID,
		&tx.UserID,
		&tx.AppName,
		&tx.Type,
		&tx.Status,
		&tx.Amount,
		&tx.BalanceBefore,
		&tx.BalanceAfter,
		&tx.GiftID,
		&tx.RecipientID,
		&tx.SenderID,
		&tx.PostID,
		&tx.WithdrawalID,
		&tx.AdminUserID,
		&tx.PaymentGateway,
		&tx.PaymentTransactionID,
		&tx.Description,
		&tx.ErrorMessage,
		&tx.Metadata,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Append inserts a new transaction record. The log is append-only: amount
// and balance snapshots of existing rows are never rewritten.
func (r *TransactionRepository) Append(ctx context.Context, q Querier, tx *model.Transaction) (*model.Transaction, error) {
	query := `
		INSERT INTO transactions (transaction_id, user_id, app_name, type, status, amount,
			balance_before, balance_after, gift_id, recipient_user_id, sender_user_id, post_id,
			withdrawal_id, admin_user_id, payment_gateway, payment_transaction_id,
			description, error_message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())
		RETURNING ` + transactionColumns

	created, err := scanTransaction(q.QueryRow(ctx, query,
		tx.TransactionID,
		tx.UserID,
		tx.AppName,
		tx.Type,
		tx.Status,
		tx.Amount,
		tx.BalanceBefore,
		tx.BalanceAfter,
		tx.GiftID,
		tx.RecipientID,
		tx.SenderID,
		tx.PostID,
		tx.WithdrawalID,
		tx.AdminUserID,
		tx.PaymentGateway,
		tx.PaymentTransactionID,
		tx.Description,
		tx.ErrorMessage,
		tx.Metadata,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}
	return created, nil
}

// ListByUser retrieves a user's transactions for an app, newest first,
// along with the total row count for pagination.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID, appName string, page model.Page) ([]*model.Transaction, int64, error) {
	p := page.Normalize()

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND app_name = $2
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, userID, appName, p.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating transactions: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND app_name = $2`
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, userID, appName).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return transactions, total, nil
}

// AggregateByType returns per-type sum/count rollups for a user's wallet.
// Eventually consistent with respect to concurrently appending writers.
func (r *TransactionRepository) AggregateByType(ctx context.Context, userID, appName string) ([]model.TypeStat, error) {
	const query = `
		SELECT type, COUNT(*), COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND app_name = $2
		GROUP BY type
		ORDER BY type
	`

	rows, err := r.pool.Query(ctx, query, userID, appName)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	defer rows.Close()

	var stats []model.TypeStat
	for rows.Next() {
		var stat model.TypeStat
		if err := rows.Scan(&stat.Type, &stat.Count, &stat.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan type stat: %w", err)
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating type stats: %w", err)
	}

	return stats, nil
}

// AggregateForApp returns per-type sum/count rollups across all wallets of
// an app.
func (r *TransactionRepository) AggregateForApp(ctx context.Context, appName string) ([]model.TypeStat, error) {
	const query = `
		SELECT type, COUNT(*), COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE app_name = $1
		GROUP BY type
		ORDER BY type
	`

	rows, err := r.pool.Query(ctx, query, appName)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate app transactions: %w", err)
	}
	defer rows.Close()

	var stats []model.TypeStat
	for rows.Next() {
		var stat model.TypeStat
		if err := rows.Scan(&stat.Type, &stat.Count, &stat.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan type stat: %w", err)
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating type stats: %w", err)
	}

	return stats, nil
}

// SumForWallet returns the sum of all committed transaction amounts for a
// wallet. With a zero initial balance this must always equal the wallet's
// current balance.
func (r *TransactionRepository) SumForWallet(ctx context.Context, userID, appName string) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND app_name = $2 AND status = $3
	`

	var sum int64
	err := r.pool.QueryRow(ctx, query, userID, appName, model.TxStatusCompleted).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}
