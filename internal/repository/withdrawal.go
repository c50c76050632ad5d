package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coin-wallet-engine/internal/model"
)

const withdrawalColumns = `id, withdrawal_id, user_id, app_name, coin_amount,
		balance_before, balance_after, status, admin_user_id, reviewed_at,
		review_notes, rejection_reason, metadata, created_at, updated_at`

// WithdrawalRepository handles withdrawal-request persistence and the
// pending→approved/rejected status transitions.
type WithdrawalRepository struct {
	pool *pgxpool.Pool
}

// NewWithdrawalRepository creates a new WithdrawalRepository instance.
func NewWithdrawalRepository(pool *pgxpool.Pool) *WithdrawalRepository {
	return &WithdrawalRepository{pool: pool}
}

func scanWithdrawal(row pgx.Row) (*model.Withdrawal, error) {
	var w model.Withdrawal
	err := row.Scan(
		&w.ID,
		&w.WithdrawalID,
		&w.UserID,
		&w.AppName,
		&w.CoinAmount,
		&w.BalanceBefore,
		&w.BalanceAfter,
		&w.Status,
		&w.AdminUserID,
		&w.ReviewedAt,
		&w.ReviewNotes,
		&w.RejectionReason,
		&w.Metadata,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a withdrawal request in pending status.
func (r *WithdrawalRepository) Create(ctx context.Context, q Querier, w *model.Withdrawal) (*model.Withdrawal, error) {
	query := `
		INSERT INTO withdrawals (withdrawal_id, user_id, app_name, coin_amount,
			balance_before, balance_after, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + withdrawalColumns

	created, err := scanWithdrawal(q.QueryRow(ctx, query,
		w.WithdrawalID,
		w.UserID,
		w.AppName,
		w.CoinAmount,
		w.BalanceBefore,
		w.BalanceAfter,
		model.WithdrawalStatusPending,
		w.Metadata,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}
	return created, nil
}

// Get retrieves a withdrawal by its caller-visible id.
// Returns ErrWithdrawalNotFound if it does not exist.
func (r *WithdrawalRepository) Get(ctx context.Context, q Querier, withdrawalID string) (*model.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE withdrawal_id = $1`

	w, err := scanWithdrawal(q.QueryRow(ctx, query, withdrawalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return w, nil
}

// MarkReviewed transitions a pending withdrawal to the given terminal-review
// status, stamping the reviewing admin. The update is conditional on the
// row still being pending; ErrWithdrawalNotPending is returned otherwise.
func (r *WithdrawalRepository) MarkReviewed(ctx context.Context, q Querier, withdrawalID, status, adminUserID string, notes, rejectionReason *string) (*model.Withdrawal, error) {
	query := `
		UPDATE withdrawals
		SET status = $2, admin_user_id = $3, reviewed_at = NOW(),
			review_notes = $4, rejection_reason = $5, updated_at = NOW()
		WHERE withdrawal_id = $1 AND status = '` + model.WithdrawalStatusPending + `'
		RETURNING ` + withdrawalColumns

	w, err := scanWithdrawal(q.QueryRow(ctx, query, withdrawalID, status, adminUserID, notes, rejectionReason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing row from one already reviewed.
			if _, getErr := r.Get(ctx, q, withdrawalID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrWithdrawalNotPending
		}
		return nil, fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	return w, nil
}

// ListByUser retrieves a user's withdrawals for an app, newest first,
// along with the total row count for pagination.
func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID, appName string, page model.Page) ([]*model.Withdrawal, int64, error) {
	p := page.Normalize()

	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE user_id = $1 AND app_name = $2
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, userID, appName, p.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []*model.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating withdrawals: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM withdrawals WHERE user_id = $1 AND app_name = $2`
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, userID, appName).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}

	return withdrawals, total, nil
}

// ListPending retrieves pending withdrawals across all users, oldest first
// so admins review in arrival order.
func (r *WithdrawalRepository) ListPending(ctx context.Context, page model.Page) ([]*model.Withdrawal, int64, error) {
	p := page.Normalize()

	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE status = $1
		ORDER BY id ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, model.WithdrawalStatusPending, p.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []*model.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating withdrawals: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM withdrawals WHERE status = $1`
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, model.WithdrawalStatusPending).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count pending withdrawals: %w", err)
	}

	return withdrawals, total, nil
}

// CountPending counts a user's pending withdrawals for an app.
func (r *WithdrawalRepository) CountPending(ctx context.Context, q Querier, userID, appName string) (int64, error) {
	const query = `
		SELECT COUNT(*) FROM withdrawals
		WHERE user_id = $1 AND app_name = $2 AND status = $3
	`

	var count int64
	err := q.QueryRow(ctx, query, userID, appName, model.WithdrawalStatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending withdrawals: %w", err)
	}
	return count, nil
}

// CountCreatedSince counts a user's withdrawal requests for an app created
// at or after the given instant, regardless of status.
func (r *WithdrawalRepository) CountCreatedSince(ctx context.Context, q Querier, userID, appName string, since time.Time) (int64, error) {
	const query = `
		SELECT COUNT(*) FROM withdrawals
		WHERE user_id = $1 AND app_name = $2 AND created_at >= $3
	`

	var count int64
	err := q.QueryRow(ctx, query, userID, appName, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}
	return count, nil
}

// StatsForApp returns the withdrawal rollup for an app: overall count and
// amount plus a per-status breakdown.
func (r *WithdrawalRepository) StatsForApp(ctx context.Context, appName string) (*model.WithdrawalStats, error) {
	const totalsQuery = `
		SELECT COUNT(*), COALESCE(SUM(coin_amount), 0)
		FROM withdrawals
		WHERE app_name = $1
	`

	var stats model.WithdrawalStats
	err := r.pool.QueryRow(ctx, totalsQuery, appName).Scan(&stats.TotalWithdrawals, &stats.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal totals: %w", err)
	}

	const byStatusQuery = `
		SELECT status, COUNT(*), COALESCE(SUM(coin_amount), 0)
		FROM withdrawals
		WHERE app_name = $1
		GROUP BY status
		ORDER BY status
	`

	rows, err := r.pool.Query(ctx, byStatusQuery, appName)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal status breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stat model.TypeStat
		if err := rows.Scan(&stat.Type, &stat.Count, &stat.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan status stat: %w", err)
		}
		stats.ByStatus = append(stats.ByStatus, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status stats: %w", err)
	}

	return &stats, nil
}
