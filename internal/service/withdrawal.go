package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"coin-wallet-engine/internal/model"
	"coin-wallet-engine/internal/pkg/lock"
	"coin-wallet-engine/internal/registry"
	"coin-wallet-engine/internal/repository"
)

// WithdrawalPolicy holds the business rules applied to new withdrawal
// requests.
type WithdrawalPolicy struct {
	MinAmount  int64
	DailyLimit int64
}

// WithdrawalService manages the withdrawal request lifecycle:
// pending → approved → processed, or pending → rejected. Coins are held
// (debited) when the request is created; a rejection credits them back.
type WithdrawalService struct {
	pool         *pgxpool.Pool
	wallets      *repository.WalletRepository
	transactions *repository.TransactionRepository
	withdrawals  *repository.WithdrawalRepository
	apps         *repository.ResourceAppRepository
	registry     RegistryClient
	locks        *lock.KeyLock
	notifier     *Notifier
	policy       WithdrawalPolicy
}

// NewWithdrawalService creates a new WithdrawalService instance.
func NewWithdrawalService(
	pool *pgxpool.Pool,
	wallets *repository.WalletRepository,
	transactions *repository.TransactionRepository,
	withdrawals *repository.WithdrawalRepository,
	apps *repository.ResourceAppRepository,
	registryClient RegistryClient,
	locks *lock.KeyLock,
	notifier *Notifier,
	policy WithdrawalPolicy,
) *WithdrawalService {
	return &WithdrawalService{
		pool:         pool,
		wallets:      wallets,
		transactions: transactions,
		withdrawals:  withdrawals,
		apps:         apps,
		registry:     registryClient,
		locks:        locks,
		notifier:     notifier,
		policy:       policy,
	}
}

// checkEligibility consults the app's verification endpoint. A malformed
// response is a hard failure, never an implicit denial.
func (s *WithdrawalService) checkEligibility(ctx context.Context, app *model.ResourceApp, userID string) error {
	err := s.registry.CheckEligibility(ctx, app, userID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrNotEligible):
		return ErrEligibilityDenied
	default:
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}
}

// Create opens a withdrawal request. The coin amount is held immediately:
// wallet debit, withdrawal row, and the `withdraw` log entry commit in one
// database transaction. External gates run before the wallet lock.
func (s *WithdrawalService) Create(ctx context.Context, userID, appName string, amount int64) (*model.Withdrawal, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	app, err := resolveApp(ctx, s.apps, appName)
	if err != nil {
		return nil, err
	}
	if err := validateUser(ctx, s.registry, app, userID); err != nil {
		return nil, err
	}
	if err := s.checkEligibility(ctx, app, userID); err != nil {
		return nil, err
	}

	var withdrawal *model.Withdrawal
	err = s.locks.WithLock(lock.Key(appName, userID), func() error {
		return repository.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
			wallet, err := s.wallets.Get(ctx, tx, userID, appName)
			if err != nil {
				if errors.Is(err, repository.ErrWalletNotFound) {
					return ErrWalletNotFound
				}
				return fmt.Errorf("failed to load wallet: %w", err)
			}
			if wallet.IsFrozen {
				return ErrFrozenWallet
			}
			if wallet.Balance < amount {
				return ErrInsufficientBalance
			}

			if err := s.validateEligibilityRules(ctx, tx, userID, appName, amount); err != nil {
				return err
			}

			// Hold the coins. total_withdrawn moves only on approval so the
			// lifetime counters never go backwards.
			newBalance := wallet.Balance - amount
			if _, err := s.wallets.UpdateBalance(ctx, tx, userID, appName, repository.BalanceUpdate{
				NewBalance: newBalance,
			}); err != nil {
				return fmt.Errorf("failed to hold withdrawal amount: %w", err)
			}

			withdrawal, err = s.withdrawals.Create(ctx, tx, &model.Withdrawal{
				WithdrawalID:  uuid.NewString(),
				UserID:        userID,
				AppName:       appName,
				CoinAmount:    amount,
				BalanceBefore: wallet.Balance,
				BalanceAfter:  newBalance,
				Metadata:      map[string]any{"balance_snapshot": wallet.Balance},
			})
			if err != nil {
				return err
			}

			if _, err := s.transactions.Append(ctx, tx, &model.Transaction{
				TransactionID: uuid.NewString(),
				UserID:        userID,
				AppName:       appName,
				Type:          model.TxTypeWithdraw,
				Status:        model.TxStatusCompleted,
				Amount:        -amount,
				BalanceBefore: wallet.Balance,
				BalanceAfter:  newBalance,
				WithdrawalID:  &withdrawal.WithdrawalID,
			}); err != nil {
				return fmt.Errorf("failed to append withdraw entry: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("app_name", appName).
		Int64("amount", amount).
		Str("withdrawal_id", withdrawal.WithdrawalID).
		Msg("Withdrawal requested")

	s.notifier.Push(app, userID, "Withdrawal requested",
		fmt.Sprintf("Your withdrawal request for %d coins is pending review", amount))

	return withdrawal, nil
}

// validateEligibilityRules enforces the request-time policy: at most one
// pending request per wallet, a minimum amount, and a per-calendar-day
// request cap.
func (s *WithdrawalService) validateEligibilityRules(ctx context.Context, q repository.Querier, userID, appName string, amount int64) error {
	pending, err := s.withdrawals.CountPending(ctx, q, userID, appName)
	if err != nil {
		return err
	}
	if pending > 0 {
		return ErrPendingWithdrawalExists
	}

	if amount < s.policy.MinAmount {
		return ErrBelowMinimum
	}

	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	today, err := s.withdrawals.CountCreatedSince(ctx, q, userID, appName, startOfDay)
	if err != nil {
		return err
	}
	if today >= s.policy.DailyLimit {
		return ErrDailyLimitExceeded
	}
	return nil
}

// Approve transitions a pending withdrawal to approved, stamping the
// reviewing admin and counting the held coins into total_withdrawn in the
// same transaction. Payout execution is a separate concern.
func (s *WithdrawalService) Approve(ctx context.Context, withdrawalID, adminUserID string, notes *string) (*model.Withdrawal, error) {
	existing, err := s.withdrawals.Get(ctx, s.pool, withdrawalID)
	if err != nil {
		return nil, mapWithdrawalError(err)
	}

	var withdrawal *model.Withdrawal
	err = s.locks.WithLock(lock.Key(existing.AppName, existing.UserID), func() error {
		return repository.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
			withdrawal, err = s.withdrawals.MarkReviewed(ctx, tx, withdrawalID, model.WithdrawalStatusApproved, adminUserID, notes, nil)
			if err != nil {
				return mapWithdrawalError(err)
			}

			wallet, err := s.wallets.Get(ctx, tx, withdrawal.UserID, withdrawal.AppName)
			if err != nil {
				return fmt.Errorf("failed to load wallet for approval: %w", err)
			}
			if _, err := s.wallets.UpdateBalance(ctx, tx, withdrawal.UserID, withdrawal.AppName, repository.BalanceUpdate{
				NewBalance:     wallet.Balance,
				WithdrawnDelta: withdrawal.CoinAmount,
			}); err != nil {
				return fmt.Errorf("failed to count withdrawal: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("withdrawal_id", withdrawalID).
		Str("admin_user_id", adminUserID).
		Msg("Withdrawal approved")

	s.notifyReviewed(ctx, withdrawal, "Withdrawal approved",
		fmt.Sprintf("Your withdrawal of %d coins was approved", withdrawal.CoinAmount))
	return withdrawal, nil
}

// Reject transitions a pending withdrawal to rejected and credits the held
// coins back via a compensating admin adjustment, all in one database
// transaction under the wallet lock.
func (s *WithdrawalService) Reject(ctx context.Context, withdrawalID, adminUserID, reason string) (*model.Withdrawal, error) {
	// Peek at the row to learn which wallet to lock; the transition itself
	// is still conditional on pending inside the transaction.
	existing, err := s.withdrawals.Get(ctx, s.pool, withdrawalID)
	if err != nil {
		return nil, mapWithdrawalError(err)
	}

	var withdrawal *model.Withdrawal
	err = s.locks.WithLock(lock.Key(existing.AppName, existing.UserID), func() error {
		return repository.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
			withdrawal, err = s.withdrawals.MarkReviewed(ctx, tx, withdrawalID, model.WithdrawalStatusRejected, adminUserID, nil, &reason)
			if err != nil {
				return mapWithdrawalError(err)
			}

			wallet, err := s.wallets.Get(ctx, tx, withdrawal.UserID, withdrawal.AppName)
			if err != nil {
				return fmt.Errorf("failed to load wallet for refund: %w", err)
			}

			// Unwind the hold taken at request time. total_withdrawn was
			// never touched for a pending request, so no counter moves.
			newBalance := wallet.Balance + withdrawal.CoinAmount
			if _, err := s.wallets.UpdateBalance(ctx, tx, withdrawal.UserID, withdrawal.AppName, repository.BalanceUpdate{
				NewBalance: newBalance,
			}); err != nil {
				return fmt.Errorf("failed to refund withdrawal hold: %w", err)
			}

			desc := fmt.Sprintf("Refund for rejected withdrawal: %s", reason)
			if _, err := s.transactions.Append(ctx, tx, &model.Transaction{
				TransactionID: uuid.NewString(),
				UserID:        withdrawal.UserID,
				AppName:       withdrawal.AppName,
				Type:          model.TxTypeAdminAdjustment,
				Status:        model.TxStatusCompleted,
				Amount:        withdrawal.CoinAmount,
				BalanceBefore: wallet.Balance,
				BalanceAfter:  newBalance,
				WithdrawalID:  &withdrawal.WithdrawalID,
				AdminUserID:   &adminUserID,
				Description:   &desc,
			}); err != nil {
				return fmt.Errorf("failed to append refund entry: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("withdrawal_id", withdrawalID).
		Str("admin_user_id", adminUserID).
		Str("reason", reason).
		Msg("Withdrawal rejected")

	s.notifyReviewed(ctx, withdrawal, "Withdrawal rejected",
		fmt.Sprintf("Your withdrawal of %d coins was rejected: %s", withdrawal.CoinAmount, reason))
	return withdrawal, nil
}

// GetUserWithdrawals lists a user's withdrawal requests for an app,
// newest first.
func (s *WithdrawalService) GetUserWithdrawals(ctx context.Context, userID, appName string, page model.Page) ([]*model.Withdrawal, int64, error) {
	if _, err := resolveApp(ctx, s.apps, appName); err != nil {
		return nil, 0, err
	}
	return s.withdrawals.ListByUser(ctx, userID, appName, page)
}

// GetPendingWithdrawals lists the admin review queue, oldest first.
func (s *WithdrawalService) GetPendingWithdrawals(ctx context.Context, page model.Page) ([]*model.Withdrawal, int64, error) {
	return s.withdrawals.ListPending(ctx, page)
}

// GetWithdrawalStats returns the per-app withdrawal rollup.
func (s *WithdrawalService) GetWithdrawalStats(ctx context.Context, appName string) (*model.WithdrawalStats, error) {
	if _, err := resolveApp(ctx, s.apps, appName); err != nil {
		return nil, err
	}
	stats, err := s.withdrawals.StatsForApp(ctx, appName)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal stats: %w", err)
	}
	return stats, nil
}

// notifyReviewed pushes the review outcome to the requester, best effort.
func (s *WithdrawalService) notifyReviewed(ctx context.Context, w *model.Withdrawal, title, message string) {
	app, err := resolveApp(ctx, s.apps, w.AppName)
	if err != nil {
		log.Warn().Err(err).
			Str("app_name", w.AppName).
			Str("withdrawal_id", w.WithdrawalID).
			Msg("Skipping review notification, app lookup failed")
		return
	}
	s.notifier.Push(app, w.UserID, title, message)
}

// mapWithdrawalError lifts repository withdrawal sentinels into the
// service taxonomy.
func mapWithdrawalError(err error) error {
	switch {
	case errors.Is(err, repository.ErrWithdrawalNotFound):
		return ErrWithdrawalNotFound
	case errors.Is(err, repository.ErrWithdrawalNotPending):
		return ErrNotPending
	default:
		return err
	}
}
