package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"coin-wallet-engine/internal/model"
	"coin-wallet-engine/internal/pkg/lock"
	"coin-wallet-engine/internal/repository"
)

// LedgerService owns the coin wallets and their append-only transaction
// log. Every balance mutation happens under the wallet's key lock and
// commits the wallet write together with its log entries in one database
// transaction.
type LedgerService struct {
	pool         *pgxpool.Pool
	wallets      *repository.WalletRepository
	transactions *repository.TransactionRepository
	gifts        *repository.GiftRepository
	apps         *repository.ResourceAppRepository
	registry     RegistryClient
	locks        *lock.KeyLock
	notifier     *Notifier
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(
	pool *pgxpool.Pool,
	wallets *repository.WalletRepository,
	transactions *repository.TransactionRepository,
	gifts *repository.GiftRepository,
	apps *repository.ResourceAppRepository,
	registryClient RegistryClient,
	locks *lock.KeyLock,
	notifier *Notifier,
) *LedgerService {
	return &LedgerService{
		pool:         pool,
		wallets:      wallets,
		transactions: transactions,
		gifts:        gifts,
		apps:         apps,
		registry:     registryClient,
		locks:        locks,
		notifier:     notifier,
	}
}

// GiftResult summarizes a completed gift transfer.
type GiftResult struct {
	Gift             *model.Gift
	TransactionID    string
	SenderBalance    int64
	RecipientBalance int64
}

// Charge credits coins into a user's wallet for an app, creating the wallet
// on first touch. The external user validation happens before the wallet
// lock is taken so a slow profile endpoint cannot stall other mutations.
func (s *LedgerService) Charge(ctx context.Context, userID, appName string, amount int64, description *string) (*model.Wallet, *model.Transaction, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	app, err := resolveApp(ctx, s.apps, appName)
	if err != nil {
		return nil, nil, err
	}
	if err := validateUser(ctx, s.registry, app, userID); err != nil {
		return nil, nil, err
	}

	var (
		wallet *model.Wallet
		entry  *model.Transaction
	)
	err = s.locks.WithLock(lock.Key(appName, userID), func() error {
		return repository.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
			w, _, err := s.wallets.GetOrCreate(ctx, tx, userID, appName)
			if err != nil {
				return fmt.Errorf("failed to load wallet: %w", err)
			}
			if w.IsFrozen {
				return ErrFrozenWallet
			}

			newBalance := w.Balance + amount
			wallet, err = s.wallets.UpdateBalance(ctx, tx, userID, appName, repository.BalanceUpdate{
				NewBalance:  newBalance,
				EarnedDelta: amount,
			})
			if err != nil {
				return fmt.Errorf("failed to credit wallet: %w", err)
			}

			entry, err = s.transactions.Append(ctx, tx, &model.Transaction{
				TransactionID: uuid.NewString(),
				UserID:        userID,
				AppName:       appName,
				Type:          model.TxTypeCharge,
				Status:        model.TxStatusCompleted,
				Amount:        amount,
				BalanceBefore: w.Balance,
				BalanceAfter:  newBalance,
				Description:   description,
			})
			if err != nil {
				return fmt.Errorf("failed to append charge entry: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("app_name", appName).
		Int64("amount", amount).
		Int64("balance", wallet.Balance).
		Str("transaction_id", entry.TransactionID).
		Msg("Wallet charged")

	return wallet, entry, nil
}

// SendGift transfers a gift's coin value from sender to recipient in the
// same app. Both wallets and both log entries commit atomically; the two
// wallet locks are taken in lexicographic key order.
func (s *LedgerService) SendGift(ctx context.Context, senderID, recipientID, appName, giftID string, postID, message *string) (*GiftResult, error) {
	app, err := resolveApp(ctx, s.apps, appName)
	if err != nil {
		return nil, err
	}
	if err := validateUser(ctx, s.registry, app, senderID); err != nil {
		return nil, err
	}
	if err := validateUser(ctx, s.registry, app, recipientID); err != nil {
		return nil, err
	}
	if senderID == recipientID {
		return nil, ErrSelfGift
	}

	gift, err := s.gifts.Get(ctx, giftID)
	if err != nil {
		if errors.Is(err, repository.ErrGiftNotFound) {
			return nil, ErrInvalidGift
		}
		return nil, fmt.Errorf("failed to load gift: %w", err)
	}

	senderKey := lock.Key(appName, senderID)
	recipientKey := lock.Key(appName, recipientID)

	result := &GiftResult{Gift: gift}
	err = s.locks.WithLockPair(senderKey, recipientKey, func() error {
		return repository.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
			sender, _, err := s.wallets.GetOrCreate(ctx, tx, senderID, appName)
			if err != nil {
				return fmt.Errorf("failed to load sender wallet: %w", err)
			}
			if sender.IsFrozen {
				return ErrFrozenWallet
			}
			if sender.Balance < gift.CoinValue {
				return ErrInsufficientBalance
			}

			recipient, _, err := s.wallets.GetOrCreate(ctx, tx, recipientID, appName)
			if err != nil {
				return fmt.Errorf("failed to load recipient wallet: %w", err)
			}

			senderAfter := sender.Balance - gift.CoinValue
			recipientAfter := recipient.Balance + gift.CoinValue

			if _, err := s.wallets.UpdateBalance(ctx, tx, senderID, appName, repository.BalanceUpdate{
				NewBalance: senderAfter,
				SpentDelta: gift.CoinValue,
			}); err != nil {
				return fmt.Errorf("failed to debit sender: %w", err)
			}
			if _, err := s.wallets.UpdateBalance(ctx, tx, recipientID, appName, repository.BalanceUpdate{
				NewBalance:  recipientAfter,
				EarnedDelta: gift.CoinValue,
			}); err != nil {
				return fmt.Errorf("failed to credit recipient: %w", err)
			}

			debit, err := s.transactions.Append(ctx, tx, &model.Transaction{
				TransactionID: uuid.NewString(),
				UserID:        senderID,
				AppName:       appName,
				Type:          model.TxTypeSendGift,
				Status:        model.TxStatusCompleted,
				Amount:        -gift.CoinValue,
				BalanceBefore: sender.Balance,
				BalanceAfter:  senderAfter,
				GiftID:        &gift.GiftID,
				RecipientID:   &recipientID,
				PostID:        postID,
				Description:   message,
			})
			if err != nil {
				return fmt.Errorf("failed to append gift debit: %w", err)
			}

			if _, err := s.transactions.Append(ctx, tx, &model.Transaction{
				TransactionID: uuid.NewString(),
				UserID:        recipientID,
				AppName:       appName,
				Type:          model.TxTypeReceiveGift,
				Status:        model.TxStatusCompleted,
				Amount:        gift.CoinValue,
				BalanceBefore: recipient.Balance,
				BalanceAfter:  recipientAfter,
				GiftID:        &gift.GiftID,
				SenderID:      &senderID,
				PostID:        postID,
				Description:   message,
			}); err != nil {
				return fmt.Errorf("failed to append gift credit: %w", err)
			}

			result.TransactionID = debit.TransactionID
			result.SenderBalance = senderAfter
			result.RecipientBalance = recipientAfter
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sender_id", senderID).
		Str("recipient_id", recipientID).
		Str("app_name", appName).
		Str("gift_id", gift.GiftID).
		Int64("coin_value", gift.CoinValue).
		Msg("Gift sent")

	s.notifier.Push(app, senderID, "Gift sent", fmt.Sprintf("You sent a %s (%d coins)", gift.DisplayName, gift.CoinValue))
	s.notifier.Push(app, recipientID, "Gift received", fmt.Sprintf("You received a %s (%d coins)", gift.DisplayName, gift.CoinValue))

	return result, nil
}

// GetBalance returns the user's wallet for an app. Reads never provision:
// a user without a wallet yet sees a zero-balance view, and the row is
// created only by the first balance-affecting operation. Unknown apps and
// users the app does not recognize are errors, not empty wallets.
func (s *LedgerService) GetBalance(ctx context.Context, userID, appName string) (*model.Wallet, error) {
	app, err := resolveApp(ctx, s.apps, appName)
	if err != nil {
		return nil, err
	}
	if err := validateUser(ctx, s.registry, app, userID); err != nil {
		return nil, err
	}

	wallet, err := s.wallets.Get(ctx, s.pool, userID, appName)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return &model.Wallet{UserID: userID, AppName: appName}, nil
		}
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	return wallet, nil
}

// GetUserWallets lists a user's wallets across all apps. There is no app
// scope, so no registry validation applies.
func (s *LedgerService) GetUserWallets(ctx context.Context, userID string) ([]*model.Wallet, error) {
	wallets, err := s.wallets.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

// GetTransactionHistory returns the user's log entries for an app,
// newest first, with the total count for pagination.
func (s *LedgerService) GetTransactionHistory(ctx context.Context, userID, appName string, page model.Page) ([]*model.Transaction, int64, error) {
	app, err := resolveApp(ctx, s.apps, appName)
	if err != nil {
		return nil, 0, err
	}
	if err := validateUser(ctx, s.registry, app, userID); err != nil {
		return nil, 0, err
	}

	return s.transactions.ListByUser(ctx, userID, appName, page)
}

// GetUserTransactionStats returns the per-type rollup of a user's
// transaction log for an app.
func (s *LedgerService) GetUserTransactionStats(ctx context.Context, userID, appName string) ([]model.TypeStat, error) {
	app, err := resolveApp(ctx, s.apps, appName)
	if err != nil {
		return nil, err
	}
	if err := validateUser(ctx, s.registry, app, userID); err != nil {
		return nil, err
	}

	byType, err := s.transactions.AggregateByType(ctx, userID, appName)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	return byType, nil
}

// GetWalletStats returns the admin rollup for an app: wallet totals plus
// the per-type transaction aggregate.
func (s *LedgerService) GetWalletStats(ctx context.Context, appName string) (*model.WalletStats, []model.TypeStat, error) {
	if _, err := resolveApp(ctx, s.apps, appName); err != nil {
		return nil, nil, err
	}

	stats, err := s.wallets.StatsForApp(ctx, appName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get wallet stats: %w", err)
	}
	byType, err := s.transactions.AggregateForApp(ctx, appName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	return stats, byType, nil
}

// FreezeWallet blocks all balance mutations on a wallet. The balance and
// the transaction log are untouched.
func (s *LedgerService) FreezeWallet(ctx context.Context, userID, appName, reason string) (*model.Wallet, error) {
	app, err := resolveApp(ctx, s.apps, appName)
	if err != nil {
		return nil, err
	}
	if err := validateUser(ctx, s.registry, app, userID); err != nil {
		return nil, err
	}

	wallet, err := s.wallets.Freeze(ctx, userID, appName, reason)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to freeze wallet: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Str("app_name", appName).
		Str("reason", reason).
		Msg("Wallet frozen")
	return wallet, nil
}

// UnfreezeWallet lifts a freeze.
func (s *LedgerService) UnfreezeWallet(ctx context.Context, userID, appName string) (*model.Wallet, error) {
	app, err := resolveApp(ctx, s.apps, appName)
	if err != nil {
		return nil, err
	}
	if err := validateUser(ctx, s.registry, app, userID); err != nil {
		return nil, err
	}

	wallet, err := s.wallets.Unfreeze(ctx, userID, appName)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to unfreeze wallet: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Str("app_name", appName).
		Msg("Wallet unfrozen")
	return wallet, nil
}
