// Package model defines the data models for the wallet engine.
package model

import "time"

// Wallet represents a per-user, per-app coin balance record.
// The (UserID, AppName) pair is unique; wallets are created lazily on first
// touch and never deleted.
type Wallet struct {
	UserID            string     `db:"user_id"`
	AppName           string     `db:"app_name"`
	Balance           int64      `db:"balance"`
	TotalEarned       int64      `db:"total_earned"`
	TotalSpent        int64      `db:"total_spent"`
	TotalWithdrawn    int64      `db:"total_withdrawn"`
	IsFrozen          bool       `db:"is_frozen"`
	FreezeReason      *string    `db:"freeze_reason"`
	IsVerified        bool       `db:"is_verified"`
	VerificationLevel int        `db:"verification_level"`
	LastTransactionAt *time.Time `db:"last_transaction_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// Transaction represents a single balance-affecting event. Rows are
// append-only: amount and balance snapshots are never rewritten.
// Amount is signed, negative for debits.
type Transaction struct {
	ID                   int64          `db:"id"`
	TransactionID        string         `db:"transaction_id"`
	UserID               string         `db:"user_id"`
	AppName              string         `db:"app_name"`
	Type                 string         `db:"type"`
	Status               string         `db:"status"`
	Amount               int64          `db:"amount"`
	BalanceBefore        int64          `db:"balance_before"`
	BalanceAfter         int64          `db:"balance_after"`
	GiftID               *string        `db:"gift_id"`
	RecipientID          *string        `db:"recipient_user_id"`
	SenderID             *string        `db:"sender_user_id"`
	PostID               *string        `db:"post_id"`
	WithdrawalID         *string        `db:"withdrawal_id"`
	AdminUserID          *string        `db:"admin_user_id"`
	PaymentGateway       *string        `db:"payment_gateway"`
	PaymentTransactionID *string        `db:"payment_transaction_id"`
	Description          *string        `db:"description"`
	ErrorMessage         *string        `db:"error_message"`
	Metadata             map[string]any `db:"metadata"`
	CreatedAt            time.Time      `db:"created_at"`
}

// Withdrawal represents a cash-out request subject to admin review.
// BalanceBefore/BalanceAfter are the wallet snapshot taken when the request
// was created; the coins are held (debited) for the lifetime of the request.
type Withdrawal struct {
	ID              int64          `db:"id"`
	WithdrawalID    string         `db:"withdrawal_id"`
	UserID          string         `db:"user_id"`
	AppName         string         `db:"app_name"`
	CoinAmount      int64          `db:"coin_amount"`
	BalanceBefore   int64          `db:"balance_before"`
	BalanceAfter    int64          `db:"balance_after"`
	Status          string         `db:"status"`
	AdminUserID     *string        `db:"admin_user_id"`
	ReviewedAt      *time.Time     `db:"reviewed_at"`
	ReviewNotes     *string        `db:"review_notes"`
	RejectionReason *string        `db:"rejection_reason"`
	Metadata        map[string]any `db:"metadata"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// Gift is a catalog item with a fixed coin cost. Read-only to the ledger.
type Gift struct {
	GiftID      string    `db:"gift_id"`
	Name        string    `db:"name"`
	DisplayName string    `db:"display_name"`
	CoinValue   int64     `db:"coin_value"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

// ResourceApp maps a registered application name to the external endpoints
// used for identity validation, withdrawal eligibility, and notifications.
type ResourceApp struct {
	AppName              string    `db:"app_name"`
	ProfileEndpoint      string    `db:"profile_endpoint"`
	VerificationEndpoint string    `db:"verification_endpoint"`
	NotificationEndpoint string    `db:"notification_endpoint"`
	CreatedAt            time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeCharge          = "charge"           // External top-up credit
	TxTypeSendGift        = "send_gift"        // Gift transfer debit (sender side)
	TxTypeReceiveGift     = "receive_gift"     // Gift transfer credit (recipient side)
	TxTypeWithdraw        = "withdraw"         // Withdrawal hold debit
	TxTypeAdminAdjustment = "admin_adjustment" // Admin correction, e.g. rejected-withdrawal recredit
)

// Transaction statuses.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusCancelled = "cancelled"
)

// Withdrawal statuses. pending is the only state an admin transition may
// leave; approved/rejected/processed never return to pending.
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusApproved  = "approved"
	WithdrawalStatusRejected  = "rejected"
	WithdrawalStatusProcessed = "processed"
)

// WalletStats is the per-app wallet rollup returned to admins.
type WalletStats struct {
	TotalWallets    int64 `db:"total_wallets"`
	TotalBalance    int64 `db:"total_balance"`
	TotalEarned     int64 `db:"total_earned"`
	TotalSpent      int64 `db:"total_spent"`
	TotalWithdrawn  int64 `db:"total_withdrawn"`
	FrozenWallets   int64 `db:"frozen_wallets"`
	VerifiedWallets int64 `db:"verified_wallets"`
}

// TypeStat is a per-transaction-type sum/count rollup.
type TypeStat struct {
	Type        string `db:"type"`
	Count       int64  `db:"count"`
	TotalAmount int64  `db:"total_amount"`
}

// WithdrawalStats is the per-app withdrawal rollup returned to admins.
type WithdrawalStats struct {
	TotalWithdrawals int64      `db:"total_withdrawals"`
	TotalAmount      int64      `db:"total_amount"`
	ByStatus         []TypeStat `db:"-"`
}

// Page describes a paginated listing request. Values are normalized by the
// repositories: page >= 1, 1 <= limit <= 100.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}
