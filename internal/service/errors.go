package service

import "errors"

// Errors surfaced by the ledger and withdrawal services. Handlers map these
// onto HTTP statuses; everything else that escapes a service is an internal
// failure.
var (
	ErrAppNotFound        = errors.New("app not registered")
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrNotPending         = errors.New("withdrawal is not pending")

	ErrInvalidAmount       = errors.New("invalid amount: must be positive")
	ErrInvalidUser         = errors.New("user not recognized by resource app")
	ErrSelfGift            = errors.New("cannot send a gift to yourself")
	ErrInvalidGift         = errors.New("gift not found or inactive")
	ErrFrozenWallet        = errors.New("wallet is frozen")
	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrEligibilityDenied       = errors.New("user not eligible for withdrawal")
	ErrBelowMinimum            = errors.New("amount below minimum withdrawal")
	ErrDailyLimitExceeded      = errors.New("daily withdrawal request limit reached")
	ErrPendingWithdrawalExists = errors.New("a pending withdrawal already exists")

	ErrExternalService = errors.New("resource app call failed")
)
