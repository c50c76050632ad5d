// Property-based tests for the withdrawal request policy and the
// hold/refund balance arithmetic.
package service

import (
	"errors"
	"testing"

	"pgregory.net/rapid"
)

// withdrawalInput describes the wallet and policy state a request sees.
type withdrawalInput struct {
	Balance      int64
	Amount       int64
	Frozen       bool
	PendingCount int64
	TodayCount   int64
	Policy       WithdrawalPolicy
}

// simulateCreateWithdrawal mirrors the validation and hold logic in
// WithdrawalService.Create, minus persistence and external calls.
func simulateCreateWithdrawal(in withdrawalInput) (int64, error) {
	if in.Amount <= 0 {
		return in.Balance, ErrInvalidAmount
	}
	if in.Frozen {
		return in.Balance, ErrFrozenWallet
	}
	if in.Balance < in.Amount {
		return in.Balance, ErrInsufficientBalance
	}
	if in.PendingCount > 0 {
		return in.Balance, ErrPendingWithdrawalExists
	}
	if in.Amount < in.Policy.MinAmount {
		return in.Balance, ErrBelowMinimum
	}
	if in.TodayCount >= in.Policy.DailyLimit {
		return in.Balance, ErrDailyLimitExceeded
	}
	return in.Balance - in.Amount, nil
}

var testPolicy = WithdrawalPolicy{MinAmount: 100, DailyLimit: 3}

// TestWithdrawalHoldProperty: a granted request holds exactly the requested
// amount and never drives the balance negative.
func TestWithdrawalHoldProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := rapid.Int64Range(testPolicy.MinAmount, 1000000).Draw(t, "amount")
		balance := rapid.Int64Range(amount, 10000000).Draw(t, "balance")
		today := rapid.Int64Range(0, testPolicy.DailyLimit-1).Draw(t, "todayCount")

		after, err := simulateCreateWithdrawal(withdrawalInput{
			Balance:    balance,
			Amount:     amount,
			TodayCount: today,
			Policy:     testPolicy,
		})
		if err != nil {
			t.Fatalf("Request should be granted: %v", err)
		}
		if balance-after != amount {
			t.Fatalf("Hold mismatch: balance %d -> %d, amount %d", balance, after, amount)
		}
		if after < 0 {
			t.Fatalf("Balance went negative: %d", after)
		}
	})
}

// TestWithdrawalPolicyProperty checks the rejection priority (frozen
// wallet, insufficient balance, duplicate pending, minimum amount, daily
// cap) and that every rejection leaves the balance untouched.
func TestWithdrawalPolicyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := withdrawalInput{
			Balance:      rapid.Int64Range(0, 1000000).Draw(t, "balance"),
			Amount:       rapid.Int64Range(-10, 2000000).Draw(t, "amount"),
			Frozen:       rapid.Bool().Draw(t, "frozen"),
			PendingCount: rapid.Int64Range(0, 2).Draw(t, "pendingCount"),
			TodayCount:   rapid.Int64Range(0, 5).Draw(t, "todayCount"),
			Policy:       testPolicy,
		}

		after, err := simulateCreateWithdrawal(in)

		var want error
		switch {
		case in.Amount <= 0:
			want = ErrInvalidAmount
		case in.Frozen:
			want = ErrFrozenWallet
		case in.Balance < in.Amount:
			want = ErrInsufficientBalance
		case in.PendingCount > 0:
			want = ErrPendingWithdrawalExists
		case in.Amount < in.Policy.MinAmount:
			want = ErrBelowMinimum
		case in.TodayCount >= in.Policy.DailyLimit:
			want = ErrDailyLimitExceeded
		}

		if want == nil {
			if err != nil {
				t.Fatalf("Expected success, got %v", err)
			}
			return
		}
		if !errors.Is(err, want) {
			t.Fatalf("Expected %v, got %v (input %+v)", want, err, in)
		}
		if after != in.Balance {
			t.Fatalf("Balance changed on rejection: %d -> %d", in.Balance, after)
		}
	})
}

// TestWithdrawalRefundProperty: rejecting a held withdrawal restores the
// wallet to its pre-request balance regardless of intervening activity.
func TestWithdrawalRefundProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := rapid.Int64Range(testPolicy.MinAmount, 1000000).Draw(t, "amount")
		balance := rapid.Int64Range(amount, 10000000).Draw(t, "balance")
		// Activity between request and rejection (charges, gifts received)
		drift := rapid.Int64Range(0, 1000000).Draw(t, "drift")

		held, err := simulateCreateWithdrawal(withdrawalInput{
			Balance: balance,
			Amount:  amount,
			Policy:  testPolicy,
		})
		if err != nil {
			t.Fatalf("Request should be granted: %v", err)
		}

		current := held + drift
		refunded := current + amount

		if refunded != balance+drift {
			t.Fatalf("Refund does not restore the hold: start=%d drift=%d refunded=%d",
				balance, drift, refunded)
		}
	})
}
