// Package lock provides per-wallet locking for concurrent balance operations.
// Property-based tests for concurrent balance safety.
package lock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"pgregory.net/rapid"
)

// TestConcurrentBalanceSafetyProperty verifies that concurrent balance
// operations on the same wallet key, when serialized by the lock, end up
// consistent with sequential execution of all operations.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// Generate initial balance
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")

		// Generate number of concurrent operations (2-20)
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		// Generate operations (mix of credits and debits)
		amounts := make([]int64, numOps)
		expectedFinalBalance := initialBalance
		for i := 0; i < numOps; i++ {
			amount := rapid.Int64Range(-500, 500).Draw(t, "amount")
			amounts[i] = amount
			expectedFinalBalance += amount
		}

		userID := rapid.StringMatching(`[a-z0-9]{8,24}`).Draw(t, "userID")
		key := Key("demo-app", userID)

		kl := NewKeyLock()

		balance := initialBalance

		// Execute operations concurrently WITH locking
		var wg sync.WaitGroup
		wg.Add(numOps)

		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				kl.Lock(key)
				defer kl.Unlock(key)
				// Simulate balance update (read-modify-write)
				balance += amount
			}(amount)
		}

		wg.Wait()

		// Property: Final balance should equal expected (sequential execution result)
		if balance != expectedFinalBalance {
			t.Fatalf("Balance mismatch with locking: expected %d, got %d (initial=%d, numOps=%d)",
				expectedFinalBalance, balance, initialBalance, numOps)
		}
	})
}

// TestWithLockFunctionProperty tests that WithLock correctly serializes operations.
func TestWithLockFunctionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")
		amountPerOp := rapid.Int64Range(1, 100).Draw(t, "amountPerOp")

		expectedFinalBalance := initialBalance + int64(numOps)*amountPerOp

		key := Key("demo-app", rapid.StringMatching(`[a-z0-9]{8,24}`).Draw(t, "userID"))

		kl := NewKeyLock()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(numOps)

		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = kl.WithLock(key, func() error {
					balance += amountPerOp
					return nil
				})
			}()
		}

		wg.Wait()

		if balance != expectedFinalBalance {
			t.Fatalf("Balance mismatch with WithLock: expected %d, got %d",
				expectedFinalBalance, balance)
		}
	})
}

// TestPairLockConservationProperty simulates concurrent transfers in both
// directions between two wallets. Ordered pair acquisition must neither
// deadlock nor lose updates, and total balance is conserved.
func TestPairLockConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balanceA := rapid.Int64Range(10000, 100000).Draw(t, "balanceA")
		balanceB := rapid.Int64Range(10000, 100000).Draw(t, "balanceB")
		numTransfers := rapid.IntRange(2, 30).Draw(t, "numTransfers")

		keyA := Key("demo-app", "user-a")
		keyB := Key("demo-app", "user-b")

		kl := NewKeyLock()
		total := balanceA + balanceB

		var wg sync.WaitGroup
		wg.Add(numTransfers)

		for i := 0; i < numTransfers; i++ {
			// Alternate direction to exercise opposite lock orderings.
			aToB := i%2 == 0
			go func(aToB bool) {
				defer wg.Done()
				from, to := keyA, keyB
				if !aToB {
					from, to = keyB, keyA
				}
				_ = kl.WithLockPair(from, to, func() error {
					if aToB {
						balanceA -= 10
						balanceB += 10
					} else {
						balanceB -= 10
						balanceA += 10
					}
					return nil
				})
			}(aToB)
		}

		wg.Wait()

		if balanceA+balanceB != total {
			t.Fatalf("Total balance not conserved: expected %d, got %d", total, balanceA+balanceB)
		}
	})
}

// TestMultipleWalletsIndependentLocksProperty tests that locks for different
// wallet keys are independent and don't block each other unnecessarily.
func TestMultipleWalletsIndependentLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numWallets := rapid.IntRange(2, 10).Draw(t, "numWallets")
		opsPerWallet := rapid.IntRange(5, 20).Draw(t, "opsPerWallet")

		initialBalances := make(map[string]int64)
		expectedBalances := make(map[string]int64)
		for i := 0; i < numWallets; i++ {
			key := Key("demo-app", fmt.Sprintf("user-%d", i+1))
			balance := rapid.Int64Range(1000, 10000).Draw(t, "initialBalance")
			initialBalances[key] = balance
			expectedBalances[key] = balance + int64(opsPerWallet)*10 // Each op adds 10
		}

		kl := NewKeyLock()

		balances := make(map[string]*int64)
		for key, balance := range initialBalances {
			b := balance
			balances[key] = &b
		}

		var wg sync.WaitGroup
		wg.Add(numWallets * opsPerWallet)

		for key := range initialBalances {
			for j := 0; j < opsPerWallet; j++ {
				go func(k string) {
					defer wg.Done()
					kl.Lock(k)
					defer kl.Unlock(k)
					*balances[k] += 10
				}(key)
			}
		}

		wg.Wait()

		for key := range initialBalances {
			if *balances[key] != expectedBalances[key] {
				t.Fatalf("Wallet %s balance mismatch: expected %d, got %d",
					key, expectedBalances[key], *balances[key])
			}
		}
	})
}

// TestTryLockProperty tests that TryLock never admits two holders at once.
func TestTryLockProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := Key("demo-app", rapid.StringMatching(`[a-z0-9]{8,24}`).Draw(t, "userID"))
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")

		kl := NewKeyLock()

		var successCount atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numAttempts)

		startCh := make(chan struct{})

		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-startCh

				if kl.TryLock(key) {
					successCount.Add(1)
					kl.Unlock(key)
				}
			}()
		}

		close(startCh)
		wg.Wait()

		// Property: At least one should succeed (the first one to try)
		if successCount.Load() < 1 {
			t.Fatalf("At least one TryLock should succeed, got %d successes", successCount.Load())
		}

		// Property: After all operations complete, lock should be available
		if !kl.TryLock(key) {
			t.Fatal("Lock should be available after all operations complete")
		}
		kl.Unlock(key)
	})
}

// TestLockUnlockSymmetryProperty tests that every Lock has a corresponding Unlock.
func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := Key("demo-app", rapid.StringMatching(`[a-z0-9]{8,24}`).Draw(t, "userID"))
		numCycles := rapid.IntRange(1, 50).Draw(t, "numCycles")

		kl := NewKeyLock()

		for i := 0; i < numCycles; i++ {
			kl.Lock(key)
			kl.Unlock(key)
		}

		if !kl.TryLock(key) {
			t.Fatal("Lock should be available after symmetric lock/unlock cycles")
		}
		kl.Unlock(key)
	})
}
