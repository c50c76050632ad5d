// Package lock provides per-wallet locking for concurrent balance operations.
// Keys are wallet identifiers (appName + "/" + userId); all read-modify-write
// balance sequences for a wallet must run under its key's lock.
package lock

import "sync"

// keyMutex wraps a mutex with reference counting for cleanup.
type keyMutex struct {
	mu       sync.Mutex
	refCount int
}

// KeyLock provides per-key locking to prevent race conditions
// during balance operations.
type KeyLock struct {
	locks sync.Map // map[string]*keyMutex
	pool  sync.Pool
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{
		pool: sync.Pool{
			New: func() any {
				return &keyMutex{}
			},
		},
	}
}

// Key builds the canonical lock key for a wallet.
func Key(appName, userID string) string {
	return appName + "/" + userID
}

// getLock retrieves or creates a mutex for the given key.
func (kl *KeyLock) getLock(key string) *keyMutex {
	// Try to load existing lock
	if v, ok := kl.locks.Load(key); ok {
		return v.(*keyMutex)
	}

	// Create new lock from pool
	newLock := kl.pool.Get().(*keyMutex)
	newLock.refCount = 0

	// Store or load existing (handles race condition)
	actual, loaded := kl.locks.LoadOrStore(key, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		kl.pool.Put(newLock)
	}
	return actual.(*keyMutex)
}

// Lock acquires the lock for a key.
// This must be called before any balance-modifying operation.
func (kl *KeyLock) Lock(key string) {
	lock := kl.getLock(key)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for a key.
func (kl *KeyLock) Unlock(key string) {
	if v, ok := kl.locks.Load(key); ok {
		lock := v.(*keyMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (kl *KeyLock) TryLock(key string) bool {
	lock := kl.getLock(key)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// WithLock executes a function while holding the key's lock.
func (kl *KeyLock) WithLock(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockPair executes a function while holding both keys' locks.
// Locks are always acquired in lexicographic key order so that two
// concurrent pair operations touching the same wallets in opposite
// directions cannot deadlock. The two keys must differ.
func (kl *KeyLock) WithLockPair(a, b string, fn func() error) error {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	kl.Lock(first)
	defer kl.Unlock(first)
	kl.Lock(second)
	defer kl.Unlock(second)
	return fn()
}
