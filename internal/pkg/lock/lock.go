// Package lock provides per-key locking for concurrent ledger operations.
// Ledger mutations for a single account must be serialized, but unrelated
// accounts must never contend on a shared lock.
package lock

import "sync"

// keyMutex wraps a mutex with reference counting for pooling.
type keyMutex struct {
	mu       sync.Mutex
	refCount int
}

// KeyLock provides per-key mutual exclusion. Keys are opaque account or
// scope identifiers.
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

// getLock retrieves or creates a mutex for the given key.
func (kl *KeyLock) getLock(key string) *keyMutex {
	if v, ok := kl.locks.Load(key); ok {
		return v.(*keyMutex)
	}

	newLock := kl.pool.Get().(*keyMutex)
	newLock.refCount = 0

	actual, loaded := kl.locks.LoadOrStore(key, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		kl.pool.Put(newLock)
	}
	return actual.(*keyMutex)
}

// Lock acquires the lock for a key.
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

// WithPairLock executes a function while holding the locks for two keys.
// Locks are always acquired in lexicographic key order so that concurrent
// transfers between the same pair of accounts cannot deadlock.
func (kl *KeyLock) WithPairLock(a, b string, fn func() error) error {
	if a == b {
		return kl.WithLock(a, fn)
	}
	first, second := a, b
	if b < a {
		first, second = b, a
	}
	kl.Lock(first)
	defer kl.Unlock(first)
	kl.Lock(second)
	defer kl.Unlock(second)
	return fn()
}
