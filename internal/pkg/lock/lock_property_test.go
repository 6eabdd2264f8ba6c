package lock

import (
	"fmt"
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestConcurrentMutationSafetyProperty checks that per-key locking makes
// concurrent read-modify-write sequences on the same key equivalent to
// sequential execution.
func TestConcurrentMutationSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(1000, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		amounts := make([]int64, numOps)
		expected := initial
		for i := 0; i < numOps; i++ {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expected += amounts[i]
		}

		key := fmt.Sprintf("acct-%d", rapid.Int64Range(1, 1000000).Draw(t, "key"))

		kl := NewKeyLock()
		balance := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				kl.Lock(key)
				defer kl.Unlock(key)
				balance += amount
			}(amount)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance mismatch with locking: expected %d, got %d (initial=%d, numOps=%d)",
				expected, balance, initial, numOps)
		}
	})
}

// TestWithPairLockNoDeadlockProperty checks that transfers between the same
// two keys, started from both directions concurrently, always complete and
// keep the combined total constant.
func TestWithPairLockNoDeadlockProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numTransfers := rapid.IntRange(2, 30).Draw(t, "numTransfers")

		kl := NewKeyLock()
		balances := map[string]int64{"a": 10000, "b": 10000}

		var wg sync.WaitGroup
		wg.Add(numTransfers)
		for i := 0; i < numTransfers; i++ {
			from, to := "a", "b"
			if i%2 == 1 {
				from, to = "b", "a"
			}
			go func(from, to string) {
				defer wg.Done()
				_ = kl.WithPairLock(from, to, func() error {
					balances[from] -= 10
					balances[to] += 10
					return nil
				})
			}(from, to)
		}
		wg.Wait()

		total := balances["a"] + balances["b"]
		if total != 20000 {
			t.Fatalf("combined total changed under concurrent transfers: got %d", total)
		}
	})
}

// TestTryLockExcludesHolder checks that TryLock fails while another goroutine
// holds the key and succeeds once it is released.
func TestTryLockExcludesHolder(t *testing.T) {
	kl := NewKeyLock()

	kl.Lock("scope-1")
	if kl.TryLock("scope-1") {
		t.Fatal("TryLock succeeded while key was held")
	}
	if !kl.TryLock("scope-2") {
		t.Fatal("TryLock failed on an unrelated key")
	}
	kl.Unlock("scope-2")
	kl.Unlock("scope-1")

	if !kl.TryLock("scope-1") {
		t.Fatal("TryLock failed after key was released")
	}
	kl.Unlock("scope-1")
}
