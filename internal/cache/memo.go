// Package cache memoizes expensive keyed external operations for the
// lifetime of a process. Run lifetimes are short and keys are
// batch-scoped, so there is no eviction; a long-lived service embedding
// this should add a TTL or size bound.
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Recorder receives the cost of each executed (non-cached) operation.
type Recorder func(costUSD float64)

// Memo is a process-local cache for one result type. The first call for
// a key executes the operation and records its cost estimate; later
// calls return the stored result without re-invoking or re-charging.
// Concurrent misses for the same key are collapsed to one execution.
type Memo[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
	sf      singleflight.Group
	record  Recorder
}

// NewMemo creates an empty Memo. record may be nil when no cost
// accounting is needed.
func NewMemo[T any](record Recorder) *Memo[T] {
	return &Memo[T]{
		entries: make(map[string]T),
		record:  record,
	}
}

// Do returns the cached result for key, executing fn exactly once per
// key on a miss. Failed operations are not cached, so a later call with
// the same key retries. The boolean reports whether the result was
// served without running fn on this caller's behalf: false only for the
// one caller whose flight actually ran the operation.
func (m *Memo[T]) Do(ctx context.Context, key string, costUSD float64, fn func(ctx context.Context) (T, error)) (T, bool, error) {
	if val, ok := m.lookup(key); ok {
		return val, true, nil
	}

	executed := false
	res, err, _ := m.sf.Do(key, func() (any, error) {
		// Re-check under the flight: a caller that missed the map may
		// enter here after an earlier flight already stored the value.
		if v, ok := m.lookup(key); ok {
			return v, nil
		}

		executed = true
		v, fnErr := fn(ctx)
		if fnErr != nil {
			return nil, fnErr
		}
		if m.record != nil {
			m.record(costUSD)
		}
		m.mu.Lock()
		m.entries[key] = v
		m.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return res.(T), !executed, nil
}

func (m *Memo[T]) lookup(key string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

// Len returns the number of cached entries.
func (m *Memo[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
