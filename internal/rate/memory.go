package rate

import (
	"context"
	"sync"
	"time"
)

// pruneEvery controls how often idle keys are swept from the map.
const pruneEvery = 1024

// MemoryBackend keeps a time-ordered queue of attempts per key.
type MemoryBackend struct {
	mu     sync.Mutex
	policy Policy
	hits   map[string][]time.Time
	calls  int
	now    func() time.Time
}

// NewMemoryBackend returns an in-process backend.
func NewMemoryBackend(policy Policy) *MemoryBackend {
	return &MemoryBackend{
		policy: policy,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (b *MemoryBackend) Allow(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	cutoff := now.Add(-b.policy.Window)

	b.calls++
	if b.calls%pruneEvery == 0 {
		b.pruneLocked(cutoff)
	}

	queue := evict(b.hits[key], cutoff)
	if len(queue) >= b.policy.MaxRequests {
		b.hits[key] = queue
		return false, nil
	}
	b.hits[key] = append(queue, now)
	return true, nil
}

func (b *MemoryBackend) Reset(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.hits, key)
	return nil
}

// Keys returns the number of tracked keys.
func (b *MemoryBackend) Keys() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.hits)
}

func (b *MemoryBackend) pruneLocked(cutoff time.Time) {
	for key, queue := range b.hits {
		queue = evict(queue, cutoff)
		if len(queue) == 0 {
			delete(b.hits, key)
			continue
		}
		b.hits[key] = queue
	}
}

// evict drops entries at or before cutoff. Entries are appended in time
// order, so the first survivor ends the scan.
func evict(queue []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(queue) && !queue[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return queue
	}
	return append(queue[:0], queue[i:]...)
}
