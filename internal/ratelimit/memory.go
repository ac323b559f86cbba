package ratelimit

import (
	"sync"
	"time"
)

type memoryBucket struct {
	tokens float64
	last   time.Time
}

// MemoryBucket mirrors the redis bucket in process memory. State resets
// on restart, which is acceptable for a best-effort login throttle.
type MemoryBucket struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket
	now     func() time.Time
}

func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{
		buckets: make(map[string]*memoryBucket),
		now:     time.Now,
	}
}

func (m *MemoryBucket) Allow(key string, rate float64, burst int) bool {
	if key == "" || rate <= 0 || burst <= 0 {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok {
		b = &memoryBucket{tokens: float64(burst), last: now}
		m.buckets[key] = b
	} else {
		delta := now.Sub(b.last).Seconds()
		if delta < 0 {
			delta = 0
		}
		b.tokens += delta * rate
		if b.tokens > float64(burst) {
			b.tokens = float64(burst)
		}
		b.last = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
