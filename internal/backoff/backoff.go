// Package backoff computes jittered exponential delays between retries of a
// failing periodic job.
package backoff

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Backoff grows from min to max by multiplier on every Next, with ±20% jitter.
// It is safe for concurrent use.
type Backoff struct {
	mu         sync.Mutex
	minDelay   time.Duration
	maxDelay   time.Duration
	multiplier float64
	current    time.Duration
	attempts   int
}

func New(min, max time.Duration, multiplier float64) *Backoff {
	if max < min {
		max = min
	}
	if multiplier < 1 {
		multiplier = 1
	}
	return &Backoff{minDelay: min, maxDelay: max, multiplier: multiplier, current: min}
}

// Next returns the delay before the next attempt and advances the schedule.
// The result never drops below min nor exceeds max by more than the jitter.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attempts++
	jitter := time.Duration((rand.Float64()*0.4 - 0.2) * float64(b.current))
	wait := max(b.current+jitter, b.minDelay)
	b.current = min(time.Duration(float64(b.current)*b.multiplier), b.maxDelay)
	return wait
}

func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.minDelay
	b.attempts = 0
}

func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}
