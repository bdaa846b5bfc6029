package helpers

import (
	"sync/atomic"
	"time"

	"github.com/krti/uavcore/helpers/atomic_clock"
)

// Limited exponential backoff gating retries in a non-blocking poll loop.
// Unlike sleep based designs, nothing here blocks: callers poll Ready()
// each tick and attempt the operation only when it returns true.
// First attempt is always allowed. Failure() increases the next delay by K.
type Backoff struct {
	next int64 // atomic align
	last atomic_clock.Clock

	Min time.Duration
	Max time.Duration
	K   float32

	Now func() int64 // timestamp source override for tests, ns
}

// Use scenario:
// if backoff.Ready() {
//   err := op()
//   backoff.Update(err == nil)
// }
func (b *Backoff) Ready() bool {
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next == 0 {
		return true
	}
	since := time.Duration(b.now() - b.last.UnixNano())
	return since >= b.limit(next)
}

// Current delay between attempts. Zero before the first failure.
func (b *Backoff) Current() time.Duration {
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next == 0 {
		return 0
	}
	return b.limit(next)
}

// Increase delay before next Ready()
func (b *Backoff) Failure() {
	next := time.Duration(atomic.LoadInt64(&b.next))
	next = time.Duration(float32(next) * b.K)
	next = b.limit(next)
	b.last.Set(b.now())
	atomic.StoreInt64(&b.next, int64(next))
}

func (b *Backoff) Reset() {
	b.last.Set(b.now())
	atomic.StoreInt64(&b.next, int64(b.Min))
}

func (b *Backoff) Update(success bool) {
	if success {
		b.Reset()
	} else {
		b.Failure()
	}
}

func (b *Backoff) now() int64 {
	if b.Now != nil {
		return b.Now()
	}
	return atomic_clock.Source()
}

func (b *Backoff) limit(d time.Duration) time.Duration {
	if d < b.Min {
		d = b.Min
	}
	if d > b.Max {
		d = b.Max
	}
	return d
}
