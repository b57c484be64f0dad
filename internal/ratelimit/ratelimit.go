package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter throttles calls to named external APIs. Each name gets its own
// permit pool of Burst permits; a permit is handed back only Gap after the
// caller releases it, which enforces a minimum inter-call spacing instead of
// letting callers burst and starve. Callers without a free permit queue on
// the pool (or bail out when their context is done).
type Limiter struct {
	mu    sync.Mutex
	pools map[string]chan struct{}
	gap   time.Duration
	burst int
}

// New creates a Limiter. burst < 1 is treated as 1.
func New(gap time.Duration, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		pools: make(map[string]chan struct{}),
		gap:   gap,
		burst: burst,
	}
}

// Acquire blocks until a permit for the named API is available or ctx is
// done. The returned release func must be called exactly once when the call
// finishes; the permit re-enters the pool after the configured gap.
func (l *Limiter) Acquire(ctx context.Context, api string) (func(), error) {
	pool := l.pool(api)

	select {
	case <-pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if l.gap <= 0 {
				pool <- struct{}{}
				return
			}
			time.AfterFunc(l.gap, func() {
				pool <- struct{}{}
			})
		})
	}
	return release, nil
}

// Do runs f under a permit for the named API.
func (l *Limiter) Do(ctx context.Context, api string, f func() error) error {
	release, err := l.Acquire(ctx, api)
	if err != nil {
		return err
	}
	defer release()
	return f()
}

func (l *Limiter) pool(api string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	pool, ok := l.pools[api]
	if !ok {
		pool = make(chan struct{}, l.burst)
		for i := 0; i < l.burst; i++ {
			pool <- struct{}{}
		}
		l.pools[api] = pool
	}
	return pool
}
