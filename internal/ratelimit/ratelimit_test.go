package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_EnforcesGap(t *testing.T) {
	limiter := New(100*time.Millisecond, 1)
	ctx := context.Background()

	start := time.Now()

	release, err := limiter.Acquire(ctx, "user.status")
	require.NoError(t, err)
	release()

	// Second acquire must wait for the deferred permit release.
	release, err = limiter.Acquire(ctx, "user.status")
	require.NoError(t, err)
	release()

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiter_BurstAllowsParallelPermits(t *testing.T) {
	limiter := New(time.Second, 2)
	ctx := context.Background()

	start := time.Now()
	r1, err := limiter.Acquire(ctx, "user.status")
	require.NoError(t, err)
	r2, err := limiter.Acquire(ctx, "user.status")
	require.NoError(t, err)

	// Two permits available up front, no waiting.
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	r1()
	r2()
}

func TestLimiter_SeparatePoolsPerAPI(t *testing.T) {
	limiter := New(time.Second, 1)
	ctx := context.Background()

	r1, err := limiter.Acquire(ctx, "user.status")
	require.NoError(t, err)
	defer r1()

	// Different API name has its own pool.
	start := time.Now()
	r2, err := limiter.Acquire(ctx, "problemset.problems")
	require.NoError(t, err)
	defer r2()
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestLimiter_ContextCancel(t *testing.T) {
	limiter := New(time.Minute, 1)

	release, err := limiter.Acquire(context.Background(), "user.status")
	require.NoError(t, err)
	release() // permit comes back in a minute, far beyond the test timeout

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = limiter.Acquire(ctx, "user.status")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiter_ReleaseIdempotent(t *testing.T) {
	limiter := New(10*time.Millisecond, 1)
	ctx := context.Background()

	release, err := limiter.Acquire(ctx, "user.status")
	require.NoError(t, err)
	release()
	release() // double release must not inject a second permit

	time.Sleep(50 * time.Millisecond)

	r1, err := limiter.Acquire(ctx, "user.status")
	require.NoError(t, err)
	defer r1()

	ctx2, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = limiter.Acquire(ctx2, "user.status")
	assert.Error(t, err, "pool must hold a single permit")
}

func TestLimiter_Do(t *testing.T) {
	limiter := New(0, 1)

	called := false
	err := limiter.Do(context.Background(), "user.status", func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
