package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/acmduel/duelbot/internal/judge"
)

// Fetcher is the slice of the judge client the catalog needs.
type Fetcher interface {
	ProblemSet(ctx context.Context) ([]judge.Problem, error)
}

// Notifier receives operator escalations when a refresh exhausts its
// retries and there is no previous cache to keep serving.
type Notifier interface {
	NotifyOperator(ctx context.Context, msg string)
}

// LogNotifier escalates to the error log. The chat transport can provide a
// richer implementation.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) NotifyOperator(_ context.Context, msg string) {
	n.Log.Error("operator notification", "msg", msg)
}

// Catalog is the shared read-mostly problem cache. Refreshes replace the
// set wholesale under the write lock; readers never observe a partial
// catalog.
type Catalog struct {
	mu       sync.RWMutex
	problems []judge.Problem

	fetcher  Fetcher
	notifier Notifier
	retries  int
	log      *slog.Logger
}

func New(fetcher Fetcher, notifier Notifier, retries int, log *slog.Logger) *Catalog {
	if retries < 1 {
		retries = 1
	}
	return &Catalog{
		fetcher:  fetcher,
		notifier: notifier,
		retries:  retries,
		log:      log,
	}
}

// Refresh fetches the full problem set and swaps it in atomically.
// On error the previous cache (possibly absent) stays in place.
func (c *Catalog) Refresh(ctx context.Context) error {
	problems, err := c.fetcher.ProblemSet(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.problems = problems
	c.mu.Unlock()

	c.log.Info("catalog refreshed", "problems", len(problems))
	return nil
}

// RefreshWithRetry drives the scheduled refresh: bounded attempts, then an
// operator escalation if retries exhaust and no cache exists yet. A stale
// cache without escalation is fine; an empty one is not.
func (c *Catalog) RefreshWithRetry(ctx context.Context) {
	var err error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if err = c.Refresh(ctx); err == nil {
			return
		}
		c.log.Warn("catalog refresh failed", "attempt", attempt, "err", err)
	}

	if c.Size() == 0 {
		c.notifier.NotifyOperator(ctx, "problem catalog refresh failed and no cache is available: "+err.Error())
	}
}

// Problems returns the cached set, fetching it first if the cache is empty.
// The returned slice is shared; callers must not mutate it.
func (c *Catalog) Problems(ctx context.Context) ([]judge.Problem, error) {
	c.mu.RLock()
	problems := c.problems
	c.mu.RUnlock()

	if len(problems) > 0 {
		return problems, nil
	}

	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.problems, nil
}

// Size returns the number of cached problems without triggering a fetch.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.problems)
}
