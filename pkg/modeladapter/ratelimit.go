package modeladapter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

var _ Completer = (*LimitedCompleter)(nil)

// DefaultMaxConcurrent is the in-flight ceiling used when none is configured.
const DefaultMaxConcurrent = 4

// LimitOpts configures the LimitedCompleter.
type LimitOpts struct {
	MaxConcurrent int // Calls allowed in flight at once (default 4).
	RPM           int // Requests per minute (0 = no limit).
}

// LimitedCompleter wraps a Completer with a ceiling on concurrent calls and an
// optional requests-per-minute sliding window. It never retries.
type LimitedCompleter struct {
	inner Completer
	sem   *semaphore.Weighted
	max   int

	mu     sync.Mutex
	window []time.Time
	rpm    int

	fallbackTracker Tracker

	// nowFunc is used for testing; defaults to time.Now.
	nowFunc func() time.Time
	// sleepFunc is used for testing; defaults to a context-aware sleep.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewLimitedCompleter wraps inner with the given limits.
func NewLimitedCompleter(inner Completer, opts LimitOpts) *LimitedCompleter {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}

	return &LimitedCompleter{
		inner:     inner,
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		max:       opts.MaxConcurrent,
		rpm:       opts.RPM,
		nowFunc:   time.Now,
		sleepFunc: contextSleep,
	}
}

// SetNowFunc overrides the time source (for testing).
func (l *LimitedCompleter) SetNowFunc(fn func() time.Time) { l.nowFunc = fn }

// SetSleepFunc overrides the sleep function (for testing).
func (l *LimitedCompleter) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	l.sleepFunc = fn
}

// MaxConcurrent returns the in-flight ceiling.
func (l *LimitedCompleter) MaxConcurrent() int { return l.max }

// contextSleep sleeps for d or until ctx is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pruneWindow removes entries older than 1 minute. Must be called with mu held.
func (l *LimitedCompleter) pruneWindow(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(l.window) && !l.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0:0], l.window[i:]...)
	}
}

// reserve blocks until the RPM window has room and records the request.
func (l *LimitedCompleter) reserve(ctx context.Context) error {
	if l.rpm <= 0 {
		return nil
	}

	for {
		l.mu.Lock()
		now := l.nowFunc()
		l.pruneWindow(now)

		if len(l.window) < l.rpm {
			l.window = append(l.window, now)
			l.mu.Unlock()
			return nil
		}

		// The oldest entry expiring frees one slot.
		waitDur := max(l.window[0].Add(time.Minute).Sub(now), 0)
		l.mu.Unlock()

		const minWait = 10 * time.Millisecond
		if waitDur < minWait {
			waitDur = minWait
		}

		if err := l.sleepFunc(ctx, waitDur); err != nil {
			return err
		}
	}
}

// Complete implements Completer. It waits for a free slot and RPM capacity,
// honouring ctx cancellation, then forwards to the inner completer.
func (l *LimitedCompleter) Complete(ctx context.Context, req Request) (string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer l.sem.Release(1)

	if err := l.reserve(ctx); err != nil {
		return "", err
	}

	return l.inner.Complete(ctx, req)
}

// UsageTracker forwards to the inner completer if it implements UsageReporter.
func (l *LimitedCompleter) UsageTracker() *Tracker {
	if ur, ok := l.inner.(UsageReporter); ok {
		return ur.UsageTracker()
	}
	return &l.fallbackTracker
}
