package governor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ErrRateLimited marks an error as a rate-limit signal from a remote
// service. Clients wrap provider errors with this sentinel so the
// Governor can recognize them with errors.Is.
var ErrRateLimited = errors.New("rate limited by remote service")

// ErrRetriesExhausted is returned when a call kept hitting rate limits
// through every allowed retry. It surfaces as a degraded-service
// condition, not a hard failure of the caller's logic.
var ErrRetriesExhausted = errors.New("rate-limit retries exhausted")

// Default governance values, sized for the free-tier request quotas of
// hosted embedding/generation APIs.
const (
	// DefaultMinInterval is the minimum delay between consecutive calls.
	DefaultMinInterval = 100 * time.Millisecond

	// DefaultWindowLimit is the maximum calls allowed per rolling window.
	DefaultWindowLimit = 50

	// DefaultWindow is the width of the rolling rate window.
	DefaultWindow = 60 * time.Second

	// DefaultCoolDown is how long to wait after a rate-limit signal
	// before retrying the same call.
	DefaultCoolDown = 30 * time.Second

	// DefaultMaxRateRetries is how many rate-limit retries are attempted
	// before the degraded-service error is surfaced.
	DefaultMaxRateRetries = 3
)

// Governor wraps external network calls with timing discipline.
// It holds an explicit timestamp history rather than hiding counters in
// closures, exposing a single Execute entry point.
//
// A single Governor is safe for concurrent use; pacing decisions are
// serialized under its mutex while the wrapped calls themselves run
// outside the lock.
type Governor struct {
	// minInterval is the minimum delay between consecutive calls.
	minInterval time.Duration

	// windowLimit caps calls per rolling window. Zero disables the cap.
	windowLimit int

	// window is the width of the rolling window.
	window time.Duration

	// coolDown is the fixed wait after a rate-limit signal.
	coolDown time.Duration

	// maxRateRetries bounds rate-limit retries per call.
	maxRateRetries int

	// history records the start times of recent calls, oldest first.
	// Entries older than the window are pruned on each reservation.
	history []time.Time

	// lastCall is when the most recent call was released.
	lastCall time.Time

	logger *slog.Logger
	mu     sync.Mutex

	// now and sleep are indirected for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Governor.
type Option func(*Governor)

// WithMinInterval sets the minimum delay between consecutive calls.
func WithMinInterval(d time.Duration) Option {
	return func(g *Governor) { g.minInterval = d }
}

// WithWindowLimit sets the maximum calls per rolling window.
// A limit of zero disables the window cap.
func WithWindowLimit(n int) Option {
	return func(g *Governor) { g.windowLimit = n }
}

// WithWindow sets the width of the rolling rate window.
func WithWindow(d time.Duration) Option {
	return func(g *Governor) { g.window = d }
}

// WithCoolDown sets the wait after a rate-limit signal before retrying.
func WithCoolDown(d time.Duration) Option {
	return func(g *Governor) { g.coolDown = d }
}

// WithMaxRateRetries sets how many rate-limit retries are attempted.
func WithMaxRateRetries(n int) Option {
	return func(g *Governor) { g.maxRateRetries = n }
}

// WithLogger sets the logger used for pacing and retry events.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Governor) { g.logger = logger }
}

// New creates a Governor with the given options.
func New(opts ...Option) *Governor {
	g := &Governor{
		minInterval:    DefaultMinInterval,
		windowLimit:    DefaultWindowLimit,
		window:         DefaultWindow,
		coolDown:       DefaultCoolDown,
		maxRateRetries: DefaultMaxRateRetries,
		now:            time.Now,
		sleep:          sleepCtx,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.logger == nil {
		g.logger = slog.Default()
	}

	return g
}

// Execute runs call under governance: it waits until timing constraints
// allow the call, runs it, and on a rate-limit signal waits out the
// cool-down and retries the same call. The caller blocks; calls are never
// dropped. Non-rate-limit errors propagate unmodified, because the
// governor only smooths timing, it does not swallow logical errors.
func (g *Governor) Execute(ctx context.Context, call func() error) error {
	for attempt := 0; ; attempt++ {
		if err := g.reserve(ctx); err != nil {
			return err
		}

		err := call()
		if err == nil {
			return nil
		}
		if !IsRateLimit(err) {
			return err
		}

		if attempt >= g.maxRateRetries {
			return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}

		g.logger.Warn("rate limited, cooling down",
			"attempt", attempt+1,
			"max_retries", g.maxRateRetries,
			"cool_down", g.coolDown,
		)
		if err := g.sleep(ctx, g.coolDown); err != nil {
			return err
		}
	}
}

// reserve blocks until the next call is allowed and records it in the
// history. The wait is computed under the lock but slept outside it, so
// concurrent callers queue up rather than deadlock.
func (g *Governor) reserve(ctx context.Context) error {
	for {
		g.mu.Lock()
		now := g.now()
		wait := g.nextWait(now)
		if wait <= 0 {
			g.history = append(g.history, now)
			g.lastCall = now
			g.mu.Unlock()
			return nil
		}
		g.mu.Unlock()

		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// nextWait computes how long the next call must wait at the given time.
// Caller holds the lock.
func (g *Governor) nextWait(now time.Time) time.Duration {
	var wait time.Duration

	if !g.lastCall.IsZero() {
		if since := now.Sub(g.lastCall); since < g.minInterval {
			wait = g.minInterval - since
		}
	}

	if g.windowLimit > 0 {
		// Prune history entries that fell out of the window.
		cutoff := now.Add(-g.window)
		pruned := g.history[:0]
		for _, t := range g.history {
			if t.After(cutoff) {
				pruned = append(pruned, t)
			}
		}
		g.history = pruned

		if len(g.history) >= g.windowLimit {
			// Wait until the oldest in-window call expires.
			if w := g.history[0].Sub(cutoff); w > wait {
				wait = w
			}
		}
	}

	return wait
}

// IsRateLimit reports whether an error is a rate-limit signal.
// Wrapped ErrRateLimited is authoritative; otherwise the message is
// matched against the strings hosted AI services actually return.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource exhausted")
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
