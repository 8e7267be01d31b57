package governor

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock drives the governor's time without real sleeping.
type fakeClock struct {
	t      time.Time
	slept  []time.Duration
	cancel context.CancelFunc
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	return nil
}

// install wires the fake clock into a governor.
func (c *fakeClock) install(g *Governor) {
	g.now = c.Now
	g.sleep = c.Sleep
}

func (c *fakeClock) totalSlept() time.Duration {
	var total time.Duration
	for _, d := range c.slept {
		total += d
	}
	return total
}

func TestGovernorMinInterval(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	g := New(WithMinInterval(100*time.Millisecond), WithWindowLimit(0))
	clock.install(g)

	calls := 0
	call := func() error { calls++; return nil }

	for range 3 {
		if err := g.Execute(context.Background(), call); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	// First call is free; the two that follow each wait the interval.
	if got := clock.totalSlept(); got != 200*time.Millisecond {
		t.Errorf("total slept = %v, want 200ms", got)
	}
}

func TestGovernorWindowLimit(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	g := New(
		WithMinInterval(0),
		WithWindowLimit(2),
		WithWindow(time.Minute),
	)
	clock.install(g)

	for range 3 {
		if err := g.Execute(context.Background(), func() error { return nil }); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}

	// The third call must wait until the first falls out of the window.
	if got := clock.totalSlept(); got < 59*time.Second {
		t.Errorf("total slept = %v, want about one window", got)
	}
}

func TestGovernorRateLimitRetry(t *testing.T) {
	t.Parallel()

	t.Run("retries after cool-down and succeeds", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		g := New(
			WithMinInterval(0),
			WithWindowLimit(0),
			WithCoolDown(30*time.Second),
			WithMaxRateRetries(3),
		)
		clock.install(g)

		attempts := 0
		err := g.Execute(context.Background(), func() error {
			attempts++
			if attempts < 3 {
				return ErrRateLimited
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
		if got := clock.totalSlept(); got < time.Minute {
			t.Errorf("total slept = %v, want two cool-downs", got)
		}
	})

	t.Run("exhausts retries and surfaces degraded service", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		g := New(
			WithMinInterval(0),
			WithWindowLimit(0),
			WithMaxRateRetries(2),
		)
		clock.install(g)

		attempts := 0
		err := g.Execute(context.Background(), func() error {
			attempts++
			return errors.New("googleapi: Error 429: quota exceeded")
		})
		if !errors.Is(err, ErrRetriesExhausted) {
			t.Fatalf("Execute() error = %v, want ErrRetriesExhausted", err)
		}
		// Initial attempt plus two retries.
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("other errors propagate without retry", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		g := New(WithMinInterval(0), WithWindowLimit(0))
		clock.install(g)

		wantErr := errors.New("connection refused")
		attempts := 0
		err := g.Execute(context.Background(), func() error {
			attempts++
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("Execute() error = %v, want %v", err, wantErr)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})
}

func TestGovernorContextCancellation(t *testing.T) {
	t.Parallel()

	g := New(WithMinInterval(time.Hour), WithWindowLimit(0))

	ctx, cancel := context.WithCancel(context.Background())

	// Prime lastCall so the second call has to wait.
	if err := g.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	cancel()
	err := g.Execute(ctx, func() error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestIsRateLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "sentinel", err: ErrRateLimited, want: true},
		{name: "wrapped sentinel", err: errors.Join(errors.New("call failed"), ErrRateLimited), want: true},
		{name: "http 429", err: errors.New("googleapi: Error 429: Too Many Requests"), want: true},
		{name: "quota message", err: errors.New("quota exceeded for metric"), want: true},
		{name: "resource exhausted", err: errors.New("rpc error: code = ResourceExhausted desc = resource exhausted"), want: true},
		{name: "unrelated", err: errors.New("connection reset by peer"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsRateLimit(tt.err); got != tt.want {
				t.Errorf("IsRateLimit(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
