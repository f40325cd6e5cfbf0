package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errDown = errors.New("solver down")

func fail(context.Context) error { return errDown }
func pass(context.Context) error { return nil }

func call(ctx context.Context, b *Breaker, f func(context.Context) error) error {
	_, err := Do(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f(ctx)
	})
	return err
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Cooldown: time.Minute})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := call(ctx, b, fail); !errors.Is(err, errDown) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v", b.State())
	}
	if err := call(ctx, b, pass); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3})
	ctx := context.Background()
	_ = call(ctx, b, fail)
	_ = call(ctx, b, fail)
	_ = call(ctx, b, pass)
	_ = call(ctx, b, fail)
	_ = call(ctx, b, fail)
	if b.State() != StateClosed {
		t.Fatalf("state = %v", b.State())
	}
}

func TestBreakerHalfOpenTrial(t *testing.T) {
	var transitions []string
	b := NewBreaker(BreakerOpts{
		FailThreshold: 1,
		Cooldown:      time.Second,
		OnChange:      func(from, to State) { transitions = append(transitions, from.String()+">"+to.String()) },
	})
	now := time.Unix(0, 0)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = call(ctx, b, fail)
	now = now.Add(2 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v", b.State())
	}
	if _, err := Do(ctx, b, func(context.Context) (int, error) { return 1, nil }); err != nil {
		t.Fatal(err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v", b.State())
	}
	want := []string{"closed>open", "open>half-open", "half-open>closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v", transitions)
		}
	}
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Cooldown: time.Second})
	now := time.Unix(0, 0)
	b.now = func() time.Time { return now }
	ctx := context.Background()
	_ = call(ctx, b, fail)
	_ = call(ctx, b, fail)
	now = now.Add(time.Second)
	_ = call(ctx, b, fail)
	if b.State() != StateOpen {
		t.Fatalf("state = %v", b.State())
	}
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	b := NewBreaker(BreakerOpts{
		FailThreshold: 1,
		Ignore:        func(err error) bool { return errors.Is(err, context.Canceled) },
	})
	_ = call(context.Background(), b, func(context.Context) error { return context.Canceled })
	if b.State() != StateClosed {
		t.Fatalf("state = %v", b.State())
	}
}

func TestLimiter(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 2})
	ctx := context.Background()
	if !l.Allow() || !l.Allow() {
		t.Fatal("burst tokens should be free")
	}
	if l.Allow() {
		t.Fatal("third call should be limited")
	}

	dctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := l.Wait(dctx); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	cctx, stop := context.WithCancel(ctx)
	stop()
	if err := l.Wait(cctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait on a cancelled context = %v", err)
	}
}

func TestUnlimited(t *testing.T) {
	l := NewLimiter(LimiterOpts{})
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatalf("call %d limited", i)
		}
	}
}
