package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResult(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	if v, err := r.Unwrap(); v != 42 || err != nil {
		t.Fatalf("Unwrap = %v, %v", v, err)
	}
	e := Err[int](errors.New("fail"))
	if v, err := e.Unwrap(); !e.IsErr() || v != 0 || err == nil {
		t.Fatal("Err should carry the error")
	}
	if FromPair(1, errors.New("x")).IsOk() {
		t.Fatal("FromPair should carry the error")
	}
}

func TestThenShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	called := false
	first := Lift(func(_ context.Context, s string) (int, error) {
		return 0, boom
	})
	second := Stage[int, int](func(_ context.Context, n int) Result[int] {
		called = true
		return Ok(n)
	})
	_, err := Then(first, second)(context.Background(), "x").Unwrap()
	if !errors.Is(err, boom) || called {
		t.Fatalf("err = %v, called = %v", err, called)
	}
}

func TestTracedPassesThrough(t *testing.T) {
	var seen int
	s := Traced("double", Then(
		Lift(func(_ context.Context, n int) (int, error) { return n * 2, nil }),
		Tap(func(_ context.Context, n int) { seen = n }),
	))
	v, err := s(context.Background(), 21).Unwrap()
	if err != nil || v != 42 || seen != 42 {
		t.Fatalf("got %d, %v, seen %d", v, err, seen)
	}
}

func TestRetry(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}
	for _, tc := range []struct {
		name  string
		fail  int
		perm  bool
		calls int
		ok    bool
	}{
		{"first try", 0, false, 1, true},
		{"recovers", 2, false, 3, true},
		{"exhausted", 5, false, 3, false},
		{"permanent", 5, true, 1, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			r := Retry(context.Background(), opts, func(context.Context) Result[int] {
				calls++
				if calls <= tc.fail {
					err := errors.New("transient")
					if tc.perm {
						err = Permanent(err)
					}
					return Err[int](err)
				}
				return Ok(calls)
			})
			if calls != tc.calls || r.IsOk() != tc.ok {
				t.Fatalf("calls = %d ok = %v", calls, r.IsOk())
			}
		})
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 5, InitialWait: time.Hour}, func(context.Context) Result[int] {
		return Err[int](errors.New("down"))
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
