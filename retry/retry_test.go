package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRun_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	result, err := Run(context.Background(), 3, time.Millisecond, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want %q", result, "ok")
	}
	if calls != 3 {
		t.Errorf("op invoked %d times, want 3", calls)
	}
}

func TestRun_StopsOnFirstSuccess(t *testing.T) {
	calls := 0
	_, err := Run(context.Background(), 5, time.Millisecond, func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if calls != 1 {
		t.Errorf("op invoked %d times, want 1", calls)
	}
}

func TestRun_ReturnsLastError(t *testing.T) {
	calls := 0
	lastErr := errors.New("final failure")
	_, err := Run(context.Background(), 3, time.Millisecond, func(context.Context) (int, error) {
		calls++
		if calls == 3 {
			return 0, lastErr
		}
		return 0, errors.New("earlier failure")
	})
	if !errors.Is(err, lastErr) {
		t.Errorf("Run error = %v, want the final attempt's error", err)
	}
	if calls != 3 {
		t.Errorf("op invoked %d times, want 3", calls)
	}
}

func TestRun_LinearBackoff(t *testing.T) {
	base := 20 * time.Millisecond
	calls := 0
	start := time.Now()
	_, _ = Run(context.Background(), 3, base, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("always fails")
	})
	elapsed := time.Since(start)

	// Two backoffs: 1×base + 2×base = 3×base total.
	if want := 3 * base; elapsed < want {
		t.Errorf("elapsed %v, want at least %v of backoff", elapsed, want)
	}
	if calls != 3 {
		t.Errorf("op invoked %d times, want 3", calls)
	}
}

func TestRun_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Run(ctx, 3, time.Hour, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("op invoked %d times after cancellation, want 1", calls)
	}
}
