package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

// fastPolicy keeps test backoff in the microsecond range.
func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialDelay: time.Microsecond, MaxDelay: time.Millisecond}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_RetriesTransientUpToBound(t *testing.T) {
	t.Parallel()

	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Transient(errors.New("connection reset"))
	})
	if err == nil {
		t.Fatal("Do() = nil, want error after exhaustion")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if want := "after 3 attempts"; err.Error()[:len(want)] != want {
		t.Errorf("Do() error = %q, want prefix %q", err, want)
	}
}

func TestDo_TerminalFailureNotRetried(t *testing.T) {
	t.Parallel()

	terminal := errors.New("401 unauthorized")
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return terminal
	})
	if !errors.Is(err, terminal) {
		t.Errorf("Do() = %v, want %v", err, terminal)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_RecoversMidway(t *testing.T) {
	t.Parallel()

	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return Transient(errors.New("timeout"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	p := Policy{MaxAttempts: 5, InitialDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	called := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(ctx context.Context) error {
			calls++
			called <- struct{}{}
			return Transient(errors.New("flaky"))
		})
	}()

	<-called
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do() did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSingle_NeverRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Single().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Transient(errors.New("timeout"))
	})
	if err == nil {
		t.Fatal("Do() = nil, want error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"wrapped transient", fmt.Errorf("fetch: %w", Transient(errors.New("reset"))), true},
		{"net timeout", timeoutErr{}, true},
		{"net op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
