package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errFlaky = errors.New("flaky")

func TestDo(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{"succeeds first time", 0, 3, 1, false},
		{"succeeds on third", 2, 3, 3, false},
		{"gives up", 5, 3, 3, true},
		{"zero attempts means one", 5, 0, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), Policy{Attempts: tt.attempts, Base: time.Millisecond}, func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return errFlaky
				}
				return nil
			})

			if calls != tt.wantCalls {
				t.Errorf("Expected %d calls, got %d", tt.wantCalls, calls)
			}
			if tt.wantErr && !errors.Is(err, errFlaky) {
				t.Errorf("Expected the last error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("not found")
	calls := 0
	err := Do(context.Background(), Policy{
		Attempts:  3,
		Base:      time.Millisecond,
		Retryable: func(err error) bool { return err != permanent },
	}, func(context.Context) error {
		calls++
		return permanent
	})

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	if err != permanent {
		t.Errorf("Expected the permanent error, got %v", err)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	start := time.Now()
	err := Do(ctx, Policy{Attempts: 3, Base: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errFlaky
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	if time.Since(start) > time.Second {
		t.Error("Expected cancellation to cut the wait short")
	}
}

func TestValue(t *testing.T) {
	calls := 0
	v, err := Value(context.Background(), Policy{Attempts: 2, Base: time.Millisecond}, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errFlaky
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if v != "ok" {
		t.Errorf("Expected 'ok', got %q", v)
	}
}
