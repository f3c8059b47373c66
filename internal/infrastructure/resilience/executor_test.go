package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesRetryableFailures(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(error) Classification {
		return Classification{Retryable: true, RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteStopsOnNonRetryable(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	permanent := errors.New("bad request")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return permanent
	}, func(error) Classification {
		return Classification{Retryable: false, RecordFailure: false}
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	transient := errors.New("still failing")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return transient
	}, func(error) Classification {
		return Classification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, transient) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	cfg.RetryMaxAttempts = 1
	exec := NewExecutor(cfg)

	fail := func(context.Context) error { return errors.New("down") }
	classify := func(error) Classification {
		return Classification{Retryable: false, RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		_ = exec.Execute(context.Background(), "op", fail, classify)
	}

	err := exec.Execute(context.Background(), "op", fail, classify)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	exec := NewExecutor(fastConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exec.Execute(ctx, "op", func(context.Context) error {
		t.Fatalf("callback must not run with cancelled context")
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
