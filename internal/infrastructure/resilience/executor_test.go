package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errFlaky = errors.New("flaky")

func retryableClassifier(error) ErrorClassification {
	return ErrorClassification{Retryable: true, RecordFailure: true}
}

func fastConfig(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Microsecond,
		RetryMaxBackoff:     time.Microsecond,
		RetryMultiplier:     2.0,
	}
}

func TestExecuteRetriesUpToMaxAttempts(t *testing.T) {
	e := NewExecutor(fastConfig(3))

	calls := 0
	err := e.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return errFlaky
	}, retryableClassifier)

	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected flaky error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteRecoversMidRetry(t *testing.T) {
	e := NewExecutor(fastConfig(3))

	calls := 0
	err := e.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 2 {
			return errFlaky
		}
		return nil
	}, retryableClassifier)

	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestProviderConfigNeverRetries(t *testing.T) {
	e := NewExecutor(ProviderConfig())

	calls := 0
	err := e.Execute(context.Background(), "provider.call", func(context.Context) error {
		calls++
		return errFlaky
	}, retryableClassifier)

	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected flaky error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestNonRetryableErrorReturnsImmediately(t *testing.T) {
	e := NewExecutor(fastConfig(3))

	calls := 0
	err := e.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return errFlaky
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	})

	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected flaky error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	e := NewExecutor(ProviderConfig())

	fail := func(context.Context) error { return errFlaky }
	for i := 0; i < breakerMinRequests; i++ {
		_ = e.Execute(context.Background(), "op", fail, retryableClassifier)
	}

	err := e.Execute(context.Background(), "op", fail, retryableClassifier)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit after %d failures, got %v", breakerMinRequests, err)
	}
}

func TestBreakerIgnoresUnrecordedFailures(t *testing.T) {
	e := NewExecutor(ProviderConfig())

	fail := func(context.Context) error { return context.Canceled }
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}
	for i := 0; i < breakerMinRequests*2; i++ {
		_ = e.Execute(context.Background(), "op", fail, classifier)
	}

	err := e.Execute(context.Background(), "op", fail, classifier)
	if IsCircuitOpen(err) {
		t.Fatal("circuit must stay closed for failures the classifier does not record")
	}
}

func TestBreakersAreIsolatedPerOperation(t *testing.T) {
	e := NewExecutor(ProviderConfig())

	fail := func(context.Context) error { return errFlaky }
	for i := 0; i < breakerMinRequests+1; i++ {
		_ = e.Execute(context.Background(), "bad.op", fail, retryableClassifier)
	}

	err := e.Execute(context.Background(), "good.op", func(context.Context) error { return nil }, retryableClassifier)
	if err != nil {
		t.Fatalf("unrelated operation must not share the open breaker, got %v", err)
	}
}
