package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	errs "framegen/pkg/errors"
	"framegen/pkg/logger"
)

func testConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, testConfig(3))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoRetriesNetworkErrors(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeNetwork, "connection reset")
		}
		return nil
	}, testConfig(5))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeClientInput, "bad payload")
	}, testConfig(5))

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call for non-retryable error, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeNetwork, "timeout")
	}, testConfig(3))

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := testConfig(0)
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: time.Hour}

	done := make(chan error, 1)
	go func() {
		done <- Do(func() error {
			return errs.New(errs.ErrorTypeNetwork, "down")
		}, cfg)
	}()

	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	result, err := DoWithResult(func() ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, errs.New(errs.ErrorTypeNetwork, "flaky")
		}
		return []byte("payload"), nil
	}, testConfig(3))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != "payload" {
		t.Errorf("unexpected result %q", result)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	if DefaultRetryIf(nil) {
		t.Error("nil error should not be retried")
	}
	if !DefaultRetryIf(fmt.Errorf("unclassified")) {
		t.Error("unclassified errors should be retried")
	}
	if DefaultRetryIf(context.Canceled) {
		t.Error("context cancellation should not be retried")
	}

	// A status code on the error is more specific than its type
	if !DefaultRetryIf(errs.WithCode(errs.ErrorTypeNetwork, 429, "rate limited")) {
		t.Error("429 should be retried")
	}
	if DefaultRetryIf(errs.WithCode(errs.ErrorTypeUnknown, 400, "bad request")) {
		t.Error("400 should not be retried")
	}
	if !DefaultRetryIf(errs.WithCode(errs.ErrorTypeNetwork, 503, "unavailable")) {
		t.Error("503 should be retried")
	}
}

func TestExponentialBackoffGrowsAndCaps(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   40 * time.Millisecond,
		Multiplier: 2.0,
	}

	if d := eb.NextDelay(1); d != 10*time.Millisecond {
		t.Errorf("attempt 1: got %v", d)
	}
	if d := eb.NextDelay(2); d != 20*time.Millisecond {
		t.Errorf("attempt 2: got %v", d)
	}
	if d := eb.NextDelay(10); d != 40*time.Millisecond {
		t.Errorf("attempt 10 should cap at max: got %v", d)
	}
	if d := eb.NextDelay(0); d != 0 {
		t.Errorf("attempt 0 should be zero: got %v", d)
	}
}
