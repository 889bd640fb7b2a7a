package ratelimit

import (
	"testing"
	"time"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
	}
	if tb.Allow() {
		t.Error("expected request beyond capacity to be denied")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)

	if !tb.Allow() {
		t.Fatal("first request should be allowed")
	}
	if tb.Allow() {
		t.Fatal("second immediate request should be denied")
	}

	time.Sleep(30 * time.Millisecond)
	if !tb.Allow() {
		t.Error("request after refill period should be allowed")
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	tb.Allow()
	tb.Reset()
	if !tb.Allow() {
		t.Error("request after reset should be allowed")
	}
}

func TestFixedIntervalFirstCallImmediate(t *testing.T) {
	f := NewFixedInterval(time.Hour)

	start := time.Now()
	f.Wait()
	if time.Since(start) > 100*time.Millisecond {
		t.Error("first Wait should not block")
	}
}

func TestFixedIntervalSpacesRequests(t *testing.T) {
	interval := 30 * time.Millisecond
	f := NewFixedInterval(interval)

	f.Wait()
	start := time.Now()
	f.Wait()
	if elapsed := time.Since(start); elapsed < interval {
		t.Errorf("second Wait returned after %v, want at least %v", elapsed, interval)
	}
}

func TestFixedIntervalZeroDisablesPacing(t *testing.T) {
	f := NewFixedInterval(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		f.Wait()
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("zero interval should not pace requests")
	}
}

func TestFixedIntervalAllow(t *testing.T) {
	f := NewFixedInterval(time.Hour)

	if !f.Allow() {
		t.Fatal("first Allow should pass")
	}
	if f.Allow() {
		t.Error("second immediate Allow should fail")
	}

	f.Reset()
	if !f.Allow() {
		t.Error("Allow after Reset should pass")
	}
}
