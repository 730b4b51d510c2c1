package ratelimit

import (
	"math"
	"testing"
)

func TestLimiterAllowsBurstThenLimits(t *testing.T) {
	l := New(10, 5)

	allowed := 0
	for i := 0; i < 5; i++ {
		ok, _ := l.Allow()
		if ok {
			allowed++
		}
	}
	if allowed != 5 {
		t.Fatalf("expected all %d burst requests to be allowed, got %d", 5, allowed)
	}

	ok, retryAfterMs := l.Allow()
	if ok {
		t.Fatal("expected 6th request within burst to be denied")
	}
	if retryAfterMs <= 0 {
		t.Fatalf("expected positive retry_after_ms, got %d", retryAfterMs)
	}
}

func TestLimiterRetryAfterWithinTolerance(t *testing.T) {
	rps := 100.0
	l := New(rps, 1)

	if ok, _ := l.Allow(); !ok {
		t.Fatal("expected first request to be allowed")
	}

	_, retryAfterMs := l.Allow()
	want := (1.0 / rps) * 1000
	if math.Abs(float64(retryAfterMs)-want) > 10 {
		t.Fatalf("retry_after_ms = %d, want within 10ms of %.1f", retryAfterMs, want)
	}
}
