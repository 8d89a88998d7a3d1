package ratelimit

import (
	"testing"
	"time"
)

func TestMemoryLimiterBurstAndRefill(t *testing.T) {
	l, err := NewMemoryLimiter(2, time.Minute)
	if err != nil {
		t.Fatalf("new memory limiter: %v", err)
	}
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("ip-1") || !l.Allow("ip-1") {
		t.Fatalf("burst of two should pass")
	}
	if l.Allow("ip-1") {
		t.Fatalf("third request should be blocked")
	}
	if !l.Allow("ip-2") {
		t.Fatalf("other keys have their own bucket")
	}

	now = now.Add(30 * time.Second)
	if !l.Allow("ip-1") {
		t.Fatalf("one token should have refilled after half a window")
	}
}

func TestMemoryLimiterEvictsIdleBuckets(t *testing.T) {
	l, _ := NewMemoryLimiter(1, time.Second)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }

	l.Allow("ip-1")
	now = now.Add(time.Hour)
	l.Allow("ip-2")
	if _, ok := l.buckets["ip-1"]; ok {
		t.Fatalf("expected idle bucket to be evicted")
	}
}

func TestLimiterImplementations(t *testing.T) {
	var _ Limiter = (*MemoryLimiter)(nil)
	var _ Limiter = (*FixedWindowLimiter)(nil)
}
