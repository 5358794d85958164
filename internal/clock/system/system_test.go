// Package system exercises the real-time clock adapter.
package system

import (
	"testing"
	"time"
)

// TestClockNowInRange ensures the clock tracks the real time.
func TestClockNowInRange(t *testing.T) {
	t.Parallel()

	clk := New()
	requireNotNil(t, clk)

	before := time.Now().Add(-time.Second)
	got := clk.Now()
	after := time.Now().Add(time.Second)

	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

// TestClockNowMonotonic checks successive timestamps are non-decreasing.
func TestClockNowMonotonic(t *testing.T) {
	t.Parallel()

	clk := New()
	first := clk.Now()
	second := clk.Now()
	if second.Before(first) {
		t.Fatalf("expected second call %v to be >= first %v", second, first)
	}
}

// TestClockKeepsMonotonicReading guards against conversions that strip the
// monotonic component; Sub between two readings must never go negative even
// if the wall clock is adjusted.
func TestClockKeepsMonotonicReading(t *testing.T) {
	t.Parallel()

	clk := New()
	first := clk.Now()
	time.Sleep(time.Millisecond)
	if d := clk.Now().Sub(first); d <= 0 {
		t.Fatalf("expected positive elapsed, got %v", d)
	}
}

func requireNotNil(t *testing.T, v any) {
	t.Helper()
	if v == nil {
		t.Fatal("expected value to be non-nil")
	}
}
