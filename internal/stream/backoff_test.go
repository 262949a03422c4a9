package stream

import (
	"testing"
	"time"
)

func TestBackoffDelayMonotoneAndCapped(t *testing.T) {
	base := 1 * time.Second
	max := 30 * time.Second
	prev := time.Duration(0)
	for attempt := 0; attempt < 12; attempt++ {
		delay := backoffDelay(base, max, attempt)
		if delay < prev {
			t.Fatalf("attempt %d: delay %v < previous %v", attempt, delay, prev)
		}
		if delay > max {
			t.Fatalf("attempt %d: delay %v exceeds cap %v", attempt, delay, max)
		}
		prev = delay
	}
	if got := backoffDelay(base, max, 0); got != base {
		t.Fatalf("attempt 0 must be the floor, got %v", got)
	}
	if got := backoffDelay(base, max, 10); got != max {
		t.Fatalf("large attempt must saturate at cap, got %v", got)
	}
}

func TestBackoffDelayMaxBelowBase(t *testing.T) {
	if got := backoffDelay(2*time.Second, time.Second, 3); got != 2*time.Second {
		t.Fatalf("cap below floor must clamp to floor, got %v", got)
	}
}

func TestRetryDelayJitterBounded(t *testing.T) {
	s := New(Config{BackoffBase: time.Second, BackoffMax: 30 * time.Second})
	for attempt := 0; attempt < 10; attempt++ {
		floor := backoffDelay(time.Second, 30*time.Second, attempt)
		for i := 0; i < 20; i++ {
			delay := s.retryDelay(attempt)
			if delay < floor {
				t.Fatalf("attempt %d: jittered delay %v below floor %v", attempt, delay, floor)
			}
			if delay > 30*time.Second {
				t.Fatalf("attempt %d: jittered delay %v above cap", attempt, delay)
			}
		}
	}
}
