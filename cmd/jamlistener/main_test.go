package main

import "testing"

func TestRetryDelayNeverExceedsMax(t *testing.T) {
	for attempt := 0; attempt < 20; attempt++ {
		d := retryDelay(attempt)
		if d < retryMinDelay || d > retryMaxDelay {
			t.Fatalf("retryDelay(%d) = %v, want within [%v, %v]", attempt, d, retryMinDelay, retryMaxDelay)
		}
	}
}
