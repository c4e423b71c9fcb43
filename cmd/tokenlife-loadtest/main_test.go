package main

import (
	"math/rand"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(i+1) * time.Millisecond
	}
	if got := percentile(samples, 50); got != 50*time.Millisecond {
		t.Fatalf("p50 = %v", got)
	}
	if got := percentile(samples, 100); got != 100*time.Millisecond {
		t.Fatalf("p100 = %v", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty percentile = %v", got)
	}
}

func TestRunPhaseCountsFailures(t *testing.T) {
	var calls int
	stats := runPhase(10, 1, 1, func(*rand.Rand) bool {
		calls++
		return calls%2 == 0
	})
	if stats.ops != 10 || stats.failures != 5 {
		t.Fatalf("expected 10 ops with 5 failures, got %+v", stats)
	}
}
