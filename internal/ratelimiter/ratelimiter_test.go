package ratelimiter

import (
	"testing"
	"time"
)

// TestNewSearch verifies limiter creation with different intervals.
func TestNewSearch(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
	}{
		{
			name:     "standard interval",
			interval: 10 * time.Second,
		},
		{
			name:     "short interval",
			interval: time.Millisecond,
		},
		{
			name:     "disabled (zero interval)",
			interval: 0,
		},
		{
			name:     "disabled (negative interval)",
			interval: -time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewSearch(tt.interval)
			if limiter == nil {
				t.Fatal("NewSearch() returned nil")
			}
			if limiter.limiter == nil {
				t.Fatal("internal limiter is nil")
			}
		})
	}
}

// TestAllowAt verifies one search per interval without sleeping.
func TestAllowAt(t *testing.T) {
	limiter := NewSearch(10 * time.Second)
	base := time.Now()

	if !limiter.AllowAt(base) {
		t.Fatal("first search should be allowed")
	}
	if limiter.AllowAt(base.Add(time.Second)) {
		t.Fatal("search inside the interval should be dropped")
	}
	if limiter.AllowAt(base.Add(9 * time.Second)) {
		t.Fatal("search just inside the interval should be dropped")
	}
	if !limiter.AllowAt(base.Add(11 * time.Second)) {
		t.Fatal("search after the interval should be allowed")
	}
}

// TestDisabledLimiter verifies that a zero interval never drops searches.
func TestDisabledLimiter(t *testing.T) {
	limiter := NewSearch(0)
	now := time.Now()
	for i := 0; i < 100; i++ {
		if !limiter.AllowAt(now) {
			t.Fatalf("search %d should be allowed on a disabled limiter", i)
		}
	}
}

// TestNoBurstAccumulation verifies that idle time does not bank extra
// searches beyond one.
func TestNoBurstAccumulation(t *testing.T) {
	limiter := NewSearch(time.Second)
	base := time.Now()

	// A long idle period still permits only a single search.
	at := base.Add(time.Minute)
	if !limiter.AllowAt(at) {
		t.Fatal("first search after idle should be allowed")
	}
	if limiter.AllowAt(at) {
		t.Fatal("second immediate search should be dropped")
	}
}
