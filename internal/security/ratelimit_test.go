package security

import (
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	steps := []struct {
		advance time.Duration
		key     string
		want    bool
	}{
		{0, "s1", true},
		{0, "s1", true},
		{0, "s1", false},
		{0, "s2", true},
		{30 * time.Second, "s1", false},
		{30 * time.Second, "s1", true},
	}

	for i, step := range steps {
		now = now.Add(step.advance)
		if got := rl.Allow(step.key); got != step.want {
			t.Errorf("step %d: Allow(%q) = %v, want %v", i, step.key, got, step.want)
		}
	}

	now = now.Add(5 * time.Minute)
	rl.cleanup()
	if len(rl.buckets) != 0 {
		t.Errorf("buckets after cleanup = %d, want 0", len(rl.buckets))
	}
}
