package strava

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestRateLimiterUpdateFromHeaders(t *testing.T) {
	tests := []struct {
		name      string
		usage     string
		limit     string
		wantShort int
		wantDaily int
	}{
		{"both headers", "34,512", "100,1000", 66, 488},
		{"raised limits", "34,512", "200,2000", 166, 1488},
		{"malformed usage ignored", "abc", "", 100, 1000},
		{"spaces tolerated", "1, 2", "", 99, 998},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRateLimiter()
			h := http.Header{}
			if tt.usage != "" {
				h.Set("X-RateLimit-Usage", tt.usage)
			}
			if tt.limit != "" {
				h.Set("X-RateLimit-Limit", tt.limit)
			}
			r.UpdateFromHeaders(h)

			short, daily := r.Status()
			if short != tt.wantShort || daily != tt.wantDaily {
				t.Errorf("Status() = %d, %d, want %d, %d", short, daily, tt.wantShort, tt.wantDaily)
			}
		})
	}
}

func TestRateLimiterWaitCountsRequests(t *testing.T) {
	r := NewRateLimiter()
	r.minInterval = 0

	for i := 0; i < 3; i++ {
		if err := r.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	short, daily := r.Status()
	if short != 97 || daily != 997 {
		t.Errorf("Status() = %d, %d, want 97, 997", short, daily)
	}
}

func TestRateLimiterWaitHonoursContext(t *testing.T) {
	r := NewRateLimiter()
	r.short.usage = r.short.limit

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := r.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}
