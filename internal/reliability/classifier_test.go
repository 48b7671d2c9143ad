package reliability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		got := IsRetryableHTTPStatus(tc.code)
		if got != tc.want {
			t.Fatalf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestExponentialBackoffCap(t *testing.T) {
	base := 100 * time.Millisecond
	capDur := 700 * time.Millisecond
	if got := ExponentialBackoff(0, base, capDur); got != base {
		t.Fatalf("attempt 0 = %v, want %v", got, base)
	}
	if got := ExponentialBackoff(10, base, capDur); got != capDur {
		t.Fatalf("attempt 10 = %v, want %v", got, capDur)
	}
}

func TestLinearBackoff(t *testing.T) {
	for attempt, want := range []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second} {
		if got := LinearBackoff(attempt, 10*time.Second); got != want {
			t.Fatalf("LinearBackoff(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestSteppedBackoffCaps(t *testing.T) {
	base, step, capDur := 30*time.Second, 10*time.Second, 60*time.Second
	if got := SteppedBackoff(0, base, step, capDur); got != 30*time.Second {
		t.Fatalf("attempt 0 = %v, want 30s", got)
	}
	if got := SteppedBackoff(2, base, step, capDur); got != 50*time.Second {
		t.Fatalf("attempt 2 = %v, want 50s", got)
	}
	if got := SteppedBackoff(9, base, step, capDur); got != capDur {
		t.Fatalf("attempt 9 = %v, want %v", got, capDur)
	}
}

func TestParseEstimatedTime(t *testing.T) {
	if got, ok := ParseEstimatedTime([]byte(`{"error":"loading","estimated_time":5}`), 40); !ok || got != 5 {
		t.Fatalf("ParseEstimatedTime = %v,%v want 5,true", got, ok)
	}
	if got, ok := ParseEstimatedTime([]byte(`{"error":"loading"}`), 40); !ok || got != 40 {
		t.Fatalf("missing field = %v,%v want 40,true", got, ok)
	}
	if _, ok := ParseEstimatedTime([]byte(`<html>busy</html>`), 40); ok {
		t.Fatalf("html body should not parse")
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep() error = %v, want context.Canceled", err)
	}
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
}
