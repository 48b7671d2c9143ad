package reliability

import (
	"context"
	"encoding/json"
	"time"
)

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}

// LinearBackoff returns step × (attempt+1).
func LinearBackoff(attempt int, step time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return step * time.Duration(attempt+1)
}

// SteppedBackoff grows from base by step per attempt and never exceeds cap.
func SteppedBackoff(attempt int, base, step, cap time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base + step*time.Duration(attempt)
	if d > cap {
		return cap
	}
	return d
}

// ParseEstimatedTime reads the "estimated_time" seconds hint an inference host
// returns while a model is loading. ok is false when body is not a JSON object;
// a JSON object without the field yields fallback.
func ParseEstimatedTime(body []byte, fallback float64) (seconds float64, ok bool) {
	var payload struct {
		EstimatedTime *float64 `json:"estimated_time"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, false
	}
	if payload.EstimatedTime == nil || *payload.EstimatedTime <= 0 {
		return fallback, true
	}
	return *payload.EstimatedTime, true
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the production Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
