package generation

import (
	"errors"
	"net/http"
	"time"

	"github.com/ent0n29/amora/internal/reliability"
)

// Decision is what a Policy wants after a failed attempt.
type Decision struct {
	// Wait before the next attempt.
	Wait time.Duration
	// Drop removes the failed variant from the rest of the stage.
	Drop bool
	// EstimatedWait carries a provider warm-up estimate in seconds.
	EstimatedWait float64
}

// Policy governs how many attempts a stage gets and how it reacts to failures.
type Policy interface {
	Budget(variants int) int
	Next(attempt int, err error) Decision
}

// SinglePass tries every variant once with no waiting.
type SinglePass struct{}

func (SinglePass) Budget(variants int) int { return variants }

func (SinglePass) Next(int, error) Decision { return Decision{Drop: true} }

// InferencePolicy is the retry schedule for hosted inference endpoints that
// cold-start models on demand.
type InferencePolicy struct {
	MaxAttempts int
	// DefaultEstimate is assumed when a 503 body has no estimated_time.
	DefaultEstimate float64
	LoadingPadding  time.Duration
	RateLimitWait   time.Duration
	ServerErrorWait time.Duration
	NetworkStep     time.Duration
	UnparsedBase    time.Duration
	UnparsedStep    time.Duration
	UnparsedCap     time.Duration
}

// DefaultInferencePolicy returns the production schedule.
func DefaultInferencePolicy(maxAttempts int) InferencePolicy {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return InferencePolicy{
		MaxAttempts:     maxAttempts,
		DefaultEstimate: 40,
		LoadingPadding:  10 * time.Second,
		RateLimitWait:   60 * time.Second,
		ServerErrorWait: 10 * time.Second,
		NetworkStep:     10 * time.Second,
		UnparsedBase:    30 * time.Second,
		UnparsedStep:    10 * time.Second,
		UnparsedCap:     60 * time.Second,
	}
}

func (p InferencePolicy) Budget(int) int { return p.MaxAttempts }

func (p InferencePolicy) Next(attempt int, err error) Decision {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return Decision{Drop: true}
	}
	switch {
	case pe.Malformed:
		return Decision{Drop: true}
	case pe.Network:
		return Decision{Wait: reliability.LinearBackoff(attempt, p.NetworkStep)}
	case pe.Status == http.StatusServiceUnavailable:
		est, ok := reliability.ParseEstimatedTime(pe.Body, p.DefaultEstimate)
		if !ok {
			return Decision{Wait: reliability.SteppedBackoff(attempt, p.UnparsedBase, p.UnparsedStep, p.UnparsedCap)}
		}
		return Decision{
			Wait:          time.Duration(est*float64(time.Second)) + p.LoadingPadding,
			EstimatedWait: est,
		}
	case pe.Status == http.StatusTooManyRequests:
		return Decision{Wait: p.RateLimitWait}
	case pe.Status >= 500:
		return Decision{Wait: p.ServerErrorWait}
	default:
		return Decision{Drop: true}
	}
}
