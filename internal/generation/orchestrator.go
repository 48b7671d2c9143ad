// Package generation runs text and image generation across an ordered list of
// provider variants with per-provider retry policies and deterministic fallbacks.
package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ent0n29/amora/internal/reliability"
)

const tracerName = "github.com/ent0n29/amora/internal/generation"

// Orchestrator owns the provider ordering. It holds no per-call state and is
// safe for concurrent use.
type Orchestrator struct {
	stages    []Stage
	providers map[string]Generator
	sleep     reliability.Sleeper
	now       func() time.Time
	observer  Observer
	logger    *zap.Logger
	tracer    trace.Tracer
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s reliability.Sleeper) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sleep = s
		}
	}
}

// WithClock replaces the wall clock used for attempt timing and deadline checks.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New builds an orchestrator. Variants whose provider is missing from
// providers are ignored, so unconfigured providers simply drop out.
func New(stages []Stage, providers map[string]Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stages:    stages,
		providers: providers,
		sleep:     reliability.Sleep,
		now:       time.Now,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Supports reports whether at least one configured variant serves modality.
func (o *Orchestrator) Supports(modality Modality) bool {
	for _, stage := range o.stages {
		if len(o.variantsFor(stage, modality)) > 0 {
			return true
		}
	}
	return false
}

type runState struct {
	req       Request
	attempts  []Attempt
	lastErr   error
	retries   int
	estimated float64
}

// Run produces exactly one asset for req or a structured *Error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Asset, error) {
	if err := validateRequest(req); err != nil {
		return Asset{}, err
	}

	ctx, span := o.tracer.Start(ctx, "generation.run", trace.WithAttributes(
		attribute.String("generation.modality", string(req.Modality)),
		attribute.Int("generation.reference_images", len(req.Images)),
	))
	defer span.End()

	run := &runState{req: req}
	ran := false
	var stageErr error
	for _, stage := range o.stages {
		variants := o.variantsFor(stage, req.Modality)
		if len(variants) == 0 {
			continue
		}
		ran = true
		asset, err := o.runStage(ctx, stage, variants, run)
		if err == nil {
			asset.Attempts = run.attempts
			span.SetAttributes(
				attribute.String("generation.provider", asset.Provider),
				attribute.String("generation.model", asset.Model),
				attribute.Int("generation.attempts", len(run.attempts)),
			)
			return asset, nil
		}
		stageErr = err
		if ge, ok := AsError(err); ok && ge.Timeout {
			break
		}
	}

	if !ran {
		err := Configuration("no %s generation provider is configured", req.Modality)
		span.SetStatus(codes.Error, err.Message)
		return Asset{}, err
	}

	if req.Fallback != nil {
		asset := req.Fallback()
		asset.Degraded = true
		asset.Attempts = run.attempts
		if asset.Kind == "" {
			asset.Kind = KindText
		}
		span.SetAttributes(attribute.Bool("generation.degraded", true))
		o.logger.Warn("generation exhausted providers; serving fallback",
			zap.String("modality", string(req.Modality)),
			zap.Int("attempts", len(run.attempts)),
			zap.Error(stageErr),
		)
		return asset, nil
	}

	span.RecordError(stageErr)
	span.SetStatus(codes.Error, "providers exhausted")
	return Asset{}, stageErr
}

func (o *Orchestrator) runStage(ctx context.Context, stage Stage, variants []Variant, run *runState) (Asset, error) {
	policy := stage.Policy
	if policy == nil {
		policy = SinglePass{}
	}
	budget := policy.Budget(len(variants))
	dropped := make([]bool, len(variants))
	run.retries = 0
	run.lastErr = nil
	run.estimated = 0

	for attempt := 0; attempt < budget; attempt++ {
		idx, ok := pickVariant(attempt, dropped)
		if !ok {
			break
		}
		v := variants[idx]
		res, err := o.attempt(ctx, stage, v, run)
		run.retries++
		if err == nil {
			if asset, accepted := accept(res, run.req.Modality); accepted {
				asset.Provider = v.Provider
				asset.Model = v.Model
				return asset, nil
			}
			err = errUnusable
		}
		run.lastErr = err

		if ctx.Err() != nil {
			return Asset{}, o.timeoutError(run)
		}

		decision := policy.Next(attempt, err)
		if decision.Drop {
			dropped[idx] = true
		}
		if decision.EstimatedWait > 0 {
			run.estimated = decision.EstimatedWait
		}
		if attempt+1 >= budget || allDropped(dropped) {
			break
		}
		if decision.Wait <= 0 {
			continue
		}
		if deadline, ok := ctx.Deadline(); ok && o.now().Add(decision.Wait).After(deadline) {
			return Asset{}, o.timeoutError(run)
		}
		if o.observer != nil {
			o.observer.ObserveBackoff(v.Provider, decision.Wait)
		}
		o.logger.Info("backing off before next attempt",
			zap.String("stage", stage.Name),
			zap.String("provider", v.Provider),
			zap.String("model", v.Model),
			zap.Duration("wait", decision.Wait),
			zap.Int("attempt", attempt+1),
		)
		if err := o.sleep(ctx, decision.Wait); err != nil {
			return Asset{}, o.timeoutError(run)
		}
	}
	return Asset{}, o.exhaustedError(run)
}

func (o *Orchestrator) attempt(ctx context.Context, stage Stage, v Variant, run *runState) (Result, error) {
	attemptCtx := ctx
	if stage.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, stage.AttemptTimeout)
		defer cancel()
	}
	attemptCtx, span := o.tracer.Start(attemptCtx, "generation.attempt", trace.WithAttributes(
		attribute.String("generation.stage", stage.Name),
		attribute.String("generation.provider", v.Provider),
		attribute.String("generation.model", v.Model),
	))
	defer span.End()

	started := o.now()
	res, err := o.providers[v.Provider].Generate(attemptCtx, v.Model, run.req)
	if err != nil && attemptCtx.Err() != nil && ctx.Err() == nil {
		var pe *ProviderError
		if !errors.As(err, &pe) {
			err = &ProviderError{Provider: v.Provider, Network: true, Message: "attempt timed out", Err: err}
		}
	}

	rec := Attempt{
		Stage:     stage.Name,
		Provider:  v.Provider,
		Model:     v.Model,
		StartedAt: started,
		Duration:  o.now().Sub(started),
		Outcome:   outcomeOf(err),
	}
	if err == nil && !satisfies(res, run.req.Modality) {
		rec.Outcome = outcomeOf(errUnusable)
	}
	if err != nil {
		rec.Err = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, rec.Outcome)
		o.logger.Warn("generation attempt failed",
			zap.String("stage", stage.Name),
			zap.String("provider", v.Provider),
			zap.String("model", v.Model),
			zap.String("outcome", rec.Outcome),
			zap.Error(err),
		)
	}
	span.SetAttributes(attribute.String("generation.outcome", rec.Outcome))
	run.attempts = append(run.attempts, rec)
	if o.observer != nil {
		o.observer.ObserveAttempt(rec)
	}
	return res, err
}

func (o *Orchestrator) variantsFor(stage Stage, modality Modality) []Variant {
	out := make([]Variant, 0, len(stage.Variants))
	for _, v := range stage.Variants {
		if v.Modality != modality {
			continue
		}
		if _, ok := o.providers[v.Provider]; !ok {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (o *Orchestrator) timeoutError(run *runState) *Error {
	e := &Error{
		Kind:          KindUpstreamUnavailable,
		Message:       "Generation timed out before a provider answered. Please try again.",
		Prompt:        run.req.Prompt,
		Retries:       run.retries,
		EstimatedWait: run.estimated,
		Timeout:       true,
	}
	if run.lastErr != nil {
		e.Detail = run.lastErr.Error()
	}
	return e
}

func (o *Orchestrator) exhaustedError(run *runState) *Error {
	e := &Error{
		Kind:          KindUpstreamUnavailable,
		Message:       unavailableMessage(run.req.Modality, run.estimated),
		Prompt:        run.req.Prompt,
		Retries:       run.retries,
		EstimatedWait: run.estimated,
	}
	var pe *ProviderError
	if errors.As(run.lastErr, &pe) && pe.Malformed {
		e.Kind = KindUpstreamMalformed
		e.Message = "The " + string(run.req.Modality) + " generation service returned an unexpected response. Please try again."
	}
	if run.lastErr != nil {
		e.Detail = run.lastErr.Error()
	}
	return e
}

func pickVariant(attempt int, dropped []bool) (int, bool) {
	n := len(dropped)
	if n == 0 {
		return 0, false
	}
	start := attempt % n
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if !dropped[idx] {
			return idx, true
		}
	}
	return 0, false
}

func allDropped(dropped []bool) bool {
	for _, d := range dropped {
		if !d {
			return false
		}
	}
	return true
}

func satisfies(res Result, modality Modality) bool {
	_, ok := accept(res, modality)
	return ok
}

func accept(res Result, modality Modality) (Asset, bool) {
	switch res.Kind {
	case KindEmbeddedImage:
		if res.Image == nil && res.ImageURL == "" {
			return Asset{}, false
		}
		return Asset{Kind: KindEmbeddedImage, Image: res.Image, ImageURL: res.ImageURL}, true
	case KindText:
		if modality != ModalityText || strings.TrimSpace(res.Text) == "" {
			return Asset{}, false
		}
		return Asset{Kind: KindText, Text: res.Text}, true
	default:
		return Asset{}, false
	}
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return Validation("prompt is required")
	}
	switch req.Modality {
	case ModalityText, ModalityImage:
	default:
		return Validation("unsupported modality %q", req.Modality)
	}
	if len(req.Images) > MaxReferenceImages {
		return Validation("at most %d reference images are accepted", MaxReferenceImages)
	}
	for i, img := range req.Images {
		if err := img.Validate(); err != nil {
			return Validation("reference image %d: %v", i+1, err)
		}
	}
	return nil
}
