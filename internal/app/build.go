package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ent0n29/amora/internal/archive"
	"github.com/ent0n29/amora/internal/config"
	"github.com/ent0n29/amora/internal/generation"
	"github.com/ent0n29/amora/internal/httpapi"
	"github.com/ent0n29/amora/internal/observability"
	"github.com/ent0n29/amora/internal/session"
	"github.com/ent0n29/amora/internal/studio"
)

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Sessions  *session.Manager
	Studio    *studio.Service
	Metrics   *observability.Metrics
	Providers string

	// Cleanup releases the story archive.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := archive.NewStore(ctx, cfg.DatabaseURL, cfg.StorySQLitePath)
	if err != nil {
		return nil, fmt.Errorf("story archive init failed: %w", err)
	}

	setup, err := resolveProviders(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	orchestrator := func(name string, stages []generation.Stage) *generation.Orchestrator {
		return generation.New(stages, setup.providers,
			generation.WithObserver(metrics),
			generation.WithLogger(logger.Named("generation").With(zap.String("flow", name))),
		)
	}
	svc := studio.New(studio.Runners{
		Story:  orchestrator("story", []generation.Stage{textStage(cfg.GeminiStoryModels)}),
		Prompt: orchestrator("prompt", []generation.Stage{textStage(cfg.GeminiPromptModels)}),
		Image:  orchestrator("image", imageStages(cfg)),
	}, store, studio.Options{
		TextTimeout:  cfg.TextRequestTimeout,
		ImageTimeout: cfg.ImageRequestTimeout,
		Observer:     metrics,
		Logger:       logger,
	})

	sessions := session.NewManager(cfg.GestureTimeout)
	sessions.SetExpireHook(func(s *session.Session) {
		logger.Info("gesture session expired", zap.String("session_id", s.ID), zap.Int64("frames", s.FrameCount))
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	api := httpapi.New(cfg, svc, sessions, metrics, logger)

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Sessions:  sessions,
		Studio:    svc,
		Metrics:   metrics,
		Providers: setup.detail,
		Cleanup:   store.Close,
	}, nil
}
