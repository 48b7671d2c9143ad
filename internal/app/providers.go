package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ent0n29/amora/internal/config"
	"github.com/ent0n29/amora/internal/gemini"
	"github.com/ent0n29/amora/internal/generation"
	"github.com/ent0n29/amora/internal/huggingface"
)

type providerSetup struct {
	providers map[string]generation.Generator
	detail    string
}

// resolveProviders registers every provider that has enough configuration to
// be called. A missing Gemini key only drops Gemini.
func resolveProviders(ctx context.Context, cfg config.Config, logger *zap.Logger) (providerSetup, error) {
	setup := providerSetup{providers: make(map[string]generation.Generator, 2)}
	var parts []string

	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		client, err := gemini.New(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return providerSetup{}, fmt.Errorf("gemini client init failed: %w", err)
		}
		setup.providers[gemini.ProviderName] = client
		parts = append(parts, "gemini")
	} else {
		logger.Warn("GEMINI_API_KEY is not set; text flows serve fallback content")
	}

	if len(cfg.HFModels) > 0 {
		setup.providers[huggingface.ProviderName] = huggingface.New(cfg.HFBaseURL, cfg.HFAPIToken)
		parts = append(parts, "huggingface")
	}

	if len(parts) == 0 {
		setup.detail = "none"
	} else {
		setup.detail = strings.Join(parts, "+")
	}
	return setup, nil
}

func textStage(models []string) generation.Stage {
	variants := make([]generation.Variant, 0, len(models))
	for _, m := range models {
		variants = append(variants, generation.Variant{Provider: gemini.ProviderName, Model: m, Modality: generation.ModalityText})
	}
	return generation.Stage{Name: "gemini", Variants: variants, Policy: generation.SinglePass{}}
}

// imageStages tries the Gemini vision models once each, then cycles the
// hosted inference models under the retry schedule.
func imageStages(cfg config.Config) []generation.Stage {
	vision := make([]generation.Variant, 0, len(cfg.GeminiVisionModels))
	for _, m := range cfg.GeminiVisionModels {
		vision = append(vision, generation.Variant{Provider: gemini.ProviderName, Model: m, Modality: generation.ModalityImage})
	}
	hosted := make([]generation.Variant, 0, len(cfg.HFModels))
	for _, m := range cfg.HFModels {
		hosted = append(hosted, generation.Variant{Provider: huggingface.ProviderName, Model: m, Modality: generation.ModalityImage})
	}
	return []generation.Stage{
		{Name: "gemini", Variants: vision, Policy: generation.SinglePass{}},
		{
			Name:           "huggingface",
			Variants:       hosted,
			Policy:         generation.DefaultInferencePolicy(cfg.ImageMaxAttempts),
			AttemptTimeout: cfg.ImageAttemptTimeout,
		},
	}
}
