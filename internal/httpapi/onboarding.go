package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type onboardingCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type onboardingStatusResponse struct {
	TextProvider  string            `json:"text_provider"`
	ImageProvider string            `json:"image_provider"`
	ArchiveMode   string            `json:"archive_mode"`
	Tracing       bool              `json:"tracing"`
	Checks        []onboardingCheck `json:"checks"`
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, _ *http.Request) {
	checks := make([]onboardingCheck, 0, 8)
	checks = append(checks, s.geminiChecks()...)
	checks = append(checks, s.huggingFaceChecks()...)
	checks = append(checks, s.archiveCheck())
	if s.cfg.OTELEndpoint == "" {
		checks = append(checks, onboardingCheck{
			ID:     "tracing",
			Status: "warn",
			Label:  "Tracing",
			Detail: "disabled",
			Fix:    "Set OTEL_EXPORTER_OTLP_ENDPOINT to export generation spans.",
		})
	} else {
		checks = append(checks, onboardingCheck{
			ID:     "tracing",
			Status: "ok",
			Label:  "Tracing",
			Detail: s.cfg.OTELEndpoint,
		})
	}

	respondJSON(w, http.StatusOK, onboardingStatusResponse{
		TextProvider:  s.textProvider(),
		ImageProvider: s.imageProvider(),
		ArchiveMode:   archiveMode(s.cfg),
		Tracing:       s.cfg.OTELEndpoint != "",
		Checks:        checks,
	})
}

func (s *Server) textProvider() string {
	if strings.TrimSpace(s.cfg.GeminiAPIKey) == "" {
		return "fallback"
	}
	return "gemini"
}

func (s *Server) imageProvider() string {
	var providers []string
	if strings.TrimSpace(s.cfg.GeminiAPIKey) != "" {
		providers = append(providers, "gemini")
	}
	if len(s.cfg.HFModels) > 0 && strings.TrimSpace(s.cfg.HFBaseURL) != "" {
		providers = append(providers, "huggingface")
	}
	if len(providers) == 0 {
		return "none"
	}
	return strings.Join(providers, "+")
}

func (s *Server) geminiChecks() []onboardingCheck {
	if strings.TrimSpace(s.cfg.GeminiAPIKey) == "" {
		return []onboardingCheck{{
			ID:     "gemini_key",
			Status: "error",
			Label:  "Gemini API key",
			Detail: "GEMINI_API_KEY is not set; stories fall back to the built-in templates",
			Fix:    "Set GEMINI_API_KEY in the environment or .env file.",
		}}
	}
	checks := []onboardingCheck{{
		ID:     "gemini_key",
		Status: "ok",
		Label:  "Gemini API key",
		Detail: "present",
	}}
	if len(s.cfg.GeminiStoryModels) == 0 {
		checks = append(checks, onboardingCheck{
			ID:     "gemini_story_models",
			Status: "warn",
			Label:  "Story models",
			Detail: "no story models configured",
			Fix:    "Set GEMINI_STORY_MODELS to a comma separated model list.",
		})
	} else {
		checks = append(checks, onboardingCheck{
			ID:     "gemini_story_models",
			Status: "ok",
			Label:  "Story models",
			Detail: strings.Join(s.cfg.GeminiStoryModels, ", "),
		})
	}
	return checks
}

func (s *Server) huggingFaceChecks() []onboardingCheck {
	checks := make([]onboardingCheck, 0, 2)
	if _, err := url.ParseRequestURI(strings.TrimSpace(s.cfg.HFBaseURL)); err != nil {
		checks = append(checks, onboardingCheck{
			ID:     "hf_base_url",
			Status: "error",
			Label:  "Hugging Face endpoint",
			Detail: fmt.Sprintf("invalid HF_BASE_URL %q", s.cfg.HFBaseURL),
			Fix:    "Set HF_BASE_URL to the inference API models URL.",
		})
	} else {
		checks = append(checks, onboardingCheck{
			ID:     "hf_base_url",
			Status: "ok",
			Label:  "Hugging Face endpoint",
			Detail: fmt.Sprintf("%s (%d models, %d attempts)", s.cfg.HFBaseURL, len(s.cfg.HFModels), s.cfg.ImageMaxAttempts),
		})
	}
	if strings.TrimSpace(s.cfg.HFAPIToken) == "" {
		checks = append(checks, onboardingCheck{
			ID:     "hf_token",
			Status: "warn",
			Label:  "Hugging Face token",
			Detail: "anonymous requests are heavily rate limited",
			Fix:    "Set HF_API_TOKEN for reliable image fallback.",
		})
	} else {
		checks = append(checks, onboardingCheck{
			ID:     "hf_token",
			Status: "ok",
			Label:  "Hugging Face token",
			Detail: "present",
		})
	}
	return checks
}

func (s *Server) archiveCheck() onboardingCheck {
	switch mode := archiveMode(s.cfg); mode {
	case "in-memory":
		return onboardingCheck{
			ID:     "story_archive",
			Status: "warn",
			Label:  "Story archive",
			Detail: "in-memory only",
			Fix:    "Set DATABASE_URL or STORY_SQLITE_PATH to keep stories across restarts.",
		}
	default:
		return onboardingCheck{
			ID:     "story_archive",
			Status: "ok",
			Label:  "Story archive",
			Detail: mode,
		}
	}
}
