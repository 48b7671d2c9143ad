package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the proposal experience service.
type Config struct {
	BindAddr         string
	Environment      string
	LogLevel         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	GeminiAPIKey       string
	GeminiStoryModels  []string
	GeminiVisionModels []string
	GeminiPromptModels []string

	HFAPIToken string
	HFBaseURL  string
	HFModels   []string

	ImageMaxAttempts    int
	ImageAttemptTimeout time.Duration
	ImageRequestTimeout time.Duration
	TextRequestTimeout  time.Duration

	DatabaseURL     string
	StorySQLitePath string
	GestureTimeout  time.Duration
	GestureInsetPX  float64
	OTELEndpoint    string
	OTELInsecure    bool
	ServiceVersion  string
}

// Production reports whether internal error detail must be withheld from clients.
func (c Config) Production() bool {
	return !strings.EqualFold(strings.TrimSpace(c.Environment), "development")
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		Environment:      envOrDefault("APP_ENV", "production"),
		LogLevel:         envOrDefault("APP_LOG_LEVEL", "info"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "amora"),
		AllowAnyOrigin:   false,
		GeminiAPIKey:     stringsTrimSpace("GEMINI_API_KEY"),
		// Story generation walks these in order and keeps the first non-empty text.
		GeminiStoryModels:  listFromEnv("GEMINI_STORY_MODELS", []string{"gemini-pro", "gemini-1.0-pro", "gemini-1.5-flash-001", "gemini-1.5-flash"}),
		GeminiVisionModels: listFromEnv("GEMINI_VISION_MODELS", []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-pro"}),
		GeminiPromptModels: listFromEnv("GEMINI_PROMPT_MODELS", []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-pro"}),
		HFAPIToken:         stringsTrimSpace("HF_API_TOKEN"),
		HFBaseURL:          envOrDefault("HF_BASE_URL", "https://api-inference.huggingface.co/models"),
		HFModels: listFromEnv("HF_MODELS", []string{
			"stabilityai/stable-diffusion-2-1",
			"runwayml/stable-diffusion-v1-5",
			"CompVis/stable-diffusion-v1-4",
		}),
		ImageMaxAttempts:    5,
		ImageAttemptTimeout: 120 * time.Second,
		ImageRequestTimeout: 120 * time.Second,
		TextRequestTimeout:  60 * time.Second,
		DatabaseURL:         stringsTrimSpace("DATABASE_URL"),
		StorySQLitePath:     stringsTrimSpace("STORY_SQLITE_PATH"),
		GestureTimeout:      2 * time.Minute,
		GestureInsetPX:      150,
		OTELEndpoint:        stringsTrimSpace("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTELInsecure:        false,
		ServiceVersion:      envOrDefault("APP_VERSION", "dev"),
		ShutdownTimeout:     15 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ImageAttemptTimeout, err = durationFromEnv("IMAGE_ATTEMPT_TIMEOUT", cfg.ImageAttemptTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ImageRequestTimeout, err = durationFromEnv("IMAGE_REQUEST_TIMEOUT", cfg.ImageRequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TextRequestTimeout, err = durationFromEnv("TEXT_REQUEST_TIMEOUT", cfg.TextRequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GestureTimeout, err = durationFromEnv("GESTURE_SESSION_TIMEOUT", cfg.GestureTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ImageMaxAttempts, err = intFromEnv("IMAGE_MAX_ATTEMPTS", cfg.ImageMaxAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.GestureInsetPX, err = floatFromEnv("GESTURE_MARKER_INSET", cfg.GestureInsetPX)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.OTELInsecure, err = boolFromEnv("OTEL_INSECURE", cfg.OTELInsecure)
	if err != nil {
		return Config{}, err
	}

	if cfg.ImageMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("IMAGE_MAX_ATTEMPTS must be positive")
	}
	if cfg.ImageAttemptTimeout <= 0 {
		return Config{}, fmt.Errorf("IMAGE_ATTEMPT_TIMEOUT must be positive")
	}
	if cfg.ImageRequestTimeout < 10*time.Second {
		return Config{}, fmt.Errorf("IMAGE_REQUEST_TIMEOUT must be at least 10s")
	}
	if cfg.TextRequestTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("TEXT_REQUEST_TIMEOUT must be at least 5s")
	}
	if cfg.GestureTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("GESTURE_SESSION_TIMEOUT must be at least 5s")
	}
	if cfg.GestureInsetPX < 0 {
		return Config{}, fmt.Errorf("GESTURE_MARKER_INSET must be >= 0")
	}
	if len(cfg.HFModels) == 0 {
		return Config{}, fmt.Errorf("HF_MODELS must name at least one model")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// listFromEnv splits a comma separated variable, dropping blank entries.
func listFromEnv(key string, fallback []string) []string {
	v := stringsTrimSpace(key)
	if v == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
