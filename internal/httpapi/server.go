package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/amora/internal/archive"
	"github.com/ent0n29/amora/internal/config"
	"github.com/ent0n29/amora/internal/media"
	"github.com/ent0n29/amora/internal/observability"
	"github.com/ent0n29/amora/internal/session"
	"github.com/ent0n29/amora/internal/story"
	"github.com/ent0n29/amora/internal/studio"
)

// Studio is the generation surface behind the /api routes.
type Studio interface {
	GenerateStory(ctx context.Context, answers story.Answers) (studio.StoryResult, error)
	Story(ctx context.Context, id string) (archive.StoryRecord, error)
	RecentStories(ctx context.Context, limit int) ([]archive.StoryRecord, error)
	GenerateImage(ctx context.Context, answers story.Answers, boy, girl media.Image) (studio.ImageResult, error)
	ImagePrompt(ctx context.Context, place string, scene int) (studio.ScenePrompt, error)
	SceneDescription(ctx context.Context, place string) (string, bool, error)
	GenerateScenes(ctx context.Context, place string, photos []media.Image) (studio.SceneSet, error)
}

type Server struct {
	cfg      config.Config
	studio   Studio
	sessions *session.Manager
	metrics  *observability.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader

	wsWriteTimeout time.Duration
}

func New(cfg config.Config, studio Studio, sessions *session.Manager, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		studio:   studio,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger.Named("http"),

		wsWriteTimeout: wsWriteTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browsers may stream camera landmarks.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(tracingMiddleware)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/onboarding/status", s.handleOnboardingStatus)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate-story", s.handleGenerateStory)
		r.Post("/generate-image", s.handleGenerateImage)
		r.Post("/image-prompt", s.handleImagePrompt)
		r.Post("/scene", s.handleScene)
		r.Post("/story", s.handleDestinationStory)
		r.Post("/generate-scenes", s.handleGenerateScenes)
		r.Get("/stories", s.handleRecentStories)
		r.Get("/stories/{id}", s.handleGetStory)
	})

	r.Post("/v1/gesture/session", s.handleCreateSession)
	r.Post("/v1/gesture/session/{id}/end", s.handleEndSession)
	r.Get("/v1/gesture/session/ws", s.handleSessionWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.activeSessions(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	status, code := "ready", http.StatusOK
	if s.studio == nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]any{
		"status":          status,
		"archive_mode":    archiveMode(s.cfg),
		"active_sessions": s.activeSessions(),
	})
}

func (s *Server) activeSessions() int {
	if s.sessions == nil {
		return 0
	}
	return s.sessions.ActiveCount()
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func archiveMode(cfg config.Config) string {
	switch {
	case cfg.DatabaseURL != "":
		return "postgres"
	case cfg.StorySQLitePath != "":
		return "sqlite"
	default:
		return "in-memory"
	}
}
