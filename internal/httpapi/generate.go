package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ent0n29/amora/internal/archive"
	"github.com/ent0n29/amora/internal/generation"
	"github.com/ent0n29/amora/internal/media"
	"github.com/ent0n29/amora/internal/redact"
	"github.com/ent0n29/amora/internal/story"
)

type imageRequest struct {
	story.Answers
	BoyImageURL  string `json:"boyImageUrl"`
	GirlImageURL string `json:"girlImageUrl"`
}

type imagePromptRequest struct {
	Place       string `json:"place"`
	SceneNumber int    `json:"sceneNumber"`
}

type sceneRequest struct {
	Place string `json:"place"`
}

type sceneResponse struct {
	SceneDescription string `json:"sceneDescription"`
	Fallback         bool   `json:"fallback"`
}

type destinationRequest struct {
	Destination string `json:"destination"`
}

type scenesRequest struct {
	Place  string   `json:"place"`
	Photos []string `json:"photos"`
}

// generationErrorResponse is the body for failed generation calls. Details is
// withheld in production.
type generationErrorResponse struct {
	Error         string   `json:"error"`
	Code          string   `json:"code"`
	Prompt        string   `json:"prompt,omitempty"`
	Details       string   `json:"details,omitempty"`
	Retries       int      `json:"retries,omitempty"`
	EstimatedWait float64  `json:"estimated_wait_seconds,omitempty"`
	Placeholders  []string `json:"placeholders,omitempty"`
}

func (s *Server) handleGenerateStory(w http.ResponseWriter, r *http.Request) {
	var req story.Answers
	if !s.decodeGenerationBody(w, r, &req) {
		return
	}
	defer s.observeFlow("story", time.Now())

	res, err := s.studio.GenerateStory(r.Context(), req)
	if err != nil {
		s.respondGenerationError(w, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_story_id", "missing story id")
		return
	}
	rec, err := s.studio.Story(r.Context(), id)
	if errors.Is(err, archive.ErrNotFound) {
		respondError(w, http.StatusNotFound, "story_not_found", "Story not found")
		return
	}
	if err != nil {
		s.logger.Error("load story", zap.String("story_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal", "Failed to load story. Please try again.")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRecentStories(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	records, err := s.studio.RecentStories(r.Context(), limit)
	if err != nil {
		s.logger.Error("list stories", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal", "Failed to list stories. Please try again.")
		return
	}
	if records == nil {
		records = []archive.StoryRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"stories": records})
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !s.decodeGenerationBody(w, r, &req) {
		return
	}
	boy, ok := parsePhoto(w, "boyImageUrl", req.BoyImageURL)
	if !ok {
		return
	}
	girl, ok := parsePhoto(w, "girlImageUrl", req.GirlImageURL)
	if !ok {
		return
	}
	defer s.observeFlow("image", time.Now())

	res, err := s.studio.GenerateImage(r.Context(), req.Answers, boy, girl)
	if err != nil {
		s.respondGenerationError(w, err, story.PlaceholderImages())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleImagePrompt(w http.ResponseWriter, r *http.Request) {
	var req imagePromptRequest
	if !s.decodeGenerationBody(w, r, &req) {
		return
	}
	defer s.observeFlow("image_prompt", time.Now())

	res, err := s.studio.ImagePrompt(r.Context(), req.Place, req.SceneNumber)
	if err != nil {
		s.respondGenerationError(w, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	var req sceneRequest
	if !s.decodeGenerationBody(w, r, &req) {
		return
	}
	defer s.observeFlow("scene", time.Now())

	desc, fallback, err := s.studio.SceneDescription(r.Context(), req.Place)
	if err != nil {
		s.respondGenerationError(w, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, sceneResponse{SceneDescription: desc, Fallback: fallback})
}

func (s *Server) handleDestinationStory(w http.ResponseWriter, r *http.Request) {
	var req destinationRequest
	if !s.decodeGenerationBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Destination) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "Destination is required")
		return
	}
	text, err := story.DestinationStory(req.Destination)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid destination")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"story": text})
}

func (s *Server) handleGenerateScenes(w http.ResponseWriter, r *http.Request) {
	var req scenesRequest
	if !s.decodeGenerationBody(w, r, &req) {
		return
	}
	photos := make([]media.Image, 0, len(req.Photos))
	for _, raw := range req.Photos {
		img, ok := parsePhoto(w, "photos", raw)
		if !ok {
			return
		}
		if len(img.Data) > 0 {
			photos = append(photos, img)
		}
	}
	defer s.observeFlow("scenes", time.Now())

	res, err := s.studio.GenerateScenes(r.Context(), req.Place, photos)
	if err != nil {
		s.respondGenerationError(w, err, story.PlaceholderImages())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// decodeGenerationBody reports false after writing a 400 for unreadable bodies.
func (s *Server) decodeGenerationBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if s.studio == nil {
		respondError(w, http.StatusInternalServerError, "configuration", "generation is not configured")
		return false
	}
	if err := decodeJSON(r, out); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return false
	}
	return true
}

// parsePhoto decodes a data URI. A blank value yields a zero image so the
// service can report the missing field.
func parsePhoto(w http.ResponseWriter, field, raw string) (media.Image, bool) {
	if strings.TrimSpace(raw) == "" {
		return media.Image{}, true
	}
	img, err := media.ParseDataURI(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", field+" must be a base64 image data URI")
		return media.Image{}, false
	}
	return img, true
}

func (s *Server) respondGenerationError(w http.ResponseWriter, err error, placeholders []string) {
	ge, ok := generation.AsError(err)
	if !ok {
		s.logger.Error("generation failed", zap.Error(err))
		body := generationErrorResponse{Error: "Something went wrong. Please try again.", Code: "internal"}
		if !s.cfg.Production() {
			body.Details = redact.All(err.Error())
		}
		respondJSON(w, http.StatusInternalServerError, body)
		return
	}

	body := generationErrorResponse{
		Error:         ge.Message,
		Code:          string(ge.Kind),
		Prompt:        ge.Prompt,
		Retries:       ge.Retries,
		EstimatedWait: ge.EstimatedWait,
	}
	if !s.cfg.Production() {
		body.Details = redact.All(ge.Detail)
	}
	status := statusForError(ge)
	if status == http.StatusServiceUnavailable {
		body.Placeholders = placeholders
		s.logger.Warn("generation unavailable",
			zap.String("kind", string(ge.Kind)),
			zap.Int("retries", ge.Retries),
			zap.Bool("timeout", ge.Timeout),
			zap.String("detail", redact.All(ge.Detail)),
		)
	}
	respondJSON(w, status, body)
}

func statusForError(ge *generation.Error) int {
	switch ge.Kind {
	case generation.KindValidation:
		return http.StatusBadRequest
	case generation.KindConfiguration:
		return http.StatusInternalServerError
	case generation.KindUpstreamUnavailable, generation.KindUpstreamMalformed:
		// code in the body tells the two apart
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) observeFlow(flow string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveFlow(flow, time.Since(started))
	}
}
