// Package studio implements the proposal flows on top of the generation
// orchestrator: stories, portraits, scene prompts and the story archive.
package studio

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ent0n29/amora/internal/archive"
	"github.com/ent0n29/amora/internal/generation"
	"github.com/ent0n29/amora/internal/media"
	"github.com/ent0n29/amora/internal/story"
)

// Runner is the orchestrator surface the service depends on.
type Runner interface {
	Run(ctx context.Context, req generation.Request) (generation.Asset, error)
	Supports(modality generation.Modality) bool
}

// FallbackObserver is told whenever a flow serves deterministic content.
type FallbackObserver interface {
	ObserveFallback(flow string)
}

// Runners groups the orchestrators per flow; story and scene prompts use
// different model lists.
type Runners struct {
	Story  Runner
	Prompt Runner
	Image  Runner
}

type Options struct {
	TextTimeout  time.Duration
	ImageTimeout time.Duration
	Observer     FallbackObserver
	Logger       *zap.Logger
}

type Service struct {
	runners  Runners
	archive  archive.Store
	opts     Options
	logger   *zap.Logger
	inflight singleflight.Group
}

func New(runners Runners, store archive.Store, opts Options) *Service {
	if opts.TextTimeout <= 0 {
		opts.TextTimeout = 60 * time.Second
	}
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = 120 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		runners: runners,
		archive: store,
		opts:    opts,
		logger:  logger.Named("studio"),
	}
}

// StoryResult is a generated or fallback story.
type StoryResult struct {
	ID       string `json:"story_id"`
	Story    string `json:"story"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Fallback bool   `json:"fallback"`
}

// GenerateStory writes a story for the answers. Provider failures degrade to
// the fallback story; concurrent calls with identical answers share one run.
func (s *Service) GenerateStory(ctx context.Context, answers story.Answers) (StoryResult, error) {
	if err := validateAnswers(answers); err != nil {
		return StoryResult{}, err
	}
	if !supports(s.runners.Story, generation.ModalityText) {
		return StoryResult{}, generation.Configuration("GEMINI_API_KEY is not set in environment variables")
	}
	answers = answers.Normalize()
	key := answers.Key()

	v, err, _ := s.inflight.Do("story:"+key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.TextTimeout)
		defer cancel()
		return s.generateStory(runCtx, key, answers)
	})
	if err != nil {
		return StoryResult{}, err
	}
	return v.(StoryResult), nil
}

func (s *Service) generateStory(ctx context.Context, key string, answers story.Answers) (StoryResult, error) {
	asset, err := s.runners.Story.Run(ctx, generation.Request{
		Prompt:   story.StoryPrompt(answers),
		Modality: generation.ModalityText,
		Language: string(answers.Language),
		Fallback: func() generation.Asset {
			return generation.Asset{Kind: generation.KindText, Text: story.FallbackStory(answers)}
		},
	})
	if err != nil {
		return StoryResult{}, err
	}

	res := StoryResult{ID: key, Provider: asset.Provider, Model: asset.Model, Fallback: asset.Degraded}
	if asset.Kind == generation.KindText && strings.TrimSpace(asset.Text) != "" {
		res.Story = strings.TrimSpace(asset.Text)
	} else {
		res = StoryResult{ID: key, Story: story.FallbackStory(answers), Fallback: true}
	}
	if res.Fallback {
		s.observeFallback("story")
	}

	if err := s.archive.Save(ctx, archive.StoryRecord{
		ID:       key,
		Answers:  answers,
		Story:    res.Story,
		Provider: res.Provider,
		Model:    res.Model,
		Fallback: res.Fallback,
	}); err != nil {
		s.logger.Warn("archive story failed", zap.String("story_id", key), zap.Error(err))
	}
	return res, nil
}

// Story returns an archived story by id.
func (s *Service) Story(ctx context.Context, id string) (archive.StoryRecord, error) {
	return s.archive.Get(ctx, strings.TrimSpace(id))
}

// RecentStories lists archived stories, newest first.
func (s *Service) RecentStories(ctx context.Context, limit int) ([]archive.StoryRecord, error) {
	if limit <= 0 || limit > maxRecentStories {
		limit = maxRecentStories
	}
	return s.archive.Recent(ctx, limit)
}

const maxRecentStories = 50

// ImageResult is a generated portrait.
type ImageResult struct {
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// GenerateImage renders the couple portrait from the two reference photos.
// Exhaustion surfaces as a *generation.Error carrying the prompt and retries.
func (s *Service) GenerateImage(ctx context.Context, answers story.Answers, boy, girl media.Image) (ImageResult, error) {
	if len(boy.Data) == 0 || len(girl.Data) == 0 {
		return ImageResult{}, generation.Validation("Both boy and girl image URLs are required")
	}
	if err := validateAnswers(answers); err != nil {
		return ImageResult{}, err
	}
	if !supports(s.runners.Image, generation.ModalityImage) {
		return ImageResult{}, generation.Configuration("GEMINI_API_KEY is not set in environment variables")
	}

	prompt := story.CouplePortraitPrompt(answers)
	ctx, cancel := context.WithTimeout(ctx, s.opts.ImageTimeout)
	defer cancel()
	asset, err := s.runners.Image.Run(ctx, generation.Request{
		Prompt:   prompt,
		Images:   []media.Image{boy, girl},
		Modality: generation.ModalityImage,
	})
	if err != nil {
		s.observeFallback("image")
		return ImageResult{}, err
	}
	return ImageResult{ImageURL: asset.DataURI(), Prompt: prompt, Provider: asset.Provider, Model: asset.Model}, nil
}

// ScenePrompt is a finalized image prompt for one travel scene.
type ScenePrompt struct {
	Prompt   string `json:"prompt"`
	Place    string `json:"place"`
	Scene    int    `json:"sceneNumber"`
	Fallback bool   `json:"fallback"`
}

// ImagePrompt asks the prompt models for a short scene prompt and caps
// whatever comes back at story.MaxScenePromptRunes.
func (s *Service) ImagePrompt(ctx context.Context, place string, scene int) (ScenePrompt, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return ScenePrompt{}, generation.Validation("Place is required")
	}
	if scene == 0 {
		scene = 1
	}
	if !supports(s.runners.Prompt, generation.ModalityText) {
		return ScenePrompt{}, generation.Configuration("GEMINI_API_KEY is not set in environment variables")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.TextTimeout)
	defer cancel()
	asset, err := s.runners.Prompt.Run(ctx, generation.Request{
		Prompt:   story.ScenePromptRequest(place, scene),
		Modality: generation.ModalityText,
		Fallback: func() generation.Asset {
			return generation.Asset{Kind: generation.KindText, Text: story.FallbackScenePrompt(place, scene)}
		},
	})
	if err != nil {
		return ScenePrompt{}, err
	}

	out := ScenePrompt{Place: place, Scene: scene, Fallback: asset.Degraded}
	if asset.Degraded || asset.Kind != generation.KindText {
		out.Prompt = story.FallbackScenePrompt(place, scene)
		out.Fallback = true
	} else {
		var swapped bool
		out.Prompt, swapped = story.FinalizeScenePrompt(asset.Text, place, scene)
		out.Fallback = swapped
		if missing := story.MissingSceneTokens(out.Prompt); len(missing) > 0 && !swapped {
			s.logger.Debug("scene prompt lacks style tokens",
				zap.Int("scene", scene),
				zap.Strings("missing", missing),
			)
		}
	}
	if out.Fallback {
		s.observeFallback("image_prompt")
	}
	return out, nil
}

// SceneDescription returns a cinematic description of the couple in place.
func (s *Service) SceneDescription(ctx context.Context, place string) (description string, fallback bool, err error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return "", false, generation.Validation("Place is required")
	}
	if !supports(s.runners.Prompt, generation.ModalityText) {
		return "", false, generation.Configuration("GEMINI_API_KEY is not set in environment variables")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.TextTimeout)
	defer cancel()
	asset, err := s.runners.Prompt.Run(ctx, generation.Request{
		Prompt:   story.SceneDescriptionPrompt(place),
		Modality: generation.ModalityText,
		Fallback: func() generation.Asset {
			return generation.Asset{Kind: generation.KindText, Text: story.FallbackSceneDescription(place)}
		},
	})
	if err != nil {
		return "", false, err
	}
	if asset.Kind != generation.KindText {
		s.observeFallback("scene")
		return story.FallbackSceneDescription(place), true, nil
	}
	if asset.Degraded {
		s.observeFallback("scene")
	}
	return asset.Text, asset.Degraded, nil
}

// SceneSet is the four-scene travel story.
type SceneSet struct {
	ImageURLs []string `json:"imageUrls"`
	Prompts   []string `json:"prompts"`
	Degraded  bool     `json:"degraded"`
}

// GenerateScenes builds the four scene images one after another. A scene that
// fails keeps its slot with a curated placeholder image.
func (s *Service) GenerateScenes(ctx context.Context, place string, photos []media.Image) (SceneSet, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return SceneSet{}, generation.Validation("Place is required")
	}
	if len(photos) > generation.MaxReferenceImages {
		return SceneSet{}, generation.Validation("at most %d photos are accepted", generation.MaxReferenceImages)
	}
	for i, p := range photos {
		if err := p.Validate(); err != nil {
			return SceneSet{}, generation.Validation("photo %d: %v", i+1, err)
		}
	}
	if !supports(s.runners.Image, generation.ModalityImage) {
		return SceneSet{}, generation.Configuration("image generation is not configured")
	}

	placeholders := story.PlaceholderImages()
	set := SceneSet{
		ImageURLs: make([]string, story.SceneCount),
		Prompts:   make([]string, story.SceneCount),
	}
	for i := 0; i < story.SceneCount; i++ {
		scene := i + 1
		prompt := story.FallbackScenePrompt(place, scene)
		if supports(s.runners.Prompt, generation.ModalityText) {
			if sp, err := s.ImagePrompt(ctx, place, scene); err == nil {
				prompt = sp.Prompt
			}
		}
		set.Prompts[i] = prompt

		imgCtx, cancel := context.WithTimeout(ctx, s.opts.ImageTimeout)
		asset, err := s.runners.Image.Run(imgCtx, generation.Request{
			Prompt:   prompt,
			Images:   photos,
			Modality: generation.ModalityImage,
		})
		cancel()
		if err != nil {
			s.logger.Warn("scene image failed; using placeholder", zap.Int("scene", scene), zap.Error(err))
			set.ImageURLs[i] = placeholders[i%len(placeholders)]
			set.Degraded = true
			if ctx.Err() != nil {
				for j := i + 1; j < story.SceneCount; j++ {
					set.Prompts[j] = story.FallbackScenePrompt(place, j+1)
					set.ImageURLs[j] = placeholders[j%len(placeholders)]
				}
				break
			}
			continue
		}
		set.ImageURLs[i] = asset.DataURI()
	}
	if set.Degraded {
		s.observeFallback("scenes")
	}
	return set, nil
}

func (s *Service) observeFallback(flow string) {
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveFallback(flow)
	}
}

func validateAnswers(a story.Answers) error {
	err := a.Validate()
	if err == nil {
		return nil
	}
	verr := generation.Validation("All 7 answers are required")
	var missing *story.MissingAnswersError
	if errors.As(err, &missing) {
		verr.Detail = "missing: " + strings.Join(missing.Fields, ", ")
	}
	return verr
}

func supports(r Runner, m generation.Modality) bool {
	return r != nil && r.Supports(m)
}
