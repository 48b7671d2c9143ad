package generation

import (
	"context"
	"time"

	"github.com/ent0n29/amora/internal/media"
)

// Modality is the kind of asset a request asks for.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// Request is one generation call: a prompt plus up to two reference images.
type Request struct {
	Prompt   string
	Images   []media.Image
	Modality Modality
	// Language is a tag such as "english"; only meaningful for text.
	Language string
	// Fallback, when set, builds deterministic content once every provider failed.
	Fallback func() Asset
}

// MaxReferenceImages bounds Request.Images.
const MaxReferenceImages = 2

// Variant is a capability-tagged candidate: one model on one provider for one modality.
type Variant struct {
	Provider string
	Model    string
	Modality Modality
}

// Stage groups variants that share a retry policy. Stages run in order.
type Stage struct {
	Name     string
	Variants []Variant
	Policy   Policy
	// AttemptTimeout bounds each provider call; zero leaves only the caller's deadline.
	AttemptTimeout time.Duration
}

// Generator performs a single attempt against one provider.
type Generator interface {
	Generate(ctx context.Context, model string, req Request) (Result, error)
}

// ResultKind tags a classified provider response.
type ResultKind string

const (
	KindEmpty         ResultKind = "empty"
	KindText          ResultKind = "text"
	KindEmbeddedImage ResultKind = "embedded_image"
)

// Result is the classifier output for one provider response.
type Result struct {
	Kind     ResultKind
	Text     string
	Image    *media.Image
	ImageURL string
}

// Attempt records one provider call.
type Attempt struct {
	Stage     string        `json:"stage"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Outcome   string        `json:"outcome"`
	Err       string        `json:"error,omitempty"`
}

// Asset is the single outcome handed back to the caller.
type Asset struct {
	Kind     ResultKind
	Text     string
	Image    *media.Image
	ImageURL string
	Provider string
	Model    string
	Attempts []Attempt
	// Degraded marks deterministic fallback content.
	Degraded bool
}

// DataURI returns the image as something a browser can render: an inline data
// URI for binary output, or the remote URL the model referenced.
func (a Asset) DataURI() string {
	if a.Image != nil {
		return a.Image.DataURI()
	}
	return a.ImageURL
}

// Observer receives per-attempt diagnostics. Implementations must be cheap.
type Observer interface {
	ObserveAttempt(a Attempt)
	ObserveBackoff(provider string, wait time.Duration)
}
