package generation

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/amora/internal/media"
)

type scriptedGenerator struct {
	mu      sync.Mutex
	models  []string
	respond func(call int, model string) (Result, error)
}

func (g *scriptedGenerator) Generate(_ context.Context, model string, _ Request) (Result, error) {
	g.mu.Lock()
	call := len(g.models)
	g.models = append(g.models, model)
	g.mu.Unlock()
	return g.respond(call, model)
}

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func hfStage(attempts int) Stage {
	return Stage{
		Name: "inference",
		Variants: []Variant{
			{Provider: "hf", Model: "m1", Modality: ModalityImage},
			{Provider: "hf", Model: "m2", Modality: ModalityImage},
			{Provider: "hf", Model: "m3", Modality: ModalityImage},
		},
		Policy: DefaultInferencePolicy(attempts),
	}
}

func failing(err error) func(int, string) (Result, error) {
	return func(int, string) (Result, error) { return Result{}, err }
}

func imageRequest() Request {
	return Request{Prompt: "a couple on a beach", Modality: ModalityImage}
}

func TestRunWaitsForModelWarmUp(t *testing.T) {
	gen := &scriptedGenerator{respond: failing(&ProviderError{
		Provider: "hf",
		Status:   http.StatusServiceUnavailable,
		Body:     []byte(`{"error":"Model is loading","estimated_time":5}`),
	})}
	sleeper := &recordingSleeper{}
	o := New([]Stage{hfStage(5)}, map[string]Generator{"hf": gen}, WithSleeper(sleeper.Sleep))

	_, err := o.Run(context.Background(), imageRequest())
	ge, ok := AsError(err)
	require.True(t, ok, "want *Error, got %v", err)
	assert.Equal(t, KindUpstreamUnavailable, ge.Kind)
	assert.Equal(t, 5, ge.Retries)
	assert.Equal(t, 5.0, ge.EstimatedWait)
	assert.Contains(t, ge.Message, "estimated 5s")
	assert.Equal(t, "a couple on a beach", ge.Prompt)
	assert.Contains(t, ge.Detail, "status 503")

	assert.Equal(t, []string{"m1", "m2", "m3", "m1", "m2"}, gen.models)
	require.Len(t, sleeper.waits, 4)
	for _, w := range sleeper.waits {
		assert.GreaterOrEqual(t, w, 15*time.Second)
	}
}

func TestRunRateLimitWaitsSixtySeconds(t *testing.T) {
	gen := &scriptedGenerator{respond: failing(&ProviderError{Provider: "hf", Status: http.StatusTooManyRequests})}
	sleeper := &recordingSleeper{}
	o := New([]Stage{hfStage(5)}, map[string]Generator{"hf": gen}, WithSleeper(sleeper.Sleep))

	_, err := o.Run(context.Background(), imageRequest())
	require.True(t, IsKind(err, KindUpstreamUnavailable))
	assert.Len(t, gen.models, 5)
	assert.Equal(t, []time.Duration{time.Minute, time.Minute, time.Minute, time.Minute}, sleeper.waits)
	ge, _ := AsError(err)
	assert.Contains(t, ge.Message, "temporarily unavailable")
}

func TestRunUnparsedLoadingBodyUsesSteppedBackoff(t *testing.T) {
	gen := &scriptedGenerator{respond: failing(&ProviderError{
		Provider: "hf",
		Status:   http.StatusServiceUnavailable,
		Body:     []byte("<html>upstream busy</html>"),
	})}
	sleeper := &recordingSleeper{}
	o := New([]Stage{hfStage(5)}, map[string]Generator{"hf": gen}, WithSleeper(sleeper.Sleep))

	_, err := o.Run(context.Background(), imageRequest())
	require.Error(t, err)
	assert.Equal(t, []time.Duration{30 * time.Second, 40 * time.Second, 50 * time.Second, 60 * time.Second}, sleeper.waits)
}

func TestRunNetworkErrorsBackOffLinearly(t *testing.T) {
	gen := &scriptedGenerator{respond: failing(&ProviderError{Provider: "hf", Network: true, Message: "connection reset"})}
	sleeper := &recordingSleeper{}
	o := New([]Stage{hfStage(5)}, map[string]Generator{"hf": gen}, WithSleeper(sleeper.Sleep))

	_, err := o.Run(context.Background(), imageRequest())
	require.True(t, IsKind(err, KindUpstreamUnavailable))
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second, 40 * time.Second}, sleeper.waits)
}

func TestRunMalformedEndpointsAreTerminal(t *testing.T) {
	gen := &scriptedGenerator{respond: failing(&ProviderError{Provider: "hf", Status: http.StatusOK, Malformed: true, Message: "json error body"})}
	sleeper := &recordingSleeper{}
	o := New([]Stage{hfStage(5)}, map[string]Generator{"hf": gen}, WithSleeper(sleeper.Sleep))

	_, err := o.Run(context.Background(), imageRequest())
	require.True(t, IsKind(err, KindUpstreamMalformed), "got %v", err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, gen.models)
	assert.Empty(t, sleeper.waits)
}

func TestRunSkipsTerminalEndpointInRotation(t *testing.T) {
	gen := &scriptedGenerator{respond: func(_ int, model string) (Result, error) {
		if model == "m1" {
			return Result{}, &ProviderError{Provider: "hf", Status: http.StatusNotFound}
		}
		return Result{}, &ProviderError{Provider: "hf", Status: http.StatusBadGateway}
	}}
	sleeper := &recordingSleeper{}
	o := New([]Stage{hfStage(5)}, map[string]Generator{"hf": gen}, WithSleeper(sleeper.Sleep))

	_, err := o.Run(context.Background(), imageRequest())
	require.Error(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3", "m2", "m2"}, gen.models)
	assert.Len(t, sleeper.waits, 3)
}

func TestRunFallsThroughStagesToImage(t *testing.T) {
	gemini := &scriptedGenerator{respond: func(int, string) (Result, error) {
		return Classify("I cannot draw, but here is a description."), nil
	}}
	img := media.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: media.MIMEPNG}
	hf := &scriptedGenerator{respond: func(call int, _ string) (Result, error) {
		if call == 0 {
			return Result{}, &ProviderError{Provider: "hf", Status: http.StatusInternalServerError}
		}
		return ImageResult(img), nil
	}}
	primary := Stage{
		Name: "primary",
		Variants: []Variant{
			{Provider: "gemini", Model: "g1", Modality: ModalityImage},
			{Provider: "gemini", Model: "g2", Modality: ModalityImage},
			{Provider: "gemini", Model: "story", Modality: ModalityText},
		},
	}
	sleeper := &recordingSleeper{}
	o := New([]Stage{primary, hfStage(5)}, map[string]Generator{"gemini": gemini, "hf": hf}, WithSleeper(sleeper.Sleep))

	asset, err := o.Run(context.Background(), imageRequest())
	require.NoError(t, err)
	assert.Equal(t, KindEmbeddedImage, asset.Kind)
	assert.Equal(t, "hf", asset.Provider)
	assert.Equal(t, "m2", asset.Model)
	assert.Equal(t, img.DataURI(), asset.DataURI())
	assert.False(t, asset.Degraded)
	assert.Equal(t, []string{"g1", "g2"}, gemini.models)
	require.Len(t, asset.Attempts, 4)
	assert.Equal(t, "unusable", asset.Attempts[0].Outcome)
	assert.Equal(t, "server_error", asset.Attempts[2].Outcome)
	assert.Equal(t, "success", asset.Attempts[3].Outcome)
	assert.Equal(t, []time.Duration{10 * time.Second}, sleeper.waits)
}

func TestRunTextReturnsFirstNonEmpty(t *testing.T) {
	gen := &scriptedGenerator{respond: func(call int, _ string) (Result, error) {
		if call == 0 {
			return Classify("   "), nil
		}
		return Classify("Once upon a time"), nil
	}}
	stage := Stage{Name: "primary", Variants: []Variant{
		{Provider: "gemini", Model: "a", Modality: ModalityText},
		{Provider: "gemini", Model: "b", Modality: ModalityText},
	}}
	o := New([]Stage{stage}, map[string]Generator{"gemini": gen})

	asset, err := o.Run(context.Background(), Request{Prompt: "story", Modality: ModalityText})
	require.NoError(t, err)
	assert.Equal(t, KindText, asset.Kind)
	assert.Equal(t, "Once upon a time", asset.Text)
	assert.Equal(t, "b", asset.Model)
}

func TestRunTextWithEmbeddedImageReturnsImage(t *testing.T) {
	gen := &scriptedGenerator{respond: func(int, string) (Result, error) {
		return Classify("Here you go: https://cdn.example.com/couple.PNG enjoy"), nil
	}}
	stage := Stage{Name: "primary", Variants: []Variant{{Provider: "gemini", Model: "a", Modality: ModalityText}}}
	o := New([]Stage{stage}, map[string]Generator{"gemini": gen})

	asset, err := o.Run(context.Background(), Request{Prompt: "story", Modality: ModalityText})
	require.NoError(t, err)
	assert.Equal(t, KindEmbeddedImage, asset.Kind)
	assert.Equal(t, "https://cdn.example.com/couple.PNG", asset.ImageURL)
}

func TestRunServesFallbackWhenExhausted(t *testing.T) {
	gen := &scriptedGenerator{respond: failing(&ProviderError{Provider: "gemini", Status: http.StatusNotFound})}
	stage := Stage{Name: "primary", Variants: []Variant{
		{Provider: "gemini", Model: "a", Modality: ModalityText},
		{Provider: "gemini", Model: "b", Modality: ModalityText},
	}}
	o := New([]Stage{stage}, map[string]Generator{"gemini": gen})

	asset, err := o.Run(context.Background(), Request{
		Prompt:   "story",
		Modality: ModalityText,
		Fallback: func() Asset { return Asset{Text: "fallback story"} },
	})
	require.NoError(t, err)
	assert.True(t, asset.Degraded)
	assert.Equal(t, KindText, asset.Kind)
	assert.Equal(t, "fallback story", asset.Text)
	assert.Len(t, asset.Attempts, 2)
}

func TestRunStopsWhenBackoffCrossesDeadline(t *testing.T) {
	gen := &scriptedGenerator{respond: failing(&ProviderError{Provider: "hf", Status: http.StatusTooManyRequests})}
	sleeper := &recordingSleeper{}
	o := New([]Stage{hfStage(5)}, map[string]Generator{"hf": gen}, WithSleeper(sleeper.Sleep))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := o.Run(ctx, imageRequest())
	ge, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindUpstreamUnavailable, ge.Kind)
	assert.True(t, ge.Timeout)
	assert.Len(t, gen.models, 1)
	assert.Empty(t, sleeper.waits)
}

func TestRunStopsWhenContextCanceledDuringBackoff(t *testing.T) {
	gen := &scriptedGenerator{respond: failing(&ProviderError{Provider: "hf", Status: http.StatusBadGateway})}
	ctx, cancel := context.WithCancel(context.Background())
	sleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	o := New([]Stage{hfStage(5)}, map[string]Generator{"hf": gen}, WithSleeper(sleep))

	_, err := o.Run(ctx, imageRequest())
	ge, ok := AsError(err)
	require.True(t, ok)
	assert.True(t, ge.Timeout)
	assert.Len(t, gen.models, 1)
}

func TestRunAppliesAttemptTimeout(t *testing.T) {
	gen := &blockingGenerator{}
	stage := hfStage(2)
	stage.AttemptTimeout = 10 * time.Millisecond
	sleeper := &recordingSleeper{}
	o := New([]Stage{stage}, map[string]Generator{"hf": gen}, WithSleeper(sleeper.Sleep))

	asset, err := o.Run(context.Background(), imageRequest())
	require.Error(t, err)
	assert.Empty(t, asset.Attempts)
	assert.Equal(t, []time.Duration{10 * time.Second}, sleeper.waits)
}

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ string, _ Request) (Result, error) {
	<-ctx.Done()
	return Result{}, ctx.Err()
}

func TestRunValidatesRequest(t *testing.T) {
	o := New([]Stage{hfStage(5)}, map[string]Generator{"hf": &scriptedGenerator{respond: failing(nil)}})

	_, err := o.Run(context.Background(), Request{Prompt: "  ", Modality: ModalityImage})
	assert.True(t, IsKind(err, KindValidation))

	img := media.Image{Data: []byte("x"), MIMEType: media.MIMEPNG}
	_, err = o.Run(context.Background(), Request{Prompt: "p", Modality: ModalityImage, Images: []media.Image{img, img, img}})
	assert.True(t, IsKind(err, KindValidation))

	_, err = o.Run(context.Background(), Request{Prompt: "p", Modality: ModalityImage, Images: []media.Image{{Data: []byte("x"), MIMEType: "image/gif"}}})
	assert.True(t, IsKind(err, KindValidation))
}

func TestRunWithoutProvidersIsConfigurationError(t *testing.T) {
	o := New([]Stage{hfStage(5)}, map[string]Generator{})
	assert.False(t, o.Supports(ModalityImage))

	_, err := o.Run(context.Background(), Request{
		Prompt:   "p",
		Modality: ModalityImage,
		Fallback: func() Asset { return Asset{Text: "unused"} },
	})
	assert.True(t, IsKind(err, KindConfiguration))
}
