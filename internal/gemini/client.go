// Package gemini adapts the Google GenAI SDK to the generation orchestrator.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ent0n29/amora/internal/generation"
	"github.com/ent0n29/amora/internal/media"
)

// ProviderName tags variants served by this package.
const ProviderName = "gemini"

// contentGenerator is the slice of *genai.Models this package uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client sends prompts, optionally with reference photos, to Gemini models.
type Client struct {
	models contentGenerator
}

func New(ctx context.Context, apiKey string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, generation.Configuration("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{models: client.Models}, nil
}

func newWithModels(models contentGenerator) *Client {
	return &Client{models: models}
}

// Generate performs one GenerateContent call and classifies the reply.
func (c *Client) Generate(ctx context.Context, model string, req generation.Request) (generation.Result, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var cfg *genai.GenerateContentConfig
	if req.Modality == generation.ModalityImage && strings.Contains(model, "image") {
		cfg = &genai.GenerateContentConfig{ResponseModalities: []string{"TEXT", "IMAGE"}}
	}

	resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return generation.Result{}, providerError(err)
	}
	return classifyResponse(resp), nil
}

func classifyResponse(resp *genai.GenerateContentResponse) generation.Result {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return generation.Result{Kind: generation.KindEmpty}
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			img := media.Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}
			if !media.Supported(img.MIMEType) {
				img.MIMEType = media.Sniff(img.Data)
			}
			return generation.ImageResult(img)
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	return generation.Classify(text.String())
}

func providerError(err error) error {
	if code, msg, ok := apiError(err); ok {
		return &generation.ProviderError{Provider: ProviderName, Status: code, Message: msg, Err: err}
	}
	return &generation.ProviderError{Provider: ProviderName, Network: true, Err: err}
}

func apiError(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}
