// Package huggingface calls the hosted inference API for text-to-image models.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/amora/internal/generation"
	"github.com/ent0n29/amora/internal/media"
)

// ProviderName tags variants served by this package.
const ProviderName = "huggingface"

const (
	maxErrorBody = 4 << 10
	maxImageBody = 32 << 20
)

// Client posts prompts to {baseURL}/{model} and expects binary image bytes back.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client: &http.Client{
			// Per-attempt deadlines come from the caller's context.
			Timeout: 5 * time.Minute,
		},
	}
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// Generate performs a single inference attempt. Every failure is a
// *generation.ProviderError so the retry policy can read status and body.
func (c *Client) Generate(ctx context.Context, model string, req generation.Request) (generation.Result, error) {
	payload, err := json.Marshal(inferenceRequest{Inputs: req.Prompt})
	if err != nil {
		return generation.Result{}, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/" + strings.TrimLeft(model, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return generation.Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "image/*")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		return generation.Result{}, &generation.ProviderError{Provider: ProviderName, Network: true, Err: err}
	}
	defer res.Body.Close()

	ct := strings.ToLower(res.Header.Get("Content-Type"))
	ok := res.StatusCode >= 200 && res.StatusCode < 300
	if ok && strings.HasPrefix(ct, "image/") {
		data, err := io.ReadAll(io.LimitReader(res.Body, maxImageBody))
		if err != nil {
			return generation.Result{}, &generation.ProviderError{Provider: ProviderName, Network: true, Message: "read image", Err: err}
		}
		img := media.Image{Data: data, MIMEType: ct}
		if !media.Supported(ct) {
			img.MIMEType = media.Sniff(data)
		}
		if err := img.Validate(); err != nil {
			return generation.Result{}, &generation.ProviderError{Provider: ProviderName, Status: res.StatusCode, Malformed: true, Err: err}
		}
		return generation.ImageResult(img), nil
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	if ok {
		return generation.Result{}, &generation.ProviderError{
			Provider:  ProviderName,
			Status:    res.StatusCode,
			Body:      body,
			Malformed: true,
			Message:   malformedMessage(body),
		}
	}
	return generation.Result{}, &generation.ProviderError{
		Provider: ProviderName,
		Status:   res.StatusCode,
		Body:     body,
		Message:  truncate(strings.TrimSpace(string(body)), 200),
	}
}

func malformedMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return "unexpected response format: " + truncate(strings.TrimSpace(string(body)), 100)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
