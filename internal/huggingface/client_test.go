package huggingface

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ent0n29/amora/internal/generation"
	"github.com/ent0n29/amora/internal/media"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13}

func TestGenerateReturnsImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/org/model-a" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"inputs":"two lovers"`) {
			t.Errorf("body = %s", body)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "tok")
	res, err := c.Generate(context.Background(), "org/model-a", generation.Request{Prompt: "two lovers", Modality: generation.ModalityImage})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Kind != generation.KindEmbeddedImage || res.Image == nil {
		t.Fatalf("result = %+v, want embedded image", res)
	}
	if res.Image.MIMEType != media.MIMEPNG {
		t.Fatalf("mime = %q", res.Image.MIMEType)
	}
}

func TestGenerateLoadingCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":12.5}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Generate(context.Background(), "m", generation.Request{Prompt: "p"})
	var pe *generation.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want ProviderError", err)
	}
	if pe.Status != http.StatusServiceUnavailable || !strings.Contains(string(pe.Body), "estimated_time") {
		t.Fatalf("provider error = %+v", pe)
	}
	if pe.Malformed || pe.Network {
		t.Fatalf("503 should be neither malformed nor network: %+v", pe)
	}
}

func TestGenerateJSONOnSuccessIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"Authorization header is invalid"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Generate(context.Background(), "m", generation.Request{Prompt: "p"})
	var pe *generation.ProviderError
	if !errors.As(err, &pe) || !pe.Malformed {
		t.Fatalf("error = %v, want malformed ProviderError", err)
	}
	if pe.Message != "Authorization header is invalid" {
		t.Fatalf("message = %q", pe.Message)
	}
}

func TestGenerateNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, "").Generate(context.Background(), "m", generation.Request{Prompt: "p"})
	var pe *generation.ProviderError
	if !errors.As(err, &pe) || !pe.Network {
		t.Fatalf("error = %v, want network ProviderError", err)
	}
}
