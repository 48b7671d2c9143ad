package generation

import (
	"regexp"
	"strings"

	"github.com/ent0n29/amora/internal/media"
)

var (
	inlineImagePattern = regexp.MustCompile(`data:image/[^;]+;base64,[^\s"']+`)
	imageURLPattern    = regexp.MustCompile(`(?i)https?://[^\s"']+\.(jpg|jpeg|png|webp)`)
)

// Classify turns raw model text into a tagged Result. Inline base64 images win
// over image URLs; anything else non-blank is text.
func Classify(raw string) Result {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Result{Kind: KindEmpty}
	}

	if match := inlineImagePattern.FindString(text); match != "" {
		if img, err := media.ParseDataURI(match); err == nil {
			return Result{Kind: KindEmbeddedImage, Image: &img}
		}
		return Result{Kind: KindEmbeddedImage, ImageURL: match}
	}
	if match := imageURLPattern.FindString(text); match != "" {
		return Result{Kind: KindEmbeddedImage, ImageURL: match}
	}
	return Result{Kind: KindText, Text: text}
}

// ImageResult wraps binary provider output.
func ImageResult(img media.Image) Result {
	return Result{Kind: KindEmbeddedImage, Image: &img}
}
