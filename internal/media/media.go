// Package media handles the reference and generated images exchanged with clients
// as data URIs.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
)

var (
	ErrEmptyImage       = errors.New("image payload is empty")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// Image is a binary image tagged with its MIME type.
type Image struct {
	Data     []byte
	MIMEType string
}

// Supported reports whether mime is one of the accepted reference image types.
func Supported(mime string) bool {
	switch normalizeMIME(mime) {
	case MIMEJPEG, MIMEPNG, MIMEWebP:
		return true
	default:
		return false
	}
}

// Validate checks that the image has data and an accepted MIME type.
func (img Image) Validate() error {
	if len(img.Data) == 0 {
		return ErrEmptyImage
	}
	if !Supported(img.MIMEType) {
		return fmt.Errorf("%w: %q", ErrUnsupportedImage, img.MIMEType)
	}
	return nil
}

// DataURI renders the image as data:<mime>;base64,<payload>.
func (img Image) DataURI() string {
	mime := normalizeMIME(img.MIMEType)
	if mime == "" {
		mime = MIMEPNG
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// ParseDataURI decodes a data URI, or a bare base64 payload. The declared MIME
// type wins; a missing or unrecognised declaration falls back to sniffing.
func ParseDataURI(raw string) (Image, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Image{}, ErrEmptyImage
	}

	declared := ""
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		header, body, ok := strings.Cut(raw, ",")
		if !ok {
			return Image{}, errors.New("malformed data uri: missing payload separator")
		}
		payload = body
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return Image{}, errors.New("malformed data uri: only base64 payloads are accepted")
		}
		declared = normalizeMIME(strings.TrimSuffix(meta, ";base64"))
	} else if _, body, ok := strings.Cut(raw, ","); ok {
		payload = body
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode image payload: %w", err)
	}
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}

	mime := declared
	if !Supported(mime) {
		mime = Sniff(data)
	}
	return Image{Data: data, MIMEType: mime}, nil
}

// Sniff detects the MIME type from the payload, defaulting to JPEG like the
// browsers that produced most uploads.
func Sniff(data []byte) string {
	mime := normalizeMIME(http.DetectContentType(data))
	if Supported(mime) {
		return mime
	}
	return MIMEJPEG
}

func normalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "image/jpg" {
		return MIMEJPEG
	}
	return mime
}

func decodeBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
}
