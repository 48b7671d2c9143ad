package generation

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrorKind is the failure class surfaced to callers.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindConfiguration       ErrorKind = "configuration"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindUpstreamMalformed   ErrorKind = "upstream_malformed"
)

// Error is the structured failure returned by Orchestrator.Run.
type Error struct {
	Kind    ErrorKind
	Message string
	Prompt  string
	// Detail is the last underlying provider error.
	Detail  string
	Retries int
	// EstimatedWait is the last warm-up estimate in seconds, zero when unknown.
	EstimatedWait float64
	// Timeout marks a run cut short by the caller's deadline.
	Timeout bool
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind) + ": " + e.Message + ": " + e.Detail
}

// AsError extracts a generation *Error from err.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsKind reports whether err carries a generation error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	ge, ok := AsError(err)
	return ok && ge.Kind == kind
}

// Validation builds a validation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Configuration builds a configuration error.
func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// ProviderError is one failed attempt as reported by a provider adapter.
type ProviderError struct {
	Provider string
	Status   int
	Body     []byte
	// Network is set for transport failures and per-attempt timeouts.
	Network bool
	// Malformed is set for responses that arrived but carried no usable payload.
	Malformed bool
	Message   string
	Err       error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Network:
		return e.Provider + ": network error: " + msg
	case e.Status > 0:
		return e.Provider + ": status " + strconv.Itoa(e.Status) + ": " + msg
	default:
		return e.Provider + ": " + msg
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// errUnusable marks a response that classified fine but did not satisfy the modality.
var errUnusable = errors.New("response did not satisfy requested modality")

func unavailableMessage(modality Modality, estimated float64) string {
	if estimated > 0 {
		return fmt.Sprintf("The %s generation model is still loading (estimated %ds). Please wait a moment and try again.", modality, int(estimated))
	}
	return fmt.Sprintf("%s generation service is temporarily unavailable. Please try again in a few moments.", modalityTitle(modality))
}

func modalityTitle(m Modality) string {
	switch m {
	case ModalityImage:
		return "Image"
	case ModalityText:
		return "Text"
	default:
		return "Content"
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, errUnusable) {
		return "unusable"
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return "error"
	}
	switch {
	case pe.Network:
		return "network"
	case pe.Malformed:
		return "malformed"
	case pe.Status == 503:
		return "loading"
	case pe.Status == 429:
		return "rate_limited"
	case pe.Status >= 500:
		return "server_error"
	case pe.Status >= 400:
		return "client_error"
	default:
		return "error"
	}
}
