// Package redact masks credentials and personal data before text leaves the
// process in error details or logs.
package redact

import "regexp"

var (
	googleKeyPattern = regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`)
	hfTokenPattern   = regexp.MustCompile(`hf_[0-9A-Za-z]{20,}`)
	bearerPattern    = regexp.MustCompile(`(?i)bearer\s+[0-9A-Za-z._\-]+`)
	keyParamPattern  = regexp.MustCompile(`(?i)([?&](?:key|api_key|token)=)[^&\s"']+`)

	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
)

// Secrets masks API keys and tokens.
func Secrets(input string) (redacted string, changed bool) {
	out := input

	next := keyParamPattern.ReplaceAllString(out, "${1}[REDACTED]")
	changed = changed || next != out
	out = next

	next = bearerPattern.ReplaceAllString(out, "Bearer [REDACTED]")
	changed = changed || next != out
	out = next

	for _, p := range []*regexp.Regexp{googleKeyPattern, hfTokenPattern} {
		next = p.ReplaceAllString(out, "[REDACTED_KEY]")
		changed = changed || next != out
		out = next
	}
	return out, changed
}

// PII masks common high-risk PII patterns.
func PII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	// Cards first so long digit runs are not taken for phone numbers.
	next = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}

// All applies Secrets then PII.
func All(input string) string {
	out, _ := Secrets(input)
	out, _ = PII(out)
	return out
}
