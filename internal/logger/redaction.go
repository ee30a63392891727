package logger

import (
	"bytes"
	"io"
	"regexp"
)

var redactedMarker = []byte("[REDACTED]")

// minSecretLength keeps short config values from blanking out ordinary words.
const minSecretLength = 8

// Redactor replaces credentials in log output with [REDACTED].
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor for the credentials this agent handles:
// completion backend keys, bearer and x-api-key headers, and the OAuth tokens
// calendar tool servers tend to echo back.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// OpenAI and Anthropic API keys
			regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`),
			regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),

			// Authorization headers
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),
			regexp.MustCompile(`(?i)x-api-key"?\s*[:=]\s*"?[^\s",}]+`),

			// Google OAuth access tokens
			regexp.MustCompile(`ya29\.[a-zA-Z0-9._-]+`),

			// Named credentials in JSON or key=value form
			regexp.MustCompile(`(?i)"?(api_key|access_token|refresh_token|client_secret)"?\s*[:=]\s*"?[^\s",}]+`),
		},
	}
}

// AddPattern adds a custom redaction pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}

// AddSecret redacts every literal occurrence of value. Values shorter than
// eight bytes are ignored.
func (r *Redactor) AddSecret(value string) {
	if len(value) < minSecretLength {
		return
	}
	r.patterns = append(r.patterns, regexp.MustCompile(regexp.QuoteMeta(value)))
}

// Redact redacts sensitive information from a string
func (r *Redactor) Redact(s string) string {
	return string(r.redact([]byte(s)))
}

func (r *Redactor) redact(p []byte) []byte {
	for _, pattern := range r.patterns {
		if pattern.Match(p) {
			p = pattern.ReplaceAll(p, redactedMarker)
		}
	}
	return p
}

// Wrap wraps an io.Writer to redact sensitive information
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success so that zerolog does not treat a
// shortened, redacted line as a short write.
func (w *redactingWriter) Write(p []byte) (int, error) {
	out := w.redactor.redact(bytes.Clone(p))
	if _, err := w.writer.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
