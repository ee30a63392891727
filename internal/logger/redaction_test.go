package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name    string
		input   string
		secret  string
		present string
	}{
		{"openai key", "key=sk-proj-abcdefghijklmnopqrstuvwxyz", "sk-proj-abcdefghijklmnopqrstuvwxyz", ""},
		{"anthropic key", "using sk-ant-REDACTED", "sk-ant-REDACTED", "using"},
		{"bearer token", "Authorization: Bearer abc.def.ghi", "abc.def.ghi", "Authorization"},
		{"google token", `{"token":"ya29.a0AfH6SMBx"}`, "ya29.a0AfH6SMBx", ""},
		{"json credential", `{"refresh_token":"1//0gabc","summary":"Lunch"}`, "1//0gabc", "Lunch"},
		{"nothing sensitive", "listed 3 events", "", "listed 3 events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Redact(tt.input)
			if tt.secret != "" {
				assert.NotContains(t, out, tt.secret)
				assert.Contains(t, out, "[REDACTED]")
			}
			if tt.present != "" {
				assert.Contains(t, out, tt.present)
			}
		})
	}
}

func TestAddPattern(t *testing.T) {
	r := NewRedactor()
	require.NoError(t, r.AddPattern(`evt_[0-9]+`))
	assert.Equal(t, "deleted [REDACTED]", r.Redact("deleted evt_12345"))

	assert.Error(t, r.AddPattern(`(`))
}

func TestRedactingWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewRedactor().Wrap(&buf)

	input := []byte("token sk-abcdefghijklmnopqrstuvwxyz0123 used\n")
	n, err := w.Write(input)
	require.NoError(t, err)
	assert.Equal(t, len(input), n)
	assert.Equal(t, "token [REDACTED] used\n", buf.String())
}

func TestAddSecret(t *testing.T) {
	r := NewRedactor()
	r.AddSecret("custom-gateway-key.42")
	r.AddSecret("short")

	assert.Equal(t, "key [REDACTED] set", r.Redact("key custom-gateway-key.42 set"))
	assert.Equal(t, "short words stay", r.Redact("short words stay"))
}

func TestRedactAnthropicHeader(t *testing.T) {
	out := NewRedactor().Redact(`{"x-api-key":"gw-123456789"}`)
	assert.NotContains(t, out, "gw-123456789")
}
