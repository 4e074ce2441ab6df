package sanitize

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactString_Credentials(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		keeps   string
		removes string
	}{
		{
			name:    "password assignment",
			input:   "login failed: password=hunter2 for user bob",
			keeps:   "login failed",
			removes: "hunter2",
		},
		{
			name:    "json password field",
			input:   `decode error in {"username":"bob","password":"hunter2"}`,
			keeps:   "bob",
			removes: "hunter2",
		},
		{
			name:    "bearer token",
			input:   "upstream rejected bearer abc123.def456.ghi789",
			keeps:   "upstream rejected",
			removes: "abc123",
		},
		{
			name:    "api key",
			input:   "request with api_key=sk-live-0011223344 denied",
			keeps:   "denied",
			removes: "sk-live-0011223344",
		},
		{
			name:    "jwt anywhere",
			input:   "bad token eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig123 rejected",
			keeps:   "rejected",
			removes: "eyJhbGciOiJIUzI1NiJ9",
		},
		{
			name:    "connection string",
			input:   "dial postgres://admin:pw@db.internal:5432/dokq failed",
			keeps:   "dial",
			removes: "admin:pw@db.internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RedactString(tt.input)
			assert.Contains(t, out, tt.keeps)
			assert.NotContains(t, out, tt.removes)
		})
	}
}

func TestRedactString_TruncatesHugeInput(t *testing.T) {
	huge := strings.Repeat("a", MaxRedactLength+100)
	out := RedactString(huge)
	assert.Contains(t, out, "[truncated]")
	assert.Less(t, len(out), MaxRedactLength+100)
}

func TestRedactError(t *testing.T) {
	assert.Empty(t, RedactError(nil))
	out := RedactError(errors.New("token=abc123 expired"))
	assert.NotContains(t, out, "abc123")
}
