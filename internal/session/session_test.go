package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr string
	}{
		{"browser id", "session_1709290000000_k3j9x0a1b", ""},
		{"uuid", "0b7c2d0e-4a43-4d8b-9a57-6f6a1f0e9c11", ""},
		{"empty", "", "cannot be empty"},
		{"too long", strings.Repeat("a", 129), "too long"},
		{"space", "my session", "can only contain"},
		{"slash", "../etc", "can only contain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.id)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSession_IsActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Session{LastSeen: now.Add(-4 * time.Minute)}

	assert.True(t, s.IsActive(now, 5*time.Minute))
	assert.False(t, s.IsActive(now, 4*time.Minute), "window is exclusive")
}
