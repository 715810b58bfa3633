package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	rerrors "github.com/Aman-CERP/ruleseek/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout, "Request timed out."},
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), ErrCodeTimeout, "Request was canceled."},
		{"tool not found", ErrToolNotFound, ErrCodeMethodNotFound, "Tool not found."},
		{"invalid params", ErrInvalidParams, ErrCodeInvalidParams, "Invalid parameters."},
		{"unknown", errors.New("boom"), ErrCodeInternalError, "Internal server error."},
		{
			"empty question",
			rerrors.New(rerrors.ErrCodeQuestionEmpty, "Вопрос не может быть пустым", nil),
			ErrCodeInvalidParams, "Вопрос не может быть пустым",
		},
		{
			"no rules with suggestion",
			rerrors.New(rerrors.ErrCodeNoRulesLoaded, "no rules", nil).WithSuggestion("Check rules.path."),
			ErrCodeNoRules, "no rules Check rules.path.",
		},
		{
			"storage",
			rerrors.New(rerrors.ErrCodeStorageFailed, "disk full", nil),
			ErrCodeUnavailable, "disk full",
		},
		{
			"webhook",
			rerrors.NetworkError("webhook down", nil),
			ErrCodeUnavailable, "webhook down",
		},
		{
			"internal",
			rerrors.InternalError("bug", nil),
			ErrCodeInternalError, "bug",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)

			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

func TestMapError_NilAndPassthrough(t *testing.T) {
	assert.Nil(t, MapError(nil))

	orig := NewInvalidParamsError("bad")
	assert.Same(t, orig, MapError(fmt.Errorf("ctx: %w", orig)))
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("x")
	assert.Equal(t, "MCP error -32601: Tool 'x' not found.", err.Error())
}
