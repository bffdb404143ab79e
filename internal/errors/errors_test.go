package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeBaseError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *KnowledgeBaseError
		want string
	}{
		{
			name: "whole file",
			err:  NewKnowledgeBaseError("qa.json", -1, "", "not a JSON array"),
			want: "malformed knowledge base (file=qa.json): not a JSON array",
		},
		{
			name: "record without field",
			err:  NewKnowledgeBaseError("courses.json", 3, "", "duplicate code"),
			want: "malformed knowledge base (file=courses.json, index=3): duplicate code",
		},
		{
			name: "record with field",
			err:  NewKnowledgeBaseError("courses.json", 0, "level", `unknown level "600"`),
			want: `malformed knowledge base (file=courses.json, index=0, field=level): unknown level "600"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, IsMalformedKnowledgeBase(tt.err))
		})
	}
}

func TestKnowledgeBaseErrorThroughWrapping(t *testing.T) {
	t.Parallel()

	base := NewKnowledgeBaseError("qa.json", 1, "question", "missing")
	wrapped := fmt.Errorf("load: %w", base)

	assert.True(t, IsMalformedKnowledgeBase(wrapped))
	assert.False(t, IsEncoderUnavailable(wrapped))

	var kbErr *KnowledgeBaseError
	require.True(t, errors.As(wrapped, &kbErr))
	assert.Equal(t, 1, kbErr.Index)
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := NewValidationError("message", "must not be empty")
	assert.Equal(t, "validation failed on message: must not be empty", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIsEncoderUnavailable(t *testing.T) {
	t.Parallel()

	assert.True(t, IsEncoderUnavailable(fmt.Errorf("gemini: %w", ErrEncoderUnavailable)))
	assert.False(t, IsEncoderUnavailable(ErrTimeout))
	assert.False(t, IsEncoderUnavailable(nil))
}
