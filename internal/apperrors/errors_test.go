package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "classified error",
			err:      New(KindUpload, "photo upload failed"),
			expected: KindUpload,
		},
		{
			name:     "wrapped classified error",
			err:      fmt.Errorf("failed to submit: %w", New(KindWrite, "submission failed")),
			expected: KindWrite,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindRead, "couldn't load roads", cause)

	assert.Equal(t, "couldn't load roads: connection reset", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, Is(err, KindRead))
	assert.False(t, Is(err, KindWrite))
	assert.False(t, Is(nil, KindRead))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "you must be signed in", Message(New(KindAuthRequired, "you must be signed in"), "fallback"))
	assert.Equal(t, "fallback", Message(errors.New("raw"), "fallback"))
	assert.Equal(t, "fallback", Message(Wrap(KindRead, "", errors.New("raw")), "fallback"))
}
