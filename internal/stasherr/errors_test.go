package stasherr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"config", NewConfigError("root_container", ErrNoRootContainer), IsConfig},
		{"transform", NewTransformError("encryption", "a.jpg", OpReverse, ErrDecrypt), IsTransform},
		{"backend", NewBackendError(OpGet, "bucket", "a/b.jpg", errors.New("404")), IsBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("stash container: %w", tt.err)
			assert.True(t, tt.check(wrapped))
		})
	}
}

func TestTransformErrorUnwrapsSentinel(t *testing.T) {
	err := fmt.Errorf("retrieve: %w", NewTransformError("encryption", "a.jpg", OpReverse, ErrSuffixMissing))
	assert.ErrorIs(t, err, ErrSuffixMissing)
	assert.False(t, IsBackend(err))
	assert.Contains(t, err.Error(), `encryption reverse on "a.jpg"`)
}
