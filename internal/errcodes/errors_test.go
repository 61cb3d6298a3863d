package errcodes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("disk unavailable")

	engErr := New(ErrCodeStoreUnavailable, "content store unavailable", originalErr)

	require.NotNil(t, engErr)
	assert.Equal(t, originalErr, errors.Unwrap(engErr))
	assert.True(t, errors.Is(engErr, originalErr))
}

func TestEngineError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "dimension mismatch",
			code:     ErrCodeDimensionMismatch,
			message:  "expected 384 got 768",
			expected: "[ERR_303_DIMENSION_MISMATCH] expected 384 got 768",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestEngineError_Is_MatchesByCode(t *testing.T) {
	a := New(ErrCodeJobNotFound, "job 1 not found", nil)
	b := New(ErrCodeJobNotFound, "job 2 not found", nil)
	c := New(ErrCodeChunkNotFound, "chunk not found", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestCategoryFromCode(t *testing.T) {
	assert.Equal(t, CategoryConfig, GetCategory(New(ErrCodeConfigInvalid, "", nil)))
	assert.Equal(t, CategoryStorage, GetCategory(New(ErrCodeCorruptIndex, "", nil)))
	assert.Equal(t, CategoryModel, GetCategory(New(ErrCodeModelTimeout, "", nil)))
	assert.Equal(t, CategoryValidation, GetCategory(New(ErrCodeQueryEmpty, "", nil)))
	assert.Equal(t, CategoryInternal, GetCategory(New(ErrCodeInternal, "", nil)))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeModelTimeout, "timed out", nil)))
	assert.False(t, IsRetryable(New(ErrCodeInvalidInput, "bad input", nil)))
	assert.False(t, IsRetryable(nil))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeCorruptIndex, "index corrupt", nil)))
	assert.False(t, IsFatal(New(ErrCodeQueryEmpty, "empty query", nil)))
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeInvalidPath, "bad path", nil).
		WithDetail("path", "/tmp/x").
		WithSuggestion("use an absolute path")

	assert.Equal(t, "/tmp/x", err.Details["path"])
	assert.Equal(t, "use an absolute path", err.Suggestion)
}
