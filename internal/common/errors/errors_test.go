package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedErr struct{ stage string }

func (c *codedErr) Error() string { return "coded " + c.stage }

func (c *codedErr) ToStandardError() *StandardError {
	return NewMissingStateKeyError(c.stage, "location_info")
}

func TestAsStandardError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, AsStandardError(nil))
	})

	t.Run("wrapped standard error", func(t *testing.T) {
		orig := NewTemplateNotFoundError("guide")
		got := AsStandardError(fmt.Errorf("stage guide: %w", orig))
		assert.Same(t, orig, got)
	})

	t.Run("coder", func(t *testing.T) {
		got := AsStandardError(fmt.Errorf("run: %w", &codedErr{stage: "planner"}))
		require.NotNil(t, got)
		assert.Equal(t, ErrCodeMissingStateKey, got.Code)
		assert.Equal(t, "planner", got.Metadata["stage"])
	})

	t.Run("plain error", func(t *testing.T) {
		got := AsStandardError(stderrors.New("boom"))
		assert.Equal(t, ErrCodeInternal, got.Code)
		assert.Equal(t, "boom", got.Details)
	})
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("deadline")
	err := NewLLMTimeoutError("groq", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "LLM_TIMEOUT")
	assert.True(t, err.Retryable)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidTripRequest, http.StatusBadRequest},
		{ErrCodeQuotaExceeded, http.StatusTooManyRequests},
		{ErrCodeLLMGenerationFailed, http.StatusBadGateway},
		{ErrCodeLLMTimeout, http.StatusGatewayTimeout},
		{ErrCodeQuotaCheckFailed, http.StatusServiceUnavailable},
		{ErrCodeMissingStateKey, http.StatusInternalServerError},
		{ErrCodeTemplateRenderFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	llmErr := ConvertToBPMNError(NewLLMGenerationFailedError("groq", stderrors.New("503")))
	assert.Equal(t, "LLM_GENERATION_FAILED", llmErr.Code)
	assert.Equal(t, 1, llmErr.Retries)
	assert.Equal(t, "AI", llmErr.ToErrorVariables()["errorCategory"])

	missing := ConvertToBPMNError(NewMissingStateKeyError("planner", "guide_info"))
	assert.Equal(t, 0, missing.Retries)
	assert.False(t, missing.Retryable)
	assert.Equal(t, "MISSING_STATE_KEY", missing.ToErrorVariables()["errorCode"])
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "PIPELINE", GetErrorCategory(ErrCodeMissingStateKey))
	assert.Equal(t, "PIPELINE", GetErrorCategory(ErrCodeStateKeyOverwrite))
	assert.Equal(t, "TEMPLATE", GetErrorCategory(ErrCodeTemplateRenderFailed))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeWebSearchFailed))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeLLMTimeout))
	assert.Equal(t, "QUOTA", GetErrorCategory(ErrCodeQuotaExceeded))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidTripRequest))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
	assert.False(t, IsRetryableErrorCode(ErrCodeMissingStateKey))
	assert.True(t, IsRetryableErrorCode(ErrCodeLLMTimeout))
}
