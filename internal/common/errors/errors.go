// Package errors provides the standardized error model shared by the itinerary
// pipeline and the surfaces that expose it (HTTP API, CLI, workflow worker).
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidTripRequest ErrorCode = "INVALID_TRIP_REQUEST"

	ErrCodeMissingStateKey   ErrorCode = "MISSING_STATE_KEY"
	ErrCodeStateKeyOverwrite ErrorCode = "STATE_KEY_OVERWRITE"

	ErrCodeTemplateNotFound     ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateRenderFailed ErrorCode = "TEMPLATE_RENDER_FAILED"

	ErrCodeWebSearchFailed  ErrorCode = "WEB_SEARCH_FAILED"
	ErrCodeWebSearchTimeout ErrorCode = "WEB_SEARCH_TIMEOUT"

	ErrCodeLLMTimeout          ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMGenerationFailed ErrorCode = "LLM_GENERATION_FAILED"

	ErrCodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeQuotaCheckFailed ErrorCode = "QUOTA_CHECK_FAILED"

	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// Coder is implemented by domain errors that know their StandardError form.
type Coder interface {
	ToStandardError() *StandardError
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail / throw-error variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

func NewInvalidTripRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidTripRequest, "Trip request is invalid", details, false, nil)
}

// NewMissingStateKeyError reports a stage whose required input is absent.
func NewMissingStateKeyError(stage, key string) *StandardError {
	e := newError(ErrCodeMissingStateKey, "Required pipeline state key is missing",
		fmt.Sprintf("stage: %s, key: %s", stage, key), false, nil)
	e.Metadata = map[string]interface{}{"stage": stage, "key": key}
	return e
}

func NewStateKeyOverwriteError(stage, key string) *StandardError {
	e := newError(ErrCodeStateKeyOverwrite, "Pipeline stage attempted to overwrite a state key",
		fmt.Sprintf("stage: %s, key: %s", stage, key), false, nil)
	e.Metadata = map[string]interface{}{"stage": stage, "key": key}
	return e
}

func NewTemplateNotFoundError(templateID string) *StandardError {
	return newError(ErrCodeTemplateNotFound, "Prompt template not found",
		fmt.Sprintf("templateId: %s", templateID), false, nil)
}

func NewTemplateRenderFailedError(templateID string, err error) *StandardError {
	return newError(ErrCodeTemplateRenderFailed, "Prompt template rendering failed",
		fmt.Sprintf("templateId: %s, error: %s", templateID, err.Error()), false, err)
}

// NewWebSearchFailedError is only ever logged: search failures degrade to a sentinel.
func NewWebSearchFailedError(backend string, err error) *StandardError {
	return newError(ErrCodeWebSearchFailed, "Web search failed",
		fmt.Sprintf("backend: %s, error: %s", backend, err.Error()), false, err)
}

func NewWebSearchTimeoutError(backend string) *StandardError {
	return newError(ErrCodeWebSearchTimeout, "Web search timed out",
		fmt.Sprintf("backend: %s", backend), false, nil)
}

func NewLLMTimeoutError(provider string, err error) *StandardError {
	return newError(ErrCodeLLMTimeout, "Language model call timed out",
		fmt.Sprintf("provider: %s, error: %s", provider, err.Error()), true, err)
}

func NewLLMGenerationFailedError(provider string, err error) *StandardError {
	return newError(ErrCodeLLMGenerationFailed, "Language model call failed",
		fmt.Sprintf("provider: %s, error: %s", provider, err.Error()), true, err)
}

func NewQuotaExceededError(client string, limit int) *StandardError {
	e := newError(ErrCodeQuotaExceeded, "Daily itinerary quota exceeded",
		fmt.Sprintf("client: %s, limit: %d", client, limit), false, nil)
	e.Metadata = map[string]interface{}{"limit": limit}
	return e
}

func NewQuotaCheckFailedError(err error) *StandardError {
	return newError(ErrCodeQuotaCheckFailed, "Quota store unavailable", err.Error(), true, err)
}

func NewConfigInvalidError(err error) *StandardError {
	return newError(ErrCodeConfigInvalid, "Configuration is invalid", err.Error(), false, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Conversion
// ==========================

// AsStandardError finds the StandardError form of err, converting domain
// errors through Coder and falling back to INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var coder Coder
	if stderrors.As(err, &coder) {
		return coder.ToStandardError()
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// GetRetryCount returns the number of job retries the workflow engine should
// grant. The pipeline itself never retries.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeLLMTimeout, ErrCodeLLMGenerationFailed:
		return 1
	case ErrCodeQuotaCheckFailed:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"errorCategory": GetErrorCategory(stdErr.Code),
			"timestamp":     stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps an error code onto the status the API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidTripRequest:
		return http.StatusBadRequest
	case ErrCodeQuotaExceeded:
		return http.StatusTooManyRequests
	case ErrCodeLLMGenerationFailed:
		return http.StatusBadGateway
	case ErrCodeLLMTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeQuotaCheckFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "STATE"):
		return "PIPELINE"
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "QUOTA"):
		return "QUOTA"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
