package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("stage documents: %w", NewRetrievalTimeoutError())
	stdErr := FromError(wrapped)
	require.NotNil(t, stdErr)
	assert.Equal(t, ErrCodeRetrievalTimeout, stdErr.Code)

	plain := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
	assert.False(t, plain.Retryable)
}

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeRetrievalFailed, 3},
		{ErrCodeGenerationFailed, 3},
		{ErrCodeRetrievalTimeout, 2},
		{ErrCodeGenerationTimeout, 1},
		{ErrCodeInvalidAgentSelection, 0},
		{ErrCodeCaptureUnavailable, 0},
		{ErrCodeClassificationMiss, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetRetryCount(tt.code))
		})
	}
}

func TestToJobError_NonRetryableHasNoRetries(t *testing.T) {
	stdErr := NewRetrievalFailedError(stderrors.New("503"))
	stdErr.Retryable = false

	jobErr := ToJobError(stdErr)
	assert.Equal(t, 0, jobErr.Retries)
	assert.Equal(t, "RETRIEVAL_FAILED", jobErr.Code)

	vars := jobErr.ToErrorVariables(stdErr)
	assert.Equal(t, "RETRIEVAL_FAILED", vars["errorCode"])
	assert.Equal(t, "503", vars["errorDetails"])
}

func TestStageFailureMetadata(t *testing.T) {
	stdErr := NewStageFailureError("faultPatterns", stderrors.New("timeout"))
	assert.Equal(t, "faultPatterns", stdErr.Metadata["stage"])
	assert.Contains(t, stdErr.Error(), "STAGE_FAILURE")
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "SPEECH", GetErrorCategory(ErrCodeCaptureUnavailable))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeVectorSearchFailed))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeGenerationTimeout))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeEntryBackupFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidAgentSelection))
	assert.Equal(t, "WORKFLOW", GetErrorCategory(ErrCodeWorkflowTimeout))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodeInvalidAgentSelection))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(ErrCodeGenerationTimeout))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(ErrCodeRetrievalFailed))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodeInternal))
}
