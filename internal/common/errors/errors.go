// Package errors provides the structured error taxonomy shared by the voice
// command pipeline, its HTTP surface and its workflow workers.
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
	// Speech capture
	ErrCodeCaptureUnavailable ErrorCode = "CAPTURE_UNAVAILABLE"

	// Command handling; these become outcomes, never thrown errors
	ErrCodeClassificationMiss ErrorCode = "CLASSIFICATION_MISS"
	ErrCodeIncompleteEntities ErrorCode = "INCOMPLETE_ENTITIES"

	// Pipeline stages
	ErrCodeStageFailure          ErrorCode = "STAGE_FAILURE"
	ErrCodeRetrievalFailed       ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeRetrievalTimeout      ErrorCode = "RETRIEVAL_TIMEOUT"
	ErrCodeGenerationFailed      ErrorCode = "GENERATION_FAILED"
	ErrCodeGenerationTimeout     ErrorCode = "GENERATION_TIMEOUT"
	ErrCodeVectorSearchFailed    ErrorCode = "VECTOR_SEARCH_FAILED"
	ErrCodeInvalidAgentSelection ErrorCode = "INVALID_AGENT_SELECTION"

	// Persistence
	ErrCodeEntryBackupFailed  ErrorCode = "ENTRY_BACKUP_FAILED"
	ErrCodeEntrySubmitFailed  ErrorCode = "ENTRY_SUBMIT_FAILED"
	ErrCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION_FAILED"

	// Workflow engine
	ErrCodeWorkflowUnavailable ErrorCode = "WORKFLOW_ENGINE_UNAVAILABLE"
	ErrCodeWorkflowTimeout     ErrorCode = "WORKFLOW_ENGINE_TIMEOUT"

	// Input
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns e with an extra metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. Error Constructors
// ==========================

func NewClassificationMissError(transcript string) *StandardError {
	return newError(ErrCodeClassificationMiss, "Command not recognized", transcript, false)
}

func NewIncompleteEntitiesError(missing []string) *StandardError {
	return newError(ErrCodeIncompleteEntities, "Work entry is missing fields", strings.Join(missing, ", "), false)
}

// NewStageFailureError records a failure inside one pipeline slot.
func NewStageFailureError(stage string, err error) *StandardError {
	return newError(ErrCodeStageFailure, fmt.Sprintf("Stage '%s' failed", stage), detailsOf(err), true).
		WithMetadata("stage", stage)
}

func NewRetrievalFailedError(err error) *StandardError {
	return newError(ErrCodeRetrievalFailed, "Document retrieval failed", detailsOf(err), true)
}

func NewRetrievalTimeoutError() *StandardError {
	return newError(ErrCodeRetrievalTimeout, "Document retrieval timed out", "", true)
}

func NewGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeGenerationFailed, "Text generation failed", detailsOf(err), true)
}

func NewGenerationTimeoutError() *StandardError {
	return newError(ErrCodeGenerationTimeout, "Text generation timed out", "", true)
}

func NewVectorSearchFailedError(err error) *StandardError {
	return newError(ErrCodeVectorSearchFailed, "Vector search failed", detailsOf(err), true)
}

// NewInvalidAgentSelectionError is the only structural pipeline failure.
func NewInvalidAgentSelectionError(details string) *StandardError {
	return newError(ErrCodeInvalidAgentSelection, "Invalid agent selection", details, false)
}

func NewEntryBackupFailedError(err error) *StandardError {
	return newError(ErrCodeEntryBackupFailed, "Work entry backup failed", detailsOf(err), true)
}

func NewEntrySubmitFailedError(err error) *StandardError {
	return newError(ErrCodeEntrySubmitFailed, "Work entry submission failed", detailsOf(err), true)
}

func NewDatabaseConnectionError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnection, "Database connection failed", detailsOf(err), true)
}

func NewWorkflowUnavailableError(err error) *StandardError {
	return newError(ErrCodeWorkflowUnavailable, "Workflow engine unavailable", detailsOf(err), true)
}

func NewWorkflowTimeoutError(err error) *StandardError {
	return newError(ErrCodeWorkflowTimeout, "Workflow engine timed out", detailsOf(err), true)
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details, false)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", detailsOf(err), false)
}

// ==========================
// 3. Utility Functions
// ==========================

// FromError normalizes any error into a StandardError.
func FromError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// GetRetryCount returns the recommended retry count for a workflow job.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRetrievalFailed,
		ErrCodeGenerationFailed,
		ErrCodeVectorSearchFailed,
		ErrCodeEntryBackupFailed,
		ErrCodeEntrySubmitFailed,
		ErrCodeDatabaseConnection,
		ErrCodeWorkflowUnavailable:
		return 3

	case ErrCodeRetrievalTimeout,
		ErrCodeStageFailure,
		ErrCodeWorkflowTimeout:
		return 2

	case ErrCodeGenerationTimeout:
		return 1

	default:
		return 0
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CAPTURE"):
		return "SPEECH"
	case strings.Contains(codeStr, "RETRIEVAL") || strings.Contains(codeStr, "VECTOR"):
		return "SEARCH"
	case strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "STAGE"):
		return "AI"
	case strings.Contains(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "ENTRY") || strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "INCOMPLETE") || strings.Contains(codeStr, "CLASSIFICATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error code to the status the HTTP API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeInvalidAgentSelection:
		return http.StatusBadRequest
	case ErrCodeCaptureUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeRetrievalTimeout, ErrCodeGenerationTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeRetrievalFailed, ErrCodeGenerationFailed, ErrCodeVectorSearchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
