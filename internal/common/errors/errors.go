// Package errors provides standardized error handling for the pipeline engine.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Fatal to the caller: surfaced as explicit failures.
	ErrCodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeJobNotFound         ErrorCode = "JOB_NOT_FOUND"
	ErrCodeInvalidState        ErrorCode = "INVALID_STATE"

	// Recovered locally: planning degrades to a permissive empty plan.
	ErrCodePlanningFailed ErrorCode = "PLANNING_FAILED"

	// Logged only, never propagated or retried by this subsystem.
	ErrCodeAuditWriteFailed       ErrorCode = "AUDIT_WRITE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	// Storage-level codes.
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeUpdateFailed             ErrorCode = "UPDATE_FAILED"

	ErrCodeStageConfigInvalid ErrorCode = "STAGE_CONFIG_INVALID"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewApplicationNotFoundError creates a non-retryable not-found error for an
// application/job pair.
func NewApplicationNotFoundError(applicationID, jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Application not found for job",
		Details:   fmt.Sprintf("applicationId: %s, jobId: %s", applicationID, jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobNotFoundError creates a non-retryable job not-found error.
func NewJobNotFoundError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobNotFound,
		Message:   "Job not found",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStateError creates a non-retryable precondition error, e.g.
// reopening an application whose current stage is not terminal.
func NewInvalidStateError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidState,
		Message:   "Operation not valid for current application state",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanningFailedError wraps any failure while computing a transition plan.
// Callers recover from it by returning a permissive empty plan.
func NewPlanningFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePlanningFailed,
		Message:   "Transition plan computation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditWriteFailedError creates a side-channel error: logged, never propagated.
func NewAuditWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditWriteFailed,
		Message:   "Audit log write failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a side-channel error: logged, never propagated.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpdateFailedError creates a retryable update error.
func NewUpdateFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpdateFailed,
		Message:   "Database update failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStageConfigInvalidError records a malformed stage configuration. The
// registry degrades to the fallback stage instead of surfacing this.
func NewStageConfigInvalidError(jobID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStageConfigInvalid,
		Message:   "Job stage configuration is invalid",
		Details:   fmt.Sprintf("jobId: %s, %s", jobID, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsNotFound reports whether err is an application or job not-found error.
func IsNotFound(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == ErrCodeApplicationNotFound || stdErr.Code == ErrCodeJobNotFound
	}
	return false
}

// IsInvalidState reports whether err is a state precondition failure.
func IsInvalidState(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == ErrCodeInvalidState
	}
	return false
}

// IsSideChannel reports whether err belongs to the fire-and-forget side
// channel (audit/notification); such errors are logged and dropped.
func IsSideChannel(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == ErrCodeAuditWriteFailed || stdErr.Code == ErrCodeNotificationSendFailed
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "INVALID_STATE"):
		return "PRECONDITION"
	case strings.Contains(codeStr, "PLANNING"):
		return "PLANNING"
	case strings.Contains(codeStr, "AUDIT") || strings.Contains(codeStr, "NOTIFICATION"):
		return "SIDE_CHANNEL"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "UPDATE"):
		return "DATABASE"
	case strings.Contains(codeStr, "CONFIG"):
		return "CONFIGURATION"
	default:
		return "OTHER"
	}
}
