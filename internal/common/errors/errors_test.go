package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewApplicationNotFoundError("app-1", "job-1")))
	assert.True(t, IsNotFound(NewJobNotFoundError("job-1")))
	assert.False(t, IsNotFound(NewInvalidStateError("active stage")))
	assert.False(t, IsNotFound(stderrors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestIsNotFound_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("loading stages: %w", NewJobNotFoundError("job-1"))
	assert.True(t, IsNotFound(wrapped))
}

func TestIsInvalidState(t *testing.T) {
	assert.True(t, IsInvalidState(NewInvalidStateError("stage is not terminal")))
	assert.False(t, IsInvalidState(NewApplicationNotFoundError("app-1", "job-1")))
}

func TestIsSideChannel(t *testing.T) {
	assert.True(t, IsSideChannel(NewAuditWriteFailedError(stderrors.New("timeout"))))
	assert.True(t, IsSideChannel(NewNotificationSendFailedError("email", stderrors.New("throttled"))))
	assert.False(t, IsSideChannel(NewUpdateFailedError("withdraw_application", stderrors.New("deadlock"))))
}

func TestRetryability(t *testing.T) {
	assert.False(t, NewApplicationNotFoundError("app-1", "job-1").Retryable)
	assert.False(t, NewInvalidStateError("x").Retryable)
	assert.True(t, NewPlanningFailedError(stderrors.New("x")).Retryable)
	assert.True(t, NewQueryExecutionFailedError("stage_lookup", stderrors.New("x")).Retryable)
	assert.True(t, NewUpdateFailedError("bulk_reject", stderrors.New("x")).Retryable)
}

func TestErrorString(t *testing.T) {
	err := NewJobNotFoundError("job-1")
	assert.Equal(t, "StandardError[JOB_NOT_FOUND]: Job not found", err.Error())
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", GetErrorCategory(ErrCodeApplicationNotFound))
	assert.Equal(t, "PRECONDITION", GetErrorCategory(ErrCodeInvalidState))
	assert.Equal(t, "PLANNING", GetErrorCategory(ErrCodePlanningFailed))
	assert.Equal(t, "SIDE_CHANNEL", GetErrorCategory(ErrCodeAuditWriteFailed))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeUpdateFailed))
	assert.Equal(t, "CONFIGURATION", GetErrorCategory(ErrCodeStageConfigInvalid))
}
