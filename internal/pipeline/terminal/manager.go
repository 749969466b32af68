// internal/pipeline/terminal/manager.go

// Package terminal handles the outcome operations of the pipeline: withdraw,
// reopen and hire. These are special-cased because they touch multiple
// timestamp fields and carry validity preconditions. All updates use the
// compound application/job key as the only concurrency guard.
package terminal

import (
	"context"
	"database/sql"
	"fmt"

	"hiring-pipeline/internal/audit"
	"hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/common/metrics"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/pipeline/bulkreject"
)

// BulkRejector commits the reject-others suggestion a caller accepted.
type BulkRejector interface {
	RejectOthers(ctx context.Context, in bulkreject.Input) (*bulkreject.Result, error)
}

type Manager struct {
	db       *sql.DB
	audit    audit.Recorder
	rejector BulkRejector
	logger   logger.Logger
}

// NewManager creates a terminal state manager. rejector may be nil if hires
// never bulk-reject.
func NewManager(db *sql.DB, rec audit.Recorder, rejector BulkRejector, log logger.Logger) *Manager {
	return &Manager{
		db:       db,
		audit:    rec,
		rejector: rejector,
		logger:   log.WithFields(map[string]interface{}{"component": "terminal-state"}),
	}
}

// WithdrawInput identifies the application to withdraw.
type WithdrawInput struct {
	ApplicationID string `json:"applicationId"`
	JobID         string `json:"jobId"`
	Reason        string `json:"reason,omitempty"`
	ActorID       string `json:"actorId"`
}

// WithdrawResult reports success.
type WithdrawResult struct {
	Success bool `json:"success"`
}

// Withdraw moves the application to the withdrawn stage and stamps deleted_at.
// Prior rejection/hire history is deliberately kept: withdrawal does not erase it.
func (m *Manager) Withdraw(ctx context.Context, in WithdrawInput) (*WithdrawResult, error) {
	fromStage, err := m.currentStage(ctx, in.ApplicationID, in.JobID)
	if err != nil {
		metrics.TerminalOperations.WithLabelValues("withdraw", "error").Inc()
		return nil, err
	}

	_, err = m.db.ExecContext(ctx, `
		UPDATE applications
		SET stage = $1, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND job_id = $3`,
		models.StageWithdrawn, in.ApplicationID, in.JobID,
	)
	if err != nil {
		metrics.TerminalOperations.WithLabelValues("withdraw", "error").Inc()
		return nil, errors.NewUpdateFailedError("withdraw_application", err)
	}

	m.audit.Record(ctx, audit.Entry{
		Action:     "application_withdrawn",
		EntityType: "application",
		EntityID:   in.ApplicationID,
		UserID:     in.ActorID,
		Changes: map[string]interface{}{
			"stage": map[string]interface{}{
				"from": string(fromStage),
				"to":   string(models.StageWithdrawn),
			},
		},
		Metadata: map[string]interface{}{
			"jobId":  in.JobID,
			"reason": in.Reason,
		},
	})

	metrics.TerminalOperations.WithLabelValues("withdraw", "success").Inc()
	m.logger.Info("application withdrawn", map[string]interface{}{
		"applicationId": in.ApplicationID,
		"jobId":         in.JobID,
		"fromStage":     fromStage,
		"reason":        in.Reason,
	})

	return &WithdrawResult{Success: true}, nil
}

// ReopenInput identifies the application to reopen. RestoreToStage defaults to
// the applied stage.
type ReopenInput struct {
	ApplicationID  string       `json:"applicationId"`
	JobID          string       `json:"jobId"`
	RestoreToStage models.Stage `json:"restoreToStage,omitempty"`
	ActorID        string       `json:"actorId"`
}

// ReopenResult reports the stage the application was restored to.
type ReopenResult struct {
	Success bool         `json:"success"`
	Stage   models.Stage `json:"stage"`
}

// Reopen restores a terminal application to an active stage, resetting its
// full outcome history: rejection fields, hire timestamp and the withdrawal
// marker are all cleared.
func (m *Manager) Reopen(ctx context.Context, in ReopenInput) (*ReopenResult, error) {
	restoreTo := in.RestoreToStage
	if restoreTo == "" {
		restoreTo = models.StageApplied
	}

	fromStage, err := m.currentStage(ctx, in.ApplicationID, in.JobID)
	if err != nil {
		metrics.TerminalOperations.WithLabelValues("reopen", "error").Inc()
		return nil, err
	}

	if !fromStage.IsTerminal() {
		metrics.TerminalOperations.WithLabelValues("reopen", "invalid_state").Inc()
		return nil, errors.NewInvalidStateError(fmt.Sprintf(
			"application %s is in stage %q; reopening is only defined from %v",
			in.ApplicationID, fromStage, models.TerminalStages))
	}

	_, err = m.db.ExecContext(ctx, `
		UPDATE applications
		SET stage = $1, stage_order = 0,
		    rejected_at = NULL, rejection_reason = NULL, rejection_note = NULL,
		    hired_at = NULL, deleted_at = NULL, updated_at = NOW()
		WHERE id = $2 AND job_id = $3`,
		restoreTo, in.ApplicationID, in.JobID,
	)
	if err != nil {
		metrics.TerminalOperations.WithLabelValues("reopen", "error").Inc()
		return nil, errors.NewUpdateFailedError("reopen_application", err)
	}

	m.audit.Record(ctx, audit.Entry{
		Action:     "application_reopened",
		EntityType: "application",
		EntityID:   in.ApplicationID,
		UserID:     in.ActorID,
		Changes: map[string]interface{}{
			"stage": map[string]interface{}{
				"from": string(fromStage),
				"to":   string(restoreTo),
			},
		},
		Metadata: map[string]interface{}{
			"jobId": in.JobID,
		},
	})

	metrics.TerminalOperations.WithLabelValues("reopen", "success").Inc()
	m.logger.Info("application reopened", map[string]interface{}{
		"applicationId": in.ApplicationID,
		"jobId":         in.JobID,
		"fromStage":     fromStage,
		"restoredTo":    restoreTo,
	})

	return &ReopenResult{Success: true, Stage: restoreTo}, nil
}

// MarkHiredInput identifies the application to hire. RejectRemaining commits
// the reject-others suggestion the caller already saw and accepted; the
// planner is not consulted again.
type MarkHiredInput struct {
	ApplicationID   string `json:"applicationId"`
	JobID           string `json:"jobId"`
	ActorID         string `json:"actorId"`
	RejectRemaining bool   `json:"rejectRemaining,omitempty"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

// MarkHiredResult reports success and, when RejectRemaining was set, the
// number of siblings actually rejected.
type MarkHiredResult struct {
	Success       bool   `json:"success"`
	RejectedCount *int64 `json:"rejectedCount,omitempty"`
}

// MarkHired moves the application to the hired stage and stamps hired_at.
func (m *Manager) MarkHired(ctx context.Context, in MarkHiredInput) (*MarkHiredResult, error) {
	res, err := m.db.ExecContext(ctx, `
		UPDATE applications
		SET stage = $1, hired_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND job_id = $3`,
		models.StageHired, in.ApplicationID, in.JobID,
	)
	if err != nil {
		metrics.TerminalOperations.WithLabelValues("hire", "error").Inc()
		return nil, errors.NewUpdateFailedError("mark_hired", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		metrics.TerminalOperations.WithLabelValues("hire", "not_found").Inc()
		return nil, errors.NewApplicationNotFoundError(in.ApplicationID, in.JobID)
	}

	m.audit.Record(ctx, audit.Entry{
		Action:     "application_hired",
		EntityType: "application",
		EntityID:   in.ApplicationID,
		UserID:     in.ActorID,
		Changes: map[string]interface{}{
			"stage": string(models.StageHired),
		},
		Metadata: map[string]interface{}{
			"jobId": in.JobID,
		},
	})

	metrics.TerminalOperations.WithLabelValues("hire", "success").Inc()
	m.logger.Info("application hired", map[string]interface{}{
		"applicationId": in.ApplicationID,
		"jobId":         in.JobID,
	})

	result := &MarkHiredResult{Success: true}

	if in.RejectRemaining && m.rejector != nil {
		bulk, err := m.rejector.RejectOthers(ctx, bulkreject.Input{
			JobID:               in.JobID,
			ExceptApplicationID: in.ApplicationID,
			RejectionReason:     in.RejectionReason,
			ActorID:             in.ActorID,
		})
		if err != nil {
			// The hire itself succeeded; surface the bulk failure.
			return result, err
		}
		result.RejectedCount = &bulk.RejectedCount
	}

	return result, nil
}

// currentStage loads the application's stage, failing with NotFound when the
// application/job pair does not exist.
func (m *Manager) currentStage(ctx context.Context, applicationID, jobID string) (models.Stage, error) {
	var stage models.Stage
	err := m.db.QueryRowContext(ctx, `
		SELECT stage FROM applications
		WHERE id = $1 AND job_id = $2`, applicationID, jobID).Scan(&stage)
	if err == sql.ErrNoRows {
		return "", errors.NewApplicationNotFoundError(applicationID, jobID)
	}
	if err != nil {
		return "", errors.NewQueryExecutionFailedError("application_stage", err)
	}
	return stage, nil
}
