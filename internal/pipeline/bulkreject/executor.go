// internal/pipeline/bulkreject/executor.go

// Package bulkreject mass-rejects the remaining applications for a job after
// a hire is confirmed. The update is a single bulk statement; the returned
// count is whatever actually matched, which may differ from an earlier
// preview if siblings changed stage concurrently. That drift is accepted,
// not retried.
package bulkreject

import (
	"context"
	"database/sql"

	"hiring-pipeline/internal/audit"
	"hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/common/metrics"
	"hiring-pipeline/internal/models"
)

// DefaultRejectionReason is applied when the caller gives none.
const DefaultRejectionReason = "position_filled"

// Notifier queues rejection notifications; implementations are fire-and-forget.
type Notifier interface {
	SendRejectionEmail(candidateEmail, reason string)
}

// Input identifies the job and the application to spare.
type Input struct {
	JobID               string `json:"jobId"`
	ExceptApplicationID string `json:"exceptApplicationId"`
	RejectionReason     string `json:"rejectionReason,omitempty"`
	SendEmails          bool   `json:"sendEmails,omitempty"`
	ActorID             string `json:"actorId"`
}

// Result reports how many rows the bulk update actually touched.
type Result struct {
	RejectedCount int64 `json:"rejectedCount"`
}

type Executor struct {
	db       *sql.DB
	audit    audit.Recorder
	notifier Notifier
	logger   logger.Logger
}

// NewExecutor creates a bulk rejection executor. notifier may be nil, in which
// case SendEmails is ignored.
func NewExecutor(db *sql.DB, rec audit.Recorder, notifier Notifier, log logger.Logger) *Executor {
	return &Executor{
		db:       db,
		audit:    rec,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "bulk-reject"}),
	}
}

// RejectOthers rejects every sibling application of the spared one that is not
// already in a protected stage. Never touches the spared application itself.
func (e *Executor) RejectOthers(ctx context.Context, in Input) (*Result, error) {
	reason := in.RejectionReason
	if reason == "" {
		reason = DefaultRejectionReason
	}

	var count int64
	var err error
	if in.SendEmails && e.notifier != nil {
		count, err = e.rejectAndNotify(ctx, in, reason)
	} else {
		count, err = e.reject(ctx, in, reason)
	}
	if err != nil {
		return nil, errors.NewUpdateFailedError("bulk_reject", err)
	}

	metrics.ApplicationsBulkRejected.Add(float64(count))

	e.audit.Record(ctx, audit.Entry{
		Action:     "applications_bulk_rejected",
		EntityType: "job",
		EntityID:   in.JobID,
		UserID:     in.ActorID,
		Changes: map[string]interface{}{
			"stage": string(models.StageRejected),
		},
		Metadata: map[string]interface{}{
			"rejectedCount":       count,
			"exceptApplicationId": in.ExceptApplicationID,
			"rejectionReason":     reason,
		},
	})

	e.logger.Info("bulk rejection applied", map[string]interface{}{
		"jobId":               in.JobID,
		"exceptApplicationId": in.ExceptApplicationID,
		"rejectedCount":       count,
		"rejectionReason":     reason,
	})

	return &Result{RejectedCount: count}, nil
}

func (e *Executor) reject(ctx context.Context, in Input, reason string) (int64, error) {
	res, err := e.db.ExecContext(ctx, `
		UPDATE applications
		SET stage = $1, rejected_at = NOW(), rejection_reason = $2, updated_at = NOW()
		WHERE job_id = $3 AND id <> $4 AND stage NOT IN ($5, $6, $7)`,
		models.StageRejected, reason,
		in.JobID, in.ExceptApplicationID,
		models.StageRejected, models.StageTalentPool, models.StageHired,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// rejectAndNotify uses RETURNING to collect candidate emails for the rows the
// update actually hit, then queues one rejection email per candidate.
func (e *Executor) rejectAndNotify(ctx context.Context, in Input, reason string) (int64, error) {
	rows, err := e.db.QueryContext(ctx, `
		UPDATE applications
		SET stage = $1, rejected_at = NOW(), rejection_reason = $2, updated_at = NOW()
		WHERE job_id = $3 AND id <> $4 AND stage NOT IN ($5, $6, $7)
		RETURNING id, candidate_email`,
		models.StageRejected, reason,
		in.JobID, in.ExceptApplicationID,
		models.StageRejected, models.StageTalentPool, models.StageHired,
	)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var id string
		var email sql.NullString
		if err := rows.Scan(&id, &email); err != nil {
			return count, err
		}
		count++
		if email.Valid && email.String != "" {
			e.notifier.SendRejectionEmail(email.String, reason)
		}
	}
	if err := rows.Err(); err != nil {
		return count, err
	}

	return count, nil
}
