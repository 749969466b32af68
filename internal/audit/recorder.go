// internal/audit/recorder.go

// Package audit records pipeline mutations as a fire-and-forget side channel.
// Audit failures are logged and counted but never propagate to, or roll back,
// the primary operation.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/common/metrics"

	"github.com/google/uuid"
)

// Entry is one audit record.
type Entry struct {
	Action     string                 `json:"action"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId"`
	UserID     string                 `json:"userId"`
	Changes    map[string]interface{} `json:"changes,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Recorder accepts audit entries without reporting failures to the caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Sink is a synchronous audit destination.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// PostgresSink writes audit entries to the audit_log table.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Write(ctx context.Context, entry Entry) error {
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		changes = []byte("{}")
	}
	meta, err := json.Marshal(entry.Metadata)
	if err != nil {
		meta = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, action, entity_type, entity_id, user_id, changes, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(),
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.UserID,
		changes,
		meta,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// AsyncRecorder detaches each write onto its own goroutine. The goroutine uses
// a fresh context so a cancelled caller does not drop the audit trail.
type AsyncRecorder struct {
	sink    Sink
	timeout time.Duration
	logger  logger.Logger
	wg      sync.WaitGroup
}

func NewAsyncRecorder(sink Sink, log logger.Logger) *AsyncRecorder {
	return &AsyncRecorder{
		sink:    sink,
		timeout: 5 * time.Second,
		logger:  log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// Record queues the entry and returns immediately.
func (r *AsyncRecorder) Record(_ context.Context, entry Entry) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.sink.Write(ctx, entry); err != nil {
			metrics.AuditWriteFailures.Inc()
			r.logger.Warn("audit log write failed", map[string]interface{}{
				"action":   entry.Action,
				"entityId": entry.EntityID,
				"error":    err.Error(),
			})
		}
	}()
}

// Wait blocks until all queued writes have finished. Used on shutdown and in
// tests.
func (r *AsyncRecorder) Wait() {
	r.wg.Wait()
}
