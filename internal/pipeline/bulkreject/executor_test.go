// internal/pipeline/bulkreject/executor_test.go
package bulkreject

import (
	"context"
	stderrors "errors"
	"testing"

	"hiring-pipeline/internal/audit"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRecorder struct {
	entries []audit.Entry
}

func (c *captureRecorder) Record(_ context.Context, entry audit.Entry) {
	c.entries = append(c.entries, entry)
}

// fakeNotifier records every queued rejection email.
type fakeNotifier struct {
	emails  []string
	reasons []string
}

func (f *fakeNotifier) SendRejectionEmail(candidateEmail, reason string) {
	f.emails = append(f.emails, candidateEmail)
	f.reasons = append(f.reasons, reason)
}

func newTestExecutor(t *testing.T, notifier Notifier) (*Executor, sqlmock.Sqlmock, *captureRecorder, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	rec := &captureRecorder{}
	e := NewExecutor(db, rec, notifier, logger.NewTestLogger(t))
	return e, mock, rec, func() { db.Close() }
}

func TestRejectOthers_Success(t *testing.T) {
	e, mock, rec, done := newTestExecutor(t, nil)
	defer done()

	mock.ExpectExec(`UPDATE applications`).
		WithArgs(models.StageRejected, "hired_elsewhere", "job-1", "app-1",
			models.StageRejected, models.StageTalentPool, models.StageHired).
		WillReturnResult(sqlmock.NewResult(0, 5))

	res, err := e.RejectOthers(context.Background(), Input{
		JobID:               "job-1",
		ExceptApplicationID: "app-1",
		RejectionReason:     "hired_elsewhere",
		ActorID:             "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(5), res.RejectedCount)

	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, "applications_bulk_rejected", entry.Action)
	assert.Equal(t, "job-1", entry.EntityID)
	assert.Equal(t, int64(5), entry.Metadata["rejectedCount"])
	assert.Equal(t, "app-1", entry.Metadata["exceptApplicationId"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectOthers_DefaultReason(t *testing.T) {
	e, mock, _, done := newTestExecutor(t, nil)
	defer done()

	mock.ExpectExec(`UPDATE applications`).
		WithArgs(models.StageRejected, DefaultRejectionReason, "job-1", "app-1",
			models.StageRejected, models.StageTalentPool, models.StageHired).
		WillReturnResult(sqlmock.NewResult(0, 0))

	res, err := e.RejectOthers(context.Background(), Input{
		JobID:               "job-1",
		ExceptApplicationID: "app-1",
		ActorID:             "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(0), res.RejectedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectOthers_SendEmails(t *testing.T) {
	notifier := &fakeNotifier{}
	e, mock, _, done := newTestExecutor(t, notifier)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "candidate_email"}).
		AddRow("app-2", "a@example.com").
		AddRow("app-3", nil).
		AddRow("app-4", "b@example.com")
	mock.ExpectQuery(`UPDATE applications`).
		WithArgs(models.StageRejected, DefaultRejectionReason, "job-1", "app-1",
			models.StageRejected, models.StageTalentPool, models.StageHired).
		WillReturnRows(rows)

	res, err := e.RejectOthers(context.Background(), Input{
		JobID:               "job-1",
		ExceptApplicationID: "app-1",
		SendEmails:          true,
		ActorID:             "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RejectedCount)

	// The NULL-email row is counted but not mailed.
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, notifier.emails)
	assert.Equal(t, []string{DefaultRejectionReason, DefaultRejectionReason}, notifier.reasons)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectOthers_SendEmailsWithoutNotifier(t *testing.T) {
	e, mock, _, done := newTestExecutor(t, nil)
	defer done()

	// Without a notifier the plain bulk update runs, not the RETURNING variant.
	mock.ExpectExec(`UPDATE applications`).
		WithArgs(models.StageRejected, DefaultRejectionReason, "job-1", "app-1",
			models.StageRejected, models.StageTalentPool, models.StageHired).
		WillReturnResult(sqlmock.NewResult(0, 2))

	res, err := e.RejectOthers(context.Background(), Input{
		JobID:               "job-1",
		ExceptApplicationID: "app-1",
		SendEmails:          true,
		ActorID:             "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RejectedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectOthers_UpdateFailure(t *testing.T) {
	e, mock, rec, done := newTestExecutor(t, nil)
	defer done()

	mock.ExpectExec(`UPDATE applications`).
		WillReturnError(stderrors.New("deadlock detected"))

	res, err := e.RejectOthers(context.Background(), Input{
		JobID:               "job-1",
		ExceptApplicationID: "app-1",
		ActorID:             "user-1",
	})

	assert.Nil(t, res)
	require.Error(t, err)
	assert.Empty(t, rec.entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
