// internal/pipeline/terminal/manager_test.go
package terminal

import (
	"context"
	stderrors "errors"
	"testing"

	"hiring-pipeline/internal/audit"
	"hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/pipeline/bulkreject"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureRecorder collects audit entries synchronously.
type captureRecorder struct {
	entries []audit.Entry
}

func (c *captureRecorder) Record(_ context.Context, entry audit.Entry) {
	c.entries = append(c.entries, entry)
}

// fakeRejector returns a canned bulk rejection result.
type fakeRejector struct {
	input  bulkreject.Input
	result *bulkreject.Result
	err    error
	called bool
}

func (f *fakeRejector) RejectOthers(_ context.Context, in bulkreject.Input) (*bulkreject.Result, error) {
	f.called = true
	f.input = in
	return f.result, f.err
}

func newTestManager(t *testing.T, rejector BulkRejector) (*Manager, sqlmock.Sqlmock, *captureRecorder, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	rec := &captureRecorder{}
	m := NewManager(db, rec, rejector, logger.NewTestLogger(t))
	return m, mock, rec, func() { db.Close() }
}

func expectCurrentStage(mock sqlmock.Sqlmock, stage string) {
	mock.ExpectQuery(`SELECT stage FROM applications`).
		WithArgs("app-1", "job-1").
		WillReturnRows(sqlmock.NewRows([]string{"stage"}).AddRow(stage))
}

func TestWithdraw_Success(t *testing.T) {
	m, mock, rec, done := newTestManager(t, nil)
	defer done()

	expectCurrentStage(mock, "interview")
	mock.ExpectExec(`UPDATE applications`).
		WithArgs(models.StageWithdrawn, "app-1", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := m.Withdraw(context.Background(), WithdrawInput{
		ApplicationID: "app-1",
		JobID:         "job-1",
		Reason:        "accepted another offer",
		ActorID:       "user-1",
	})

	require.NoError(t, err)
	assert.True(t, res.Success)

	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, "application_withdrawn", entry.Action)
	assert.Equal(t, "app-1", entry.EntityID)
	assert.Equal(t, "accepted another offer", entry.Metadata["reason"])
	stage := entry.Changes["stage"].(map[string]interface{})
	assert.Equal(t, "interview", stage["from"])
	assert.Equal(t, "withdrawn", stage["to"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdraw_ApplicationNotFound(t *testing.T) {
	m, mock, rec, done := newTestManager(t, nil)
	defer done()

	mock.ExpectQuery(`SELECT stage FROM applications`).
		WithArgs("app-1", "job-1").
		WillReturnRows(sqlmock.NewRows([]string{"stage"}))

	res, err := m.Withdraw(context.Background(), WithdrawInput{
		ApplicationID: "app-1",
		JobID:         "job-1",
		ActorID:       "user-1",
	})

	assert.Nil(t, res)
	assert.True(t, errors.IsNotFound(err))
	assert.Empty(t, rec.entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReopen_DefaultsToApplied(t *testing.T) {
	m, mock, rec, done := newTestManager(t, nil)
	defer done()

	expectCurrentStage(mock, "rejected")
	mock.ExpectExec(`UPDATE applications`).
		WithArgs(models.StageApplied, "app-1", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := m.Reopen(context.Background(), ReopenInput{
		ApplicationID: "app-1",
		JobID:         "job-1",
		ActorID:       "user-1",
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, models.StageApplied, res.Stage)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "application_reopened", rec.entries[0].Action)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReopen_ExplicitStage(t *testing.T) {
	m, mock, _, done := newTestManager(t, nil)
	defer done()

	expectCurrentStage(mock, "withdrawn")
	mock.ExpectExec(`UPDATE applications`).
		WithArgs(models.Stage("screen"), "app-1", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := m.Reopen(context.Background(), ReopenInput{
		ApplicationID:  "app-1",
		JobID:          "job-1",
		RestoreToStage: "screen",
		ActorID:        "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, models.Stage("screen"), res.Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReopen_FromActiveStageRejected(t *testing.T) {
	m, mock, rec, done := newTestManager(t, nil)
	defer done()

	// No UPDATE is expected: the precondition fails first.
	expectCurrentStage(mock, "interview")

	res, err := m.Reopen(context.Background(), ReopenInput{
		ApplicationID: "app-1",
		JobID:         "job-1",
		ActorID:       "user-1",
	})

	assert.Nil(t, res)
	assert.True(t, errors.IsInvalidState(err))
	assert.Empty(t, rec.entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkHired_Success(t *testing.T) {
	m, mock, rec, done := newTestManager(t, nil)
	defer done()

	mock.ExpectExec(`UPDATE applications`).
		WithArgs(models.StageHired, "app-1", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := m.MarkHired(context.Background(), MarkHiredInput{
		ApplicationID: "app-1",
		JobID:         "job-1",
		ActorID:       "user-1",
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, res.RejectedCount)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "application_hired", rec.entries[0].Action)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkHired_NotFound(t *testing.T) {
	m, mock, rec, done := newTestManager(t, nil)
	defer done()

	mock.ExpectExec(`UPDATE applications`).
		WithArgs(models.StageHired, "missing", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	res, err := m.MarkHired(context.Background(), MarkHiredInput{
		ApplicationID: "missing",
		JobID:         "job-1",
		ActorID:       "user-1",
	})

	assert.Nil(t, res)
	assert.True(t, errors.IsNotFound(err))
	assert.Empty(t, rec.entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkHired_RejectRemaining(t *testing.T) {
	rejector := &fakeRejector{result: &bulkreject.Result{RejectedCount: 4}}
	m, mock, _, done := newTestManager(t, rejector)
	defer done()

	mock.ExpectExec(`UPDATE applications`).
		WithArgs(models.StageHired, "app-1", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := m.MarkHired(context.Background(), MarkHiredInput{
		ApplicationID:   "app-1",
		JobID:           "job-1",
		ActorID:         "user-1",
		RejectRemaining: true,
		RejectionReason: "position_filled",
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.RejectedCount)
	assert.Equal(t, int64(4), *res.RejectedCount)

	assert.True(t, rejector.called)
	assert.Equal(t, "job-1", rejector.input.JobID)
	assert.Equal(t, "app-1", rejector.input.ExceptApplicationID)
	assert.Equal(t, "position_filled", rejector.input.RejectionReason)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkHired_BulkFailureKeepsHire(t *testing.T) {
	rejector := &fakeRejector{err: stderrors.New("bulk update failed")}
	m, mock, rec, done := newTestManager(t, rejector)
	defer done()

	mock.ExpectExec(`UPDATE applications`).
		WithArgs(models.StageHired, "app-1", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := m.MarkHired(context.Background(), MarkHiredInput{
		ApplicationID:   "app-1",
		JobID:           "job-1",
		ActorID:         "user-1",
		RejectRemaining: true,
	})

	// The hire itself succeeded and was audited; only the bulk step failed.
	require.Error(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.Nil(t, res.RejectedCount)
	assert.Len(t, rec.entries, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkHired_NoRejectorIgnoresFlag(t *testing.T) {
	m, mock, _, done := newTestManager(t, nil)
	defer done()

	mock.ExpectExec(`UPDATE applications`).
		WithArgs(models.StageHired, "app-1", "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := m.MarkHired(context.Background(), MarkHiredInput{
		ApplicationID:   "app-1",
		JobID:           "job-1",
		ActorID:         "user-1",
		RejectRemaining: true,
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, res.RejectedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
