package job

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func jobDocument(t *testing.T, j *Job) []byte {
	t.Helper()
	doc, err := json.Marshal(j)
	require.NoError(t, err)
	return doc
}

func TestPostgresStore_Migrate(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS video_jobs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create(t *testing.T) {
	store, mock := newMockPostgres(t)
	job := NewWithID("job-1", "p", "s", 30)
	job.UserID = "alice"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO video_jobs (id, user_id, document, created_at, updated_at)")).
		WithArgs("job-1", "alice", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Create(context.Background(), job))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create_Duplicate(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO video_jobs").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := store.Create(context.Background(), NewWithID("job-1", "p", "s", 9))
	assert.ErrorIs(t, err, ErrJobExists)
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockPostgres(t)
	job := NewWithID("job-1", "a fox", "noir", 18)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT document FROM video_jobs WHERE id = $1")).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow(jobDocument(t, job)))

	got, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "a fox", got.Prompt)
	assert.Equal(t, 2, got.SegmentCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT document FROM video_jobs").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"document"}))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestPostgresStore_Update(t *testing.T) {
	store, mock := newMockPostgres(t)
	job := NewWithID("job-1", "p", "s", 18)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT document FROM video_jobs WHERE id = $1 FOR UPDATE")).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow(jobDocument(t, job)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE video_jobs SET document = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("job-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := store.Update(context.Background(), "job-1", func(j *Job) error {
		return j.ApplySegment(0, SegmentUpdate{Status: SegmentCompleted, VideoURL: "v0"})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletedSegments)
	assert.True(t, got.UpdatedAt.After(job.UpdatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update_MutatorErrorRollsBack(t *testing.T) {
	store, mock := newMockPostgres(t)
	job := NewWithID("job-1", "p", "s", 18)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT document FROM video_jobs").
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow(jobDocument(t, job)))
	mock.ExpectRollback()

	boom := errors.New("boom")
	_, err := store.Update(context.Background(), "job-1", func(j *Job) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update_NotFound(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT document FROM video_jobs").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"document"}))
	mock.ExpectRollback()

	_, err := store.Update(context.Background(), "missing", func(j *Job) error { return nil })
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByOwner(t *testing.T) {
	store, mock := newMockPostgres(t)
	newer := NewWithID("job-2", "p", "s", 9)
	older := NewWithID("job-1", "p", "s", 9)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT document FROM video_jobs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2")).
		WithArgs("alice", ListLimit).
		WillReturnRows(sqlmock.NewRows([]string{"document"}).
			AddRow(jobDocument(t, newer)).
			AddRow(jobDocument(t, older)))

	jobs, err := store.ListByOwner(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-2", jobs[0].ID)
	assert.Equal(t, "job-1", jobs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteOlderThan(t *testing.T) {
	store, mock := newMockPostgres(t)
	cutoff := time.Now().Add(-7 * 24 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM video_jobs WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
