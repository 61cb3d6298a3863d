// Package jobqueue is the durable ingest job queue: jobs and the pending
// documents that belong to them, persisted in SQLite so uploads survive
// process restarts (spec.md §4.9).
package jobqueue

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ShankarKakumani/eywa/internal/domain"
	"github.com/ShankarKakumani/eywa/internal/errcodes"
)

const timeLayout = time.RFC3339Nano

// DocInput is a single document submitted for ingestion.
type DocInput struct {
	Title    string
	Content  string
	FilePath string
}

// Queue persists jobs and pending docs in SQLite, with crash recovery
// that resets anything left "processing" back to "pending" on open.
type Queue struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the job queue at path (":memory:" semantics when
// path is empty) and recovers any in-flight work from a prior crash.
func Open(path string) (*Queue, error) {
	dsn := path
	if path == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errcodes.StorageError("creating job queue directory", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errcodes.StorageError("opening job queue", err)
	}
	db.SetMaxOpenConns(1)

	q := &Queue{db: db}
	if err := q.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := q.recoverProcessing(); err != nil {
		db.Close()
		return nil, err
	}
	return q, nil
}

func (q *Queue) initSchema() error {
	_, err := q.db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id             TEXT PRIMARY KEY,
			source_id      TEXT NOT NULL,
			total_docs     INTEGER NOT NULL,
			completed_docs INTEGER NOT NULL DEFAULT 0,
			failed_docs    INTEGER NOT NULL DEFAULT 0,
			status         TEXT NOT NULL DEFAULT 'pending',
			current_doc    TEXT,
			created_at     TEXT NOT NULL,
			completed_at   TEXT
		);

		CREATE TABLE IF NOT EXISTS pending_docs (
			id          TEXT PRIMARY KEY,
			job_id      TEXT NOT NULL,
			source_id   TEXT NOT NULL,
			title       TEXT,
			content     TEXT NOT NULL,
			file_path   TEXT,
			status      TEXT NOT NULL DEFAULT 'pending',
			error       TEXT,
			created_at  TEXT NOT NULL,
			FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_pending_docs_job ON pending_docs(job_id);
		CREATE INDEX IF NOT EXISTS idx_pending_docs_status ON pending_docs(status);

		PRAGMA foreign_keys = ON;
	`)
	if err != nil {
		return errcodes.StorageError("initializing job queue schema", err)
	}
	return nil
}

// recoverProcessing resets any doc/job left in "processing" back to
// "pending" after an unclean shutdown. Safe given idempotent, content-hash
// keyed writes downstream (spec.md §4.9).
func (q *Queue) recoverProcessing() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, err := q.db.Exec(`UPDATE pending_docs SET status = 'pending' WHERE status = 'processing'`); err != nil {
		return errcodes.StorageError("recovering pending docs", err)
	}
	if _, err := q.db.Exec(`UPDATE jobs SET status = 'pending' WHERE status = 'processing'`); err != nil {
		return errcodes.StorageError("recovering jobs", err)
	}
	return nil
}

// QueueDocuments creates a job and its pending docs, returning the job id.
func (q *Queue) QueueDocuments(ctx context.Context, sourceID string, docs []DocInput) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobID := uuid.NewString()
	now := time.Now().UTC().Format(timeLayout)

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errcodes.StorageError("beginning queue transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO jobs (id, source_id, total_docs, status, created_at) VALUES (?, ?, ?, 'pending', ?)`,
		jobID, sourceID, len(docs), now,
	); err != nil {
		return "", errcodes.StorageError("inserting job", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pending_docs (id, job_id, source_id, title, content, file_path, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'pending', ?)`)
	if err != nil {
		return "", errcodes.StorageError("preparing pending doc insert", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		docID := uuid.NewString()
		if _, err := stmt.ExecContext(ctx, docID, jobID, sourceID, d.Title, d.Content, nullableString(d.FilePath), now); err != nil {
			return "", errcodes.StorageError("inserting pending doc", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errcodes.StorageError("committing queue transaction", err)
	}
	return jobID, nil
}

// GetNextPending atomically claims the oldest pending doc, flipping it to
// processing and updating its job's current_doc. Returns nil if none.
func (q *Queue) GetNextPending(ctx context.Context) (*domain.PendingDoc, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	row := q.db.QueryRowContext(ctx,
		`SELECT id, job_id, source_id, title, content, file_path, created_at
		 FROM pending_docs WHERE status = 'pending' ORDER BY created_at ASC LIMIT 1`)

	doc, err := scanPendingDoc(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errcodes.StorageError("fetching next pending doc", err)
	}

	if err := q.claimLocked(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetPendingBatch claims up to limit pending docs in one call, for batch
// processing.
func (q *Queue) GetPendingBatch(ctx context.Context, limit int) ([]*domain.PendingDoc, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rows, err := q.db.QueryContext(ctx,
		`SELECT id, job_id, source_id, title, content, file_path, created_at
		 FROM pending_docs WHERE status = 'pending' ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, errcodes.StorageError("fetching pending batch", err)
	}
	defer rows.Close()

	var docs []*domain.PendingDoc
	for rows.Next() {
		doc, err := scanPendingDocRows(rows)
		if err != nil {
			return nil, errcodes.StorageError("scanning pending doc", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errcodes.StorageError("iterating pending batch", err)
	}

	for _, doc := range docs {
		if err := q.claimLocked(ctx, doc); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (q *Queue) claimLocked(ctx context.Context, doc *domain.PendingDoc) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE pending_docs SET status = 'processing' WHERE id = ?`, doc.ID); err != nil {
		return errcodes.StorageError("marking doc processing", err)
	}
	if _, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'processing', current_doc = ? WHERE id = ?`, doc.Title, doc.JobID,
	); err != nil {
		return errcodes.StorageError("marking job processing", err)
	}
	doc.Status = domain.JobProcessing
	return nil
}

// MarkCompleted marks a pending doc done and updates its job's counters,
// finalizing the job if every doc has been processed.
func (q *Queue) MarkCompleted(ctx context.Context, docID string) error {
	return q.finishDoc(ctx, docID, "done", "")
}

// MarkFailed marks a pending doc failed with the given error message.
func (q *Queue) MarkFailed(ctx context.Context, docID string, errMsg string) error {
	return q.finishDoc(ctx, docID, "failed", errMsg)
}

func (q *Queue) finishDoc(ctx context.Context, docID, status, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var jobID string
	err := q.db.QueryRowContext(ctx, `SELECT job_id FROM pending_docs WHERE id = ?`, docID).Scan(&jobID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errcodes.StorageError("fetching doc's job", err)
	}

	if status == "done" {
		if _, err := q.db.ExecContext(ctx, `UPDATE pending_docs SET status = 'done' WHERE id = ?`, docID); err != nil {
			return errcodes.StorageError("marking doc done", err)
		}
		if _, err := q.db.ExecContext(ctx,
			`UPDATE jobs SET completed_docs = completed_docs + 1, current_doc = NULL WHERE id = ?`, jobID,
		); err != nil {
			return errcodes.StorageError("incrementing completed count", err)
		}
	} else {
		if _, err := q.db.ExecContext(ctx, `UPDATE pending_docs SET status = 'failed', error = ? WHERE id = ?`, errMsg, docID); err != nil {
			return errcodes.StorageError("marking doc failed", err)
		}
		if _, err := q.db.ExecContext(ctx,
			`UPDATE jobs SET failed_docs = failed_docs + 1, current_doc = NULL WHERE id = ?`, jobID,
		); err != nil {
			return errcodes.StorageError("incrementing failed count", err)
		}
	}

	return q.finalizeJobIfDoneLocked(ctx, jobID)
}

func (q *Queue) finalizeJobIfDoneLocked(ctx context.Context, jobID string) error {
	var total, completed, failed int
	err := q.db.QueryRowContext(ctx,
		`SELECT total_docs, completed_docs, failed_docs FROM jobs WHERE id = ?`, jobID,
	).Scan(&total, &completed, &failed)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errcodes.StorageError("checking job completion", err)
	}

	if completed+failed < total {
		return nil
	}

	status := domain.DeriveJobStatus(total, completed, failed, false)
	now := time.Now().UTC().Format(timeLayout)
	if _, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, completed_at = ? WHERE id = ?`, string(status), now, jobID,
	); err != nil {
		return errcodes.StorageError("finalizing job", err)
	}
	return nil
}

// GetJob fetches a job's progress counters, or nil if absent.
func (q *Queue) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := scanJob(q.db.QueryRowContext(ctx,
		`SELECT id, source_id, status, total_docs, completed_docs, failed_docs, current_doc, created_at, completed_at
		 FROM jobs WHERE id = ?`, jobID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errcodes.StorageError("fetching job", err)
	}
	return job, nil
}

// GetJobDocs returns every pending doc belonging to a job, oldest first.
func (q *Queue) GetJobDocs(ctx context.Context, jobID string) ([]*domain.PendingDoc, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rows, err := q.db.QueryContext(ctx,
		`SELECT id, job_id, source_id, title, content, file_path, status, error, created_at
		 FROM pending_docs WHERE job_id = ? ORDER BY created_at ASC`, jobID)
	if err != nil {
		return nil, errcodes.StorageError("fetching job docs", err)
	}
	defer rows.Close()

	var docs []*domain.PendingDoc
	for rows.Next() {
		var (
			id, jID, sourceID, createdAtStr, status string
			title, filePath, errMsg                 sql.NullString
			content                                 string
		)
		if err := rows.Scan(&id, &jID, &sourceID, &title, &content, &filePath, &status, &errMsg, &createdAtStr); err != nil {
			return nil, errcodes.StorageError("scanning job doc", err)
		}
		createdAt, _ := time.Parse(timeLayout, createdAtStr)
		docs = append(docs, &domain.PendingDoc{
			ID: id, JobID: jID, SourceID: sourceID, Title: title.String, Content: content,
			FilePath: filePath.String, Status: domain.JobStatus(status), Error: errMsg.String, CreatedAt: createdAt,
		})
	}
	return docs, rows.Err()
}

// ListJobs returns every job, newest-first.
func (q *Queue) ListJobs(ctx context.Context) ([]*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rows, err := q.db.QueryContext(ctx,
		`SELECT id, source_id, status, total_docs, completed_docs, failed_docs, current_doc, created_at, completed_at
		 FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, errcodes.StorageError("listing jobs", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJobRows(rows)
		if err != nil {
			return nil, errcodes.StorageError("scanning job", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CleanupOldJobs deletes terminal (done/failed) jobs older than maxAge;
// their pending docs cascade.
func (q *Queue) CleanupOldJobs(ctx context.Context, maxAge time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE status IN ('done', 'failed') AND created_at < ?`, cutoff)
	if err != nil {
		return errcodes.StorageError("cleaning up old jobs", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPendingDoc(row rowScanner) (*domain.PendingDoc, error) {
	var (
		id, jobID, sourceID, createdAtStr, content string
		title, filePath                            sql.NullString
	)
	if err := row.Scan(&id, &jobID, &sourceID, &title, &content, &filePath, &createdAtStr); err != nil {
		return nil, err
	}
	createdAt, _ := time.Parse(timeLayout, createdAtStr)
	return &domain.PendingDoc{
		ID: id, JobID: jobID, SourceID: sourceID, Title: title.String, Content: content,
		FilePath: filePath.String, Status: domain.JobPending, CreatedAt: createdAt,
	}, nil
}

func scanPendingDocRows(rows *sql.Rows) (*domain.PendingDoc, error) {
	return scanPendingDoc(rows)
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		id, sourceID, status, createdAtStr  string
		total, completed, failed            int
		currentDoc, completedAtStr          sql.NullString
	)
	if err := row.Scan(&id, &sourceID, &status, &total, &completed, &failed, &currentDoc, &createdAtStr, &completedAtStr); err != nil {
		return nil, err
	}
	createdAt, _ := time.Parse(timeLayout, createdAtStr)
	job := &domain.Job{
		ID: id, SourceID: sourceID, Status: domain.JobStatus(status),
		TotalDocs: total, CompletedDocs: completed, FailedDocs: failed,
		CurrentDoc: currentDoc.String, CreatedAt: createdAt,
	}
	if completedAtStr.Valid {
		t, _ := time.Parse(timeLayout, completedAtStr.String)
		job.CompletedAt = &t
	}
	return job, nil
}

func scanJobRows(rows *sql.Rows) (*domain.Job, error) {
	return scanJob(rows)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Close releases the underlying database handle.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.db.Close()
}
