// Package domain holds the core record types shared across the content
// store, vector index, lexical index, job queue, and search orchestrator:
// Document, Chunk, Source, Job, and PendingDoc.
package domain

import "time"

// Document is the unit a caller ingests. Created by the ingest pipeline,
// never mutated after creation, destroyed by explicit delete or by
// source-level delete.
type Document struct {
	ID            string
	SourceID      string
	Title         string
	FilePath      string // optional, empty if not file-backed
	Content       string
	CreatedAt     time.Time
	ChunkCount    int
	ContentLength int
}

// Chunk is derived state of its owning Document: created atomically with it
// and destroyed when it is destroyed.
type Chunk struct {
	ID          string // hex SHA-256 of (document id, normalized text) — see I4
	DocumentID  string
	SourceID    string // denormalized from the owning document
	Title       string // denormalized, optional
	FilePath    string // denormalized, optional
	StartLine   int    // 1-based, inclusive
	EndLine     int    // 1-based, inclusive
	ContentHash string // same value as ID, kept for dedup lookups
	Section     string // optional, markdown-aware chunkers only
	Subsection  string // optional, markdown-aware chunkers only
	Hierarchy   []string
	HasCode     bool
	Content     string
	Embedding   []float32
}

// SourceStats is the aggregate materialized view over a source id: it is
// not a first-class stored row, only a computed aggregate over documents.
type SourceStats struct {
	SourceID         string
	DocumentCount    int
	ChunkCount       int
	TotalContentSize int64
	LastUpdated      time.Time
}

// JobStatus is one of the four terminal/non-terminal states a Job or
// PendingDoc can be in (I6).
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// Job groups N pending documents queued together under one source id.
type Job struct {
	ID            string
	SourceID      string
	TotalDocs     int
	CompletedDocs int
	FailedDocs    int
	Status        JobStatus
	CurrentDoc    string // title of the pending doc currently processing, if any
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// PendingDoc is a single queued unit of ingest work awaiting processing.
type PendingDoc struct {
	ID        string
	JobID     string
	SourceID  string
	Title     string
	Content   string
	FilePath  string
	Status    JobStatus
	Error     string
	CreatedAt time.Time
}

// DeriveJobStatus computes a job's status purely from its counters, per
// spec: processing while anything is in flight, done once every doc landed
// successfully, failed as soon as at least one doc failed and none has
// succeeded (even if other docs are still pending), done once all docs are
// terminal with at least one success, and pending otherwise.
func DeriveJobStatus(totalDocs, completedDocs, failedDocs int, anyProcessing bool) JobStatus {
	if anyProcessing {
		return JobProcessing
	}
	if completedDocs == totalDocs {
		return JobDone
	}
	if failedDocs > 0 && completedDocs == 0 {
		return JobFailed
	}
	if completedDocs+failedDocs == totalDocs {
		return JobDone
	}
	return JobPending
}
