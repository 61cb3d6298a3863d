// Package contentstore is the durable text-of-record for documents and
// chunks: a single SQLite file with zstd-compressed content blobs. It is
// the source of truth the vector and lexical indices are derived from and
// can always be rebuilt from (spec.md §4.4, §4.7, §4.8).
package contentstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/ShankarKakumani/eywa/internal/domain"
	"github.com/ShankarKakumani/eywa/internal/errcodes"
)

// CompressionLevel is the zstd level applied to every content blob (level
// 3, the standard balance of ratio and speed). Each row is its own
// standalone frame; there is no cross-row dictionary.
const CompressionLevel = zstd.SpeedDefault

// Store persists document and chunk content, compressed, in SQLite.
type Store struct {
	mu  sync.RWMutex
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open creates or opens the content store at path. An empty path opens an
// in-memory database, used by tests.
func Open(path string) (*Store, error) {
	dsn := path
	if path == "" {
		dsn = ":memory:?_pragma=foreign_keys(1)"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errcodes.StorageError("creating content store directory", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errcodes.StorageError("opening content store", err)
	}
	db.SetMaxOpenConns(1)

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(CompressionLevel))
	if err != nil {
		return nil, errcodes.InternalError("building zstd encoder", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errcodes.InternalError("building zstd decoder", err)
	}

	s := &Store{db: db, enc: enc, dec: dec}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrateSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id          TEXT PRIMARY KEY,
			source_id   TEXT NOT NULL DEFAULT 'unknown',
			title       TEXT NOT NULL DEFAULT 'Untitled',
			file_path   TEXT,
			content     BLOB NOT NULL,
			created_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS chunks (
			id          TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content     BLOB NOT NULL,
			FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
		CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_id);
	`)
	if err != nil {
		return errcodes.StorageError("initializing content store schema", err)
	}
	return nil
}

// migrateSchema adds source_id/title/file_path to pre-existing databases
// that predate those columns. Idempotent.
func (s *Store) migrateSchema() error {
	var hasSourceID int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('documents') WHERE name='source_id'`,
	).Scan(&hasSourceID)
	if err != nil {
		return errcodes.StorageError("checking content store schema", err)
	}
	if hasSourceID > 0 {
		return nil
	}

	_, err = s.db.Exec(`
		ALTER TABLE documents ADD COLUMN source_id TEXT NOT NULL DEFAULT 'unknown';
		ALTER TABLE documents ADD COLUMN title TEXT NOT NULL DEFAULT 'Untitled';
		ALTER TABLE documents ADD COLUMN file_path TEXT;
		CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_id);
	`)
	if err != nil {
		return errcodes.StorageError("migrating content store schema", err)
	}
	return nil
}

func (s *Store) compress(text string) []byte {
	return s.enc.EncodeAll([]byte(text), nil)
}

func (s *Store) decompress(blob []byte) (string, error) {
	out, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return "", errcodes.StorageError("decompressing content", err)
	}
	return string(out), nil
}

// UpsertDocument inserts or replaces a document row.
func (s *Store) UpsertDocument(ctx context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, source_id, title, file_path, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source_id=excluded.source_id, title=excluded.title,
			file_path=excluded.file_path, content=excluded.content`,
		doc.ID, doc.SourceID, doc.Title, nullableString(doc.FilePath), s.compress(doc.Content),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return errcodes.StorageError("upserting document", err)
	}
	return nil
}

// UpsertChunks inserts or replaces all chunks in a single transaction.
func (s *Store) UpsertChunks(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errcodes.StorageError("beginning chunk batch transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, content) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET document_id=excluded.document_id, content=excluded.content`)
	if err != nil {
		return errcodes.StorageError("preparing chunk batch insert", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, s.compress(c.Content)); err != nil {
			return errcodes.StorageError(fmt.Sprintf("inserting chunk %s", c.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errcodes.StorageError("committing chunk batch", err)
	}
	return nil
}

// GetDocument returns a document's decompressed content, or nil if absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		sourceID, title, createdAtStr string
		filePath                     sql.NullString
		compressed                   []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT source_id, title, file_path, content, created_at FROM documents WHERE id = ?`, id,
	).Scan(&sourceID, &title, &filePath, &compressed, &createdAtStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errcodes.StorageError("fetching document", err)
	}

	content, err := s.decompress(compressed)
	if err != nil {
		return nil, err
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, createdAtStr)

	return &domain.Document{
		ID:            id,
		SourceID:      sourceID,
		Title:         title,
		FilePath:      filePath.String,
		Content:       content,
		CreatedAt:     createdAt,
		ContentLength: len(content),
	}, nil
}

// GetChunks batch-fetches chunks by id. Missing ids are simply absent from
// the returned map; callers key results by id (spec.md §4.4).
func (s *Store) GetChunks(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, content FROM chunks WHERE id IN (%s)`, joinPlaceholders(placeholders))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errcodes.StorageError("batch fetching chunks", err)
	}
	defer rows.Close()

	result := make(map[string]string, len(ids))
	for rows.Next() {
		var id string
		var compressed []byte
		if err := rows.Scan(&id, &compressed); err != nil {
			return nil, errcodes.StorageError("scanning chunk row", err)
		}
		content, err := s.decompress(compressed)
		if err != nil {
			return nil, err
		}
		result[id] = content
	}
	return result, rows.Err()
}

func joinPlaceholders(ps []string) string {
	out := ps[0]
	for _, p := range ps[1:] {
		out += "," + p
	}
	return out
}

// DeleteDocument removes a document; chunks cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return errcodes.StorageError("deleting document", err)
	}
	return nil
}

// DeleteSource removes every document (and cascaded chunks) for a source.
func (s *Store) DeleteSource(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE source_id = ?`, sourceID); err != nil {
		return errcodes.StorageError("deleting source", err)
	}
	return nil
}

// Reset deletes all rows and reclaims disk space.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return errcodes.StorageError("resetting content store", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return errcodes.StorageError("vacuuming content store", err)
	}
	return nil
}

// DocumentListItem is document metadata without content, for listing.
type DocumentListItem struct {
	ID            string
	SourceID      string
	Title         string
	FilePath      string
	ContentLength int
	CreatedAt     time.Time
}

// ListDocuments returns documents for a source (every source when sourceID
// is empty) ordered newest-first, plus the total matching count (ignoring
// limit/offset) for pagination.
func (s *Store) ListDocuments(ctx context.Context, sourceID string, limit, offset int) ([]*DocumentListItem, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := ``
	args := []interface{}{}
	if sourceID != "" {
		where = ` WHERE source_id = ?`
		args = append(args, sourceID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, errcodes.StorageError("counting documents", err)
	}

	query := `SELECT id, source_id, title, file_path, LENGTH(content), created_at
	          FROM documents` + where + ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
		if offset > 0 {
			query += ` OFFSET ?`
			args = append(args, offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errcodes.StorageError("listing documents", err)
	}
	defer rows.Close()

	var items []*DocumentListItem
	for rows.Next() {
		var (
			id, srcID, title, createdAtStr string
			filePath                       sql.NullString
			contentLen                     int
		)
		if err := rows.Scan(&id, &srcID, &title, &filePath, &contentLen, &createdAtStr); err != nil {
			return nil, 0, errcodes.StorageError("scanning document row", err)
		}
		createdAt, _ := time.Parse(time.RFC3339Nano, createdAtStr)
		items = append(items, &DocumentListItem{
			ID: id, SourceID: srcID, Title: title, FilePath: filePath.String,
			ContentLength: contentLen, CreatedAt: createdAt,
		})
	}
	return items, total, rows.Err()
}

// SourceStats aggregates document count, total compressed size, and last
// update time per source.
func (s *Store) SourceStats(ctx context.Context) ([]*domain.SourceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, COUNT(*), SUM(LENGTH(content)), MAX(created_at)
		 FROM documents GROUP BY source_id ORDER BY source_id`)
	if err != nil {
		return nil, errcodes.StorageError("aggregating source stats", err)
	}
	defer rows.Close()

	var stats []*domain.SourceStats
	for rows.Next() {
		var (
			sourceID         string
			docCount         int
			totalSize        sql.NullInt64
			lastUpdatedStr   sql.NullString
		)
		if err := rows.Scan(&sourceID, &docCount, &totalSize, &lastUpdatedStr); err != nil {
			return nil, errcodes.StorageError("scanning source stats row", err)
		}
		var lastUpdated time.Time
		if lastUpdatedStr.Valid {
			lastUpdated, _ = time.Parse(time.RFC3339Nano, lastUpdatedStr.String)
		}
		stats = append(stats, &domain.SourceStats{
			SourceID:         sourceID,
			DocumentCount:    docCount,
			TotalContentSize: totalSize.Int64,
			LastUpdated:      lastUpdated,
		})
	}
	return stats, rows.Err()
}

// AllDocumentIDs returns every document id, for reindex snapshotting.
func (s *Store) AllDocumentIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM documents ORDER BY created_at`)
	if err != nil {
		return nil, errcodes.StorageError("listing all document ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errcodes.StorageError("scanning document id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
