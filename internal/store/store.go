// Package store persists analysis snapshots to SQLite so diagram consumers
// can fetch the latest IR for a document without re-running analysis.
// Persistence is advisory: the engine treats store failures as warnings.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Zouzou-2006/algovision/internal/ir"
)

// Store is the SQLite data access layer for analysis snapshots.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database at dbPath with WAL mode enabled and runs the
// schema migration.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the snapshot tables. Idempotent.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
  doc_id       TEXT PRIMARY KEY,
  language     TEXT NOT NULL,
  version      INTEGER NOT NULL,
  analyzed_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
  id           INTEGER PRIMARY KEY,
  doc_id       TEXT NOT NULL,
  version      INTEGER NOT NULL,
  request_id   TEXT NOT NULL,
  ir           BLOB NOT NULL,
  diagnostics  BLOB NOT NULL,
  created_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_doc ON snapshots(doc_id, created_at);
`

// Snapshot is one persisted analysis result.
type Snapshot struct {
	ID          int64
	DocID       string
	Version     int
	RequestID   string
	IR          *ir.Document
	Diagnostics []ir.Diagnostic
	CreatedAt   time.Time
}

// SaveResult records a completed analysis. The IR and diagnostics are
// msgpack-encoded; the documents table is upserted to the latest version.
func (s *Store) SaveResult(docID, language string, version int, requestID string, doc *ir.Document, diags []ir.Diagnostic) error {
	irBlob, err := msgpack.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode ir: %w", err)
	}
	if diags == nil {
		diags = []ir.Diagnostic{}
	}
	diagBlob, err := msgpack.Marshal(diags)
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}

	now := time.Now().UTC()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO documents (doc_id, language, version, analyzed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(doc_id) DO UPDATE SET language = excluded.language,
		   version = excluded.version, analyzed_at = excluded.analyzed_at`,
		docID, language, version, now,
	); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO snapshots (doc_id, version, request_id, ir, diagnostics, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		docID, version, requestID, irBlob, diagBlob, now,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot for docID, or nil when the
// document has never been analyzed.
func (s *Store) Latest(docID string) (*Snapshot, error) {
	row := s.db.QueryRow(
		`SELECT id, doc_id, version, request_id, ir, diagnostics, created_at
		 FROM snapshots WHERE doc_id = ? ORDER BY id DESC LIMIT 1`,
		docID,
	)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return snap, err
}

// History returns up to limit snapshots for docID, newest first.
func (s *Store) History(docID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, doc_id, version, request_id, ir, diagnostics, created_at
		 FROM snapshots WHERE doc_id = ? ORDER BY id DESC LIMIT ?`,
		docID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var (
		snap     Snapshot
		irBlob   []byte
		diagBlob []byte
	)
	if err := row.Scan(&snap.ID, &snap.DocID, &snap.Version, &snap.RequestID, &irBlob, &diagBlob, &snap.CreatedAt); err != nil {
		return nil, err
	}
	snap.IR = &ir.Document{}
	if err := msgpack.Unmarshal(irBlob, snap.IR); err != nil {
		return nil, fmt.Errorf("decode ir: %w", err)
	}
	if err := msgpack.Unmarshal(diagBlob, &snap.Diagnostics); err != nil {
		return nil, fmt.Errorf("decode diagnostics: %w", err)
	}
	return &snap, nil
}
