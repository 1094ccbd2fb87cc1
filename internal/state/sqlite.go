package state

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore persists per-domain progress in a SQLite database.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	mu     sync.Mutex
}

// NewSQLiteStore opens (or creates) the progress database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	// WAL mode for better concurrency between the API and auto-checker.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{dbPath: dbPath, db: db}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, run initial migration
		version = 0
	}

	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Save upserts the progress row for a domain.
func (s *SQLiteStore) Save(ctx context.Context, domain string, p *core.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stepsJSON, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("marshaling steps: %w", err)
	}
	outputsJSON, err := json.Marshal(p.Outputs)
	if err != nil {
		return fmt.Errorf("marshaling outputs: %w", err)
	}

	hash := sha256.Sum256(append(stepsJSON, outputsJSON...))

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress (domain, steps, outputs, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			steps = excluded.steps,
			outputs = excluded.outputs,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at
	`, domain, string(stepsJSON), string(outputsJSON),
		hex.EncodeToString(hash[:]), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upserting progress: %w", err)
	}
	return nil
}

// Load retrieves progress for a domain, or nil if none was saved.
func (s *SQLiteStore) Load(ctx context.Context, domain string) (*core.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stepsJSON, outputsJSON, checksum string
	err := s.db.QueryRowContext(ctx,
		"SELECT steps, outputs, checksum FROM progress WHERE domain = ?", domain).
		Scan(&stepsJSON, &outputsJSON, &checksum)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying progress: %w", err)
	}

	hash := sha256.Sum256(append([]byte(stepsJSON), []byte(outputsJSON)...))
	if hex.EncodeToString(hash[:]) != checksum {
		return nil, core.ErrSystem("progress checksum mismatch")
	}

	p := &core.Progress{
		Steps:   make(map[core.StepID]core.StepStatusInfo),
		Outputs: make(map[string]interface{}),
	}
	if err := json.Unmarshal([]byte(stepsJSON), &p.Steps); err != nil {
		return nil, fmt.Errorf("unmarshaling steps: %w", err)
	}
	if err := json.Unmarshal([]byte(outputsJSON), &p.Outputs); err != nil {
		return nil, fmt.Errorf("unmarshaling outputs: %w", err)
	}
	return p, nil
}

// Delete removes the progress row for a domain.
func (s *SQLiteStore) Delete(ctx context.Context, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM progress WHERE domain = ?", domain); err != nil {
		return fmt.Errorf("deleting progress: %w", err)
	}
	return nil
}

var _ core.ProgressStore = (*SQLiteStore)(nil)
