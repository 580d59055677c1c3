package state

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TheMichaelB/myba/internal/events"
)

// SQLiteStore implements the commit-index cache over SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed
// commit-index cache at dbPath.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger.WithField("component", "commit_index_sqlite")}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS commit_index (
        plain_commit_hash TEXT PRIMARY KEY,
        enc_commit_hash TEXT NOT NULL,
        manifest_path TEXT NOT NULL,
        mirrored_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_commit_index_mirrored_at ON commit_index(mirrored_at);

    CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER PRIMARY KEY
    );

    INSERT OR IGNORE INTO schema_info (version) VALUES (?);
    `
	_, err := s.db.Exec(schema, CurrentSchemaVersion)
	return err
}

// Get looks up the mirror record for plainCommitHash.
func (s *SQLiteStore) Get(plainCommitHash string) (*Record, error) {
	var rec Record
	rec.PlainCommitHash = plainCommitHash
	err := s.db.QueryRow(`
        SELECT enc_commit_hash, manifest_path, mirrored_at
        FROM commit_index WHERE plain_commit_hash = ?
    `, plainCommitHash).Scan(&rec.EncCommitHash, &rec.ManifestPath, &rec.MirroredAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query commit index: %w", err)
	}
	return &rec, nil
}

// Put upserts a commit-index row.
func (s *SQLiteStore) Put(rec Record) error {
	_, err := s.db.Exec(`
        INSERT INTO commit_index (plain_commit_hash, enc_commit_hash, manifest_path, mirrored_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(plain_commit_hash) DO UPDATE SET
            enc_commit_hash = excluded.enc_commit_hash,
            manifest_path = excluded.manifest_path,
            mirrored_at = excluded.mirrored_at
    `, rec.PlainCommitHash, rec.EncCommitHash, rec.ManifestPath, rec.MirroredAt)
	if err != nil {
		return fmt.Errorf("upsert commit index row: %w", err)
	}
	return nil
}

// Latest returns the most recently mirrored record.
func (s *SQLiteStore) Latest() (*Record, error) {
	var rec Record
	err := s.db.QueryRow(`
        SELECT plain_commit_hash, enc_commit_hash, manifest_path, mirrored_at
        FROM commit_index ORDER BY mirrored_at DESC LIMIT 1
    `).Scan(&rec.PlainCommitHash, &rec.EncCommitHash, &rec.ManifestPath, &rec.MirroredAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest commit index row: %w", err)
	}
	return &rec, nil
}

// All returns every record, oldest first.
func (s *SQLiteStore) All() ([]Record, error) {
	rows, err := s.db.Query(`
        SELECT plain_commit_hash, enc_commit_hash, manifest_path, mirrored_at
        FROM commit_index ORDER BY mirrored_at ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("query commit index: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.PlainCommitHash, &rec.EncCommitHash, &rec.ManifestPath, &rec.MirroredAt); err != nil {
			return nil, fmt.Errorf("scan commit index row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Reset removes every commit-index row.
func (s *SQLiteStore) Reset() error {
	_, err := s.db.Exec("DELETE FROM commit_index")
	return err
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
