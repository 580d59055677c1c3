package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/TheMichaelB/myba/internal/events"
)

// JSONStore implements the commit-index cache as a single JSON document,
// for environments without cgo (mattn/go-sqlite3 needs it).
type JSONStore struct {
	path   string
	logger *events.Logger

	mu      sync.RWMutex
	records map[string]Record // keyed by plain commit hash
}

type jsonDocument struct {
	SchemaVersion int      `json:"schema_version"`
	Records       []Record `json:"records"`
	Checksum      string   `json:"checksum,omitempty"`
}

// NewJSONStore opens (creating if necessary) a JSON-backed commit-index
// cache at path.
func NewJSONStore(path string, logger *events.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	s := &JSONStore{
		path:    path,
		logger:  logger.WithField("component", "commit_index_json"),
		records: make(map[string]Record),
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		if backup, berr := s.loadBackup(); berr == nil {
			s.logger.Warn("loaded commit index from backup due to corruption")
			s.records = backup
			return nil
		}
		return fmt.Errorf("state: commit index file is corrupt: %w", err)
	}

	if doc.Checksum != "" {
		want := doc.Checksum
		doc.Checksum = ""
		verifyData, _ := json.Marshal(doc)
		sum := sha256.Sum256(verifyData)
		if hex.EncodeToString(sum[:]) != want {
			if backup, berr := s.loadBackup(); berr == nil {
				s.logger.Warn("commit index checksum mismatch, loaded backup")
				s.records = backup
				return nil
			}
			return fmt.Errorf("state: commit index checksum mismatch")
		}
	}

	for _, rec := range doc.Records {
		s.records[rec.PlainCommitHash] = rec
	}
	return nil
}

func (s *JSONStore) loadBackup() (map[string]Record, error) {
	data, err := os.ReadFile(s.path + ".backup")
	if err != nil {
		return nil, err
	}
	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]Record, len(doc.Records))
	for _, rec := range doc.Records {
		out[rec.PlainCommitHash] = rec
	}
	return out, nil
}

// save writes the current record set atomically, keeping a .backup of
// the previous version.
func (s *JSONStore) save() error {
	recs := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].MirroredAt.Before(recs[j].MirroredAt) })

	doc := jsonDocument{SchemaVersion: CurrentSchemaVersion, Records: recs}
	checksumData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal commit index: %w", err)
	}
	sum := sha256.Sum256(checksumData)
	doc.Checksum = hex.EncodeToString(sum[:])

	jsonData, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal commit index with checksum: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		if data, err := os.ReadFile(s.path); err == nil {
			_ = os.WriteFile(s.path+".backup", data, 0o600)
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, jsonData, 0o600); err != nil {
		return fmt.Errorf("write temp commit index: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename commit index: %w", err)
	}
	return nil
}

// Get looks up the mirror record for plainCommitHash.
func (s *JSONStore) Get(plainCommitHash string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[plainCommitHash]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Put upserts a commit-index row and persists it.
func (s *JSONStore) Put(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.PlainCommitHash] = rec
	return s.save()
}

// Latest returns the most recently mirrored record.
func (s *JSONStore) Latest() (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Record
	for _, rec := range s.records {
		rec := rec
		if latest == nil || rec.MirroredAt.After(latest.MirroredAt) {
			latest = &rec
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

// All returns every record, oldest first.
func (s *JSONStore) All() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].MirroredAt.Before(recs[j].MirroredAt) })
	return recs, nil
}

// Reset removes every commit-index row.
func (s *JSONStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]Record)
	return s.save()
}

// Close is a no-op: every mutation is already flushed to disk by Put/Reset.
func (s *JSONStore) Close() error {
	return nil
}
