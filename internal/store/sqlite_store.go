package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStore is the SQLite-backed cache.
// Thread-safe for concurrent WASM callbacks.
type SQLiteStore struct {
	mu           sync.RWMutex
	db           *sql.DB
	historyLimit int
	private      map[string]bool
	now          func() time.Time
}

// SQLiteOptions configures a SQLiteStore.
type SQLiteOptions struct {
	// DSN is a file path or ":memory:".
	DSN string
	// HistoryLimit bounds retained versions per key, current included.
	// Zero or less keeps every version.
	HistoryLimit int
	// Private keys keep no history and are left out of Export.
	Private []string
}

// schema defines the single temporal table.
const schema = `
-- Composite primary key (key, version) enables version history
CREATE TABLE IF NOT EXISTS entries (
    key TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    value TEXT NOT NULL,
    valid_from INTEGER NOT NULL,
    valid_to INTEGER,
    is_current INTEGER DEFAULT 1,
    change_reason TEXT,
    PRIMARY KEY (key, version)
);

-- Partial index for current versions (fast reads)
CREATE INDEX IF NOT EXISTS idx_entries_current ON entries(key) WHERE is_current = 1;
-- Index for history queries
CREATE INDEX IF NOT EXISTS idx_entries_history ON entries(key, valid_from);
`

// NewSQLiteStore creates a new in-memory SQLite cache.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithOptions(SQLiteOptions{DSN: ":memory:"})
}

// NewSQLiteStoreWithOptions opens (or creates) the database and its schema.
func NewSQLiteStoreWithOptions(opts SQLiteOptions) (*SQLiteStore, error) {
	if opts.DSN == "" {
		opts.DSN = ":memory:"
	}
	db, err := sql.Open("sqlite3", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every pooled connection to ":memory:" would see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	private := make(map[string]bool, len(opts.Private))
	for _, k := range opts.Private {
		private[k] = true
	}

	return &SQLiteStore{
		db:           db,
		historyLimit: opts.HistoryLimit,
		private:      private,
		now:          time.Now,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Cache
// =============================================================================

// Get returns the current version of key.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM entries WHERE key = ? AND is_current = 1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes value as a new current version of key.
// Writing the value that is already current is a no-op.
func (s *SQLiteStore) Set(key, value string) error {
	return s.SetWithReason(key, value, "")
}

// SetWithReason is Set with a change reason recorded on the version.
func (s *SQLiteStore) SetWithReason(key, value, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var currentVersion int
	var currentValue string
	err = tx.QueryRow(`
		SELECT version, value FROM entries
		WHERE key = ? AND is_current = 1
	`, key).Scan(&currentVersion, &currentValue)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := tx.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM entries WHERE key = ?`, key).Scan(&currentVersion); err != nil {
			return err
		}
	case err != nil:
		return err
	case currentValue == value:
		return nil
	}

	if err := s.insertVersion(tx, key, currentVersion+1, value, reason); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes every version of key.
func (s *SQLiteStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM entries WHERE key = ?", key)
	return err
}

// insertVersion closes the current version, inserts the new one and prunes
// history beyond the limit.
func (s *SQLiteStore) insertVersion(tx *sql.Tx, key string, version int, value, reason string) error {
	now := s.now().UnixMilli()

	if _, err := tx.Exec(`
		UPDATE entries SET valid_to = ?, is_current = 0
		WHERE key = ? AND is_current = 1
	`, now, key); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO entries (key, version, value, valid_from, valid_to, is_current, change_reason)
		VALUES (?, ?, ?, ?, NULL, 1, ?)
	`, key, version, value, now, reason); err != nil {
		return err
	}

	limit := s.historyLimit
	if s.private[key] {
		limit = 1
	}
	if limit > 0 {
		if _, err := tx.Exec(`DELETE FROM entries WHERE key = ? AND version <= ?`, key, version-limit); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// History
// =============================================================================

// ListVersions returns all retained versions of key, newest first.
func (s *SQLiteStore) ListVersions(key string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT key, version, value, valid_from, valid_to, is_current, change_reason
		FROM entries WHERE key = ? ORDER BY version DESC
	`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetVersion retrieves a specific version of key.
func (s *SQLiteStore) GetVersion(key string, version int) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT key, version, value, valid_from, valid_to, is_current, change_reason
		FROM entries WHERE key = ? AND version = ?
	`, key, version)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s v%d", ErrVersionNotFound, key, version)
	}
	return e, err
}

// GetAtTime retrieves the version of key that was current at timestamp (ms).
func (s *SQLiteStore) GetAtTime(key string, timestamp int64) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT key, version, value, valid_from, valid_to, is_current, change_reason
		FROM entries
		WHERE key = ?
		  AND valid_from <= ?
		  AND (valid_to IS NULL OR valid_to > ?)
		ORDER BY version DESC LIMIT 1
	`, key, timestamp, timestamp)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s at %d", ErrVersionNotFound, key, timestamp)
	}
	return e, err
}

// Restore writes the value of an old version as a new current version.
func (s *SQLiteStore) Restore(key string, version int) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var value string
	err = tx.QueryRow(`SELECT value FROM entries WHERE key = ? AND version = ?`, key, version).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s v%d", ErrVersionNotFound, key, version)
	}
	if err != nil {
		return nil, err
	}

	var maxVersion int
	if err := tx.QueryRow(`SELECT MAX(version) FROM entries WHERE key = ?`, key).Scan(&maxVersion); err != nil {
		return nil, err
	}

	reason := fmt.Sprintf("restore v%d", version)
	if err := s.insertVersion(tx, key, maxVersion+1, value, reason); err != nil {
		return nil, err
	}

	row := tx.QueryRow(`
		SELECT key, version, value, valid_from, valid_to, is_current, change_reason
		FROM entries WHERE key = ? AND is_current = 1
	`, key)
	e, err := scanEntry(row)
	if err != nil {
		return nil, err
	}
	return e, tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var isCurrent int
	var validTo sql.NullInt64
	var reason sql.NullString
	if err := row.Scan(&e.Key, &e.Version, &e.Value, &e.ValidFrom, &validTo, &isCurrent, &reason); err != nil {
		return nil, err
	}
	e.IsCurrent = isCurrent == 1
	if validTo.Valid {
		v := validTo.Int64
		e.ValidTo = &v
	}
	if reason.Valid {
		e.ChangeReason = reason.String
	}
	return &e, nil
}

// =============================================================================
// Export / Import
// =============================================================================

type exportData struct {
	Entries []*Entry `json:"entries"`
}

// Export serializes every retained version except private keys to JSON.
// This is a portable export that doesn't depend on sqlite3 serialization APIs.
func (s *SQLiteStore) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT key, version, value, valid_from, valid_to, is_current, change_reason
		FROM entries ORDER BY key, version
	`)
	if err != nil {
		return nil, fmt.Errorf("export entries: %w", err)
	}
	defer rows.Close()

	data := exportData{Entries: []*Entry{}}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if s.private[e.Key] {
			continue
		}
		data.Entries = append(data.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return json.Marshal(data)
}

// Import replaces all non-private entries with an exported snapshot.
func (s *SQLiteStore) Import(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(data) == 0 {
		return nil
	}

	var in exportData
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("import unmarshal: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	keep := make([]any, 0, len(s.private))
	for k := range s.private {
		keep = append(keep, k)
	}
	query := "DELETE FROM entries"
	if len(keep) > 0 {
		query += " WHERE key NOT IN (?" + strings.Repeat(", ?", len(keep)-1) + ")"
	}
	if _, err := tx.Exec(query, keep...); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}

	for _, e := range in.Entries {
		if s.private[e.Key] {
			continue
		}
		version := max(e.Version, 1)
		if _, err := tx.Exec(`
			INSERT INTO entries (key, version, value, valid_from, valid_to, is_current, change_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, e.Key, version, e.Value, e.ValidFrom, e.ValidTo, boolToInt(e.IsCurrent), e.ChangeReason); err != nil {
			return fmt.Errorf("import entry %s v%d: %w", e.Key, version, err)
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time interface checks
var (
	_ Cache       = (*SQLiteStore)(nil)
	_ Historian   = (*SQLiteStore)(nil)
	_ Snapshotter = (*SQLiteStore)(nil)
)
