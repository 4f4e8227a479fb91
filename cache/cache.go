// Package cache implements the persistent translation cache.
//
// The cache is content-addressable: the key is the SHA-256 of the original
// text, independent of which file the text came from, so a string shared by
// many stringtables is translated exactly once. Storage is a single sqlite
// file (WAL mode), safe to reopen on every run and shared across sessions.
//
// Every operation degrades gracefully: a broken cache makes the pipeline
// slower, never wrong. Get failures report a miss, Put failures are
// returned for logging and otherwise ignored by callers.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a handle to the translation cache database.
type Store struct {
	db *sql.DB
}

// Stats summarizes cache contents.
type Stats struct {
	// Total is the number of cached translations.
	Total int64
	// Recent is the number created in the last 24 hours.
	Recent int64
}

// Open opens (creating if necessary) the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}

	// WAL keeps concurrent readers cheap; NORMAL sync is durable enough
	// for a cache that can always be regenerated.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configuring cache: %w", err)
		}
	}

	const schema = `
CREATE TABLE IF NOT EXISTS translations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    text_hash TEXT UNIQUE NOT NULL,
    original_text TEXT NOT NULL,
    translated_text TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_text_hash ON translations(text_hash);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// hashText returns the content key for a text: hex SHA-256 of its UTF-8
// bytes. Deterministic across runs and machines.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get looks up the cached translation for originalText. The bool reports
// whether a translation was found; lookup errors surface as a miss with a
// non-nil error so the caller can log and continue.
func (s *Store) Get(originalText string) (string, bool, error) {
	var translated string
	err := s.db.QueryRow(
		"SELECT translated_text FROM translations WHERE text_hash = ?",
		hashText(originalText),
	).Scan(&translated)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache lookup: %w", err)
	}
	return translated, true, nil
}

// Put stores a translation, overwriting any previous value for the same
// original text. Each Put is its own transaction, so a crash mid-batch
// loses at most the in-flight batch.
func (s *Store) Put(originalText, translatedText string) error {
	_, err := s.db.Exec(`
INSERT OR REPLACE INTO translations (text_hash, original_text, translated_text)
VALUES (?, ?, ?)`,
		hashText(originalText), originalText, translatedText,
	)
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// Stats reports the total entry count and how many were added in the last
// 24 hours.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	if err := s.db.QueryRow("SELECT COUNT(*) FROM translations").Scan(&st.Total); err != nil {
		return st, fmt.Errorf("cache stats: %w", err)
	}
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM translations WHERE created_at >= datetime('now', '-1 day')",
	).Scan(&st.Recent)
	if err != nil {
		return st, fmt.Errorf("cache stats: %w", err)
	}
	return st, nil
}

// Clear deletes every cached translation.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM translations"); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}
