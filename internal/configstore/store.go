// Package configstore implements the device-identity key-value collaborator
// on sqlite. Values are stored as strings and coerced on read.
package configstore

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// Store is a namespaced key-value store backed by a local sqlite file.
type Store struct {
	db *sql.DB
}

// Open opens (and initializes) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config store: %w", err)
	}

	// WAL mode: the store is read/written incrementally across devices
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS config_entries (
			namespace TEXT NOT NULL,
			section   TEXT NOT NULL,
			key       TEXT NOT NULL,
			value     TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (namespace, section, key)
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create config schema: %w", err)
	}

	log.Printf("[ConfigStore] Opened %s", path)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw string value. ok is false when the key is absent.
func (s *Store) Get(namespace, section, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM config_entries WHERE namespace = ? AND section = ? AND key = ?",
		namespace, section, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read config %s/%s/%s: %w", namespace, section, key, err)
	}
	return value, true, nil
}

// Set writes a value, replacing any previous one atomically.
func (s *Store) Set(namespace, section, key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO config_entries (namespace, section, key, value, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(namespace, section, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, namespace, section, key, value)
	if err != nil {
		return fmt.Errorf("failed to write config %s/%s/%s: %w", namespace, section, key, err)
	}
	return nil
}

// SetIfAbsent writes the value only when the key does not exist yet and
// reports whether the write happened. This is the store's only
// coordination primitive.
func (s *Store) SetIfAbsent(namespace, section, key, value string) (bool, error) {
	res, err := s.db.Exec(`
		INSERT INTO config_entries (namespace, section, key, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, section, key) DO NOTHING
	`, namespace, section, key, value)
	if err != nil {
		return false, fmt.Errorf("failed to init config %s/%s/%s: %w", namespace, section, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check config write: %w", err)
	}
	return n > 0, nil
}

// GetBool reads a value coerced to bool ("true"/"1"/"yes"/"on").
func (s *Store) GetBool(namespace, section, key string) (bool, bool, error) {
	raw, ok, err := s.Get(namespace, section, key)
	if err != nil || !ok {
		return false, ok, err
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true, true, nil
	default:
		return false, true, nil
	}
}

// GetInt reads a value coerced to int64.
func (s *Store) GetInt(namespace, section, key string) (int64, bool, error) {
	raw, ok, err := s.Get(namespace, section, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("config %s/%s/%s is not an int: %w", namespace, section, key, err)
	}
	return v, true, nil
}

// GetFloat reads a value coerced to float64.
func (s *Store) GetFloat(namespace, section, key string) (float64, bool, error) {
	raw, ok, err := s.Get(namespace, section, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false, fmt.Errorf("config %s/%s/%s is not a float: %w", namespace, section, key, err)
	}
	return v, true, nil
}
