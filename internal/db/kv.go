package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// GetValue returns the value stored under key. The boolean is false when the key is absent.
func GetValue(db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get value %q: %w", key, err)
	}
	return value, true, nil
}

// SetValue stores value under key, replacing any previous value.
func SetValue(db *sql.DB, key, value string) error {
	query := `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
	`
	if _, err := db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to set value %q: %w", key, err)
	}
	return nil
}

// DeleteValues removes the given keys. Missing keys are ignored.
func DeleteValues(db *sql.DB, keys ...string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
			return fmt.Errorf("failed to delete value %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}
