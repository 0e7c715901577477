// Package session derives the viewer identity from the local key/value store.
package session

import (
	"database/sql"
	"fmt"
	"strings"

	"revu/internal/db"
	"revu/internal/model"
)

// Load reads the identity keys once and returns the resulting session.
// The first present key in admin, manager, user order wins and its value is
// used verbatim as the username. No key yields an anonymous session.
func Load(database *sql.DB) (model.Session, error) {
	for _, key := range model.IdentityKeys {
		value, ok, err := db.GetValue(database, key)
		if err != nil {
			return model.Session{}, fmt.Errorf("failed to load session: %w", err)
		}
		if ok && value != "" {
			return model.Session{Role: model.ParseRole(key), Username: value}, nil
		}
	}
	return model.Session{Role: model.RoleAnonymous}, nil
}

// Exists reports whether any identity key is stored.
func Exists(database *sql.DB) (bool, error) {
	s, err := Load(database)
	if err != nil {
		return false, err
	}
	return s.Role != model.RoleAnonymous, nil
}

// Save records s as the only stored identity.
func Save(database *sql.DB, s model.Session) error {
	if err := Clear(database); err != nil {
		return err
	}
	key := s.Role.Key()
	if key == "" {
		return nil
	}
	username := strings.TrimSpace(s.Username)
	if username == "" {
		return fmt.Errorf("username is required for role %s", s.Role)
	}
	if err := db.SetValue(database, key, username); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear removes every identity key.
func Clear(database *sql.DB) error {
	if err := db.DeleteValues(database, model.IdentityKeys...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
