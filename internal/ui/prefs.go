package ui

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"revu/internal/db"
)

// PrefsKey is the kv key holding the persisted UI preferences.
const PrefsKey = "ui_prefs"

// TablePrefs stores per-table UI preferences.
type TablePrefs struct {
	SortKey       string   `json:"sort_key"`
	SortDesc      bool     `json:"sort_desc"`
	HiddenColumns []string `json:"hidden_columns"`
	ActiveColumn  string   `json:"active_column"`
}

// UIPreferences stores persisted app preferences.
type UIPreferences struct {
	Reviews TablePrefs `json:"reviews"`
}

func defaultUIPreferences() UIPreferences {
	return UIPreferences{}
}

func loadUIPreferences(database *sql.DB) UIPreferences {
	if database == nil {
		return defaultUIPreferences()
	}
	raw, ok, err := db.GetValue(database, PrefsKey)
	if err != nil || !ok {
		return defaultUIPreferences()
	}

	var prefs UIPreferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return defaultUIPreferences()
	}
	return prefs
}

func saveUIPreferences(database *sql.DB, prefs UIPreferences) error {
	if database == nil {
		return nil
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal prefs: %w", err)
	}
	if err := db.SetValue(database, PrefsKey, string(data)); err != nil {
		return fmt.Errorf("failed to save prefs: %w", err)
	}
	return nil
}
