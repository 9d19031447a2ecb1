package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Prefs are TUI settings that survive across sessions.
type Prefs struct {
	// HidePreviews masks payload previews in the finding table until the
	// user toggles them visible.
	HidePreviews bool `json:"hide_previews"`
}

// DefaultPrefs hides previews until the user opts in.
func DefaultPrefs() Prefs {
	return Prefs{HidePreviews: true}
}

func prefsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pngme", "tui_prefs.json"), nil
}

// LoadPrefs reads the preferences file. Missing or unreadable files fall
// back to DefaultPrefs.
func LoadPrefs() Prefs {
	prefs := DefaultPrefs()
	path, err := prefsPath()
	if err != nil {
		return prefs
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return prefs
	}
	_ = json.Unmarshal(data, &prefs)
	return prefs
}

// SavePrefs writes prefs to the user's config directory, creating it on
// first use.
func SavePrefs(prefs Prefs) error {
	path, err := prefsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// redactPreview keeps the first 6 characters of a preview and masks the
// rest; very short previews are masked entirely.
func redactPreview(s string) string {
	if len(s) <= 6 {
		return "..."
	}
	return s[:6] + "..."
}
