package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// DB maps repo-relative paths to the xxhash of their content at the last
// scan. Files whose hash is unchanged are skipped on the next run.
type DB struct {
	Entries map[string]string `json:"entries"`
}

// stateFile places per-repo state under .git when there is one, so it never
// shows up as an untracked file; outside a repo it falls back to a dotfile
// at the root.
func stateFile(root, gitName, plainName string) string {
	gitDir := filepath.Join(root, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return filepath.Join(gitDir, gitName)
	}
	return filepath.Join(root, plainName)
}

func defaultPath(root string) string {
	return stateFile(root, "pngmecache.json", ".pngmecache.json")
}

// Load reads the hash cache for root. On any failure it returns an empty but
// usable DB alongside the error, so callers can ignore the error and scan
// cold.
func Load(root string) (DB, error) {
	raw, err := os.ReadFile(defaultPath(root))
	if err != nil {
		return DB{Entries: map[string]string{}}, err
	}
	var db DB
	if err := json.Unmarshal(raw, &db); err != nil {
		return DB{Entries: map[string]string{}}, err
	}
	if db.Entries == nil {
		db.Entries = map[string]string{}
	}
	return db, nil
}

// Save writes the hash cache for root.
func Save(root string, db DB) error {
	if db.Entries == nil {
		return errors.New("empty cache")
	}
	b, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(defaultPath(root), b, 0644)
}
