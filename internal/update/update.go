package update

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blang/semver/v4"
)

const (
	defaultLatestURL = "https://api.github.com/repos/AlekLefebvre/pngme/releases/latest"
	cacheFileName    = "update.json"
	checkInterval    = 24 * time.Hour
)

// latestURL is a variable so tests can point it at a local server.
var latestURL = defaultLatestURL

type checkCache struct {
	CheckedAt time.Time `json:"checked_at"`
	Version   string    `json:"version"`
}

// cachePath returns the location of the last-check cache, or "" when no
// config directory can be resolved.
func cachePath() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "pngme", cacheFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "pngme", cacheFileName)
}

func readCache() checkCache {
	var c checkCache
	path := cachePath()
	if path == "" {
		return c
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	_ = json.Unmarshal(b, &c)
	return c
}

func writeCache(c checkCache) {
	path := cachePath()
	if path == "" {
		return
	}
	_ = os.MkdirAll(filepath.Dir(path), 0755)
	b, _ := json.MarshalIndent(c, "", "  ")
	_ = os.WriteFile(path, b, 0644)
}

// fetchLatest asks the release endpoint for the newest published tag.
func fetchLatest() (string, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest(http.MethodGet, latestURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "pngme-updater")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var release struct {
		TagName string `json:"tag_name"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}
	if release.TagName != "" {
		return release.TagName, nil
	}
	return release.Name, nil
}

func normalize(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewer reports whether latest is a strictly higher semantic version than
// current. Unparseable versions never count as newer.
func isNewer(latest, current string) bool {
	lv, err := semver.ParseTolerant(latest)
	if err != nil {
		return false
	}
	cv, err := semver.ParseTolerant(current)
	if err != nil {
		return false
	}
	return lv.GT(cv)
}

// Check returns the newest released version and whether it is ahead of
// current. Results are cached for 24 hours; the check is skipped entirely
// in CI or when noNetwork is set.
func Check(current string, noNetwork bool) (string, bool, error) {
	if os.Getenv("CI") != "" || noNetwork {
		return "", false, nil
	}

	c := readCache()
	latest := c.Version
	if latest == "" || time.Since(c.CheckedAt) > checkInterval {
		if v, err := fetchLatest(); err == nil {
			latest = normalize(v)
			writeCache(checkCache{CheckedAt: time.Now(), Version: latest})
		}
	}
	if latest == "" || current == "" {
		return latest, false, nil
	}
	return latest, isNewer(latest, normalize(current)), nil
}
