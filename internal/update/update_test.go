package update

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCheck_NoNetworkOrCI(t *testing.T) {
	t.Setenv("CI", "1")
	if latest, newer, err := Check("1.0.0", false); err != nil || latest != "" || newer {
		t.Fatalf("expected no-op in CI; got latest=%q newer=%v err=%v", latest, newer, err)
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		latest  string
		current string
		want    bool
	}{
		{"1.2.3", "1.2.3", false},
		{"1.3.0", "1.2.9", true},
		{"1.2.0", "1.2.1", false},
		{"v2.0.0", "1.9.9", true},
		{"1.2.3", "1.2.3-rc.1", true},
		{"not-a-version", "1.0.0", false},
		{"1.0.0", "garbage", false},
	}
	for _, tt := range tests {
		if got := isNewer(tt.latest, tt.current); got != tt.want {
			t.Errorf("isNewer(%q, %q) = %v, want %v", tt.latest, tt.current, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if normalize(" v1.2.3 ") != "1.2.3" {
		t.Fatal("normalize should trim space and the v prefix")
	}
}

func TestCheck_UsesCacheWhenFresh(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CI", "")
	t.Setenv("XDG_CONFIG_HOME", dir)
	c := checkCache{CheckedAt: time.Now(), Version: "1.2.3"}
	path := filepath.Join(dir, "pngme", cacheFileName)
	_ = os.MkdirAll(filepath.Dir(path), 0755)
	b, _ := json.Marshal(c)
	if err := os.WriteFile(path, b, 0644); err != nil {
		t.Fatal(err)
	}
	latest, newer, err := Check("1.2.2", false)
	if err != nil {
		t.Fatal(err)
	}
	if latest != "1.2.3" || !newer {
		t.Fatalf("expected cached latest=1.2.3 and newer=true; got latest=%q newer=%v", latest, newer)
	}
}

func TestCheck_FetchesWhenCacheStale(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"tag_name": "v9.9.9"})
	}))
	defer srv.Close()
	old := latestURL
	latestURL = srv.URL
	defer func() { latestURL = old }()

	dir := t.TempDir()
	t.Setenv("CI", "")
	t.Setenv("XDG_CONFIG_HOME", dir)

	latest, newer, err := Check("1.0.0", false)
	if err != nil {
		t.Fatal(err)
	}
	if latest != "9.9.9" || !newer {
		t.Fatalf("expected fetched latest=9.9.9 newer=true; got latest=%q newer=%v", latest, newer)
	}
	// fetched version should now be cached
	b, err := os.ReadFile(filepath.Join(dir, "pngme", cacheFileName))
	if err != nil {
		t.Fatalf("cache not written: %v", err)
	}
	var c checkCache
	if err := json.Unmarshal(b, &c); err != nil || c.Version != "9.9.9" {
		t.Fatalf("unexpected cache contents: %s", b)
	}
}
