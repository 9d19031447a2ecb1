package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendIgnore_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	if err := AppendIgnore(dir, "dist/"); err != nil {
		t.Fatalf("AppendIgnore: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "dist/\n" {
		t.Fatalf("unexpected content: %q", string(b))
	}
}

func TestAppendIgnore_SkipsExistingLine(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(p, []byte("node_modules/\n  dist/  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// "dist/" is already there, whitespace-padded; must not be duplicated
	if err := AppendIgnore(dir, "dist/"); err != nil {
		t.Fatalf("AppendIgnore: %v", err)
	}
	if err := AppendIgnore(dir, ".pngmecache.json"); err != nil {
		t.Fatalf("AppendIgnore new pattern: %v", err)
	}
	b, _ := os.ReadFile(p)
	if strings.Count(string(b), "dist/") != 1 {
		t.Fatalf("duplicate line written: %q", string(b))
	}
	if !strings.HasSuffix(string(b), ".pngmecache.json\n") {
		t.Fatalf("new pattern missing or unterminated: %q", string(b))
	}
}

func TestGeneratedArtifactIgnores_CoverWorkFiles(t *testing.T) {
	have := map[string]bool{}
	for _, it := range GeneratedArtifactIgnores() {
		have[it] = true
	}
	for _, want := range []string{".pngmecache.json", ".pngme_last_scan.json", ".pngme_audit.jsonl"} {
		if !have[want] {
			t.Errorf("artifact ignores missing %q: %#v", want, GeneratedArtifactIgnores())
		}
	}
}
