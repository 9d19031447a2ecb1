package git

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/AlekLefebvre/pngme/pkg/png"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(name string, args ...string) {
		cmd := exec.Command(name, args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("cmd %s %v failed: %v\n%s", name, args, err, string(out))
		}
	}
	run("git", "init", ".")
	run("git", "config", "user.email", "test@example.com")
	run("git", "config", "user.name", "tester")
	return dir
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, string(out))
	}
}

func writePNG(t *testing.T, dir, name, code, msg string) []byte {
	t.Helper()
	ct, err := png.ChunkTypeFromString(code)
	if err != nil {
		t.Fatalf("ChunkTypeFromString: %v", err)
	}
	c, err := png.NewChunk(ct, []byte(msg))
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	raw := png.FromChunks([]*png.Chunk{c}).Bytes()
	if err := os.WriteFile(filepath.Join(dir, name), raw, 0644); err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestLastNCommitsFiltersToPNG(t *testing.T) {
	dir := initRepo(t)
	writePNG(t, dir, "a.png", "ruSt", "first")
	if err := os.WriteFile(filepath.Join(dir, "note.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	gitRun(t, dir, "add", ".")
	gitRun(t, dir, "commit", "-m", "add a")
	want := writePNG(t, dir, "a.png", "ruSt", "second")
	gitRun(t, dir, "add", "a.png")
	gitRun(t, dir, "commit", "-m", "update a")

	entries, err := LastNCommits(dir, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// newest commit first
	got, ok := entries[0].Files["a.png"]
	if !ok {
		t.Fatalf("expected a.png in newest commit files")
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("blob content mismatch")
	}
	for _, e := range entries {
		if _, ok := e.Files["note.txt"]; ok {
			t.Fatalf("note.txt should be filtered out without all=true")
		}
	}

	all, err := LastNCommits(dir, 2, true)
	if err != nil {
		t.Fatal(err)
	}
	foundTxt := false
	for _, e := range all {
		if _, ok := e.Files["note.txt"]; ok {
			foundTxt = true
		}
	}
	if !foundTxt {
		t.Fatalf("expected note.txt with all=true")
	}
}

func TestStagedFiles(t *testing.T) {
	dir := initRepo(t)
	want := writePNG(t, dir, "b.png", "teXt", "staged secret")
	if err := os.WriteFile(filepath.Join(dir, "c.txt"), []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
	gitRun(t, dir, "add", ".")
	// don't commit; keep staged
	files, data, err := StagedFiles(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != "b.png" {
		t.Fatalf("expected only b.png staged, got %v", files)
	}
	if !bytes.Equal(data[0], want) {
		t.Fatalf("staged content mismatch")
	}
}

func TestChangedSince(t *testing.T) {
	dir := initRepo(t)
	writePNG(t, dir, "c.png", "ruSt", "base")
	gitRun(t, dir, "add", "c.png")
	gitRun(t, dir, "commit", "-m", "add c")
	gitRun(t, dir, "branch", "base")
	// modify on current branch
	want := writePNG(t, dir, "c.png", "ruSt", "base plus a change")
	gitRun(t, dir, "add", "c.png")
	gitRun(t, dir, "commit", "-m", "change c")

	files, data, err := ChangedSince(dir, "base", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != "c.png" {
		t.Fatalf("expected c.png changed, got %v", files)
	}
	if !bytes.Equal(data[0], want) {
		t.Fatalf("expected current worktree bytes")
	}
}
