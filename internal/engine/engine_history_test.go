package engine

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
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

func TestScan_StagedAndHistoryAndBase(t *testing.T) {
	dir := initRepo(t)
	write := func(name string, content []byte) {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
			t.Fatal(err)
		}
	}
	git := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, string(out))
		}
	}
	// base commit
	write("clean.png", containerBytes(t, [2]string{"tEXt", "Title base"}))
	git("add", "clean.png")
	git("commit", "-m", "add clean")
	git("branch", "base")
	// staged change (kept staged and uncommitted for the staged scan)
	write("stage.png", containerBytes(t, [2]string{"ruSt", "deploy-token: hunter2"}))
	git("add", "stage.png")
	// staged path
	res, err := ScanWithStats(Config{Root: dir, ScanStaged: true, NoCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesScanned == 0 {
		t.Fatalf("expected staged files scanned")
	}
	if len(res.Findings) == 0 {
		t.Fatalf("expected the staged private chunk to be reported")
	}

	// commit a container with a private chunk for the history scan
	write("hist.png", containerBytes(t, [2]string{"ruSt", "secret message"}))
	git("add", "hist.png")
	git("commit", "-m", "add hist")

	// history path
	res, err = ScanWithStats(Config{Root: dir, HistoryCommits: 1, MaxBytes: 1 << 20, NoCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesScanned == 0 {
		t.Fatalf("expected history files scanned")
	}
	found := false
	for _, f := range res.Findings {
		if f.Path == "hist.png" && f.Rule == RulePrivateText {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected private-text finding for hist.png, got %+v", res.Findings)
	}

	// base diff path
	res, err = ScanWithStats(Config{Root: dir, BaseBranch: "base", MaxBytes: 1 << 20, NoCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesScanned == 0 {
		t.Fatalf("expected base diff files scanned")
	}
}
