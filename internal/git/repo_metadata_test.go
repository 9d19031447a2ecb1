package git

import (
	"os/exec"
	"testing"
)

func TestRepoMetadata(t *testing.T) {
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, string(out))
		}
	}
	run("init", ".")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "tester")
	run("remote", "add", "origin", "git@github.com:acme/widgets.git")
	run("commit", "--allow-empty", "-m", "init")

	repo, commit, branch := RepoMetadata(dir)
	if repo != "acme/widgets" {
		t.Fatalf("repo = %q, want acme/widgets", repo)
	}
	if commit == "" {
		t.Fatalf("expected non-empty commit")
	}
	if branch == "" {
		t.Fatalf("expected non-empty branch")
	}
}

func TestShortRemote(t *testing.T) {
	cases := map[string]string{
		"git@github.com:acme/pngme.git":     "acme/pngme",
		"https://github.com/acme/pngme.git": "acme/pngme",
		"https://github.com/acme/pngme":     "acme/pngme",
	}
	for in, want := range cases {
		if got := shortRemote(in); got != want {
			t.Errorf("shortRemote(%q) = %q, want %q", in, got, want)
		}
	}
}
