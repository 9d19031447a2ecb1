package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// Entry is one commit together with the blob contents pngme should look at.
type Entry struct {
	Hash  string
	Files map[string][]byte
}

// validateRoot validates and normalizes a git repository root path.
// Returns the cleaned absolute path or an error if invalid.
func validateRoot(root string) (string, error) {
	// Check for null bytes (potential injection)
	if strings.ContainsRune(root, 0) {
		return "", fmt.Errorf("invalid path: contains null byte")
	}

	// Clean and make absolute
	cleaned := filepath.Clean(root)
	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", root, err)
	}

	// Verify it's a directory
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access path %q: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", root)
	}

	return abs, nil
}

// isPNGName is the cheap name-based filter used before blobs are fetched.
func isPNGName(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".png" || ext == ".apng"
}

// RepoMetadata returns (repo, commit, branch) best-effort for the given root.
// Empty strings are returned on failure. It reads .git directly instead of
// shelling out, so upload envelopes get populated even where no git binary
// is installed.
func RepoMetadata(root string) (string, string, string) {
	validRoot, err := validateRoot(root)
	if err != nil {
		return "", "", ""
	}
	r, err := gogit.PlainOpenWithOptions(validRoot, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", "", ""
	}

	repo := ""
	if remote, err := r.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			repo = shortRemote(urls[0])
		}
	}
	commit, branch := "", ""
	if head, err := r.Head(); err == nil {
		commit = head.Hash().String()
		if head.Name().IsBranch() {
			branch = head.Name().Short()
		}
	}
	return repo, commit, branch
}

// shortRemote reduces a remote URL to owner/name when possible.
func shortRemote(s string) string {
	s = strings.TrimSuffix(s, ".git")
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, "github.com/"); i >= 0 {
		s = s[i+len("github.com/"):]
	}
	return s
}

// LastNCommits walks the last n commits and fetches the blobs each commit
// touched, so containers that were committed and later deleted still get
// scanned. Unless all is true, only PNG-named blobs are fetched; sniffing
// every historical blob is opt-in because it pulls the whole tree.
func LastNCommits(root string, n int, all bool) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	validRoot, err := validateRoot(root)
	if err != nil {
		return nil, err
	}

	// Use `git show` per commit to keep it simple
	cmd := exec.Command("git", "-C", validRoot, "rev-list", "--max-count", fmt.Sprintf("%d", n), "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	hashes := strings.Fields(string(out))

	var entries []Entry
	for _, h := range hashes {
		// get changed files + content in commit
		cmd = exec.Command("git", "-C", validRoot, "show", h, "--name-only", "--pretty=")
		filesOut, err := cmd.Output()
		if err != nil {
			continue
		}
		fileList := strings.Fields(string(filesOut))
		files := map[string][]byte{}
		for _, p := range fileList {
			if !all && !isPNGName(p) {
				continue
			}
			show := exec.Command("git", "-C", validRoot, "show", h+":"+p)
			b, err := show.Output()
			if err == nil {
				files[p] = b
			}
		}
		entries = append(entries, Entry{Hash: h, Files: files})
	}
	return entries, nil
}

// ChangedSince returns the paths changed relative to base together with
// their current worktree contents. Deleted paths are skipped. Unless all is
// true only PNG-named paths are returned.
func ChangedSince(root, base string, all bool) ([]string, [][]byte, error) {
	validRoot, err := validateRoot(root)
	if err != nil {
		return nil, nil, err
	}

	cmd := exec.Command("git", "-C", validRoot, "diff", "--name-only", base)
	out, err := cmd.Output()
	if err != nil {
		return nil, nil, err
	}
	var paths []string
	var data [][]byte
	for _, p := range strings.Fields(string(out)) {
		if !all && !isPNGName(p) {
			continue
		}
		b, err := os.ReadFile(filepath.Join(validRoot, p))
		if err != nil {
			continue
		}
		paths = append(paths, p)
		data = append(data, b)
	}
	return paths, data, nil
}

// StagedFiles returns the paths staged in the index and their staged
// contents, so a pre-commit hook can catch a container before it lands.
// Unless all is true only PNG-named paths are returned.
func StagedFiles(root string, all bool) ([]string, [][]byte, error) {
	validRoot, err := validateRoot(root)
	if err != nil {
		return nil, nil, err
	}

	cmd := exec.Command("git", "-C", validRoot, "diff", "--name-only", "--cached")
	out, err := cmd.Output()
	if err != nil {
		return nil, nil, err
	}
	var paths []string
	var data [][]byte
	for _, p := range strings.Fields(string(out)) {
		if !all && !isPNGName(p) {
			continue
		}
		show := exec.Command("git", "-C", validRoot, "show", ":"+p)
		b, err := show.Output()
		if err != nil {
			continue
		}
		paths = append(paths, p)
		data = append(data, b)
	}
	return paths, data, nil
}
