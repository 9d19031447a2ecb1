package files

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// AppendIgnore adds pattern to .gitignore at repoRoot unless an identical
// line is already present. The file is created when missing.
func AppendIgnore(repoRoot, pattern string) error {
	path := filepath.Join(repoRoot, ".gitignore")
	if hasIgnoreLine(path, pattern) {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(pattern + "\n")
	return err
}

// hasIgnoreLine reports whether the file carries pattern as a line, ignoring
// surrounding whitespace. A missing file has no lines.
func hasIgnoreLine(path, pattern string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == pattern {
			return true
		}
	}
	return false
}

// GeneratedArtifactIgnores returns the pngme work files that should never be
// committed when they land outside .git.
func GeneratedArtifactIgnores() []string {
	return []string{
		".pngmecache.json",
		".pngme_last_scan.json",
		".pngme_audit.jsonl",
	}
}
