// Package ignore loads .pngmeignore files: a small gitignore-like format
// used to exclude paths from scanning and deep artifact inspection.
package ignore

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher holds the patterns loaded from one ignore file. The zero value
// matches nothing, so callers may discard Load errors and keep going.
type Matcher struct {
	dirs  []string // "node_modules/" style entries, matched as path prefixes
	globs []string // entries with glob metacharacters
	names []string // plain file names, matched exactly or by basename
}

// Load parses the ignore file at p. Lines are trimmed; blank lines and
// lines starting with '#' are skipped.
func Load(p string) (Matcher, error) {
	var m Matcher
	f, err := os.Open(p)
	if err != nil {
		return m, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasSuffix(line, "/"):
			m.dirs = append(m.dirs, strings.TrimSuffix(line, "/"))
		case strings.ContainsAny(line, "*?["):
			m.globs = append(m.globs, line)
		default:
			m.names = append(m.names, line)
		}
	}
	return m, sc.Err()
}

// Match reports whether the relative path rel is ignored. Both native and
// slash separators are accepted.
func (m Matcher) Match(rel string) bool {
	r := filepath.ToSlash(rel)
	base := path.Base(r)

	for _, d := range m.dirs {
		if r == d || strings.HasPrefix(r, d+"/") || strings.Contains(r, "/"+d+"/") {
			return true
		}
	}
	for _, g := range m.globs {
		if strings.Contains(g, "/") {
			if ok, _ := doublestar.Match(g, r); ok {
				return true
			}
			continue
		}
		if ok, _ := doublestar.Match(g, base); ok {
			return true
		}
	}
	for _, n := range m.names {
		if r == n || base == n {
			return true
		}
	}
	return false
}
