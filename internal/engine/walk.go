package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlekLefebvre/pngme/internal/git"
	"github.com/AlekLefebvre/pngme/internal/ignore"
	"github.com/AlekLefebvre/pngme/pkg/png"
)

// isPNGName reports whether path names a container by extension.
func isPNGName(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".apng")
}

func skipDirIfExcluded(cfg Config, d fs.DirEntry) error {
	if cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
		return filepath.SkipDir
	}
	return nil
}

// walkAdmits runs the walker's selection chain for one file entry. named
// reports whether the file qualified by extension rather than by sniffing.
func walkAdmits(cfg Config, ign ignore.Matcher, rel string, d fs.DirEntry) (named, ok bool) {
	if !allowedByGlobs(rel, cfg) || ign.Match(rel) {
		return false, false
	}
	if info, _ := d.Info(); info != nil && cfg.MaxBytes > 0 && info.Size() > cfg.MaxBytes {
		return false, false
	}
	named = isPNGName(rel)
	if !named && !cfg.SniffAll {
		return false, false
	}
	if cfg.DefaultExcludes && isDefaultFileExcluded(strings.ToLower(rel)) {
		return false, false
	}
	return named, true
}

// admits applies the glob, ignore, and size filters to a git-sourced blob.
func admits(cfg Config, ign ignore.Matcher, path string, size int64) bool {
	if !allowedByGlobs(path, cfg) || ign.Match(path) {
		return false
	}
	return cfg.MaxBytes <= 0 || size <= cfg.MaxBytes
}

// Walk traverses the working tree and invokes handle for each container
// candidate: files named *.png or *.apng, plus any file carrying the
// container signature when cfg.SniffAll is set. Candidates selected by name
// are handed over even without a valid signature so the rules can report
// them as malformed.
func Walk(ctx context.Context, cfg Config, ign ignore.Matcher, handle func(path string, data []byte)) error {
	return filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if d.IsDir() {
			return skipDirIfExcluded(cfg, d)
		}

		rel, _ := filepath.Rel(cfg.Root, p)
		named, ok := walkAdmits(cfg, ign, rel, d)
		if !ok {
			return nil
		}

		b, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		if !named && !png.HasSignature(b) {
			return nil
		}
		handle(rel, b)
		return nil
	})
}

// CountTargets estimates how many files a scan with cfg would process. It
// mirrors the selection logic of the Scan paths but never reads file
// contents, so in sniff mode it counts candidates rather than confirmed
// containers. Git errors count as zero targets rather than failing.
func CountTargets(cfg Config) (int, error) {
	ign, _ := ignore.Load(filepath.Join(cfg.Root, ".pngmeignore"))

	switch {
	case cfg.HistoryCommits > 0:
		entries, err := git.LastNCommits(cfg.Root, cfg.HistoryCommits, cfg.SniffAll)
		if err != nil {
			return 0, nil
		}
		n := 0
		for _, e := range entries {
			for path, blob := range e.Files {
				if admits(cfg, ign, path, int64(len(blob))) {
					n++
				}
			}
		}
		return n, nil

	case cfg.BaseBranch != "":
		files, data, err := git.ChangedSince(cfg.Root, cfg.BaseBranch, cfg.SniffAll)
		if err != nil {
			return 0, nil
		}
		n := 0
		for i, p := range files {
			// Pure deletions come through with no content.
			if len(data[i]) > 0 && admits(cfg, ign, p, int64(len(data[i]))) {
				n++
			}
		}
		return n, nil

	case cfg.ScanStaged:
		files, data, err := git.StagedFiles(cfg.Root, cfg.SniffAll)
		if err != nil {
			return 0, nil
		}
		n := 0
		for i, p := range files {
			if admits(cfg, ign, p, int64(len(data[i]))) {
				n++
			}
		}
		return n, nil
	}

	count := 0
	_ = filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return skipDirIfExcluded(cfg, d)
		}
		rel, _ := filepath.Rel(cfg.Root, p)
		if _, ok := walkAdmits(cfg, ign, rel, d); ok {
			count++
		}
		return nil
	})
	return count, nil
}
