package engine

import "strings"

// Directory names never worth descending into when default excludes are on.
// Dependency trees and build outputs dominate walk time in big repos and
// hold nothing we want to report.
var defaultExcludeDirs = map[string]bool{
	".git":         true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"bin":          true,
	"obj":          true,
	"coverage":     true,
}

// Suffixes that cannot hold PNG containers. Skipping them keeps sniff mode
// from reading every blob in the tree.
var defaultExcludeFileSuffixes = []string{
	".min.js", ".map",
	".jpg", ".jpeg", ".gif", ".webp", ".svg",
	".pdf", ".zip", ".gz", ".tar", ".tgz", ".7z",
	".jar", ".class", ".exe", ".dll", ".so",
	".wasm", ".pyc",
	".pb.go", ".gen.go",
}

// Exact basenames skipped regardless of location, compared lowercased.
var defaultExcludeFileNames = map[string]bool{
	"yarn.lock":         true,
	"package-lock.json": true,
	"pnpm-lock.yaml":    true,
	"composer.lock":     true,
	"poetry.lock":       true,
	".ds_store":         true,
}

func isDefaultDirExcluded(name string) bool {
	return defaultExcludeDirs[name] || strings.HasPrefix(name, ".git")
}

func isDefaultFileExcluded(lowerRel string) bool {
	base := lowerRel
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if defaultExcludeFileNames[base] || strings.HasSuffix(base, ".lock") {
		return true
	}
	for _, s := range defaultExcludeFileSuffixes {
		if strings.HasSuffix(lowerRel, s) {
			return true
		}
	}
	// schema.gen.json, api.gen.ts and friends
	return strings.Contains(lowerRel, ".gen.")
}
