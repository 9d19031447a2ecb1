// Package config reads pngme's YAML configuration. A repo-local file and a
// per-user global file are merged by the CLI layer, with flags taking
// precedence over both.
package config
