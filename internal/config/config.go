package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape for pngme. Fields are
// pointers so an absent key is distinguishable from a zero value when
// merging with CLI flags.
type FileConfig struct {
	Include         *string  `yaml:"include"`
	Exclude         *string  `yaml:"exclude"`
	MaxBytes        *int64   `yaml:"max_bytes"`
	Threads         *int     `yaml:"threads"`
	MinConfidence   *float64 `yaml:"min_confidence"`
	NoColor         *bool    `yaml:"no_color"`
	DefaultExcludes *bool    `yaml:"default_excludes"`
	FailOn          *string  `yaml:"fail_on"`
	Format          *string  `yaml:"format"`
	Editor          *string  `yaml:"editor"`

	// Scan behavior
	SniffAll            *bool   `yaml:"sniff_all"`
	IncludeStandardText *bool   `yaml:"all_text"`
	Types               *string `yaml:"types"`

	// Deep scanning config mirrors CLI flags
	Archives             *bool   `yaml:"archives"`
	Containers           *bool   `yaml:"containers"`
	MaxArchiveBytes      *int64  `yaml:"max_archive_bytes"`
	MaxEntries           *int    `yaml:"max_entries"`
	MaxDepth             *int    `yaml:"max_depth"`
	ScanTimeBudget       *string `yaml:"scan_time_budget"`
	GlobalArtifactBudget *string `yaml:"global_artifact_budget"`

	// Upload config for the findings endpoint
	Upload *UploadConfig `yaml:"upload"`
}

// UploadConfig holds configuration for pushing findings to a collector.
type UploadConfig struct {
	// URL is the endpoint findings are POSTed to. Empty disables uploads.
	URL *string `yaml:"url"`

	// Token is the bearer token sent with uploads. Prefer the
	// PNGME_UPLOAD_TOKEN environment variable over committing this.
	Token *string `yaml:"token"`
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadLocal searches for a repo-local config file in the given root.
// It supports .pngme.yml/.yaml and pngme.yml/.yaml.
func LoadLocal(repoRoot string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range []string{".pngme.yml", ".pngme.yaml", "pngme.yml", "pngme.yaml"} {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// LoadGlobal loads the global config file from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return cfg, errors.New("no config dir")
	}
	p := filepath.Join(base, "pngme", "config.yml")
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}

// GetUploadConfig returns the upload section, defaulting every field.
func (fc FileConfig) GetUploadConfig() UploadConfig {
	if fc.Upload == nil {
		return UploadConfig{}
	}
	return *fc.Upload
}

// GetURL returns the configured endpoint or empty string.
func (uc UploadConfig) GetURL() string {
	if uc.URL == nil {
		return ""
	}
	return *uc.URL
}

// GetToken returns the configured token, preferring PNGME_UPLOAD_TOKEN.
func (uc UploadConfig) GetToken() string {
	if env := os.Getenv("PNGME_UPLOAD_TOKEN"); env != "" {
		return env
	}
	if uc.Token == nil {
		return ""
	}
	return *uc.Token
}
