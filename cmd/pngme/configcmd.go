package pngme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlekLefebvre/pngme/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgPreset string
	cfgOutput string
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a commented .pngme.yml starter",
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&cfgPreset, "preset", "standard", "scan preset: minimal | standard | maximal")
	initCmd.Flags().StringVar(&cfgOutput, "output", ".pngme.yml", "output file path")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after merging files",
		RunE:  runConfigShow,
	}
	cfgCmd.AddCommand(showCmd)
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	// Presets widen what a scan looks at; minimal sticks to named *.png
	// files, maximal sniffs everything and descends into artifacts.
	var sniffAll, allText, archives, containers bool
	switch strings.ToLower(cfgPreset) {
	case "minimal":
	case "maximal":
		sniffAll, allText, archives, containers = true, true, true, true
	case "standard":
		archives = true
	default:
		return fmt.Errorf("unknown --preset %q. Supported: minimal, standard, maximal", cfgPreset)
	}
	content := fmt.Sprintf(`# pngme configuration. CLI flags override these values.

# Globs applied while walking the tree (comma-separated).
include: ""
exclude: ""

# Skip files larger than this many bytes.
max_bytes: %d

# Worker threads (0 = GOMAXPROCS).
threads: 0

# Only keep findings with confidence >= this value (0-1).
min_confidence: 0.0

# Check every file for the container signature, not just *.png.
sniff_all: %t

# Also report registered text chunks (tEXt, iTXt, zTXt).
all_text: %t

# Chunk types to flag wherever they appear (comma-separated, e.g. "ruSt,zzZz").
types: ""

# Deep scanning of archives and container image tarballs.
archives: %t
containers: %t
max_archive_bytes: %d
max_entries: 1000
max_depth: 2
scan_time_budget: 10s
`, int64(64<<20), sniffAll, allText, archives, containers, int64(32<<20))
	if err := os.WriteFile(cfgOutput, []byte(content), 0644); err != nil {
		return err
	}
	fmt.Println("Wrote", cfgOutput)
	return nil
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	abs, _ := filepath.Abs(".")
	var gcfg, lcfg config.FileConfig
	if c, err := config.LoadGlobal(); err == nil {
		gcfg = c
	}
	if c, err := config.LoadLocal(abs); err == nil {
		lcfg = c
	}
	eff := map[string]any{
		"include":           pick("", lcfg.Include, gcfg.Include),
		"exclude":           pick("", lcfg.Exclude, gcfg.Exclude),
		"max_bytes":         pick(0, lcfg.MaxBytes, gcfg.MaxBytes),
		"threads":           pick(0, lcfg.Threads, gcfg.Threads),
		"min_confidence":    pick(0, lcfg.MinConfidence, gcfg.MinConfidence),
		"no_color":          pickBool(false, lcfg.NoColor, gcfg.NoColor),
		"sniff_all":         pickBool(false, lcfg.SniffAll, gcfg.SniffAll),
		"all_text":          pickBool(false, lcfg.IncludeStandardText, gcfg.IncludeStandardText),
		"types":             pick("", lcfg.Types, gcfg.Types),
		"archives":          pickBool(false, lcfg.Archives, gcfg.Archives),
		"containers":        pickBool(false, lcfg.Containers, gcfg.Containers),
		"max_archive_bytes": pick(0, lcfg.MaxArchiveBytes, gcfg.MaxArchiveBytes),
		"max_entries":       pick(0, lcfg.MaxEntries, gcfg.MaxEntries),
		"max_depth":         pick(0, lcfg.MaxDepth, gcfg.MaxDepth),
	}
	b, err := yaml.Marshal(eff)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(b)
	return err
}
