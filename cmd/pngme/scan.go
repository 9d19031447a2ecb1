package pngme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlekLefebvre/pngme/internal/audit"
	"github.com/AlekLefebvre/pngme/internal/cache"
	"github.com/AlekLefebvre/pngme/internal/config"
	"github.com/AlekLefebvre/pngme/internal/engine"
	"github.com/AlekLefebvre/pngme/internal/report"
	"github.com/AlekLefebvre/pngme/internal/types"
	"github.com/AlekLefebvre/pngme/internal/update"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	flagStaged         bool
	flagHistory        int
	flagBase           string
	flagInclude        string
	flagExclude        string
	flagMaxBytes       int64
	flagEnable         string
	flagDisable        string
	flagSniffAll       bool
	flagAllText        bool
	flagTypes          []string
	flagGuide          bool
	flagUploadURL      string
	flagUploadToken    string
	flagNoUploadMeta   bool
	flagTable          bool
	flagText           bool
	flagProgress       bool
	flagBaseline       string
	flagUpdateBaseline bool
	// deep scanning toggles and limits
	flagArchives        bool
	flagContainers      bool
	flagOCI             bool
	flagRegistryImages  []string
	flagMaxArchiveBytes int64
	flagMaxEntries      int
	flagMaxDepth        int
	flagScanTimeBudget  time.Duration
	flagGlobalBudget    time.Duration
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "Scan files for suspicious chunks",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().BoolVar(&flagStaged, "staged", false, "scan staged changes")
	cmd.Flags().IntVar(&flagHistory, "history", 0, "scan last N commits (0=off)")
	cmd.Flags().StringVar(&flagBase, "base", "", "scan diff vs base branch (e.g. main)")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 64<<20, "skip files larger than this")
	cmd.Flags().StringVar(&flagEnable, "enable", "", "only run these rules (comma-separated IDs)")
	cmd.Flags().StringVar(&flagDisable, "disable", "", "disable these rules (comma-separated IDs)")
	cmd.Flags().BoolVar(&flagSniffAll, "sniff-all", false, "check every file for the container signature, not just *.png")
	cmd.Flags().BoolVar(&flagAllText, "all-text", false, "also report registered text chunks (tEXt, iTXt, zTXt)")
	cmd.Flags().StringSliceVar(&flagTypes, "type", nil, "flag this chunk type wherever it appears (repeatable)")
	cmd.Flags().BoolVar(&flagGuide, "guide", false, "print suggested remediation commands for findings")
	cmd.Flags().StringVar(&flagUploadURL, "upload", "", "POST findings (JSON) to this URL after scan")
	cmd.Flags().StringVar(&flagUploadToken, "upload-token", "", "Bearer token for upload auth")
	cmd.Flags().BoolVar(&flagNoUploadMeta, "no-upload-metadata", false, "do not include repo/commit/branch in upload envelope")
	cmd.Flags().BoolVar(&flagTable, "table", false, "output in table format with borders (now default)")
	cmd.Flags().BoolVar(&flagText, "text", false, "output in plain text columnar format")
	cmd.Flags().BoolVar(&flagProgress, "progress", false, "show a progress bar on stderr")
	cmd.Flags().StringVar(&flagBaseline, "baseline", baselineFile, "baseline file for suppressing known findings")
	cmd.Flags().BoolVar(&flagUpdateBaseline, "update-baseline", false, "save the scan result as the new baseline")
	// deep scanning flags
	cmd.Flags().BoolVar(&flagArchives, "archives", false, "enable deep scanning of archives (zip/tar/gz)")
	cmd.Flags().BoolVar(&flagContainers, "containers", false, "enable deep scanning of container tarballs (Docker save)")
	cmd.Flags().BoolVar(&flagOCI, "oci", false, "enable scanning OCI image layout directories")
	cmd.Flags().StringSliceVar(&flagRegistryImages, "registry-image", nil, "remote registry image to scan (repeatable)")
	cmd.Flags().Int64Var(&flagMaxArchiveBytes, "max-archive-bytes", 32<<20, "max decompressed bytes per artifact before aborting")
	cmd.Flags().IntVar(&flagMaxEntries, "max-entries", 1000, "max entries per archive/container before aborting")
	cmd.Flags().IntVar(&flagMaxDepth, "max-depth", 2, "max recursion depth for nested archives")
	cmd.Flags().DurationVar(&flagScanTimeBudget, "scan-time-budget", 10*time.Second, "time budget per artifact (e.g., 10s)")
	cmd.Flags().DurationVar(&flagGlobalBudget, "global-artifact-budget", 0, "time budget for all artifacts combined (0=off)")
}

func runScan(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	abs, _ := filepath.Abs(root)
	// Load configs: CLI > local > global
	var gcfg, lcfg config.FileConfig
	if c, err := config.LoadGlobal(); err == nil {
		gcfg = c
	}
	if c, err := config.LoadLocal(abs); err == nil {
		lcfg = c
	}

	// Resolve time budgets: CLI > local > global
	budget := flagScanTimeBudget
	if d, ok := pickDuration(lcfg.ScanTimeBudget, gcfg.ScanTimeBudget); ok && !cmd.Flags().Changed("scan-time-budget") {
		budget = d
	}
	globalBudget := flagGlobalBudget
	if d, ok := pickDuration(lcfg.GlobalArtifactBudget, gcfg.GlobalArtifactBudget); ok && !cmd.Flags().Changed("global-artifact-budget") {
		globalBudget = d
	}

	targetTypes := flagTypes
	if len(targetTypes) == 0 {
		if s := pick("", lcfg.Types, gcfg.Types); s != "" {
			for _, t := range strings.Split(s, ",") {
				if t = strings.TrimSpace(t); t != "" {
					targetTypes = append(targetTypes, t)
				}
			}
		}
	}

	cfg := engine.Config{
		Root:                 abs,
		IncludeGlobs:         pick(flagInclude, lcfg.Include, gcfg.Include),
		ExcludeGlobs:         pick(flagExclude, lcfg.Exclude, gcfg.Exclude),
		MaxBytes:             pick(flagMaxBytes, lcfg.MaxBytes, gcfg.MaxBytes),
		ScanStaged:           flagStaged,
		HistoryCommits:       flagHistory,
		BaseBranch:           flagBase,
		Threads:              pick(flagThreads, lcfg.Threads, gcfg.Threads),
		EnableRules:          flagEnable,
		DisableRules:         flagDisable,
		MinConfidence:        pick(flagMinConfidence, lcfg.MinConfidence, gcfg.MinConfidence),
		DryRun:               pickBool(flagDryRun, nil, nil),
		NoColor:              pickBool(flagNoColor, lcfg.NoColor, gcfg.NoColor),
		NoCache:              pickBool(flagNoCache, nil, nil),
		DefaultExcludes:      flagDefaultExcludes,
		SniffAll:             pickBool(flagSniffAll, lcfg.SniffAll, gcfg.SniffAll),
		IncludeStandardText:  pickBool(flagAllText, lcfg.IncludeStandardText, gcfg.IncludeStandardText),
		TargetTypes:          targetTypes,
		ScanArchives:         pickBool(flagArchives, lcfg.Archives, gcfg.Archives),
		ScanContainers:       pickBool(flagContainers, lcfg.Containers, gcfg.Containers),
		ScanOCI:              flagOCI,
		RegistryImages:       flagRegistryImages,
		MaxArchiveBytes:      pick(flagMaxArchiveBytes, lcfg.MaxArchiveBytes, gcfg.MaxArchiveBytes),
		MaxEntries:           pick(flagMaxEntries, lcfg.MaxEntries, gcfg.MaxEntries),
		MaxDepth:             pick(flagMaxDepth, lcfg.MaxDepth, gcfg.MaxDepth),
		ScanTimeBudget:       budget,
		GlobalArtifactBudget: globalBudget,
	}

	// Friendly banner before scanning
	if !flagJSON && !flagSARIF {
		if !flagNoUpdateCheck {
			if latest, newer, _ := update.Check(version, false); newer && latest != "" {
				_, _ = fmt.Fprintf(os.Stderr, "(new version available: v%s)  run 'pngme update' to upgrade\n", latest)
			}
		}
		if flagSelfUpdate {
			// invoke in-band self update
			if err := selfUpdate(); err == nil {
				_, _ = fmt.Fprintln(os.Stderr, "updated to latest; re-run command")
				return nil
			}
		}
		_, _ = fmt.Fprintf(os.Stderr, "Scanning %s with %d rules...\n", abs, len(engine.RuleIDs()))
	}

	// Optional progress bar: simple textual bar
	total, _ := engine.CountTargets(cfg)
	progressed := 0
	if flagProgress && total > 0 && !flagJSON && !flagSARIF {
		cfg.Progress = func() {
			progressed++
			if progressed%10 == 0 || progressed == total {
				pct := float64(progressed) / float64(total) * 100
				_, _ = fmt.Fprintf(os.Stderr, "\r[%d/%d] %.0f%%", progressed, total, pct)
			}
		}
	}
	res, err := engine.ScanWithStats(cfg)
	if err != nil {
		return fmt.Errorf("scan error: %w", err)
	}
	if cfg.Progress != nil {
		_, _ = fmt.Fprintln(os.Stderr)
	}

	if flagUpdateBaseline {
		if err := report.SaveBaseline(flagBaseline, res.Findings); err != nil {
			return fmt.Errorf("baseline save: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stderr, "Baseline written to %s (%d findings)\n", flagBaseline, len(res.Findings))
	}

	baseline, _ := report.LoadBaseline(flagBaseline)
	newFindings := report.FilterNewFindings(res.Findings, baseline)
	if newFindings == nil {
		newFindings = []types.Finding{}
	} // no `null` in JSON

	if !cfg.NoCache {
		_ = cache.SaveResults(abs, res.Findings)
	}
	_ = audit.NewAuditLog(abs).LogScan(audit.CreateScanRecord(abs, res.Findings, newFindings, res.FilesScanned, res.Duration, flagBaseline))

	opts := report.PrintOptions{NoColor: cfg.NoColor, Duration: res.Duration, FilesScanned: res.FilesScanned}
	if !opts.NoColor && !term.IsTerminal(int(os.Stdout.Fd())) {
		// piped output gets no ANSI codes
		opts.NoColor = true
	}
	switch {
	case flagSARIF:
		if err := report.WriteSARIFWithStats(os.Stdout, newFindings, deepStatsMap(cfg, res.ArtifactStats)); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case flagJSON:
		if err := report.WriteJSON(os.Stdout, newFindings); err != nil {
			return err
		}
	case flagText:
		report.PrintText(os.Stdout, newFindings, opts)
		printGuide(newFindings)
	default:
		// Table is the default format; --table kept for compatibility
		report.PrintTable(os.Stdout, newFindings, opts)
		printGuide(newFindings)
	}

	// Optional upload step: do not fail the scan on upload errors
	if flagUploadURL != "" {
		if err := uploadFindings(abs, flagUploadURL, flagUploadToken, flagNoUploadMeta, convertFindings(newFindings)); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "upload warning:", err)
		}
	}

	if cmd.Flags().Changed("enable") || cmd.Flags().Changed("disable") {
		_, _ = fmt.Fprintf(os.Stderr, "rules active: %s\n", activeSetSummary(cfg))
	}

	if report.ShouldFail(newFindings, flagFailOn) {
		os.Exit(1)
	}
	return nil
}

// deepStatsMap flattens the artifact abort counters into SARIF run
// properties. Plain scans return nil so the properties block is omitted.
func deepStatsMap(cfg engine.Config, s engine.DeepStats) map[string]int {
	if !cfg.ScanArchives && !cfg.ScanContainers && !cfg.ScanOCI && len(cfg.RegistryImages) == 0 {
		return nil
	}
	return map[string]int{
		"abortedByBytes":   s.AbortedByBytes,
		"abortedByEntries": s.AbortedByEntries,
		"abortedByDepth":   s.AbortedByDepth,
		"abortedByTime":    s.AbortedByTime,
	}
}

// printGuide writes remediation suggestions for each finding to stderr.
func printGuide(findings []types.Finding) {
	if !flagGuide || len(findings) == 0 {
		return
	}
	_, _ = fmt.Fprintln(os.Stderr, "\nSuggested remediation commands:")
	for _, f := range findings {
		if f.Type != "" {
			_, _ = fmt.Fprintln(os.Stderr, "  pngme remove", f.Path, f.Type)
			continue
		}
		// trailing-data and malformed findings have no single chunk to remove
		_, _ = fmt.Fprintln(os.Stderr, "  pngme strip", f.Path, "--dry-run")
	}
}

func pickDuration(local, global *string) (time.Duration, bool) {
	if local != nil {
		if d, err := time.ParseDuration(*local); err == nil {
			return d, true
		}
	}
	if global != nil {
		if d, err := time.ParseDuration(*global); err == nil {
			return d, true
		}
	}
	return 0, false
}

func activeSetSummary(cfg engine.Config) string {
	ids := engine.RuleIDs()
	if cfg.EnableRules != "" {
		ids = strings.Split(cfg.EnableRules, ",")
	}
	if cfg.DisableRules != "" && cfg.EnableRules == "" {
		disabled := map[string]bool{}
		for _, d := range strings.Split(cfg.DisableRules, ",") {
			disabled[strings.TrimSpace(d)] = true
		}
		var kept []string
		for _, id := range ids {
			if !disabled[strings.TrimSpace(id)] {
				kept = append(kept, id)
			}
		}
		ids = kept
	}
	return strings.Join(ids, ",")
}
