package pngme

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Flags shared by every subcommand.
var (
	flagJSON    bool
	flagSARIF   bool
	flagNoColor bool

	flagThreads         int
	flagFailOn          string
	flagMinConfidence   float64
	flagDryRun          bool
	flagNoCache         bool
	flagDefaultExcludes bool

	flagNoUpdateCheck bool
	flagSelfUpdate    bool
)

// rootCmd is the base Cobra command for the pngme CLI.
var rootCmd = &cobra.Command{
	Use:           "pngme",
	Short:         "Hide, find and hunt messages in PNG chunks",
	Long:          "Pngme encodes and decodes messages stored in PNG chunks, and scans files, trees, archives and git history for containers carrying hidden payloads.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the pngme CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagJSON, "json", false, "emit JSON")
	pf.BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	pf.BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	pf.IntVar(&flagThreads, "threads", 0, "worker count (0 = GOMAXPROCS)")
	pf.StringVar(&flagFailOn, "fail-on", "medium", "fail on low|medium|high, or never")
	pf.Float64Var(&flagMinConfidence, "min-confidence", 0.0, "only show findings with confidence >= value (0-1)")
	pf.BoolVar(&flagDryRun, "dry-run", false, "show what would be scanned without opening files")
	pf.BoolVar(&flagNoCache, "no-cache", false, "disable incremental scan cache")
	pf.BoolVar(&flagDefaultExcludes, "default-excludes", true, "apply built-in exclude list (node_modules, dist, vendor, etc.)")
	pf.BoolVar(&flagNoUpdateCheck, "no-update-check", false, "disable update check")
	pf.BoolVar(&flagSelfUpdate, "self-update", false, "update pngme to the latest release")
}
