package pngme

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlekLefebvre/pngme/internal/cache"
	"github.com/AlekLefebvre/pngme/internal/engine"
	"github.com/AlekLefebvre/pngme/internal/report"
	"github.com/AlekLefebvre/pngme/internal/tui"
	"github.com/AlekLefebvre/pngme/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	cmd := &cobra.Command{
		Use:   "browse [path]",
		Short: "Browse scan findings, or the chunks of one file, interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("browse needs an interactive terminal; use 'pngme scan' for piped output")
			}
			target := "."
			if len(args) == 1 {
				target = args[0]
			}
			st, err := os.Stat(target)
			if err != nil {
				return err
			}
			if !st.IsDir() {
				return browseFile(target)
			}
			return browseScan(target)
		},
	}
	rootCmd.AddCommand(cmd)
}

// browseFile opens the TUI on the full chunk inventory of one container.
func browseFile(path string) error {
	load := func() ([]types.Finding, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return engine.InventoryContainer(path, raw)
	}
	findings, err := load()
	if err != nil {
		return fmt.Errorf("browse %s: %w", path, err)
	}
	return tui.Run(findings, load)
}

// browseScan opens the TUI on the last cached scan of root when one exists,
// otherwise it scans first.
func browseScan(root string) error {
	abs, _ := filepath.Abs(root)
	baseline, _ := report.LoadBaseline(baselineFile)
	rescan := func() ([]types.Finding, error) {
		return engine.Scan(engine.Config{Root: abs, Threads: flagThreads, DefaultExcludes: flagDefaultExcludes})
	}
	if !flagNoCache {
		if res, err := cache.LoadResults(abs); err == nil && len(res.Findings) > 0 {
			if len(baseline.Items) > 0 {
				return tui.RunCachedWithBaseline(res.Findings, baseline, rescan, res.Timestamp)
			}
			return tui.RunCached(res.Findings, rescan, res.Timestamp)
		}
	}
	findings, err := rescan()
	if err != nil {
		return err
	}
	if len(baseline.Items) > 0 {
		return tui.RunWithBaseline(findings, baseline, rescan)
	}
	return tui.Run(findings, rescan)
}
