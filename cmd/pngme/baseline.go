package pngme

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlekLefebvre/pngme/internal/engine"
	"github.com/AlekLefebvre/pngme/internal/report"
	"github.com/spf13/cobra"
)

// baselineFile is where scan and browse look for accepted findings.
const baselineFile = "pngme.baseline.json"

func init() {
	baseline := &cobra.Command{
		Use:   "baseline",
		Short: "Manage accepted findings",
	}
	baseline.AddCommand(&cobra.Command{
		Use:   "update",
		Short: "Accept every finding of a fresh scan",
		RunE: func(_ *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(".")
			findings, err := engine.Scan(engine.Config{Root: abs, Threads: flagThreads, DefaultExcludes: flagDefaultExcludes})
			if err != nil {
				return err
			}
			if err := report.SaveBaseline(baselineFile, findings); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Baseline updated: %d findings accepted.\n", len(findings))
			return nil
		},
	})
	rootCmd.AddCommand(baseline)
}
