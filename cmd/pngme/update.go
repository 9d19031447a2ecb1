package pngme

import (
	"fmt"

	"github.com/AlekLefebvre/pngme/internal/update"
	"github.com/spf13/cobra"
)

func init() {
	var checkOnly bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update pngme to the latest GitHub release",
		RunE: func(_ *cobra.Command, _ []string) error {
			latest, newer, err := update.Check(version, false)
			if err != nil {
				return fmt.Errorf("update check: %w", err)
			}
			if !newer {
				fmt.Printf("pngme v%s is up to date\n", version)
				return nil
			}
			if checkOnly {
				fmt.Printf("new version available: v%s (current v%s)\n", latest, version)
				return nil
			}
			if err := selfUpdate(); err != nil {
				return fmt.Errorf("self update: %w", err)
			}
			fmt.Printf("updated to v%s\n", latest)
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkOnly, "check", false, "only check for a newer release, do not install")
	rootCmd.AddCommand(cmd)
}
