package pngme

import (
	"fmt"

	"github.com/AlekLefebvre/pngme/internal/engine"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List available scan rules",
		Run: func(_ *cobra.Command, _ []string) {
			for _, id := range engine.RuleIDs() {
				fmt.Println(id)
			}
		},
	}
	rootCmd.AddCommand(cmd)
}
