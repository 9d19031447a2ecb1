package pngme

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlekLefebvre/pngme/pkg/png"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list <file>",
		Short: "List chunks with their registry classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := png.ParsePNG(raw)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			for _, ci := range chunkTable(p) {
				var tags []string
				if ci.Critical {
					tags = append(tags, "critical")
				} else {
					tags = append(tags, "ancillary")
				}
				if ci.Registered {
					tags = append(tags, "registered")
				} else {
					tags = append(tags, "unregistered")
				}
				if png.IsTextual(ci.Type) {
					tags = append(tags, "textual")
				}
				line := fmt.Sprintf("%3d  @%-8d %s  %8d B  %s", ci.Index, ci.Offset, ci.Type, ci.Length, strings.Join(tags, ","))
				if desc := png.Describe(ci.Type); desc != "" {
					line += "  " + desc
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
}
