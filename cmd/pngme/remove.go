package pngme

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlekLefebvre/pngme/internal/audit"
	"github.com/AlekLefebvre/pngme/pkg/png"
	"github.com/spf13/cobra"
)

func init() {
	var output string
	cmd := &cobra.Command{
		Use:   "remove <file> <type>",
		Short: "Remove the first matching chunk and rewrite the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			path, code := args[0], args[1]
			if _, err := png.ChunkTypeFromString(code); err != nil {
				return err
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			p, err := png.ParsePNG(raw)
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			removed, err := p.RemoveFirstChunk(code)
			if err != nil {
				return fmt.Errorf("%w: no %s chunk in %s", err, code, path)
			}
			out := output
			if out == "" {
				out = path
			}
			if err := os.WriteFile(out, p.Bytes(), 0644); err != nil {
				return err
			}
			root := filepath.Dir(out)
			_ = audit.NewAuditLog(root).LogScan(audit.CreateOpRecord("remove", root, out, code))
			fmt.Printf("Removed %s chunk (%d data bytes) from %s\n", code, removed.Length(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write result here instead of rewriting in place")
	rootCmd.AddCommand(cmd)
}
