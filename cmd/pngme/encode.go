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
	var force bool
	cmd := &cobra.Command{
		Use:   "encode <file> <type> <message>",
		Short: "Append a message chunk to a PNG file",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			path, code, message := args[0], args[1], args[2]
			ct, err := png.ChunkTypeFromString(code)
			if err != nil {
				return err
			}
			if ct.IsCritical() && png.Registered(code) && !force {
				return fmt.Errorf("%s is a registered critical type; refusing to append without --force", code)
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			p, err := png.ParsePNG(raw)
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			chunk, err := png.NewChunk(ct, []byte(message))
			if err != nil {
				return err
			}
			p.AppendChunk(chunk)
			out := output
			if out == "" {
				out = path
			}
			if err := os.WriteFile(out, p.Bytes(), 0644); err != nil {
				return err
			}
			root := filepath.Dir(out)
			_ = audit.NewAuditLog(root).LogScan(audit.CreateOpRecord("encode", root, out, code))
			fmt.Printf("Encoded %d bytes into a %s chunk in %s\n", len(message), code, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write result here instead of rewriting in place")
	cmd.Flags().BoolVar(&force, "force", false, "allow appending registered critical types (IHDR, PLTE, IDAT, IEND)")
	rootCmd.AddCommand(cmd)
}
