package pngme

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlekLefebvre/pngme/internal/audit"
	"github.com/AlekLefebvre/pngme/internal/redact"
	"github.com/spf13/cobra"
)

func init() {
	var ancillary bool
	var keep []string
	var output string
	var dryRun bool
	var summary string
	cmd := &cobra.Command{
		Use:   "strip <file>",
		Short: "Remove unregistered (or all ancillary) chunks from a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := args[0]
			rule := redact.Unregistered()
			if ancillary {
				rule = redact.Ancillary()
			}
			rule = redact.Except(rule, keep...)

			var codes []string
			var err error
			if dryRun {
				codes, err = redact.Plan(path, rule)
				if err != nil {
					return err
				}
				if len(codes) == 0 {
					fmt.Println("(dry-run) no chunks to strip")
				} else {
					fmt.Printf("(dry-run) would strip %d chunks from %s: %s\n", len(codes), path, strings.Join(codes, ", "))
				}
			} else {
				out := output
				if out == "" {
					out = path
				}
				codes, err = redact.ApplyTo(path, out, rule)
				if err != nil {
					return err
				}
				if len(codes) == 0 {
					fmt.Println("No chunks to strip")
				} else {
					fmt.Printf("Stripped %d chunks from %s: %s\n", len(codes), out, strings.Join(codes, ", "))
				}
				root := filepath.Dir(out)
				_ = audit.NewAuditLog(root).LogScan(audit.CreateOpRecord("strip", root, out, strings.Join(codes, ",")))
			}
			if summary != "" {
				_ = writeStripSummary(summary, map[string]any{
					"action":    "strip",
					"target":    path,
					"ancillary": ancillary,
					"kept":      keep,
					"removed":   codes,
					"dry_run":   dryRun,
					"timestamp": time.Now().Format(time.RFC3339),
				})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ancillary, "ancillary", false, "strip every non-critical chunk, not just unregistered ones")
	cmd.Flags().StringSliceVar(&keep, "keep", nil, "chunk type to keep even when it matches (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write result here instead of rewriting in place")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be stripped without writing")
	cmd.Flags().StringVar(&summary, "summary", "", "write remediation summary JSON to this path")
	rootCmd.AddCommand(cmd)
}

// writeStripSummary writes a JSON summary file for strip actions.
func writeStripSummary(path string, data map[string]any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
