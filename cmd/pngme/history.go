package pngme

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlekLefebvre/pngme/internal/audit"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func init() {
	var clearLine int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the audit journal of scans and rewrites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(".")
			log := audit.NewAuditLog(abs)
			if cmd.Flags().Changed("clear-line") {
				if err := log.DeleteRecord(clearLine); err != nil {
					return err
				}
				fmt.Printf("Deleted record %d\n", clearLine)
				return nil
			}
			records, err := log.LoadHistory()
			if err != nil || len(records) == 0 {
				fmt.Println("No history yet. Run a scan first.")
				return nil
			}
			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			tbl := tablewriter.NewTable(os.Stdout)
			tbl.Header([]string{"#", "WHEN", "ACTION", "TARGET", "FINDINGS", "NEW", "FILES", "DURATION"})
			for i, r := range records {
				target := r.Target
				if target == "" {
					target = r.Root
				}
				if r.ChunkType != "" {
					target += " (" + r.ChunkType + ")"
				}
				_ = tbl.Append([]string{
					fmt.Sprintf("%d", i),
					r.Timestamp.Format("2006-01-02 15:04"),
					r.Action,
					target,
					fmt.Sprintf("%d", r.TotalFindings),
					fmt.Sprintf("%d", r.NewFindings),
					fmt.Sprintf("%d", r.FilesScanned),
					r.Duration,
				})
			}
			_ = tbl.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&clearLine, "clear-line", 0, "delete record N (numbered as listed, newest first)")
	rootCmd.AddCommand(cmd)
}
