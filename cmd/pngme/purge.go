package pngme

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AlekLefebvre/pngme/internal/git"
	"github.com/AlekLefebvre/pngme/pkg/png"
	"github.com/spf13/cobra"
)

func init() {
	var typeCode string
	var pathGlob string
	var yes bool
	var backup string
	var dryRun bool
	var summary string
	cmd := &cobra.Command{
		Use:   "purge --type TYPE [--path GLOB]",
		Short: "Strip a chunk type from PNGs across all git history (DANGEROUS: rewrites history)",
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := png.ChunkTypeFromString(typeCode); err != nil {
				return err
			}
			if err := git.DetectFilterRepo(); err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to rewrite history without --yes")
			}
			if backup == "" {
				backup = time.Now().Format("pngme-backup-20060102-150405")
			}
			cmdArgs := []string{"filter-repo", "--blob-callback", blobCallback(typeCode)}
			if pathGlob != "" {
				cmdArgs = append(cmdArgs, "--path-glob", pathGlob)
			}
			// commands we will run
			commands := [][]string{
				{"git", "branch", backup},
				append([]string{"git"}, cmdArgs...),
			}
			if dryRun {
				for _, c := range commands {
					fmt.Fprintln(os.Stderr, strings.Join(c, " "))
				}
			} else {
				ctx, cancel := git.WithTimeout(10 * time.Minute)
				defer cancel()
				if err := git.Exec(ctx, "branch", backup); err != nil {
					return err
				}
				if err := git.Exec(ctx, cmdArgs...); err != nil {
					return err
				}
				fmt.Println("History rewritten. You likely need to force-push:")
				fmt.Println("  git push --force --all && git push --force --tags")
				fmt.Printf("A backup branch was created: %s\n", backup)
			}
			if summary != "" {
				_ = writePurgeSummary(summary, map[string]any{
					"action":        "purge",
					"chunk_type":    typeCode,
					"path_glob":     pathGlob,
					"backup_branch": backup,
					"dry_run":       dryRun,
					"commands":      commands,
					"timestamp":     time.Now().Format(time.RFC3339),
				})
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&typeCode, "type", "", "chunk type to strip from every container blob")
	cmd.Flags().StringVar(&pathGlob, "path", "", "limit the rewrite to blobs matching this glob")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm history rewrite")
	cmd.Flags().StringVar(&backup, "backup-branch", "", "name of backup branch to create")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print commands without executing")
	cmd.Flags().StringVar(&summary, "summary", "", "write remediation summary JSON to this path")
	if err := cmd.MarkFlagRequired("type"); err != nil {
		// fallback: print a hint if cobra API changes
		fmt.Fprintln(os.Stderr, "warning: could not mark --type as required:", err)
	}
	rootCmd.AddCommand(cmd)
}

// blobCallback returns the python snippet git filter-repo runs per blob. It
// re-frames any blob carrying the container signature and drops chunks whose
// type equals code; a blob that does not frame cleanly is left untouched.
func blobCallback(code string) string {
	return fmt.Sprintf(`d = blob.data
if d[:8] == b'\x89PNG\r\n\x1a\n':
    out = d[:8]
    i = 8
    ok = True
    while i + 12 <= len(d):
        n = int.from_bytes(d[i:i+4], 'big')
        end = i + 12 + n
        if end > len(d):
            ok = False
            break
        if d[i+4:i+8] != b'%s':
            out += d[i:end]
        i = end
    if ok and i == len(d):
        blob.data = out`, code)
}

// writePurgeSummary writes a JSON summary file for purge actions.
func writePurgeSummary(path string, data map[string]any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
