package pngme

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlekLefebvre/pngme/internal/audit"
	"github.com/AlekLefebvre/pngme/internal/files"
	"github.com/AlekLefebvre/pngme/internal/git"
	"github.com/AlekLefebvre/pngme/internal/redact"
	"github.com/spf13/cobra"
)

func init() {
	fix := &cobra.Command{Use: "fix", Short: "Forward remediation helpers"}
	rootCmd.AddCommand(fix)

	var keepLocal bool
	var addIgnore bool
	var dryRun bool
	var summary string
	pathCmd := &cobra.Command{
		Use:   "path <file>",
		Short: "Remove a tracked carrier file from the repo and ignore it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			p := args[0]
			abs, _ := filepath.Abs(".")
			if addIgnore {
				if err := files.AppendIgnore(abs, p); err != nil {
					return err
				}
			}
			cmdRm := []string{"git", "rm", "--cached", p}
			cmdCommit := []string{"git", "commit", "-m", fmt.Sprintf("Remove %s from repo; add to .gitignore", p)}
			if dryRun {
				fmt.Fprintln(os.Stderr, strings.Join(cmdRm, " "))
				fmt.Fprintln(os.Stderr, strings.Join(cmdCommit, " "))
			} else {
				// remove from index only
				ctx, cancel := git.WithTimeout(10 * time.Second)
				defer cancel()
				if err := git.Exec(ctx, "rm", "--cached", p); err != nil {
					return fmt.Errorf("git rm --cached failed: %w", err)
				}
				if err := git.Exec(ctx, "commit", "-m", fmt.Sprintf("Remove %s from repo; add to .gitignore", p)); err != nil {
					return fmt.Errorf("git commit failed: %w", err)
				}
			}
			if keepLocal {
				// rm --cached kept it on disk
				fmt.Fprintln(os.Stderr, "kept local working copy of", p)
			}
			if dryRun {
				fmt.Println("(dry-run) would remove and commit:", p)
			} else {
				fmt.Println("Committed removal of", p)
			}
			if summary != "" {
				_ = writeFixSummary(summary, map[string]any{
					"action":    "fix.path",
					"target":    p,
					"addIgnore": addIgnore,
					"dry_run":   dryRun,
					"timestamp": time.Now().Format(time.RFC3339),
				})
			}
			return nil
		},
	}
	pathCmd.Flags().BoolVar(&keepLocal, "keep-local", true, "keep working copy after removing from index")
	pathCmd.Flags().BoolVar(&addIgnore, "add-ignore", true, "append path to .gitignore")
	pathCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print commands without executing")
	pathCmd.Flags().StringVar(&summary, "summary", "", "write remediation summary JSON to this path")
	fix.AddCommand(pathCmd)

	var cleanAncillary bool
	var cleanKeep []string
	var dryRunClean bool
	var summaryClean string
	cleanCmd := &cobra.Command{
		Use:   "clean <file>",
		Short: "Strip hidden chunks from a tracked file and commit the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			file := args[0]
			rule := redact.Unregistered()
			if cleanAncillary {
				rule = redact.Ancillary()
			}
			rule = redact.Except(rule, cleanKeep...)

			var codes []string
			if dryRunClean {
				planned, err := redact.Plan(file, rule)
				if err != nil {
					return err
				}
				if len(planned) == 0 {
					fmt.Println("(dry-run) no changes needed")
					return nil
				}
				codes = planned
				fmt.Fprintln(os.Stderr, strings.Join([]string{"strip", strings.Join(planned, ","), "from", file}, " "))
				fmt.Fprintln(os.Stderr, strings.Join([]string{"git", "add", file}, " "))
				fmt.Fprintln(os.Stderr, strings.Join([]string{"git", "commit", "-m", fmt.Sprintf("Strip hidden chunks from %s", file)}, " "))
			} else {
				removed, err := redact.Apply(file, rule)
				if err != nil {
					return err
				}
				if len(removed) == 0 {
					fmt.Println("No changes needed")
					return nil
				}
				codes = removed
				ctx, cancel := git.WithTimeout(10 * time.Second)
				defer cancel()
				if err := git.Exec(ctx, "add", file); err != nil {
					return err
				}
				msg := fmt.Sprintf("Strip hidden chunks from %s", file)
				if err := git.Exec(ctx, "commit", "-m", msg); err != nil {
					return err
				}
				root := filepath.Dir(file)
				_ = audit.NewAuditLog(root).LogScan(audit.CreateOpRecord("strip", root, file, strings.Join(removed, ",")))
				fmt.Println("Committed cleaned", file)
			}
			if summaryClean != "" {
				_ = writeFixSummary(summaryClean, map[string]any{
					"action":    "fix.clean",
					"file":      file,
					"removed":   codes,
					"dry_run":   dryRunClean,
					"timestamp": time.Now().Format(time.RFC3339),
				})
			}
			return nil
		},
	}
	cleanCmd.Flags().BoolVar(&cleanAncillary, "ancillary", false, "strip every non-critical chunk, not just unregistered ones")
	cleanCmd.Flags().StringSliceVar(&cleanKeep, "keep", nil, "chunk type to keep even when it matches (repeatable)")
	cleanCmd.Flags().BoolVar(&dryRunClean, "dry-run", false, "print actions without executing")
	cleanCmd.Flags().StringVar(&summaryClean, "summary", "", "write remediation summary JSON to this path")
	fix.AddCommand(cleanCmd)

	var dryRunArtifacts bool
	artifactsCmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Ensure pngme's generated work files are in .gitignore",
		RunE: func(_ *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(".")
			patterns := files.GeneratedArtifactIgnores()
			if dryRunArtifacts {
				for _, p := range patterns {
					fmt.Fprintf(os.Stderr, "echo '%s' >> .gitignore (idempotent)\n", p)
				}
				return nil
			}
			for _, p := range patterns {
				if err := files.AppendIgnore(abs, p); err != nil {
					return err
				}
			}
			fmt.Printf("Ensured %d patterns in .gitignore\n", len(patterns))
			return nil
		},
	}
	artifactsCmd.Flags().BoolVar(&dryRunArtifacts, "dry-run", false, "print actions without executing")
	fix.AddCommand(artifactsCmd)
}

// writeFixSummary writes a JSON summary file for fix actions.
func writeFixSummary(path string, data map[string]any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
