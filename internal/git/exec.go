package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Exec runs git with the given arguments, streaming output to the process
// stdout and stderr. Used for mutating commands like branch and filter-repo
// where the user should see git's own messages.
func Exec(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %v: %w", args, err)
	}
	return nil
}

// WithTimeout returns a context for bounding long-running git operations
// such as history rewrites.
func WithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

// DetectFilterRepo verifies the git filter-repo extension is installed.
func DetectFilterRepo() error {
	if err := exec.Command("git", "filter-repo", "--version").Run(); err != nil {
		return fmt.Errorf("git filter-repo not found (install from https://github.com/newren/git-filter-repo): %w", err)
	}
	return nil
}
