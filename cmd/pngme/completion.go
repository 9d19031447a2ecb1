package pngme

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	generators := map[string]func(*cobra.Command) error{
		"bash":       func(c *cobra.Command) error { return c.GenBashCompletion(os.Stdout) },
		"zsh":        func(c *cobra.Command) error { return c.GenZshCompletion(os.Stdout) },
		"fish":       func(c *cobra.Command) error { return c.GenFishCompletion(os.Stdout, true) },
		"powershell": func(c *cobra.Command) error { return c.GenPowerShellCompletionWithDesc(os.Stdout) },
	}
	cmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(_ *cobra.Command, args []string) error {
			gen, ok := generators[args[0]]
			if !ok {
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
			return gen(rootCmd)
		},
		Example: `
# Bash
pngme completion bash > /etc/bash_completion.d/pngme

# Zsh
pngme completion zsh > "${fpath[1]}/_pngme"

# Fish
pngme completion fish > ~/.config/fish/completions/pngme.fish

# PowerShell
pngme completion powershell > $PROFILE\pngme.ps1
`,
	}
	rootCmd.AddCommand(cmd)
}
