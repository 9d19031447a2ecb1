package pngme

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// gendocs regenerates the command reference in README.md between the
// markers <!-- BEGIN:COMMANDS --> and <!-- END:COMMANDS -->.
func init() {
	cmd := &cobra.Command{
		Use:   "gendocs",
		Short: "Regenerate the README command reference",
		RunE: func(_ *cobra.Command, _ []string) error {
			path := "README.md"
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			start := []byte("<!-- BEGIN:COMMANDS -->")
			end := []byte("<!-- END:COMMANDS -->")
			i := bytes.Index(b, start)
			j := bytes.Index(b, end)
			if i < 0 || j < 0 || j <= i {
				return fmt.Errorf("markers not found in README.md")
			}

			var out strings.Builder
			out.WriteString("\n| Command | Description |\n|---|---|\n")
			for _, c := range rootCmd.Commands() {
				if c.Hidden || c.Name() == "help" {
					continue
				}
				out.WriteString(fmt.Sprintf("| `pngme %s` | %s |\n", tableCell(c.Use), c.Short))
				for _, sc := range c.Commands() {
					if sc.Hidden || sc.Name() == "help" {
						continue
					}
					out.WriteString(fmt.Sprintf("| `pngme %s %s` | %s |\n", c.Name(), tableCell(sc.Use), sc.Short))
				}
			}

			var nb bytes.Buffer
			nb.Write(b[:i])
			nb.Write(start)
			nb.WriteString("\n")
			nb.WriteString(out.String())
			nb.Write(end)
			nb.Write(b[j+len(end):])
			return os.WriteFile(path, nb.Bytes(), 0644)
		},
	}
	rootCmd.AddCommand(cmd)
}

// tableCell escapes pipes so Use strings survive a markdown table.
func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
