package pngme

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlekLefebvre/pngme/pkg/png"
	"github.com/spf13/cobra"
)

func init() {
	var strict bool
	var all bool
	cmd := &cobra.Command{
		Use:   "decode <file> <type>",
		Short: "Print the message stored in a chunk",
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
			matched := 0
			for _, c := range p.Chunks() {
				if c.Type().String() != code {
					continue
				}
				matched++
				if strict {
					text, err := c.Text()
					if err != nil {
						return fmt.Errorf("chunk %s: %w", code, err)
					}
					fmt.Println(text)
				} else {
					// lossy rendering: invalid UTF-8 bytes become U+FFFD
					fmt.Println(strings.ToValidUTF8(string(c.Data()), "�"))
				}
				if !all {
					break
				}
			}
			if matched == 0 {
				return fmt.Errorf("%w: no %s chunk in %s", png.ErrChunkNotFound, code, path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the payload is not valid UTF-8")
	cmd.Flags().BoolVar(&all, "all", false, "print every matching chunk, not just the first")
	rootCmd.AddCommand(cmd)
}
