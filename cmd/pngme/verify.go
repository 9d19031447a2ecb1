package pngme

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AlekLefebvre/pngme/pkg/png"
	"github.com/spf13/cobra"
)

// verifyContainer checks the structural integrity of a raw container:
// signature, per-chunk decode (length and CRC), and IHDR/IEND ordering
// when those types are present. With strict set, registered text chunks
// must also hold valid UTF-8. It returns one line per problem.
func verifyContainer(raw []byte, strict bool) []string {
	var problems []string
	if !png.HasSignature(raw) {
		return []string{"missing or corrupt signature"}
	}
	off := len(png.Signature)
	var chunks []*png.Chunk
	for off < len(raw) {
		c, n, err := png.DecodeChunk(raw[off:])
		if err != nil {
			problems = append(problems, fmt.Sprintf("offset %d: %v", off, err))
			break
		}
		chunks = append(chunks, c)
		off += n
	}
	for i, c := range chunks {
		code := c.Type().String()
		if code == "IHDR" && i != 0 {
			problems = append(problems, fmt.Sprintf("IHDR at index %d, expected first", i))
		}
		if code == "IEND" && i != len(chunks)-1 {
			problems = append(problems, fmt.Sprintf("IEND at index %d with %d chunks after it", i, len(chunks)-1-i))
		}
		if strict && png.IsTextual(code) {
			if _, err := c.Text(); err != nil {
				problems = append(problems, fmt.Sprintf("%s chunk at index %d: %v", code, i, err))
			}
		}
	}
	return problems
}

func init() {
	var strict bool
	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Check a PNG file for structural damage",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			problems := verifyContainer(raw, strict)
			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"path":     args[0],
					"valid":    len(problems) == 0,
					"problems": problems,
				}); err != nil {
					return err
				}
			} else if len(problems) == 0 {
				fmt.Printf("OK: %s\n", args[0])
			} else {
				for _, p := range problems {
					fmt.Printf("%s: %s\n", args[0], p)
				}
			}
			if len(problems) > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat text chunks with invalid UTF-8 as errors")
	rootCmd.AddCommand(cmd)
}
