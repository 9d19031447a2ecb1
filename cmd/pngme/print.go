package pngme

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AlekLefebvre/pngme/pkg/png"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type chunkInfo struct {
	Index      int    `json:"index"`
	Offset     int64  `json:"offset"`
	Type       string `json:"type"`
	Length     uint32 `json:"length"`
	CRC        string `json:"crc"`
	Critical   bool   `json:"critical"`
	Public     bool   `json:"public"`
	SafeToCopy bool   `json:"safe_to_copy"`
	Registered bool   `json:"registered"`
}

func chunkTable(p *png.PNG) []chunkInfo {
	infos := make([]chunkInfo, 0, len(p.Chunks()))
	offset := int64(len(png.Signature))
	for i, c := range p.Chunks() {
		code := c.Type().String()
		infos = append(infos, chunkInfo{
			Index:      i,
			Offset:     offset,
			Type:       code,
			Length:     c.Length(),
			CRC:        fmt.Sprintf("%08x", c.CRC()),
			Critical:   c.Type().IsCritical(),
			Public:     c.Type().IsPublic(),
			SafeToCopy: c.Type().IsSafeToCopy(),
			Registered: png.Registered(code),
		})
		offset += int64(len(c.Bytes()))
	}
	return infos
}

func init() {
	cmd := &cobra.Command{
		Use:   "print <file>",
		Short: "Print the chunk table of a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := png.ParsePNG(raw)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			infos := chunkTable(p)
			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			fmt.Printf("%s: %d chunks, %d bytes\n", args[0], len(infos), len(raw))
			tbl := tablewriter.NewTable(os.Stdout)
			tbl.Header([]string{"#", "OFFSET", "TYPE", "LENGTH", "CRC", "CRITICAL", "SAFE TO COPY", "DESCRIPTION"})
			for _, ci := range infos {
				desc := png.Describe(ci.Type)
				if desc == "" {
					desc = "(unregistered)"
				}
				_ = tbl.Append([]string{
					fmt.Sprintf("%d", ci.Index),
					fmt.Sprintf("%d", ci.Offset),
					ci.Type,
					fmt.Sprintf("%d", ci.Length),
					ci.CRC,
					yesNo(ci.Critical),
					yesNo(ci.SafeToCopy),
					desc,
				})
			}
			_ = tbl.Render()
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
