package pngme

import (
	"fmt"
	"os"

	"github.com/AlekLefebvre/pngme/internal/report"
	"github.com/AlekLefebvre/pngme/pkg/png"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "types [code]",
		Short: "Show the chunk registry, or decode one type code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				report.PrintTypes(os.Stdout)
				return nil
			}
			code := args[0]
			ct, err := png.ChunkTypeFromString(code)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", code)
			fmt.Printf("  critical:      %s\n", yesNo(ct.IsCritical()))
			fmt.Printf("  public:        %s\n", yesNo(ct.IsPublic()))
			fmt.Printf("  reserved bit:  %s\n", yesNo(ct.IsReservedBitValid()))
			fmt.Printf("  safe to copy:  %s\n", yesNo(ct.IsSafeToCopy()))
			if png.Registered(code) {
				fmt.Printf("  registered:    yes (%s)\n", png.Describe(code))
			} else {
				fmt.Printf("  registered:    no\n")
			}
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
}
