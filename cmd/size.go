package cmd

import (
	"fmt"
	"strconv"

	"github.com/bimmerbailey/supportcleaner/internal/unitsize"
	"github.com/spf13/cobra"
)

var sizeCmd = &cobra.Command{
	Use:   "size <value>",
	Short: "Convert between byte counts and binary-prefixed sizes",
	Long: `Size renders a count with the largest binary prefix below 1024, or with
--parse reads a size such as 200MiB back into a plain count.

Examples:
  supportcleaner size 2048                 # 2.0KiB
  supportcleaner size --unit V 2376582746591  # 2.2TiV
  supportcleaner size --parse 4.0KiB       # 4096`,
	Args: cobra.ExactArgs(1),
	RunE: runSize,
}

func init() {
	rootCmd.AddCommand(sizeCmd)

	sizeCmd.Flags().String("unit", "B", "unit appended after the prefix")
	sizeCmd.Flags().Bool("parse", false, "parse a size string instead of formatting a number")
}

func runSize(cmd *cobra.Command, args []string) error {
	parse, _ := cmd.Flags().GetBool("parse")
	out := cmd.OutOrStdout()

	if parse {
		n, unit, err := unitsize.Parse(args[0])
		if err != nil {
			return err
		}
		value := strconv.FormatFloat(n, 'f', -1, 64)
		if unit != "" && unit != "B" {
			value += " " + unit
		}
		fmt.Fprintln(out, value)
		return nil
	}

	n, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("%q is not a number: %w", args[0], err)
	}
	unit, _ := cmd.Flags().GetString("unit")
	fmt.Fprintln(out, unitsize.Format(n, unit))
	return nil
}
