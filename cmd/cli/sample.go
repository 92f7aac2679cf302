package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"birthprev/internal/testkit"
)

func newSampleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sample [output]",
		Short: "Write the eight-study reference dataset as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := testkit.CSV(testkit.ReferenceStudies())
			if len(args) == 0 {
				_, err := fmt.Fprint(c.out, data)
				return err
			}
			if err := os.WriteFile(args[0], []byte(data), 0o644); err != nil {
				return fmt.Errorf("failed to write sample: %w", err)
			}
			fmt.Fprintln(c.out, okStyle.Render("sample written to "+args[0]))
			return nil
		},
	}
}
