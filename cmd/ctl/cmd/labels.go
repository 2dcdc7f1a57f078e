package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jpfielding/ctlabels.go/pkg/labels"
	"github.com/spf13/cobra"
)

// NewLabelsCmd validates and prints a label CSV
func NewLabelsCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels <file.csv>",
		Short: "Validate and print a label CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := labels.ReadFile(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCOLOR\tCLASS")
			for _, l := range set.All() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", l.Name, l.Color, l.Class)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if check, _ := cmd.Flags().GetBool("check-classes"); check {
				if err := set.CheckClasses(); err != nil {
					return err
				}
				fmt.Println("classes form a complete permutation")
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.Bool("check-classes", false, "require classes to be a permutation of 0..n-1 (needed by multi-class models)")
	return cmd
}
