package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewPostprocessCmd cleans up saved masks
func NewPostprocessCmd(ctx context.Context, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postprocess <folder>",
		Short: "Remove outliers and fill holes in saved masks",
		Long:  "Loads a study with its masks, keeps the largest component and/or fills enclosed holes of every label, then saves the masks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := folderArg(args)
			if err != nil {
				return err
			}
			s, err := openStudy(ctx, a, cmd, dir)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			outliers, _ := f.GetBool("outliers")
			fill, _ := f.GetBool("fill")
			if !outliers && !fill {
				return fmt.Errorf("nothing to do, pass --outliers and/or --fill")
			}
			for _, name := range s.Store.Labels().Names() {
				if err := s.SelectLabel(name); err != nil {
					return err
				}
				if fill {
					if err := s.FillHolesAll(); err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}
				}
				if outliers {
					if err := s.RemoveOutliersSelected(); err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}
				}
				slog.DebugContext(s.Context(ctx), "postprocessed", slog.String("label", name))
			}
			return s.SaveMasks()
		},
	}
	addStudyFlags(cmd)
	pf := cmd.PersistentFlags()
	pf.Bool("outliers", false, "keep only the largest connected component")
	pf.Bool("fill", false, "fill enclosed holes on every slice")
	return cmd
}
