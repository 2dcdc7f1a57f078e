package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// NewExportCmd writes a study's images and masks as a training set
func NewExportCmd(ctx context.Context, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <folder>",
		Short: "Save a study's annotations (images and masks) for training",
		Long: `Writes {save}/images/{study}_{i}.png and {save}/{label}_masks/{study}_{i}.png in
acquisition orientation. With flips and --flipped the displayed orientation is
written to images_flipped and {label}_masks_flipped as well.`,
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
			if f.Changed("images") {
				s.SaveImages, _ = f.GetBool("images")
			}
			if f.Changed("flipped") {
				s.SaveFlipped, _ = f.GetBool("flipped")
			}
			return s.SaveAnnotations()
		},
	}
	addStudyFlags(cmd)
	pf := cmd.PersistentFlags()
	pf.Bool("images", true, "write the study images")
	pf.Bool("flipped", false, "also write the flipped orientation")
	return cmd
}
