package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
	"github.com/spf13/cobra"
)

// NewRenderCmd renders one plane of a study with its label overlay
func NewRenderCmd(ctx context.Context, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <folder>",
		Short: "Render a plane of a study with mask overlays to PNG",
		Long:  "Loads a study, optionally with labels and masks, and writes the composite of one axial, coronal or sagittal slice.",
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
			planeName, _ := f.GetString("plane")
			plane, err := volume.ParsePlane(planeName)
			if err != nil {
				return err
			}
			index, _ := f.GetInt("index")
			s.View.Index[plane] = index
			if f.Changed("opacity") {
				op, _ := f.GetInt("opacity")
				if op < 0 || op > 255 {
					return fmt.Errorf("opacity %d outside 0..255", op)
				}
				s.Opacity = uint8(op)
			}
			if f.Changed("zoom") {
				s.Zoom, _ = f.GetFloat64("zoom")
			}
			if f.Changed("show-masks") {
				show, _ := f.GetBool("show-masks")
				s.ShowMasks(show)
			}
			hide, _ := f.GetStringSlice("hide")
			for _, l := range hide {
				if err := s.SetLabelVisible(l, false); err != nil {
					return err
				}
			}
			img, err := s.Render(plane)
			if err != nil {
				return err
			}
			out, _ := f.GetString("out")
			if err := imaging.Save(img, out); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			slog.InfoContext(s.Context(ctx), "rendered",
				slog.String("plane", plane.String()),
				slog.Int("index", s.View.Index[plane]),
				slog.String("out", out))
			return nil
		},
	}
	addStudyFlags(cmd)
	pf := cmd.PersistentFlags()
	pf.StringP("plane", "p", "axial", "plane to render (axial, coronal, sagittal)")
	pf.IntP("index", "i", 0, "slice index on the plane")
	pf.StringP("out", "o", "slice.png", "output image")
	pf.Int("opacity", 128, "overlay opacity 0..255")
	pf.Float64("zoom", 1, "zoom factor")
	pf.Bool("show-masks", true, "draw mask overlays")
	pf.StringSlice("hide", nil, "labels to hide")
	return cmd
}
