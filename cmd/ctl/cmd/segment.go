package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpfielding/ctlabels.go/pkg/segment"
	"github.com/spf13/cobra"
)

// NewSegmentCmd runs a model ensemble over a study
func NewSegmentCmd(ctx context.Context, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment <folder>",
		Short: "Segment a study with a model ensemble and save the masks",
		Long: `Runs every weight file of a model folder ({target}/{name}/*.p or *.pth) through the
inference command, averages the predictions and saves the resulting masks.
The target folder name is a label or "multiple" for models predicting every label.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := folderArg(args)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("device") {
				a.cfg.Segmentation.Device, _ = f.GetString("device")
			}
			if f.Changed("command") {
				a.cfg.Segmentation.Command, _ = f.GetStringSlice("command")
			}
			s, err := openStudy(ctx, a, cmd, dir)
			if err != nil {
				return err
			}
			model, _ := f.GetString("model")
			if model == "" {
				return fmt.Errorf("a --model folder is required")
			}
			if err := s.SelectModel(model); err != nil {
				return err
			}
			if rng, _ := f.GetIntSlice("range"); len(rng) > 0 {
				if len(rng) != 2 {
					return fmt.Errorf("--range takes first,last")
				}
				if err := s.SetSegmentationRange(rng[0], rng[1]); err != nil {
					return err
				}
			}
			start := time.Now()
			if err := s.Segment(ctx); err != nil {
				if errors.Is(err, segment.ErrDeviceUnavailable) {
					return fmt.Errorf("%w (try --device cpu)", err)
				}
				return err
			}
			slog.InfoContext(s.Context(ctx), "segmented", slog.Duration("took", time.Since(start)))
			return s.SaveMasks()
		},
	}
	addStudyFlags(cmd)
	pf := cmd.PersistentFlags()
	pf.String("model", "", "model weights folder")
	pf.String("device", "cuda", "inference device (cuda, cpu)")
	pf.StringSlice("command", nil, "inference command and arguments")
	pf.IntSlice("range", nil, "first,last axial slice to segment")
	return cmd
}
