package cmd

import (
	"context"
	"fmt"

	"github.com/jpfielding/ctlabels.go/pkg/session"
	"github.com/jpfielding/ctlabels.go/pkg/window"
	"github.com/spf13/cobra"
)

// addStudyFlags registers the flags every command working on one study uses.
func addStudyFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringP("labels", "l", "", "label CSV (name,red,green,blue,class)")
	pf.StringP("masks", "m", "", "directory holding {label}/*.png masks to load")
	pf.Bool("annotations", false, "load the study's saved annotations from the save folder")
	pf.StringP("save", "s", "", "save folder (overrides export.saveDir)")
	pf.StringP("window", "w", "", "window preset (Tissue 1, Tissue 2, Tissue 3, Lungs, Bone)")
	pf.Float64("window-center", 0, "custom window center, applied after --window")
	pf.Float64("window-width", 0, "custom window width, applied after --window")
	pf.IntSlice("flip", nil, "axes to flip (0 slices, 1 rows, 2 columns)")
	pf.Bool("remove-outliers", false, "keep only the largest component when loading, segmenting and saving")
}

// openStudy builds a session from config and flags and loads dir into it.
func openStudy(ctx context.Context, a *app, cmd *cobra.Command, dir string) (*session.Session, error) {
	s, err := session.New(a.cfg)
	if err != nil {
		return nil, err
	}
	ctx = s.Context(ctx)
	f := cmd.Flags()
	if save, _ := f.GetString("save"); save != "" {
		s.SaveDir = save
	}
	if f.Changed("remove-outliers") {
		s.RemoveOutliers, _ = f.GetBool("remove-outliers")
	}
	if preset, _ := f.GetString("window"); preset != "" {
		if err := s.ApplyPreset(preset); err != nil {
			return nil, err
		}
	}
	if f.Changed("window-center") || f.Changed("window-width") {
		c, w := s.Window.Center, s.Window.Width
		if f.Changed("window-center") {
			c, _ = f.GetFloat64("window-center")
		}
		if f.Changed("window-width") {
			w, _ = f.GetFloat64("window-width")
		}
		if err := s.SetWindow(window.Custom(c, w)); err != nil {
			return nil, err
		}
	}
	flips, _ := f.GetIntSlice("flip")
	for _, axis := range flips {
		if err := s.Flip(axis); err != nil {
			return nil, err
		}
	}
	if path, _ := f.GetString("labels"); path != "" {
		if err := s.LoadLabels(path); err != nil {
			return nil, fmt.Errorf("labels: %w", err)
		}
	}
	if err := s.LoadFolder(ctx, dir); err != nil {
		return nil, err
	}
	if dir, _ := f.GetString("masks"); dir != "" {
		if err := s.LoadMasks(dir); err != nil {
			return nil, fmt.Errorf("masks: %w", err)
		}
	}
	if ann, _ := f.GetBool("annotations"); ann {
		if err := s.LoadAnnotations(); err != nil {
			return nil, fmt.Errorf("annotations: %w", err)
		}
	}
	return s, nil
}

func folderArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("a DICOM folder argument is required")
	}
	return args[0], nil
}
