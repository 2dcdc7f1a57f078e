package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpfielding/ctlabels.go/pkg/session"
	"github.com/spf13/cobra"
)

// NewAnnotateCmd walks an annotable directory study by study
func NewAnnotateCmd(ctx context.Context, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate <dir>",
		Short: "Walk the studies of a directory, optionally segmenting, saving annotations for each",
		Long: `Opens every subfolder of dir in order with its saved annotations, optionally
segments it and saves its annotations before moving to the next one. Folders
that fail to load are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("an annotable directory argument is required")
			}
			s, err := session.New(a.cfg)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if save, _ := f.GetString("save"); save != "" {
				s.SaveDir = save
			}
			if path, _ := f.GetString("labels"); path != "" {
				if err := s.LoadLabels(path); err != nil {
					return err
				}
			}
			if model, _ := f.GetString("model"); model != "" {
				if err := s.SelectModel(model); err != nil {
					return err
				}
			}
			if err := s.OpenAnnotable(ctx, args[0]); err != nil {
				return err
			}
			for {
				if s.Model != nil {
					if err := s.Segment(ctx); err != nil {
						return fmt.Errorf("%s: %w", s.StudyKey(), err)
					}
				}
				slog.InfoContext(s.Context(ctx), "study ready",
					slog.String("study", s.StudyKey()),
					slog.Int("index", s.Exams().Index),
					slog.Int("of", len(s.Exams().Folders)))
				prev := s.Exams().Index
				moved, err := s.NextExam(ctx)
				if err != nil {
					return err
				}
				// a trailing invalid folder wraps around to one already done
				if !moved || s.Exams().Index <= prev {
					break
				}
			}
			return s.SaveAnnotations()
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("labels", "l", "", "label CSV")
	pf.StringP("save", "s", "", "save folder (overrides export.saveDir)")
	pf.String("model", "", "segment every study with this model folder")
	return cmd
}
