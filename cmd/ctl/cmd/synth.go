package cmd

import (
	"context"
	"log/slog"

	"github.com/jpfielding/ctlabels.go/pkg/series"
	"github.com/spf13/cobra"
)

// NewSynthCmd writes a synthetic CT series
func NewSynthCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth <dir>",
		Short: "Write a synthetic CT phantom as a DICOM series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			p := series.Phantom{}
			p.PatientID, _ = f.GetString("patient")
			p.StudyID, _ = f.GetString("study")
			p.Width, _ = f.GetInt("width")
			p.Height, _ = f.GetInt("height")
			p.Slices, _ = f.GetInt("slices")
			p.RLE, _ = f.GetBool("rle")
			files, err := p.Write(args[0])
			if err != nil {
				return err
			}
			slog.InfoContext(ctx, "wrote phantom", slog.String("dir", args[0]), slog.Int("files", len(files)))
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.String("patient", "PHANTOM", "patient id")
	pf.String("study", "1", "study id")
	pf.Int("width", 64, "columns")
	pf.Int("height", 64, "rows")
	pf.Int("slices", 32, "number of slices")
	pf.Bool("rle", false, "store pixel data RLE Lossless compressed")
	return cmd
}
