package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jpfielding/ctlabels.go/pkg/dicom"
	"github.com/jpfielding/ctlabels.go/pkg/series"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

// NewInfoCmd creates the info cobra command
func NewInfoCmd(ctx context.Context, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <folder|file>",
		Short: "Describe a DICOM CT folder or file",
		Long:  "Loads a DICOM folder and prints identifiers, volume shape, intensity statistics and memory footprint. A single file prints its key metadata.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fi, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if !fi.IsDir() {
				if header, _ := cmd.Flags().GetBool("header"); header {
					return runHeader(args[0])
				}
				return runInfoFile(args[0])
			}
			return runInfo(ctx, a, args[0])
		},
	}
	cmd.Flags().Bool("header", false, "list every header element of a single file")
	return cmd
}

// runHeader dumps the header of one file.
func runHeader(path string) error {
	fields, err := dicom.ReadHeader(path)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	for _, f := range fields {
		fmt.Printf("%s %-2s %-32s %s\n", f.Tag, f.VR, f.Name, f.Value)
	}
	return nil
}

// runInfoFile prints the metadata of one DICOM file.
func runInfoFile(path string) error {
	ds, err := dicom.ReadFile(path)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	fmt.Printf("Total elements: %d\n\n", len(ds.Elements))
	fmt.Println("=== Key Metadata ===")
	fmt.Printf("PatientID: %s\n", ds.PatientID())
	fmt.Printf("StudyID: %s\n", ds.StudyID())
	fmt.Printf("TransferSyntax: %s\n", ds.TransferSyntax())
	fmt.Printf("Rows: %d\n", ds.Rows())
	fmt.Printf("Columns: %d\n", ds.Columns())
	fmt.Printf("BitsAllocated: %d\n", ds.BitsAllocated())
	fmt.Printf("PixelRepresentation: %d (0=unsigned, 1=signed)\n", ds.PixelRepresentation())
	fmt.Printf("NumberOfFrames: %d\n", ds.NumberOfFrames())
	fmt.Printf("Photometric: %s\n", ds.Photometric())
	slope, intercept := ds.Rescale()
	fmt.Printf("Rescale: slope=%g intercept=%g\n", slope, intercept)
	if c, w, ok := ds.Window(); ok {
		fmt.Printf("Window: center=%g width=%g\n", c, w)
	}
	frames, err := ds.Frames()
	if err != nil {
		return fmt.Errorf("pixel data: %w", err)
	}
	for i, f := range frames {
		printStats(fmt.Sprintf("Frame %d", i), f)
	}
	return nil
}

// runInfo loads a folder the way an annotation session would.
func runInfo(ctx context.Context, a *app, dir string) error {
	s, err := series.Load(ctx, dir, series.Options{MaxFiles: a.cfg.Limits.MaxFiles, Workers: a.cfg.Limits.Workers})
	if err != nil {
		return err
	}
	fmt.Printf("Folder: %s\n", s.Dir)
	fmt.Printf("Study key: %s\n", s.Key())
	fmt.Printf("PatientID: %s\n", s.PatientID)
	fmt.Printf("StudyID: %s\n", s.StudyID)
	fmt.Printf("Shape (slices, rows, columns): %s\n", s.Volume.Shape())
	fmt.Printf("BitsAllocated: %d\n", s.Bits)

	var raw []float32
	for _, sl := range s.Slices {
		raw = append(raw, sl.Raw...)
	}
	printStats("Modality values", raw)
	lo, hi := s.Volume.MinMax()
	fmt.Printf("Displayed range: %d..%d\n", lo, hi)
	fmt.Printf("Memory: %s raw, %s displayed\n",
		humanize.Bytes(uint64(len(raw)*4)),
		humanize.Bytes(uint64(len(s.Volume.Data)*2)))
	return nil
}

func printStats(name string, vals []float32) {
	if len(vals) == 0 {
		return
	}
	x := make([]float64, len(vals))
	for i, v := range vals {
		x[i] = float64(v)
	}
	mean, std := stat.MeanStdDev(x, nil)
	lo, hi := x[0], x[0]
	for _, v := range x {
		lo, hi = min(lo, v), max(hi, v)
	}
	fmt.Printf("%s: min=%g max=%g mean=%.2f std=%.2f\n", name, lo, hi, mean, std)
}
