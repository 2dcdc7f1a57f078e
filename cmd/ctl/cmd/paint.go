package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpfielding/ctlabels.go/pkg/session"
	"github.com/spf13/cobra"
)

// NewPaintCmd replays a YAML gesture script through the edit engine
func NewPaintCmd(ctx context.Context, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paint <folder>",
		Short: "Replay a gesture script on a study and save the masks",
		Long:  "Loads a study, replays the label, brush, stroke and key steps of a YAML script and saves every mask below the save folder.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := folderArg(args)
			if err != nil {
				return err
			}
			scriptPath, _ := cmd.Flags().GetString("script")
			if scriptPath == "" {
				return fmt.Errorf("a --script is required")
			}
			sc, err := session.ReadScript(scriptPath)
			if err != nil {
				return err
			}
			s, err := openStudy(ctx, a, cmd, dir)
			if err != nil {
				return err
			}
			if fill, _ := cmd.Flags().GetBool("auto-fill"); fill {
				s.Engine.AutoFillHoles = true
			}
			if err := sc.Replay(ctx, s); err != nil {
				return err
			}
			slog.InfoContext(s.Context(ctx), "script replayed", slog.Int("steps", len(sc.Steps)))
			return s.SaveMasks()
		},
	}
	addStudyFlags(cmd)
	pf := cmd.PersistentFlags()
	pf.String("script", "", "YAML gesture script")
	pf.Bool("auto-fill", false, "fill enclosed holes after every draw stroke")
	return cmd
}
