package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jpfielding/ctlabels.go/pkg/config"
	"github.com/jpfielding/ctlabels.go/pkg/logging"
	"github.com/spf13/cobra"
)

// app carries what the root command resolves before any subcommand runs.
type app struct {
	cfg *config.Config
	log io.Closer
}

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	a := &app{cfg: config.Default()}
	cmd := &cobra.Command{
		Use:           "labelctl",
		Short:         "a CLI to annotate CT studies with label masks",
		Long:          "Loads DICOM CT folders, edits and segments per-label masks and exports them as PNG slices.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			if cmd.Flags().Changed("log-file") {
				cfg.Logging.File, _ = cmd.Flags().GetString("log-file")
			}
			if cmd.Flags().Changed("log-json") {
				cfg.Logging.JSON, _ = cmd.Flags().GetBool("log-json")
			}
			logLevel := cfg.Logging.Level
			if cmd.Flags().Changed("log-level") {
				logLevel, _ = cmd.Flags().GetString("log-level")
			}

			// Parse log level
			var level slog.Level
			lerr := level.UnmarshalText([]byte(strings.ToUpper(logLevel)))
			if lerr != nil {
				level = slog.LevelInfo
			}
			w, closer := logging.Output(cfg.Logging.FileConfig())
			a.log = closer
			slog.SetDefault(logging.Logger(w, cfg.Logging.JSON, level))
			if lerr != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", lerr)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Close()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewInfoCmd(ctx, a),
		NewRenderCmd(ctx, a),
		NewPaintCmd(ctx, a),
		NewSegmentCmd(ctx, a),
		NewExportCmd(ctx, a),
		NewPostprocessCmd(ctx, a),
		NewAnnotateCmd(ctx, a),
		NewLabelsCmd(ctx),
		NewSynthCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "also write logs to this rotating file")
	pf.Bool("log-json", false, "log as JSON")
	return cmd
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(gitsha)
		},
	}
	return cmd
}
