package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	logging "github.com/walteh/tsmacro/pkg/debug"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	if err := NewRootCommand(afero.NewOsFs()).ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}
	return nil
}

// Root holds what every subcommand shares.
type Root struct {
	fs afero.Fs

	dir      string
	config   string
	logLevel string
	logJSON  bool
	colorize string
}

func NewRootCommand(fs afero.Fs) *cobra.Command {
	me := &Root{fs: fs}

	cmd := &cobra.Command{
		Use:           "tsmacro",
		Short:         "Expand macros and syntax extensions in TypeScript sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		cmd.Version = "unknown"
	} else {
		cmd.Version = info.Main.Version
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&me.dir, "dir", "C", ".", "project directory")
	flags.StringVar(&me.config, "config", "", "config file (default: tsmacro.hcl, tsmacro.yaml or tsmacro.yml in --dir)")
	flags.StringVar(&me.logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")
	flags.BoolVar(&me.logJSON, "log-json", false, "log JSON lines instead of console output")
	flags.StringVar(&me.colorize, "color", "auto", "color output: auto, always, never")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		ctx, err := me.context(cmd)
		if err != nil {
			return err
		}
		cmd.SetContext(ctx)
		return nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:    "raw-version",
		Hidden: true,
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(cmd.Version)
		},
	})
	cmd.AddCommand(NewPreprocessCommand(me))
	cmd.AddCommand(NewExpandCommand(me))
	cmd.AddCommand(NewMapCommand(me))

	return cmd
}

func (me *Root) context(cmd *cobra.Command) (context.Context, error) {
	level, err := zerolog.ParseLevel(me.logLevel)
	if err != nil {
		return nil, errors.Errorf("parsing --log-level: %w", err)
	}
	colorize, err := me.color()
	if err != nil {
		return nil, err
	}

	runID := xid.New().String()
	log := logging.NewLogger(cmd.ErrOrStderr(), logging.Options{
		Level:  level,
		Color:  colorize,
		JSON:   me.logJSON,
		Caller: level <= zerolog.DebugLevel,
		RunID:  runID,
	})
	log.Debug().Str("command", cmd.CommandPath()).Str("dir", me.dir).Msg("starting")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return log.WithContext(ctx), nil
}

func (me *Root) color() (bool, error) {
	switch me.colorize {
	case "auto", "":
		return !color.NoColor, nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	}
	return false, errors.Errorf("unknown --color value %q", me.colorize)
}
