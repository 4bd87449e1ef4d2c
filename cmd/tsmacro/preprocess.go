package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/diff"
	"github.com/walteh/tsmacro/pkg/preprocess"
)

type PreprocessHandler struct {
	root *Root

	extensions []string
	showMap    bool
	showDiff   bool
}

func NewPreprocessCommand(root *Root) *cobra.Command {
	me := &PreprocessHandler{root: root}

	cmd := &cobra.Command{
		Use:   "preprocess <file>...",
		Short: "rewrite syntax extensions into plain TypeScript",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.Flags().StringSliceVar(&me.extensions, "extensions", nil, "extensions to run (default: the config's, or all)")
	cmd.Flags().BoolVar(&me.showMap, "map", false, "print the source map instead of the code")
	cmd.Flags().BoolVar(&me.showDiff, "diff", false, "print a diff against the input instead of the code")
	cmd.MarkFlagsMutuallyExclusive("map", "diff")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("extensions") {
			cfg, err := root.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			me.extensions = cfg.Extensions
		}
		return me.Run(cmd, args)
	}

	return cmd
}

func (me *PreprocessHandler) Run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	colorize, err := me.root.color()
	if err != nil {
		return err
	}

	for _, arg := range args {
		p := me.root.resolve(arg)
		data, err := afero.ReadFile(me.root.fs, p)
		if err != nil {
			return errors.Errorf("reading source: %w", err)
		}
		name := me.root.rel(p)

		res, err := preprocess.Preprocess(ctx, string(data), preprocess.Options{FileName: name, Extensions: me.extensions})
		if err != nil {
			return err
		}

		switch {
		case me.showDiff:
			fmt.Fprint(out, diff.Unified(name, string(data), res.Code, colorize))
		case me.showMap:
			if res.Map == nil {
				continue
			}
			b, err := res.Map.JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		default:
			if len(args) > 1 {
				fmt.Fprintf(out, "// %s\n", name)
			}
			fmt.Fprint(out, res.Code)
		}
	}
	return nil
}
