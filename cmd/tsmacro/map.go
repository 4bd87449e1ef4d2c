package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/expand"
	"github.com/walteh/tsmacro/pkg/position"
)

type MapHandler struct {
	root *Root

	to string
}

func NewMapCommand(root *Root) *cobra.Command {
	me := &MapHandler{root: root}

	cmd := &cobra.Command{
		Use:   "map <file> <line:col>",
		Short: "translate a place between a file and its expanded output",
		Args:  cobra.ExactArgs(2),
	}

	cmd.Flags().StringVar(&me.to, "to", "original", "direction: original (output place to source) or transformed (source place to output)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd, args)
	}

	return cmd
}

func (me *MapHandler) Run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := parsePlace(args[1])
	if err != nil {
		return err
	}

	proj, err := me.root.openProject(ctx, args[:1])
	if err != nil {
		return err
	}
	f := proj.files[0]
	out, err := proj.compiler.Compile(ctx, f.Path, f.Text)
	if err != nil {
		return err
	}

	var (
		got position.Place
		ok  bool
		gen = p
	)
	switch me.to {
	case "original":
		got, ok = out.Mapper.ToOriginal(p)
	case "transformed":
		got, ok = out.Mapper.ToTransformed(p)
		gen = got
	default:
		return errors.Errorf("unknown --to %q", me.to)
	}
	if !ok {
		return errors.Errorf("%s:%s has no mapping", f.Path, args[1])
	}

	line := fmt.Sprintf("%s:%s", f.Path, got)
	if rec, ok := expand.RecordAt(out.Records, gen); ok {
		line += fmt.Sprintf(" (expanded from %s macro %q at %s)", rec.Kind, rec.Macro, rec.OriginalRange.Start)
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
	return nil
}
