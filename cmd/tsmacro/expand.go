package main

import (
	"fmt"
	"path"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/diagnostic"
	"github.com/walteh/tsmacro/pkg/pipeline"
)

type ExpandHandler struct {
	root *Root

	out    string
	jobs   int
	format string
}

func NewExpandCommand(root *Root) *cobra.Command {
	me := &ExpandHandler{root: root}

	cmd := &cobra.Command{
		Use:   "expand [file]...",
		Short: "preprocess and expand macros, by default in every configured source",
	}

	cmd.Flags().StringVarP(&me.out, "out", "o", "", "write outputs and their source maps under this directory instead of printing them")
	cmd.Flags().IntVarP(&me.jobs, "jobs", "j", 0, "files compiled at once (0: no limit)")
	cmd.Flags().StringVar(&me.format, "format", "text", "diagnostic format: text or lsp")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd, args)
	}

	return cmd
}

func (me *ExpandHandler) Run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if me.format != "text" && me.format != "lsp" {
		return errors.Errorf("unknown --format %q", me.format)
	}

	proj, err := me.root.openProject(ctx, args)
	if err != nil {
		return err
	}

	outs, compileErr := proj.compiler.CompileAll(ctx, proj.files, me.jobs)

	var diags diagnostic.List
	for _, o := range outs {
		if o == nil {
			continue
		}
		diags = append(diags, o.Diagnostics...)
		if compileErr != nil {
			continue
		}
		if err := me.emit(cmd, o, len(outs) > 1); err != nil {
			return err
		}
	}

	if err := me.report(cmd, proj.files, diags); err != nil {
		return err
	}
	if compileErr != nil {
		return compileErr
	}

	zerolog.Ctx(ctx).Info().Int("files", len(outs)).Int("diagnostics", len(diags)).Msg("expanded project")
	if diags.HasErrors() {
		return errors.Errorf("%w: %d error(s)", ErrDiagnostics, len(diags.Filter(diagnostic.SeverityError)))
	}
	return nil
}

func (me *ExpandHandler) emit(cmd *cobra.Command, o *pipeline.Output, header bool) error {
	if me.out == "" {
		if header {
			fmt.Fprintf(cmd.OutOrStdout(), "// %s\n", o.Path)
		}
		fmt.Fprint(cmd.OutOrStdout(), o.Code)
		return nil
	}

	dest := path.Join(me.root.resolve(me.out), o.Path)
	fs := me.root.fs
	if err := fs.MkdirAll(path.Dir(dest), 0o755); err != nil {
		return errors.Errorf("creating output directory: %w", err)
	}
	if err := afero.WriteFile(fs, dest, []byte(o.Code), 0o644); err != nil {
		return errors.Errorf("writing output: %w", err)
	}
	if o.Map == nil {
		return nil
	}
	b, err := o.Map.JSON()
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, dest+".map", b, 0o644); err != nil {
		return errors.Errorf("writing source map: %w", err)
	}
	return nil
}

func (me *ExpandHandler) report(cmd *cobra.Command, files []pipeline.File, diags diagnostic.List) error {
	var f diagnostic.Formatter = diagnostic.NewLSPFormatter()
	w := cmd.OutOrStdout()
	if me.format == "text" {
		colorize, err := me.root.color()
		if err != nil {
			return err
		}
		sources := make(map[string]string, len(files))
		for _, file := range files {
			sources[file.Path] = file.Text
		}
		f = &diagnostic.TextFormatter{Sources: sources, Color: colorize}
		w = cmd.ErrOrStderr()
	}

	b, err := f.Format(append(diagnostic.List{}, diags.Sorted()...))
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err = w.Write(b)
	return errors.WithStack(err)
}
