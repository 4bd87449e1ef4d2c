// Package debug sets up the zerolog logger the command line tools run with.
package debug

import (
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

type Options struct {
	Level zerolog.Level
	// Color renders the console output and the caller with ANSI colors.
	Color bool
	// JSON writes one JSON object per line instead of console output.
	JSON bool
	// Caller adds the package, file and line that logged.
	Caller bool
	// RunID tags every line, so output of concurrent runs can be told apart.
	RunID string
	// TimeFormat defaults to millisecond precision without a zone.
	TimeFormat string
}

// NewLogger builds the logger a tool run writes to w.
func NewLogger(w io.Writer, opts Options) zerolog.Logger {
	out := w
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: w, NoColor: !opts.Color}
	}

	l := zerolog.New(out).Level(opts.Level).Hook(TimeHook{Format: opts.TimeFormat})
	if opts.Caller {
		l = l.Hook(CallerHook{WithColor: opts.Color && !opts.JSON})
	}
	if opts.RunID != "" {
		l = l.With().Str("run", opts.RunID).Logger()
	}
	return l
}

// callerSkip reads zerolog's unexported per-event frame skip.
func callerSkip(e *zerolog.Event) int {
	v := reflect.ValueOf(e).Elem()
	field := v.FieldByName("skipFrame")
	if field.IsValid() && field.CanInt() {
		return int(field.Int())
	}
	return 0
}

type TimeHook struct {
	Format string
}

func (t TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := t.Format
	if format == "" {
		format = "2006-01-02T15:04:05.000"
	}
	e.Str("time", time.Now().Format(format))
}

type CallerHook struct {
	WithColor bool
}

func (c CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(callerSkip(e) + 3)
	if !ok {
		return
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return
	}
	pkg, _ := SplitFuncName(fn.Name())
	e.Str("caller", FormatCaller(pkg, file, line, c.WithColor))
}

// SplitFuncName splits a runtime function name into its package path and the
// function, with any method receiver kept on the function side.
func SplitFuncName(name string) (pkg, function string) {
	lastSlash := strings.LastIndexByte(name, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}
	firstDot := strings.IndexByte(name[lastSlash:], '.') + lastSlash
	if firstDot < lastSlash {
		return name, ""
	}

	pkg = name[:firstDot]
	function = name[firstDot+1:]
	if before, after, ok := strings.Cut(pkg, ".("); ok {
		pkg = before
		function = "(" + after + "." + function
	}
	return pkg, function
}

func FormatCaller(pkg, path string, line int, colorize bool) string {
	file := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		file = path[i+1:]
	}
	if !colorize {
		return fmt.Sprintf("%s:%s:%d", pkg, file, line)
	}
	sep := color.New(color.Faint).Sprint(":")
	return pkg + sep + color.New(color.Bold).Sprint(file) + sep + color.New(color.FgHiRed, color.Bold).Sprintf("%d", line)
}
