// Package syntax holds the surface-syntax extensions. Every extension reads
// the token stream of the original text and returns replacements expressed in
// that text's offsets; no extension ever sees another extension's output.
package syntax

import (
	"sort"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/scanner"
)

var (
	ErrUnknownExtension = errors.New("unknown syntax extension")
	ErrMissingOperand   = errors.New("missing operand")
)

// Replacement swaps text[Start:End] for NewText. Start == End is an insertion.
type Replacement struct {
	Start   int
	End     int
	NewText string
	// NameHints maps an identifier of the original span to the identifier that
	// stands for it in NewText.
	NameHints map[string]string
}

type Extension interface {
	Name() string
	Apply(tokens []scanner.Token, text string) ([]Replacement, error)
}

type funcExtension struct {
	name string
	fn   func(tokens []scanner.Token, text string) ([]Replacement, error)
}

func (f *funcExtension) Name() string { return f.name }

func (f *funcExtension) Apply(tokens []scanner.Token, text string) ([]Replacement, error) {
	return f.fn(tokens, text)
}

// New wraps a function as an Extension.
func New(name string, fn func(tokens []scanner.Token, text string) ([]Replacement, error)) Extension {
	return &funcExtension{name: name, fn: fn}
}

// Builtins returns a fresh instance of every built-in extension.
func Builtins() []Extension {
	exts := make([]Extension, 0, len(Operators)+2)
	for _, op := range Operators {
		exts = append(exts, NewBinaryOperator(op))
	}
	return append(exts, NewHKT(), NewAnnotations())
}

func BuiltinNames() []string {
	var names []string
	for _, ext := range Builtins() {
		names = append(names, ext.Name())
	}
	return names
}

// Lookup returns the built-ins with the given names, in the order given. A nil
// slice selects all of them.
func Lookup(names []string) ([]Extension, error) {
	all := Builtins()
	if names == nil {
		return all, nil
	}
	byName := make(map[string]Extension, len(all))
	for _, ext := range all {
		byName[ext.Name()] = ext
	}
	out := make([]Extension, 0, len(names))
	for _, name := range names {
		ext, ok := byName[name]
		if !ok {
			return nil, errors.Errorf("%w: %q", ErrUnknownExtension, name)
		}
		out = append(out, ext)
	}
	return out, nil
}

// coalesce sorts replacements, drops exact duplicates and merges insertions
// that share an offset, in the order they were produced.
func coalesce(reps []Replacement) []Replacement {
	sort.SliceStable(reps, func(i, j int) bool {
		if reps[i].Start != reps[j].Start {
			return reps[i].Start < reps[j].Start
		}
		return reps[i].End < reps[j].End
	})
	out := reps[:0]
	for _, r := range reps {
		n := len(out)
		if n > 0 && out[n-1].Start == r.Start && out[n-1].End == r.End && out[n-1].NewText == r.NewText {
			continue
		}
		if n > 0 && r.Start == r.End && out[n-1].Start == r.Start && out[n-1].End == r.Start {
			out[n-1].NewText += r.NewText
			continue
		}
		out = append(out, r)
	}
	return out
}
