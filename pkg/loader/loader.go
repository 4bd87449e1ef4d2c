// Package loader registers the macro packages a set of source files imports.
// Packages are declared in manifests found by glob; a package is registered
// the first time some file imports its module.
package loader

import (
	"context"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/macro"
	"github.com/walteh/tsmacro/pkg/scanner"
)

var ErrDuplicatePackage = errors.New("macro package declared twice")

type Loader struct {
	fs       afero.Fs
	registry *macro.Registry

	mu         sync.Mutex
	packages   map[string]*Package
	declaredIn map[string]string
	registered map[string]bool
}

func New(fs afero.Fs, registry *macro.Registry) *Loader {
	return &Loader{
		fs:         fs,
		registry:   registry,
		packages:   map[string]*Package{},
		declaredIn: map[string]string{},
		registered: map[string]bool{},
	}
}

// Glob expands patterns relative to root, absolute patterns as they are. The
// result is sorted and free of duplicates.
func Glob(fs afero.Fs, root string, patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, pattern := range patterns {
		if !path.IsAbs(pattern) {
			pattern = path.Join(root, pattern)
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("%w: %q", doublestar.ErrBadPattern, pattern)
		}
		base, _ := doublestar.SplitPattern(pattern)
		err := afero.Walk(fs, base, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return nil
				}
				return err
			}
			if info.IsDir() || seen[p] {
				return nil
			}
			ok, err := doublestar.Match(pattern, p)
			if err != nil {
				return err
			}
			if ok {
				seen[p] = true
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Errorf("globbing %s: %w", pattern, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

// IndexManifests reads every manifest matching globs. Broken manifests do not
// stop the others from loading; their errors are returned together.
func (l *Loader) IndexManifests(ctx context.Context, root string, globs []string) error {
	files, err := Glob(l.fs, root, globs)
	if err != nil {
		return err
	}

	var merr *multierror.Error
	for _, f := range files {
		data, err := afero.ReadFile(l.fs, f)
		if err != nil {
			merr = multierror.Append(merr, errors.Errorf("reading manifest: %w", err))
			continue
		}
		m, err := ParseManifest(f, data)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		if err := l.index(m); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	zerolog.Ctx(ctx).Debug().Int("manifests", len(files)).Strs("packages", l.Packages()).Msg("indexed macro manifests")
	return merr.ErrorOrNil()
}

func (l *Loader) index(m *Manifest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range m.Packages {
		if prev, ok := l.declaredIn[p.Module]; ok {
			return errors.Errorf("%w: %q in %s and %s", ErrDuplicatePackage, p.Module, prev, m.path)
		}
		l.declaredIn[p.Module] = m.path
		l.packages[p.Module] = p
	}
	return nil
}

// Packages lists the indexed modules.
func (l *Loader) Packages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.packages))
	for m := range l.packages {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Discover scans each file's imports and registers every indexed package one
// of them names. files maps a path to its text. It returns the modules newly
// registered.
func (l *Loader) Discover(ctx context.Context, files map[string]string) ([]string, error) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var merr *multierror.Error
	var added []string
	for _, p := range paths {
		modules, err := ImportSpecifiers(p, files[p])
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		for _, m := range modules {
			ok, err := l.register(m)
			if err != nil {
				merr = multierror.Append(merr, errors.Errorf("registering %q imported by %s: %w", m, p, err))
				continue
			}
			if ok {
				added = append(added, m)
				zerolog.Ctx(ctx).Debug().Str("module", m).Str("file", p).Msg("registered macro package")
			}
		}
	}
	return added, merr.ErrorOrNil()
}

func (l *Loader) register(module string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pkg, ok := l.packages[module]
	if !ok || l.registered[module] {
		return false, nil
	}
	defs, err := pkg.Definitions()
	if err != nil {
		return false, err
	}
	for _, d := range defs {
		if err := l.registry.Register(d); err != nil {
			return false, err
		}
	}
	l.registered[module] = true
	return true, nil
}

// ImportSpecifiers lists the modules named by import and export-from
// statements, in order of first appearance.
func ImportSpecifiers(file, text string) ([]string, error) {
	toks, err := scanner.Tokenize(text, scanner.Options{FileName: file})
	if err != nil {
		return nil, err
	}
	var sig []scanner.Token
	for _, t := range toks {
		if !t.IsTrivia() {
			sig = append(sig, t)
		}
	}

	seen := map[string]bool{}
	var out []string
	add := func(t scanner.Token) {
		m := unquote(t.Text)
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	for i := 0; i < len(sig); i++ {
		t := sig[i]
		if t.Depth != 0 || t.Kind != scanner.KindIdent || (t.Text != "import" && t.Text != "export") {
			continue
		}
		// import "m";
		if t.Text == "import" && i+1 < len(sig) && sig[i+1].Kind == scanner.KindString {
			add(sig[i+1])
			continue
		}
		for j := i + 1; j < len(sig); j++ {
			if sig[j].IsPunct(";") || sig[j].NewlineBefore && sig[j].Depth == 0 && isStatementStart(sig[j]) {
				break
			}
			if sig[j].Depth == 0 && sig[j].Is(scanner.KindIdent, "from") && j+1 < len(sig) && sig[j+1].Kind == scanner.KindString {
				add(sig[j+1])
				i = j + 1
				break
			}
		}
	}
	return out, nil
}

func isStatementStart(t scanner.Token) bool {
	switch t.Text {
	case "import", "export", "const", "let", "var", "function", "class", "interface", "type":
		return t.Kind == scanner.KindIdent
	}
	return false
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
