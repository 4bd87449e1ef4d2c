package macro

import (
	"sort"
	"sync"

	"gitlab.com/tozd/go/errors"
)

var (
	ErrAlreadyRegistered = errors.New("macro already registered")
	ErrFrozen            = errors.New("registry is frozen")
	ErrInvalidDefinition = errors.New("invalid macro definition")
)

// Registry indexes definitions by kind and name, and by home module export.
// It is filled while packages load, then frozen and only read while files
// are transformed.
type Registry struct {
	mu      sync.RWMutex
	byKind  map[Kind]map[string]Definition
	byHome  map[string]Definition
	frozen  bool
	version uint64
}

func NewRegistry() *Registry {
	return &Registry{
		byKind: map[Kind]map[string]Definition{},
		byHome: map[string]Definition{},
	}
}

func homeKey(module, exportName string) string {
	return module + "::" + exportName
}

// Register adds def. Registering the same definition value again is a no-op,
// so packages can be reloaded.
func (r *Registry) Register(def Definition) error {
	if def == nil || !def.valid() {
		return errors.Errorf("%w: %T needs a name and an expand function", ErrInvalidDefinition, def)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.Errorf("%w: cannot register %s macro %q", ErrFrozen, def.Kind(), def.Key())
	}

	names := r.byKind[def.Kind()]
	if prev, ok := names[def.Key()]; ok {
		if prev == def {
			return nil
		}
		return errors.Errorf("%w: %s macro %q", ErrAlreadyRegistered, def.Kind(), def.Key())
	}

	var home string
	if module, export := def.Home(); module != "" {
		home = homeKey(module, export)
		if prev, ok := r.byHome[home]; ok && prev != def {
			return errors.Errorf("%w: %s is already provided by %s macro %q", ErrAlreadyRegistered, home, prev.Kind(), prev.Key())
		}
	}

	if names == nil {
		names = map[string]Definition{}
		r.byKind[def.Kind()] = names
	}
	names[def.Key()] = def
	if home != "" {
		r.byHome[home] = def
	}
	r.version++
	return nil
}

// Freeze makes every later Register fail with ErrFrozen.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Version changes whenever the registry's contents do. Cached expansions are
// keyed on it.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Clear empties the registry and unfreezes it.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind = map[Kind]map[string]Definition{}
	r.byHome = map[string]Definition{}
	r.frozen = false
	r.version++
}

func (r *Registry) Get(kind Kind, name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byKind[kind][name]
	return def, ok
}

func get[T Definition](r *Registry, kind Kind, name string) (T, bool) {
	def, ok := r.Get(kind, name)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := def.(T)
	return t, ok
}

func (r *Registry) Expression(name string) (*ExpressionMacro, bool) {
	return get[*ExpressionMacro](r, KindExpression, name)
}

func (r *Registry) Attribute(name string) (*AttributeMacro, bool) {
	return get[*AttributeMacro](r, KindAttribute, name)
}

func (r *Registry) Derive(name string) (*DeriveMacro, bool) {
	return get[*DeriveMacro](r, KindDerive, name)
}

func (r *Registry) TaggedTemplate(name string) (*TaggedTemplateMacro, bool) {
	return get[*TaggedTemplateMacro](r, KindTaggedTemplate, name)
}

func (r *Registry) Type(name string) (*TypeMacro, bool) {
	return get[*TypeMacro](r, KindType, name)
}

func (r *Registry) LabeledBlock(label string) (*LabeledBlockMacro, bool) {
	return get[*LabeledBlockMacro](r, KindLabeledBlock, label)
}

// ByModuleExport finds the definition whose home is exportName of module.
func (r *Registry) ByModuleExport(module, exportName string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byHome[homeKey(module, exportName)]
	return def, ok
}

// All returns every definition ordered by kind, then name.
func (r *Registry) All() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Definition
	for _, k := range Kinds() {
		names := make([]string, 0, len(r.byKind[k]))
		for name := range r.byKind[k] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, r.byKind[k][name])
		}
	}
	return out
}

// Modules returns the distinct home modules of all definitions.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, def := range r.byHome {
		if m, _ := def.Home(); !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
