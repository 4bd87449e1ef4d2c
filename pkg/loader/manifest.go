package loader

import (
	"bytes"
	"io"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/tsmacro/pkg/macro"
)

var ErrManifest = errors.New("invalid macro manifest")

// Manifest declares template macros grouped by the module that exports them.
//
//	package "std/math" {
//	  macro "square" {
//	    kind     = "expression"
//	    template = "(($0) * ($0))"
//	  }
//	}
type Manifest struct {
	Packages []*Package `hcl:"package,block" yaml:"packages"`

	path string
}

type Package struct {
	Module string        `hcl:"module,label" yaml:"module"`
	Macros []*MacroEntry `hcl:"macro,block" yaml:"macros"`
}

type MacroEntry struct {
	Name string `hcl:"name,label" yaml:"name"`
	Kind string `hcl:"kind,attr" yaml:"kind"`
	// Export defaults to Name.
	Export   string `hcl:"export,optional" yaml:"export,omitempty"`
	Template string `hcl:"template,attr" yaml:"template"`
}

// ParseManifest decodes a manifest. YAML is chosen by extension, anything
// else is HCL, where ${module} inside a package names that package's module.
func ParseManifest(name string, data []byte) (*Manifest, error) {
	var m *Manifest
	var err error
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		m, err = parseYAML(data)
	} else {
		m, err = parseHCL(name, data)
	}
	if err != nil {
		return nil, errors.Errorf("%w: %s: %s", ErrManifest, name, err.Error())
	}
	m.path = name
	return m, nil
}

func parseYAML(data []byte) (*Manifest, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &m, nil
}

func parseHCL(name string, data []byte) (*Manifest, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, name)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// package labels are decoded first so each body can see its own module
	var outer struct {
		Packages []struct {
			Module string   `hcl:"module,label"`
			Body   hcl.Body `hcl:",remain"`
		} `hcl:"package,block"`
	}
	if diags := gohcl.DecodeBody(file.Body, nil, &outer); diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	m := &Manifest{}
	for _, p := range outer.Packages {
		evalCtx := &hcl.EvalContext{
			Variables: map[string]cty.Value{"module": cty.StringVal(p.Module)},
		}
		pkg := &Package{Module: p.Module}
		var body struct {
			Macros []*MacroEntry `hcl:"macro,block"`
		}
		if diags := gohcl.DecodeBody(p.Body, evalCtx, &body); diags.HasErrors() {
			return nil, errors.Errorf("decoding package %q: %s", p.Module, diags.Error())
		}
		pkg.Macros = body.Macros
		m.Packages = append(m.Packages, pkg)
	}
	return m, nil
}

// Definitions builds the macros a package declares.
func (p *Package) Definitions() ([]macro.Definition, error) {
	defs := make([]macro.Definition, 0, len(p.Macros))
	for _, e := range p.Macros {
		kind, ok := macro.ParseKind(e.Kind)
		if !ok {
			return nil, errors.Errorf("%w: macro %q of %q: unknown kind %q", ErrManifest, e.Name, p.Module, e.Kind)
		}
		meta := macro.Meta{Name: e.Name, Module: p.Module, ExportName: e.Export}
		switch kind {
		case macro.KindExpression:
			defs = append(defs, macro.NewTemplateExpression(meta, e.Template))
		case macro.KindType:
			defs = append(defs, macro.NewTemplateType(meta, e.Template))
		default:
			return nil, errors.Errorf("%w: macro %q of %q: %s macros cannot be written as templates", ErrManifest, e.Name, p.Module, kind)
		}
	}
	return defs, nil
}
