package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/broken-bytes/Playground/internal/core/ecs"
	"github.com/broken-bytes/Playground/internal/layout"
)

// FieldDecl is one field of a data-declared component. Kind is a scalar
// kind name or the name of another component to nest.
type FieldDecl struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Count int    `yaml:"count,omitempty"`
}

// ComponentDecl declares a component by its ordered field list.
type ComponentDecl struct {
	Name   string      `yaml:"name"`
	Fields []FieldDecl `yaml:"fields"`
}

// Manifest lists the components and tags a project declares in data.
// Declaration order is registration order.
type Manifest struct {
	Components []ComponentDecl `yaml:"components"`
	Tags       []string        `yaml:"tags"`
}

// LoadManifest loads a component manifest YAML file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read component manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse component manifest: %w", err)
	}
	return &m, nil
}

// Count returns the number of declared components.
func (m *Manifest) Count() int {
	return len(m.Components)
}

// Layouts computes every declared layout in order. Nested kinds resolve to
// components declared earlier in the manifest, then to external.
func (m *Manifest) Layouts(external func(name string) (*layout.Struct, bool)) ([]*layout.Struct, error) {
	out := make([]*layout.Struct, 0, len(m.Components))
	byName := make(map[string]*layout.Struct, len(m.Components))
	for _, c := range m.Components {
		specs := make([]layout.FieldSpec, 0, len(c.Fields))
		for _, f := range c.Fields {
			spec := layout.FieldSpec{Name: f.Name, Count: f.Count}
			k, err := layout.ParseKind(f.Kind)
			switch {
			case err == nil:
				spec.Kind = k
			case byName[f.Kind] != nil:
				spec.Kind, spec.Elem = layout.Nested, byName[f.Kind]
			default:
				st, ok := lookup(external, f.Kind)
				if !ok {
					return nil, fmt.Errorf("component %s field %s: unknown kind %q", c.Name, f.Name, f.Kind)
				}
				spec.Kind, spec.Elem = layout.Nested, st
			}
			specs = append(specs, spec)
		}
		st, err := layout.New(c.Name, specs)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", c.Name, err)
		}
		byName[c.Name] = st
		out = append(out, st)
	}
	return out, nil
}

func lookup(external func(string) (*layout.Struct, bool), name string) (*layout.Struct, bool) {
	if external == nil {
		return nil, false
	}
	return external(name)
}

// Register declares the manifest's components and tags on w. Components
// registered from Go may be nested by name.
func (m *Manifest) Register(w *ecs.World) ([]*ecs.Descriptor, error) {
	layouts, err := m.Layouts(func(name string) (*layout.Struct, bool) {
		d, err := w.Descriptor(name)
		if err != nil {
			return nil, false
		}
		return d.Layout, d.Layout != nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]*ecs.Descriptor, 0, len(layouts))
	for _, st := range layouts {
		d, err := w.Registry().RegisterLayout(st)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	for _, tag := range m.Tags {
		if _, err := w.CreateTag(tag); err != nil {
			return nil, err
		}
	}
	return out, nil
}
