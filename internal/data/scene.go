package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/broken-bytes/Playground/internal/core/ecs"
	"github.com/broken-bytes/Playground/internal/layout"
)

// Scene is a named set of entities with their component values. Component
// values are field maps in the layout codec's form.
type Scene struct {
	Name     string        `yaml:"name" json:"name"`
	Tags     []string      `yaml:"tags,omitempty" json:"tags,omitempty"`
	Entities []SceneEntity `yaml:"entities" json:"entities"`
}

// SceneEntity describes one entity. Parent names another entity of the same
// scene or an entity already in the world.
type SceneEntity struct {
	Name       string                    `yaml:"name" json:"name"`
	Parent     string                    `yaml:"parent,omitempty" json:"parent,omitempty"`
	Tags       []string                  `yaml:"tags,omitempty" json:"tags,omitempty"`
	Components map[string]map[string]any `yaml:"components,omitempty" json:"components,omitempty"`
}

// LoadScene loads a scene YAML file.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	s, err := ParseScene(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScene decodes a scene document.
func ParseScene(raw []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("parse scene: missing name")
	}
	seen := make(map[string]struct{}, len(s.Entities))
	for i, e := range s.Entities {
		if e.Name == "" {
			continue
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("parse scene %s: entity %d: duplicate name %q", s.Name, i, e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return &s, nil
}

// Marshal encodes the scene as YAML.
func (s *Scene) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Apply creates the scene's entities on w. Scene-level tags are created
// first; entity tags must be one of them or already exist. Parents are linked
// after every entity exists, so a child may precede its parent. Returned
// entities share the order of s.Entities.
func Apply(w *ecs.World, s *Scene) ([]ecs.Entity, error) {
	for _, tag := range s.Tags {
		if _, err := w.CreateTag(tag); err != nil {
			return nil, fmt.Errorf("scene %s: %w", s.Name, err)
		}
	}
	ents := make([]ecs.Entity, len(s.Entities))
	for i, se := range s.Entities {
		e, err := w.CreateEntity(se.Name)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", s.Name, err)
		}
		ents[i] = e
	}
	for i, se := range s.Entities {
		if se.Parent == "" {
			continue
		}
		parent, ok := w.FindByName(se.Parent)
		if !ok {
			return nil, fmt.Errorf("scene %s: entity %q: unknown parent %q", s.Name, se.Name, se.Parent)
		}
		if err := w.SetParent(ents[i], parent); err != nil {
			return nil, fmt.Errorf("scene %s: entity %q: %w", s.Name, se.Name, err)
		}
	}
	for i, se := range s.Entities {
		if err := applyComponents(w, ents[i], se); err != nil {
			return nil, fmt.Errorf("scene %s: entity %q: %w", s.Name, se.Name, err)
		}
		for _, tag := range se.Tags {
			if err := w.AddTag(ents[i], tag); err != nil {
				return nil, fmt.Errorf("scene %s: entity %q: %w", s.Name, se.Name, err)
			}
		}
	}
	return ents, nil
}

func applyComponents(w *ecs.World, e ecs.Entity, se SceneEntity) error {
	names := make([]string, 0, len(se.Components))
	for name := range se.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		d, err := w.Descriptor(name)
		if err != nil {
			return err
		}
		buf := make([]byte, d.Size)
		if err := layout.Encode(d.Layout, buf, se.Components[name]); err != nil {
			return err
		}
		if err := w.SetBytes(e, d, buf); err != nil {
			return err
		}
	}
	return nil
}
