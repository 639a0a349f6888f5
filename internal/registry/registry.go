// Package registry holds the static tag roster. The roster is loaded once at
// process start and is immutable afterwards; every accessor that returns
// roster data returns an independent copy.
package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wardtrack/server/internal/mac"
	"wardtrack/server/internal/model"
)

// Registry indexes the roster by normalized MAC and by name. Safe for
// concurrent use: nothing mutates it after construction.
type Registry struct {
	tags   []model.Tag
	byMAC  map[string]model.Tag
	byName map[string]model.Tag
}

// Load builds a registry from tag records. MACs are normalized before
// indexing; duplicate MACs or names are a configuration error.
func Load(tags []model.Tag) (*Registry, error) {
	r := &Registry{
		tags:   make([]model.Tag, 0, len(tags)),
		byMAC:  make(map[string]model.Tag, len(tags)),
		byName: make(map[string]model.Tag, len(tags)),
	}

	for _, tag := range tags {
		normalized, err := mac.Normalize(tag.MAC)
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", tag.Name, err)
		}
		if tag.Name == "" {
			return nil, fmt.Errorf("tag with mac %s: name required", normalized)
		}
		if _, exists := r.byMAC[normalized]; exists {
			return nil, fmt.Errorf("duplicate mac %s", normalized)
		}
		if _, exists := r.byName[tag.Name]; exists {
			return nil, fmt.Errorf("duplicate tag name %q", tag.Name)
		}

		tag.MAC = normalized
		tag.Attributes = copyAttributes(tag.Attributes)
		r.tags = append(r.tags, tag)
		r.byMAC[normalized] = tag
		r.byName[tag.Name] = tag
	}

	return r, nil
}

// rosterEntry decodes one YAML roster record. Keys other than name/mac/type
// fall into the attribute map, so new attribute kinds need no schema change.
type rosterEntry struct {
	fields map[string]string
}

func (e *rosterEntry) UnmarshalYAML(node *yaml.Node) error {
	raw := map[string]string{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	e.fields = raw
	return nil
}

// LoadFile reads a YAML roster file: a list of mappings with name, mac, type,
// and arbitrary extra attribute keys.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}

	var entries []rosterEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}

	tags := make([]model.Tag, 0, len(entries))
	for i, entry := range entries {
		tag := model.Tag{Attributes: map[string]string{}}
		for key, value := range entry.fields {
			switch key {
			case "name":
				tag.Name = value
			case "mac":
				tag.MAC = value
			case "type":
				tag.Type = value
			default:
				tag.Attributes[key] = value
			}
		}
		if tag.MAC == "" {
			return nil, fmt.Errorf("roster entry %d: mac required", i)
		}
		tags = append(tags, tag)
	}

	return Load(tags)
}

// Lookup resolves a tag by MAC in any layout. An unparseable MAC is simply
// not found.
func (r *Registry) Lookup(address string) (model.Tag, bool) {
	normalized, err := mac.Normalize(address)
	if err != nil {
		return model.Tag{}, false
	}
	tag, ok := r.byMAC[normalized]
	if !ok {
		return model.Tag{}, false
	}
	tag.Attributes = copyAttributes(tag.Attributes)
	return tag, true
}

// ByName resolves a tag by its roster name.
func (r *Registry) ByName(name string) (model.Tag, bool) {
	tag, ok := r.byName[name]
	if !ok {
		return model.Tag{}, false
	}
	tag.Attributes = copyAttributes(tag.Attributes)
	return tag, true
}

// All returns the roster in load order as a defensive copy.
func (r *Registry) All() []model.Tag {
	out := make([]model.Tag, len(r.tags))
	for i, tag := range r.tags {
		tag.Attributes = copyAttributes(tag.Attributes)
		out[i] = tag
	}
	return out
}

// IsKnown reports whether the MAC belongs to a registered tag.
func (r *Registry) IsKnown(address string) bool {
	_, ok := r.Lookup(address)
	return ok
}

// Size returns the number of registered tags.
func (r *Registry) Size() int {
	return len(r.tags)
}

func copyAttributes(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
