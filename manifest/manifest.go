// Package manifest declares owner types, keys and registrations in YAML.
//
// A manifest lets a server wire components without code: immutable keys hold
// scalar values, mutable keys hold a Record of named fields.
//
//	owner_types:
//	  - name: entity
//	  - name: player
//	    parent: entity
//	keys:
//	  - id: rpg:level
//	    type: int
//	  - id: rpg:stats
//	    type: record
//	registrations:
//	  - owner: player
//	    key: rpg:stats
//	    after: [rpg:level]
//	    copy: always
//	    default: {strength: 1}
package manifest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oriumgames/cardinal"
)

// Manifest is a declarative set of registrations.
type Manifest struct {
	OwnerTypes    []OwnerType    `yaml:"owner_types"`
	Keys          []Key          `yaml:"keys"`
	Registrations []Registration `yaml:"registrations"`
}

// OwnerType declares an owner type.
type OwnerType struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent"`
}

// Key declares a component key.
type Key struct {
	ID        string    `yaml:"id"`
	Type      ValueType `yaml:"type"`
	Transient bool      `yaml:"transient"`
}

// Registration registers a key's factory on an owner type.
type Registration struct {
	Owner   string    `yaml:"owner"`
	Key     string    `yaml:"key"`
	After   []string  `yaml:"after"`
	Filter  *Filter   `yaml:"filter"`
	Copy    string    `yaml:"copy"`
	Default yaml.Node `yaml:"default"`
}

// Filter restricts a registration to some subtypes of its owner. A filtered
// registration is dynamic.
type Filter struct {
	Named   []string `yaml:"named"`
	Exclude []string `yaml:"exclude"`
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every reference in the manifest resolves.
func (m *Manifest) Validate() error {
	var errs []error

	owners := make(map[string]bool)
	for _, o := range m.OwnerTypes {
		if o.Name == "" {
			errs = append(errs, errors.New("owner type without a name"))
			continue
		}
		if o.Parent != "" && !owners[o.Parent] {
			errs = append(errs, fmt.Errorf("owner type %s: parent %s must be declared before it", o.Name, o.Parent))
		}
		owners[o.Name] = true
	}

	keys := make(map[string]bool)
	for _, k := range m.Keys {
		if !cardinal.ValidIdentifier(k.ID) {
			errs = append(errs, fmt.Errorf("key %q: %w", k.ID, cardinal.ErrInvalidIdentifier))
		}
		if !k.Type.valid() {
			errs = append(errs, fmt.Errorf("key %s: unknown type %q", k.ID, k.Type))
		}
		keys[k.ID] = true
	}

	for i, reg := range m.Registrations {
		if !owners[reg.Owner] {
			errs = append(errs, fmt.Errorf("registration %d: unknown owner type %q", i, reg.Owner))
		}
		if !keys[reg.Key] {
			errs = append(errs, fmt.Errorf("registration %d: unknown key %q", i, reg.Key))
		}
		for _, dep := range reg.After {
			if !keys[dep] {
				errs = append(errs, fmt.Errorf("registration %d: unknown dependency %q", i, dep))
			}
		}
		if _, err := parseCopyStrategy(reg.Copy); err != nil {
			errs = append(errs, fmt.Errorf("registration %d: %w", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("manifest: %w", errors.Join(errs...))
	}
	return nil
}

// Plugin returns a plugin applying the manifest.
func (m *Manifest) Plugin(name string) *cardinal.Plugin {
	return cardinal.NewPlugin(name).Init(m.Apply)
}

// Apply declares the manifest's owner types and keys and registers its
// factories through b.
func (m *Manifest) Apply(b *cardinal.Bootstrap) error {
	r := b.Registry()

	for _, o := range m.OwnerTypes {
		var parent *cardinal.OwnerType
		if o.Parent != "" {
			p, ok := r.OwnerType(o.Parent)
			if !ok {
				return fmt.Errorf("manifest: owner type %s: unknown parent %s", o.Name, o.Parent)
			}
			parent = p
		}
		if _, err := b.DeclareOwnerType(o.Name, parent); err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
	}

	keys := make(map[string]binding, len(m.Keys))
	for _, k := range m.Keys {
		bind, err := k.Type.intern(r, k)
		if err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
		keys[k.ID] = bind
	}

	for i, reg := range m.Registrations {
		if err := m.register(b, keys, reg); err != nil {
			return fmt.Errorf("manifest: registration %d (%s on %s): %w", i, reg.Key, reg.Owner, err)
		}
	}
	return nil
}

func (m *Manifest) register(b *cardinal.Bootstrap, keys map[string]binding, reg Registration) error {
	owner, ok := b.Registry().OwnerType(reg.Owner)
	if !ok {
		return fmt.Errorf("unknown owner type %q", reg.Owner)
	}
	bind, ok := keys[reg.Key]
	if !ok {
		return fmt.Errorf("unknown key %q: %w", reg.Key, cardinal.ErrUnknownKey)
	}

	deps := make([]cardinal.Keyed, 0, len(reg.After))
	for _, id := range reg.After {
		k, ok := b.Registry().Lookup(id)
		if !ok {
			return fmt.Errorf("unknown dependency %q: %w", id, cardinal.ErrUnknownKey)
		}
		deps = append(deps, k)
	}

	opts := options{deps: deps, filter: reg.Filter.predicate()}
	if reg.Copy != "" {
		s, err := parseCopyStrategy(reg.Copy)
		if err != nil {
			return err
		}
		opts.strategy = &s
	}
	return bind(b, owner, &reg.Default, opts)
}

func (f *Filter) predicate() cardinal.Predicate {
	if f == nil {
		return nil
	}
	var ps []cardinal.Predicate
	if len(f.Named) > 0 {
		ps = append(ps, cardinal.Named(f.Named...))
	}
	if len(f.Exclude) > 0 {
		ps = append(ps, cardinal.Not(cardinal.Named(f.Exclude...)))
	}
	return cardinal.And(ps...)
}

func parseCopyStrategy(s string) (cardinal.CopyStrategy, error) {
	switch s {
	case "", "lossless":
		return cardinal.LosslessOnly, nil
	case "always":
		return cardinal.AlwaysCopy, nil
	case "inventory":
		return cardinal.CopyInventory, nil
	case "never":
		return cardinal.NeverCopy, nil
	default:
		return 0, fmt.Errorf("unknown copy strategy %q", s)
	}
}
