package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/oriumgames/cardinal"
)

// ValueType is the type of the values held by a manifest key.
type ValueType string

// Supported value types. Record keys are mutable; the others are immutable.
const (
	Int    ValueType = "int"
	Float  ValueType = "float"
	String ValueType = "string"
	Bool   ValueType = "bool"
	Record ValueType = "record"
)

func (t ValueType) valid() bool {
	switch t {
	case Int, Float, String, Bool, Record:
		return true
	}
	return false
}

// options are the registration settings shared by every value type.
type options struct {
	deps     []cardinal.Keyed
	filter   cardinal.Predicate
	strategy *cardinal.CopyStrategy
}

// binding registers a factory of an interned key on an owner type.
type binding func(b *cardinal.Bootstrap, owner *cardinal.OwnerType, def *yaml.Node, opts options) error

// intern registers the key and returns how to bind it.
func (t ValueType) intern(r *cardinal.Registry, k Key) (binding, error) {
	switch t {
	case Int:
		return internValue[int64](r, k)
	case Float:
		return internValue[float64](r, k)
	case String:
		return internValue[string](r, k)
	case Bool:
		return internValue[bool](r, k)
	case Record:
		return internRecord(r, k)
	default:
		return nil, fmt.Errorf("key %s: unknown type %q", k.ID, t)
	}
}

func internValue[V comparable](r *cardinal.Registry, k Key) (binding, error) {
	var opts []cardinal.ImmutableKeyOption
	if k.Transient {
		opts = append(opts, cardinal.Transient())
	}
	key, err := cardinal.RegisterImmutableKey[V](r, k.ID, opts...)
	if err != nil {
		return nil, err
	}

	return func(b *cardinal.Bootstrap, owner *cardinal.OwnerType, def *yaml.Node, o options) error {
		var initial V
		if !def.IsZero() {
			if err := def.Decode(&initial); err != nil {
				return fmt.Errorf("default of %s: %w", k.ID, err)
			}
		}
		reg := cardinal.BeginImmutable(b, owner, key).After(o.deps...)
		if o.filter != nil {
			reg.Filter(o.filter)
		}
		if o.strategy != nil {
			reg.CopyStrategy(*o.strategy)
		}
		return reg.End(func(cardinal.Owner) V { return initial })
	}, nil
}

func internRecord(r *cardinal.Registry, k Key) (binding, error) {
	key, err := cardinal.RegisterKey[*Fields](r, k.ID)
	if err != nil {
		return nil, err
	}

	return func(b *cardinal.Bootstrap, owner *cardinal.OwnerType, def *yaml.Node, o options) error {
		initial := map[string]any{}
		if !def.IsZero() {
			if err := def.Decode(&initial); err != nil {
				return fmt.Errorf("default of %s: %w", k.ID, err)
			}
		}
		reg := cardinal.Begin(b, owner, key).After(o.deps...)
		if o.filter != nil {
			reg.Filter(o.filter)
		}
		if o.strategy != nil {
			reg.CopyStrategy(*o.strategy)
		}
		return reg.End(func(cardinal.Owner, *cardinal.Container) (*Fields, error) {
			return NewFields(initial, k.Transient), nil
		})
	}, nil
}
