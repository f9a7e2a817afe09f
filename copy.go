package cardinal

import (
	"fmt"

	"github.com/oriumgames/cardinal/tree"
)

// CopyStrategy decides whether a component survives when an owner is
// replaced by a fresh instance, such as a player respawning.
type CopyStrategy uint8

const (
	// LosslessOnly copies the component only when the copy is lossless, for
	// instance when a player returns from the End.
	LosslessOnly CopyStrategy = iota

	// AlwaysCopy copies the component in every situation.
	AlwaysCopy

	// CopyInventory copies the component when inventories are kept.
	CopyInventory

	// NeverCopy never copies the component.
	NeverCopy
)

// String returns the string representation of the strategy.
func (s CopyStrategy) String() string {
	switch s {
	case LosslessOnly:
		return "LosslessOnly"
	case AlwaysCopy:
		return "AlwaysCopy"
	case CopyInventory:
		return "CopyInventory"
	case NeverCopy:
		return "NeverCopy"
	default:
		return "Unknown"
	}
}

// CopyContext describes the circumstances of a copy.
type CopyContext struct {
	// Lossless is set when nothing about the owner is lost, e.g. a dimension
	// change rather than a death.
	Lossless bool

	// KeepInventory is set when the host keeps inventories across deaths.
	KeepInventory bool
}

// Allows reports whether the strategy copies in ctx.
func (s CopyStrategy) Allows(ctx CopyContext) bool {
	switch s {
	case AlwaysCopy:
		return true
	case CopyInventory:
		return ctx.Lossless || ctx.KeepInventory
	case LosslessOnly:
		return ctx.Lossless
	default:
		return false
	}
}

// Copyable is implemented by components that copy state from another
// instance of themselves.
type Copyable interface {
	CopyFrom(src Component) error
}

type strategyKey struct {
	key   *ComponentKey
	owner *OwnerType
}

// SetCopyStrategy sets the copy strategy of key on owner and its subtypes.
// Only allowed while bootstrapping.
func (r *Registry) SetCopyStrategy(key Keyed, owner *OwnerType, s CopyStrategy) error {
	k := key.ComponentKey()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRegistering(); err != nil {
		return fmt.Errorf("set copy strategy of %s: %w", k, err)
	}
	r.strategies[strategyKey{key: k, owner: owner}] = s
	return nil
}

// copyStrategy returns the strategy set for key on owner or its closest
// ancestor, LosslessOnly when none was set.
func (r *Registry) copyStrategy(key *ComponentKey, owner *OwnerType) CopyStrategy {
	for t := owner; t != nil; t = t.parent {
		if s, ok := r.strategies[strategyKey{key: key, owner: t}]; ok {
			return s
		}
	}
	return LosslessOnly
}

// CopyFrom copies components from src, an older container of the same
// logical owner, following each slot's copy strategy.
//
// Components implementing Copyable copy themselves; otherwise components
// that are tree persistent on both sides are copied through a tree.
func (c *Container) CopyFrom(src *Container, ctx CopyContext) error {
	for i := range c.desc.slots {
		s := &c.desc.slots[i]
		if !s.strategy.Allows(ctx) {
			continue
		}
		from, ok := src.Get(s.key)
		if !ok {
			continue
		}
		if err := copyComponent(c.slots[i], from); err != nil {
			return fmt.Errorf("copy component %s: %w", s.key.id, err)
		}
	}
	return nil
}

func copyComponent(to, from Component) error {
	if cp, ok := to.(Copyable); ok {
		return cp.CopyFrom(from)
	}
	dst, ok := to.(TreePersistent)
	if !ok {
		return nil
	}
	srcTree, ok := from.(TreePersistent)
	if !ok {
		return nil
	}
	t := tree.NewCompound()
	if err := srcTree.WriteTree(t); err != nil {
		return err
	}
	return dst.ReadTree(t)
}
