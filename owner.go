package cardinal

import (
	"fmt"
	"slices"
)

// Owner is an owner instance: the host object a container belongs to.
// Containers keep it only to hand it back to factories and callbacks.
type Owner = any

// OwnerType is a node of the host's owner hierarchy.
// Owner types are interned by name and never change after declaration.
type OwnerType struct {
	name   string
	parent *OwnerType
	depth  int
	id     int
}

// Name returns the owner type name.
func (t *OwnerType) Name() string {
	return t.name
}

// Parent returns the direct supertype, or nil for a root.
func (t *OwnerType) Parent() *OwnerType {
	return t.parent
}

// Depth returns the number of ancestors above t.
func (t *OwnerType) Depth() int {
	return t.depth
}

// ID returns the declaration index of t.
func (t *OwnerType) ID() int {
	return t.id
}

// String returns the owner type name.
func (t *OwnerType) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.name
}

// IsA reports whether t is other or one of its subtypes.
func (t *OwnerType) IsA(other *OwnerType) bool {
	for c := t; c != nil; c = c.parent {
		if c == other {
			return true
		}
	}
	return false
}

// Ancestors returns t followed by each of its supertypes up to the root.
func (t *OwnerType) Ancestors() []*OwnerType {
	out := make([]*OwnerType, 0, t.depth+1)
	for c := t; c != nil; c = c.parent {
		out = append(out, c)
	}
	return out
}

// DeclareOwnerType interns an owner type under name with the given parent.
// Redeclaring a name with the same parent returns the existing type; a
// different parent is a conflicting declaration. Owner types may be declared
// in any phase, since hosts discover concrete types lazily.
func (r *Registry) DeclareOwnerType(name string, parent *OwnerType) (*OwnerType, error) {
	if name == "" {
		return nil, fmt.Errorf("owner type: empty name: %w", ErrInvalidIdentifier)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.owners[name]; ok {
		if t.parent != parent {
			return nil, &ConflictingDeclarationError{
				Kind:      "owner type",
				Name:      name,
				Existing:  "child of " + t.parent.String(),
				Requested: "child of " + parent.String(),
			}
		}
		return t, nil
	}
	if parent != nil && r.owners[parent.name] != parent {
		return nil, fmt.Errorf("owner type %s: parent %s belongs to another registry: %w", name, parent.name, ErrInvalidIdentifier)
	}

	t := &OwnerType{name: name, parent: parent, id: len(r.ownerList)}
	if parent != nil {
		t.depth = parent.depth + 1
	}
	r.owners[name] = t
	r.ownerList = append(r.ownerList, t)
	return t, nil
}

// MustDeclareOwnerType is like DeclareOwnerType but panics on error.
func (r *Registry) MustDeclareOwnerType(name string, parent *OwnerType) *OwnerType {
	t, err := r.DeclareOwnerType(name, parent)
	if err != nil {
		panic("cardinal: " + err.Error())
	}
	return t
}

// OwnerType returns the owner type declared under name.
func (r *Registry) OwnerType(name string) (*OwnerType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.owners[name]
	return t, ok
}

// OwnerTypes returns every declared owner type in declaration order.
func (r *Registry) OwnerTypes() []*OwnerType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.ownerList)
}

// Predicate selects owner types for dynamic registrations.
// Predicates are evaluated once per concrete owner type.
type Predicate func(*OwnerType) bool

// Under matches t and all of its subtypes.
func Under(t *OwnerType) Predicate {
	return func(o *OwnerType) bool { return o.IsA(t) }
}

// Exactly matches t only.
func Exactly(t *OwnerType) Predicate {
	return func(o *OwnerType) bool { return o == t }
}

// Named matches owner types by name.
func Named(names ...string) Predicate {
	return func(o *OwnerType) bool { return slices.Contains(names, o.name) }
}

// And matches when every predicate matches.
func And(ps ...Predicate) Predicate {
	return func(o *OwnerType) bool {
		for _, p := range ps {
			if !p(o) {
				return false
			}
		}
		return true
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(o *OwnerType) bool { return !p(o) }
}
