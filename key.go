package cardinal

import (
	"fmt"
	"reflect"
	"regexp"
)

// Component is any value attached to an owner through a key.
type Component = any

// KeyKind distinguishes components stored directly from value components
// stored inside a Cell.
type KeyKind uint8

const (
	// Mutable keys hold the component returned by their factory as is.
	Mutable KeyKind = iota

	// Immutable keys hold a *Cell wrapping a value that is replaced as a whole.
	Immutable
)

// String returns the string representation of the kind.
func (k KeyKind) String() string {
	switch k {
	case Mutable:
		return "mutable"
	case Immutable:
		return "immutable"
	default:
		return "unknown"
	}
}

// ComponentKey is the interned identity of a component type.
// A key never changes once created and is shared by every owner type using it.
type ComponentKey struct {
	id    string
	class reflect.Type
	kind  KeyKind

	// index is dense and assigned at intern time; descriptors use it to find
	// a slot without hashing.
	index int

	// slotType is the type stored in a container slot: class for mutable
	// keys, *Cell[V] for immutable ones.
	slotType reflect.Type

	// transient immutable keys are skipped by tree persistence.
	transient bool
}

// ID returns the namespaced identifier of the key.
func (k *ComponentKey) ID() string {
	return k.id
}

// Class returns the capability class every implementation must satisfy.
func (k *ComponentKey) Class() reflect.Type {
	return k.class
}

// Kind returns whether the key is mutable or immutable.
func (k *ComponentKey) Kind() KeyKind {
	return k.kind
}

// Index returns the dense index of the key in its registry.
func (k *ComponentKey) Index() int {
	return k.index
}

// String returns the key id.
func (k *ComponentKey) String() string {
	return k.id
}

// ComponentKey returns k itself, so a raw key satisfies Keyed.
func (k *ComponentKey) ComponentKey() *ComponentKey {
	return k
}

// Keyed is implemented by the raw key and by its typed views.
type Keyed interface {
	ComponentKey() *ComponentKey
}

var identifierPattern = regexp.MustCompile(`^([a-z0-9_.-]+:)?[a-z0-9_./-]+$`)

// ValidIdentifier reports whether id is a valid component id.
// Ids are lowercase and may carry a namespace prefix, as in "mymod:mana".
func ValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}

// Intern returns the key registered under id, creating it if needed.
// Interning an existing id with a different class fails with a
// ConflictingDeclarationError and leaves the existing key untouched.
func (r *Registry) Intern(id string, class reflect.Type) (*ComponentKey, error) {
	return r.intern(id, class, Mutable, class, false)
}

func (r *Registry) intern(id string, class reflect.Type, kind KeyKind, slotType reflect.Type, transient bool) (*ComponentKey, error) {
	if !ValidIdentifier(id) {
		return nil, fmt.Errorf("component id %q: %w", id, ErrInvalidIdentifier)
	}
	if class == nil {
		return nil, fmt.Errorf("component id %q: nil class: %w", id, ErrIncompatibleImpl)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if k, ok := r.keys[id]; ok {
		if k.class != class || k.kind != kind {
			return nil, &ConflictingDeclarationError{
				Kind:      "component key",
				Name:      id,
				Existing:  describeClass(k.kind, k.class),
				Requested: describeClass(kind, class),
			}
		}
		return k, nil
	}

	if err := r.checkRegistering(); err != nil {
		return nil, fmt.Errorf("intern %s: %w", id, err)
	}

	k := &ComponentKey{
		id:        id,
		class:     class,
		kind:      kind,
		index:     len(r.keyList),
		slotType:  slotType,
		transient: transient,
	}
	r.keys[id] = k
	r.keyList = append(r.keyList, k)
	r.metrics.keyInterned()
	r.log.Debug("cardinal: interned component key", "id", id, "class", class.String(), "kind", kind.String())
	return k, nil
}

func describeClass(kind KeyKind, class reflect.Type) string {
	return kind.String() + " " + class.String()
}

// Lookup returns the key registered under id.
func (r *Registry) Lookup(id string) (*ComponentKey, bool) {
	if r.serving() {
		k, ok := r.keys[id]
		return k, ok
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[id]
	return k, ok
}

// Keys returns a snapshot of every interned key in index order.
func (r *Registry) Keys() []*ComponentKey {
	if r.serving() {
		return append([]*ComponentKey(nil), r.keyList...)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*ComponentKey(nil), r.keyList...)
}

// Key is a typed view of a mutable component key.
type Key[C any] struct {
	key *ComponentKey
}

// RegisterKey interns a mutable key whose components are of type C.
func RegisterKey[C any](r *Registry, id string) (Key[C], error) {
	k, err := r.Intern(id, reflect.TypeFor[C]())
	if err != nil {
		return Key[C]{}, err
	}
	return Key[C]{key: k}, nil
}

// ComponentKey returns the underlying key.
func (k Key[C]) ComponentKey() *ComponentKey {
	return k.key
}

// ID returns the key id.
func (k Key[C]) ID() string {
	return k.key.id
}

// Get returns the component of c stored under k.
func (k Key[C]) Get(c *Container) (C, bool) {
	comp, ok := c.Get(k.key)
	if !ok {
		var zero C
		return zero, false
	}
	v, ok := comp.(C)
	return v, ok
}

// MustGet returns the component of c stored under k and panics when the
// container does not carry it.
func (k Key[C]) MustGet(c *Container) C {
	v, ok := k.Get(c)
	if !ok {
		panic(fmt.Sprintf("cardinal: owner type %s has no component %s", c.desc.owner.name, k.key.id))
	}
	return v
}

// Has reports whether c carries a component for k.
func (k Key[C]) Has(c *Container) bool {
	return c.Has(k.key)
}
