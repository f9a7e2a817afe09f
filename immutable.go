package cardinal

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/oriumgames/cardinal/tree"
)

// ImmutableKey is a typed view of a key whose components are values of type
// V held in a Cell. Changing such a component means replacing its value.
type ImmutableKey[V any] struct {
	key   *ComponentKey
	equal func(a, b V) bool
}

// ImmutableKeyOption configures an immutable key.
type ImmutableKeyOption func(*immutableKeyOptions)

type immutableKeyOptions struct {
	transient bool
}

// Transient excludes the key's cells from tree persistence.
func Transient() ImmutableKeyOption {
	return func(o *immutableKeyOptions) {
		o.transient = true
	}
}

// RegisterImmutableKey interns an immutable key for a comparable value type.
// Values are compared with == to decide whether a write needs syncing.
func RegisterImmutableKey[V comparable](r *Registry, id string, opts ...ImmutableKeyOption) (ImmutableKey[V], error) {
	return RegisterImmutableKeyFunc(r, id, func(a, b V) bool { return a == b }, opts...)
}

// RegisterImmutableKeyFunc interns an immutable key whose values are compared
// with equal. A nil equal falls back to reflect.DeepEqual.
func RegisterImmutableKeyFunc[V any](r *Registry, id string, equal func(a, b V) bool, opts ...ImmutableKeyOption) (ImmutableKey[V], error) {
	var o immutableKeyOptions
	for _, opt := range opts {
		opt(&o)
	}
	if equal == nil {
		equal = func(a, b V) bool { return reflect.DeepEqual(a, b) }
	}
	k, err := r.intern(id, reflect.TypeFor[V](), Immutable, reflect.TypeFor[*Cell[V]](), o.transient)
	if err != nil {
		return ImmutableKey[V]{}, err
	}
	return ImmutableKey[V]{key: k, equal: equal}, nil
}

// ComponentKey returns the underlying key.
func (k ImmutableKey[V]) ComponentKey() *ComponentKey {
	return k.key
}

// ID returns the key id.
func (k ImmutableKey[V]) ID() string {
	return k.key.id
}

// Cell returns the cell c holds for k.
func (k ImmutableKey[V]) Cell(c *Container) (*Cell[V], bool) {
	comp, ok := c.Get(k.key)
	if !ok {
		return nil, false
	}
	cell, ok := comp.(*Cell[V])
	return cell, ok
}

func (k ImmutableKey[V]) mustCell(c *Container) *Cell[V] {
	cell, ok := k.Cell(c)
	if !ok {
		panic(fmt.Sprintf("cardinal: owner type %s has no component %s", c.desc.owner.name, k.key.id))
	}
	return cell
}

// Value returns the current value held by c for k.
// It panics if the owner type does not carry k.
func (k ImmutableKey[V]) Value(c *Container) V {
	return k.mustCell(c).Get()
}

// Set replaces the value held by c for k.
func (k ImmutableKey[V]) Set(c *Container, v V) {
	k.mustCell(c).Set(v)
}

// SetAndSync replaces the value and syncs it if it changed.
func (k ImmutableKey[V]) SetAndSync(c *Container, v V) bool {
	return k.mustCell(c).SetAndSync(v)
}

// Update replaces the value with f applied to it.
func (k ImmutableKey[V]) Update(c *Container, f func(V) V) {
	k.mustCell(c).Update(f)
}

// UpdateAndSync replaces the value with f applied to it and syncs it if it
// changed.
func (k ImmutableKey[V]) UpdateAndSync(c *Container, f func(V) V) bool {
	return k.mustCell(c).UpdateAndSync(f)
}

// Cell holds the current value of an immutable component for one owner
// instance. The owner is kept for lookups only; the cell lives and dies with
// the owner's container.
//
// Like the rest of a container, a cell must not be mutated concurrently.
type Cell[V any] struct {
	key   ImmutableKey[V]
	owner Owner
	value V
	sync  func()
}

func newCell[V any](key ImmutableKey[V], owner Owner, value V, c *Container) *Cell[V] {
	return &Cell[V]{
		key:   key,
		owner: owner,
		value: value,
		sync:  func() { c.notifySync(key.key) },
	}
}

// Key returns the key of the cell.
func (c *Cell[V]) Key() ImmutableKey[V] {
	return c.key
}

// Owner returns the owner instance of the cell.
func (c *Cell[V]) Owner() Owner {
	return c.owner
}

// Get returns the current value.
func (c *Cell[V]) Get() V {
	return c.value
}

// Set replaces the value unconditionally without syncing.
func (c *Cell[V]) Set(v V) {
	c.value = v
}

// Update replaces the value with f applied to it.
func (c *Cell[V]) Update(f func(V) V) {
	c.value = f(c.value)
}

// Modify replaces the value with m applied to it and the owner.
func (c *Cell[V]) Modify(m Modifier[V]) {
	c.value = m(c.value, c.owner)
}

// SetAndSync replaces the value and notifies the sync hook exactly once if
// the new value differs from the old one. It reports whether a sync ran.
func (c *Cell[V]) SetAndSync(v V) bool {
	old := c.value
	c.value = v
	if c.key.equal(old, v) {
		return false
	}
	if c.sync != nil {
		c.sync()
	}
	return true
}

// UpdateAndSync is Update followed by a sync when the value changed.
func (c *Cell[V]) UpdateAndSync(f func(V) V) bool {
	return c.SetAndSync(f(c.value))
}

// ModifyAndSync is Modify followed by a sync when the value changed.
func (c *Cell[V]) ModifyAndSync(m Modifier[V]) bool {
	return c.SetAndSync(m(c.value, c.owner))
}

// bindHook returns the trampoline running fn, a Modifier[V], for hook h.
// Server side hooks sync the value when it changed.
func (c *Cell[V]) bindHook(h Hook, fn any) func() {
	m := fn.(Modifier[V])
	if h.Server() {
		return func() { c.ModifyAndSync(m) }
	}
	return func() { c.Modify(m) }
}

// cellValueField is the tree entry holding a cell's value.
const cellValueField = "value"

// WriteTree stores the value in t unless the key is transient.
func (c *Cell[V]) WriteTree(t *tree.Compound) error {
	if c.key.key.transient {
		return nil
	}
	return tree.Put(t, cellValueField, c.value)
}

// ReadTree loads the value from t. A missing entry keeps the current value.
func (c *Cell[V]) ReadTree(t *tree.Compound) error {
	if c.key.key.transient {
		return nil
	}
	v, err := tree.Get[V](t, cellValueField)
	if errors.Is(err, tree.ErrMissing) {
		return nil
	}
	if err != nil {
		return err
	}
	c.value = v
	return nil
}

// WriteSync encodes the value for a remote peer.
func (c *Cell[V]) WriteSync() ([]byte, error) {
	return json.Marshal(c.value)
}

// ApplySync replaces the value with one received from a peer.
func (c *Cell[V]) ApplySync(data []byte) error {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode %s: %w", c.key.key.id, err)
	}
	c.value = v
	return nil
}

// CopyFrom takes the value of another cell of the same key.
func (c *Cell[V]) CopyFrom(src Component) error {
	other, ok := src.(*Cell[V])
	if !ok {
		return fmt.Errorf("copy %s from %T: %w", c.key.key.id, src, ErrIncompatibleImpl)
	}
	c.value = other.value
	return nil
}

// cellSlot is implemented by every Cell instantiation.
type cellSlot interface {
	bindHook(h Hook, fn any) func()
}

var _ interface {
	cellSlot
	TreePersistent
	WireSyncable
	Copyable
} = (*Cell[int])(nil)
