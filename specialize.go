package cardinal

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Slot describes one component position of a specialized container.
type Slot struct {
	key      *ComponentKey
	impl     reflect.Type
	plugin   string
	deps     []*ComponentKey
	factory  ComponentFactory
	target   *OwnerType
	dynamic  bool
	strategy CopyStrategy

	// hooks has bit h set when the slot receives hook h.
	hooks uint8

	// modifiers holds the callbacks baked in for immutable slots, indexed by
	// hook. Each entry is a Modifier of the key's value type.
	modifiers [hookCount]any
}

// Key returns the component key stored in the slot.
func (s *Slot) Key() *ComponentKey {
	return s.key
}

// Impl returns the implementation type of the slot.
func (s *Slot) Impl() reflect.Type {
	return s.impl
}

// Plugin returns the plugin that registered the factory.
func (s *Slot) Plugin() string {
	return s.plugin
}

// Dependencies returns the keys the factory declared it depends on.
func (s *Slot) Dependencies() []*ComponentKey {
	return slices.Clone(s.deps)
}

// Dynamic reports whether the slot came from a predicate registration.
func (s *Slot) Dynamic() bool {
	return s.dynamic
}

// CopyStrategy returns the strategy applied when the owner is copied.
func (s *Slot) CopyStrategy() CopyStrategy {
	return s.strategy
}

// Receives reports whether the slot is invoked for hook h.
func (s *Slot) Receives(h Hook) bool {
	return s.hooks&(1<<h) != 0
}

// Descriptor is the specialized layout of an owner type: one slot per
// applicable key in initialization order, the index from key to slot, and
// for every hook the slots that receive it.
//
// A descriptor is immutable once published and safe for concurrent reads.
type Descriptor struct {
	owner   *OwnerType
	slots   []Slot
	slotOf  []int32
	present Bitset
	hooks   [hookCount][]int
}

// Owner returns the owner type the descriptor was built for.
func (d *Descriptor) Owner() *OwnerType {
	return d.owner
}

// Len returns the number of slots.
func (d *Descriptor) Len() int {
	return len(d.slots)
}

// Slot returns the slot at position i.
func (d *Descriptor) Slot(i int) *Slot {
	return &d.slots[i]
}

// Keys returns the slot keys in initialization order.
func (d *Descriptor) Keys() []*ComponentKey {
	out := make([]*ComponentKey, len(d.slots))
	for i := range d.slots {
		out[i] = d.slots[i].key
	}
	return out
}

// SlotOf returns the slot position of key in constant time.
func (d *Descriptor) SlotOf(key Keyed) (int, bool) {
	k := key.ComponentKey()
	if k == nil || k.index >= len(d.slotOf) {
		return -1, false
	}
	i := d.slotOf[k.index]
	return int(i), i >= 0
}

// Has reports whether the owner type carries key.
func (d *Descriptor) Has(key Keyed) bool {
	k := key.ComponentKey()
	return k != nil && d.present.Has(k.index)
}

// Hooked returns the slot positions receiving hook h, in invocation order.
func (d *Descriptor) Hooked(h Hook) []int {
	return slices.Clone(d.hooks[h])
}

type specializeEntry struct {
	once sync.Once
	desc *Descriptor
	err  error
}

// Specialize returns the descriptor of owner, computing it on first use.
// Calling it again for the same owner type returns the same descriptor.
func (r *Registry) Specialize(owner *OwnerType) (*Descriptor, error) {
	if err := r.checkServing(); err != nil {
		return nil, fmt.Errorf("specialize %s: %w", owner, err)
	}
	if owner == nil {
		return nil, fmt.Errorf("specialize: nil owner type: %w", ErrInvalidIdentifier)
	}

	v, _ := r.descriptors.LoadOrStore(owner, &specializeEntry{})
	e := v.(*specializeEntry)
	e.once.Do(func() {
		e.desc, e.err = r.specialize(owner)
	})
	return e.desc, e.err
}

func (r *Registry) specialize(owner *OwnerType) (*Descriptor, error) {
	res, err := r.Resolve(owner)
	if err != nil {
		return nil, err
	}

	nkeys := len(r.keyList)
	d := &Descriptor{
		owner:   owner,
		slots:   make([]Slot, len(res.entries)),
		slotOf:  make([]int32, nkeys),
		present: NewBitset(nkeys),
	}
	for i := range d.slotOf {
		d.slotOf[i] = -1
	}

	for i, reg := range res.entries {
		s := &d.slots[i]
		*s = Slot{
			key:      reg.key,
			impl:     reg.factory.Impl,
			plugin:   reg.factory.Plugin,
			deps:     reg.factory.Dependencies,
			factory:  reg.factory.Factory,
			target:   reg.factory.Target,
			dynamic:  reg.dynamic(),
			strategy: r.copyStrategy(reg.key, owner),
		}

		target := s.target
		if target == nil {
			target = owner
		}
		for _, h := range Hooks() {
			switch reg.key.kind {
			case Mutable:
				if !implementsHook(s.impl, h) {
					continue
				}
			case Immutable:
				fn, ok := r.targetCallback(h, reg.key.id, target)
				if !ok {
					continue
				}
				s.modifiers[h] = fn
			}
			s.hooks |= 1 << h
			d.hooks[h] = append(d.hooks[h], i)
		}

		d.slotOf[reg.key.index] = int32(i)
		d.present.Set(reg.key.index)
	}

	r.metrics.specialized()
	r.log.Debug("cardinal: specialized owner type",
		"owner", owner.name,
		"slots", len(d.slots),
		"ticking", len(d.hooks[ServerTick]))
	return d, nil
}
