package cardinal

import (
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"
)

// ComponentFactory builds the component of one owner instance.
// The container is partially built: components the factory depends on are
// already present and may be read with Get.
type ComponentFactory func(owner Owner, c *Container) (Component, error)

// QualifiedFactory is a factory together with what the specializer needs to
// know about it.
type QualifiedFactory struct {
	// Factory builds the component.
	Factory ComponentFactory

	// Impl is the concrete type the factory returns. Hook membership is
	// derived from it. Defaults to the key's slot type.
	Impl reflect.Type

	// Dependencies are keys whose components must be built first.
	// Dependencies that are not present on an owner type are ignored.
	Dependencies []*ComponentKey

	// Target is the owner type the registration was declared for. Callbacks
	// and copy strategies registered for Target apply to the component.
	Target *OwnerType

	// Plugin names the plugin that made the registration.
	Plugin string
}

// ordinal orders registrations deterministically: by plugin position in the
// builder first, then by the order each plugin registered in.
type ordinal struct {
	plugin int
	seq    uint64
}

func (o ordinal) less(p ordinal) bool {
	if o.plugin != p.plugin {
		return o.plugin < p.plugin
	}
	return o.seq < p.seq
}

// ordinalSource hands out ordinals for a single plugin.
type ordinalSource struct {
	plugin int
	seq    atomic.Uint64
}

func (s *ordinalSource) next() ordinal {
	return ordinal{plugin: s.plugin, seq: s.seq.Add(1)}
}

// registration is a stored factory entry.
type registration struct {
	key     *ComponentKey
	factory QualifiedFactory
	pred    Predicate
	ordinal ordinal
}

func (g *registration) dynamic() bool {
	return g.pred != nil
}

// staticTable keeps the static registrations of one owner type in
// registration order.
type staticTable struct {
	entries []*registration
	byKey   map[*ComponentKey]*registration
}

// RegisterStatic binds key to owner with the given factory. The registration
// is inherited by every subtype of owner that does not register key itself.
func (r *Registry) RegisterStatic(owner *OwnerType, key Keyed, qf QualifiedFactory) error {
	return r.registerStatic(owner, key, qf, r.direct.next())
}

// RegisterDynamic binds key to every owner type matching pred.
// Dynamic registrations are only consulted for keys no static registration
// provides; among dynamic ones, the first registered match wins.
func (r *Registry) RegisterDynamic(pred Predicate, key Keyed, qf QualifiedFactory) error {
	return r.registerDynamic(pred, key, qf, r.direct.next())
}

func (r *Registry) registerStatic(owner *OwnerType, keyed Keyed, qf QualifiedFactory, ord ordinal) error {
	if owner == nil {
		return fmt.Errorf("register static: nil owner type: %w", ErrInvalidIdentifier)
	}
	key := keyed.ComponentKey()
	if qf.Target == nil {
		qf.Target = owner
	}
	reg, err := newRegistration(key, qf, nil, ord)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRegistering(); err != nil {
		return fmt.Errorf("register %s on %s: %w", key.id, owner.name, err)
	}

	tbl := r.static[owner]
	if tbl == nil {
		tbl = &staticTable{byKey: make(map[*ComponentKey]*registration)}
		r.static[owner] = tbl
	}
	if _, ok := tbl.byKey[key]; ok {
		return &DuplicateRegistrationError{Owner: owner.name, Key: key.id}
	}
	tbl.entries = append(tbl.entries, reg)
	tbl.byKey[key] = reg
	return nil
}

func (r *Registry) registerDynamic(pred Predicate, keyed Keyed, qf QualifiedFactory, ord ordinal) error {
	if pred == nil {
		return fmt.Errorf("register dynamic: nil predicate: %w", ErrInvalidIdentifier)
	}
	key := keyed.ComponentKey()
	reg, err := newRegistration(key, qf, pred, ord)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRegistering(); err != nil {
		return fmt.Errorf("register dynamic %s: %w", key.id, err)
	}

	// Keep dynamic registrations sorted by ordinal so plugins that bootstrap
	// concurrently still produce the same evaluation order.
	i := len(r.dynamic)
	for i > 0 && reg.ordinal.less(r.dynamic[i-1].ordinal) {
		i--
	}
	r.dynamic = append(r.dynamic, nil)
	copy(r.dynamic[i+1:], r.dynamic[i:])
	r.dynamic[i] = reg
	return nil
}

func newRegistration(key *ComponentKey, qf QualifiedFactory, pred Predicate, ord ordinal) (*registration, error) {
	if key == nil {
		return nil, fmt.Errorf("register: nil key: %w", ErrUnknownKey)
	}
	if qf.Factory == nil {
		return nil, fmt.Errorf("register %s: nil factory: %w", key.id, ErrIncompatibleImpl)
	}
	qf.Dependencies = slices.DeleteFunc(slices.Clone(qf.Dependencies), func(k *ComponentKey) bool { return k == nil })
	if qf.Impl == nil {
		qf.Impl = key.slotType
	}
	if !qf.Impl.AssignableTo(key.slotType) {
		return nil, fmt.Errorf("register %s: %s does not implement %s: %w", key.id, qf.Impl, key.slotType, ErrIncompatibleImpl)
	}
	return &registration{
		key:     key,
		factory: qf,
		pred:    pred,
		ordinal: ord,
	}, nil
}
