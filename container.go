package cardinal

import (
	"fmt"
	"iter"
	"reflect"
)

// Container holds the components of one owner instance, laid out as its
// owner type's descriptor prescribes.
//
// Concurrency:
// A container is owned by the goroutine driving its owner, usually the world
// tick. It is not safe for concurrent mutation; distinct containers never
// share state.
type Container struct {
	registry *Registry
	desc     *Descriptor
	owner    Owner
	slots    []Component
	hooks    [hookCount][]func()
	syncer   Syncer
}

// ContainerOption configures a container at instantiation.
type ContainerOption func(*Container)

// WithSyncer sets the hook notified when a component needs syncing.
func WithSyncer(s Syncer) ContainerOption {
	return func(c *Container) {
		c.syncer = s
	}
}

// Instantiate builds the components of owner in the order of desc.
//
// A failing or panicking factory aborts the whole container and is reported
// as a ComponentInitError; nothing built so far escapes. Other containers and
// the registry are unaffected.
func (r *Registry) Instantiate(desc *Descriptor, owner Owner, opts ...ContainerOption) (*Container, error) {
	if err := r.checkInstantiating(); err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", desc.owner, err)
	}

	c := &Container{
		registry: r,
		desc:     desc,
		owner:    owner,
		slots:    make([]Component, len(desc.slots)),
	}
	for _, opt := range opts {
		opt(c)
	}

	for i := range desc.slots {
		s := &desc.slots[i]
		comp, err := build(s, owner, c)
		if err != nil {
			r.metrics.instantiateFailed(desc.owner.name)
			r.log.Warn("cardinal: component initialization failed",
				"owner", desc.owner.name,
				"component", s.key.id,
				"error", err)
			return nil, &ComponentInitError{Owner: desc.owner.name, Key: s.key.id, Cause: err}
		}
		c.slots[i] = comp
	}

	for h := range hookCount {
		idx := desc.hooks[h]
		if len(idx) == 0 {
			continue
		}
		calls := make([]func(), len(idx))
		for n, i := range idx {
			s := &desc.slots[i]
			if s.key.kind == Immutable {
				calls[n] = c.slots[i].(cellSlot).bindHook(h, s.modifiers[h])
			} else {
				calls[n] = h.method(c.slots[i])
			}
		}
		c.hooks[h] = calls
	}

	r.metrics.instantiated(desc.owner.name)
	return c, nil
}

// build runs the factory of s, turning panics into errors.
func build(s *Slot, owner Owner, c *Container) (comp Component, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			comp, err = nil, fmt.Errorf("factory panicked: %v", rec)
		}
	}()

	comp, err = s.factory(owner, c)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, fmt.Errorf("factory returned nil: %w", ErrIncompatibleImpl)
	}
	if t := reflect.TypeOf(comp); !t.AssignableTo(s.impl) {
		return nil, fmt.Errorf("factory returned %s, want %s: %w", t, s.impl, ErrIncompatibleImpl)
	}
	return comp, nil
}

// NewContainer specializes owner's type and instantiates a container for it.
func (r *Registry) NewContainer(t *OwnerType, owner Owner, opts ...ContainerOption) (*Container, error) {
	desc, err := r.Specialize(t)
	if err != nil {
		return nil, err
	}
	return r.Instantiate(desc, owner, opts...)
}

// Owner returns the owner instance.
func (c *Container) Owner() Owner {
	return c.owner
}

// Descriptor returns the layout the container was built from.
func (c *Container) Descriptor() *Descriptor {
	return c.desc
}

// Registry returns the registry the container was built by.
func (c *Container) Registry() *Registry {
	return c.registry
}

// Len returns the number of components.
func (c *Container) Len() int {
	return len(c.slots)
}

// Get returns the component stored for key in constant time.
// While the container is being built, components later in the order are
// reported absent.
func (c *Container) Get(key Keyed) (Component, bool) {
	i, ok := c.desc.SlotOf(key)
	if !ok {
		return nil, false
	}
	comp := c.slots[i]
	return comp, comp != nil
}

// Lookup returns the component stored under the key with the given id.
func (c *Container) Lookup(id string) (Component, bool) {
	k, ok := c.registry.Lookup(id)
	if !ok {
		return nil, false
	}
	return c.Get(k)
}

// Has reports whether the container carries key.
func (c *Container) Has(key Keyed) bool {
	_, ok := c.Get(key)
	return ok
}

// All iterates the components in initialization order.
func (c *Container) All() iter.Seq2[*ComponentKey, Component] {
	return func(yield func(*ComponentKey, Component) bool) {
		for i, comp := range c.slots {
			if comp == nil {
				continue
			}
			if !yield(c.desc.slots[i].key, comp) {
				return
			}
		}
	}
}

// Run invokes every component receiving hook h.
func (c *Container) Run(h Hook) {
	for _, fn := range c.hooks[h] {
		fn()
	}
}

// Ticks reports whether any component receives hook h.
func (c *Container) Ticks(h Hook) bool {
	return len(c.hooks[h]) > 0
}

// Tick runs the server tick of every ticking component.
func (c *Container) Tick() {
	c.Run(ServerTick)
}

// ClientTick runs the client tick of every client ticking component.
func (c *Container) ClientTick() {
	c.Run(ClientTick)
}

// Load notifies components that the owner loaded on the server.
func (c *Container) Load() {
	c.Run(ServerLoad)
}

// ClientLoad notifies components that the owner loaded on the client.
func (c *Container) ClientLoad() {
	c.Run(ClientLoad)
}

// Unload notifies components that the owner unloaded on the server.
func (c *Container) Unload() {
	c.Run(ServerUnload)
}

// ClientUnload notifies components that the owner unloaded on the client.
func (c *Container) ClientUnload() {
	c.Run(ClientUnload)
}
