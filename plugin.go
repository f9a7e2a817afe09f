package cardinal

import (
	"fmt"
	"reflect"
)

// Plugin groups the registrations of one independently developed feature.
// Plugins are added to a Builder and bootstrapped concurrently; each one only
// sees its own Bootstrap.
type Plugin struct {
	name  string
	inits []func(*Bootstrap) error
}

// NewPlugin creates a new plugin with the given name.
func NewPlugin(name string) *Plugin {
	return &Plugin{name: name}
}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return p.name
}

// Init adds an entrypoint run during bootstrap. Entrypoints of one plugin run
// sequentially in the order they were added.
func (p *Plugin) Init(fn func(*Bootstrap) error) *Plugin {
	p.inits = append(p.inits, fn)
	return p
}

// Bootstrap is the registration surface handed to a plugin entrypoint.
// Every registration it makes is attributed to the plugin and ordered by the
// plugin's position in the builder, so concurrent bootstraps stay
// deterministic.
type Bootstrap struct {
	registry *Registry
	plugin   string
	ords     *ordinalSource
}

// Bootstrap returns a registration surface for the named plugin. index
// orders the plugin's registrations relative to other plugins.
func (r *Registry) Bootstrap(plugin string, index int) *Bootstrap {
	return &Bootstrap{registry: r, plugin: plugin, ords: &ordinalSource{plugin: index}}
}

// Registry returns the registry being bootstrapped.
func (b *Bootstrap) Registry() *Registry {
	return b.registry
}

// Plugin returns the name of the plugin the bootstrap belongs to.
func (b *Bootstrap) Plugin() string {
	return b.plugin
}

// DeclareOwnerType declares an owner type; see Registry.DeclareOwnerType.
func (b *Bootstrap) DeclareOwnerType(name string, parent *OwnerType) (*OwnerType, error) {
	return b.registry.DeclareOwnerType(name, parent)
}

// Intern interns a key; see Registry.Intern.
func (b *Bootstrap) Intern(id string, class reflect.Type) (*ComponentKey, error) {
	return b.registry.Intern(id, class)
}

// RegisterStatic registers a factory on owner for the plugin.
func (b *Bootstrap) RegisterStatic(owner *OwnerType, key Keyed, qf QualifiedFactory) error {
	qf.Plugin = b.plugin
	return b.registry.registerStatic(owner, key, qf, b.ords.next())
}

// RegisterDynamic registers a factory for owner types matching pred.
func (b *Bootstrap) RegisterDynamic(pred Predicate, key Keyed, qf QualifiedFactory) error {
	qf.Plugin = b.plugin
	return b.registry.registerDynamic(pred, key, qf, b.ords.next())
}

// SetCopyStrategy sets the copy strategy of key on owner.
func (b *Bootstrap) SetCopyStrategy(key Keyed, owner *OwnerType, s CopyStrategy) error {
	return b.registry.SetCopyStrategy(key, owner, s)
}

// Registration builds a registration of a mutable key.
//
// Example:
//
//	err := cardinal.Begin(b, player, ManaKey).
//	    After(LevelKey).
//	    CopyStrategy(cardinal.AlwaysCopy).
//	    End(func(o cardinal.Owner, c *cardinal.Container) (*Mana, error) {
//	        return &Mana{Max: 10 * LevelKey.MustGet(c).Level}, nil
//	    })
type Registration[C any] struct {
	b        *Bootstrap
	owner    *OwnerType
	key      Key[C]
	deps     []*ComponentKey
	impl     reflect.Type
	filter   Predicate
	strategy *CopyStrategy
}

// Begin starts a registration of key on owner.
func Begin[C any](b *Bootstrap, owner *OwnerType, key Key[C]) *Registration[C] {
	return &Registration[C]{b: b, owner: owner, key: key}
}

// After declares that the component must be built after deps.
func (r *Registration[C]) After(deps ...Keyed) *Registration[C] {
	for _, d := range deps {
		r.deps = append(r.deps, d.ComponentKey())
	}
	return r
}

// Impl declares the concrete type the factory returns. Hook membership is
// derived from it.
func (r *Registration[C]) Impl(t reflect.Type) *Registration[C] {
	r.impl = t
	return r
}

// Filter restricts the registration to the subtypes of owner matching p. A
// filtered registration is dynamic and loses to static ones.
func (r *Registration[C]) Filter(p Predicate) *Registration[C] {
	r.filter = p
	return r
}

// CopyStrategy sets how the component is copied when the owner is replaced.
func (r *Registration[C]) CopyStrategy(s CopyStrategy) *Registration[C] {
	r.strategy = &s
	return r
}

// End completes the registration with factory.
func (r *Registration[C]) End(factory func(owner Owner, c *Container) (C, error)) error {
	if factory == nil {
		return fmt.Errorf("register %s: nil factory: %w", r.key.ID(), ErrIncompatibleImpl)
	}
	impl := r.impl
	if impl == nil {
		impl = reflect.TypeFor[C]()
	}
	qf := QualifiedFactory{
		Factory: func(owner Owner, c *Container) (Component, error) {
			comp, err := factory(owner, c)
			if err != nil {
				return nil, err
			}
			return comp, nil
		},
		Impl:         impl,
		Dependencies: r.deps,
		Target:       r.owner,
	}
	return r.b.finish(r.owner, r.key, qf, r.filter, r.strategy)
}

// finish stores a registration built by Begin or BeginImmutable.
func (b *Bootstrap) finish(owner *OwnerType, key Keyed, qf QualifiedFactory, filter Predicate, strategy *CopyStrategy) error {
	var err error
	if filter != nil {
		err = b.RegisterDynamic(And(Under(owner), filter), key, qf)
	} else {
		err = b.RegisterStatic(owner, key, qf)
	}
	if err != nil {
		return err
	}
	if strategy != nil {
		return b.SetCopyStrategy(key, owner, *strategy)
	}
	return nil
}

// ImmutableRegistration builds a registration of an immutable key along with
// the callbacks of its hooks.
type ImmutableRegistration[V any] struct {
	b         *Bootstrap
	owner     *OwnerType
	key       ImmutableKey[V]
	deps      []*ComponentKey
	filter    Predicate
	strategy  *CopyStrategy
	callbacks [hookCount]Modifier[V]
}

// BeginImmutable starts a registration of an immutable key on owner.
func BeginImmutable[V any](b *Bootstrap, owner *OwnerType, key ImmutableKey[V]) *ImmutableRegistration[V] {
	return &ImmutableRegistration[V]{b: b, owner: owner, key: key}
}

// After declares that the component must be built after deps.
func (r *ImmutableRegistration[V]) After(deps ...Keyed) *ImmutableRegistration[V] {
	for _, d := range deps {
		r.deps = append(r.deps, d.ComponentKey())
	}
	return r
}

// Filter restricts the registration to the subtypes of owner matching p.
func (r *ImmutableRegistration[V]) Filter(p Predicate) *ImmutableRegistration[V] {
	r.filter = p
	return r
}

// CopyStrategy sets how the value is copied when the owner is replaced.
func (r *ImmutableRegistration[V]) CopyStrategy(s CopyStrategy) *ImmutableRegistration[V] {
	r.strategy = &s
	return r
}

// On sets the modifier run for hook h.
func (r *ImmutableRegistration[V]) On(h Hook, m Modifier[V]) *ImmutableRegistration[V] {
	r.callbacks[h] = m
	return r
}

// Listen sets a listener run for hook h.
func (r *ImmutableRegistration[V]) Listen(h Hook, l Listener[V]) *ImmutableRegistration[V] {
	return r.On(h, listen(l))
}

// OnServerTick sets the modifier run every server tick.
func (r *ImmutableRegistration[V]) OnServerTick(m Modifier[V]) *ImmutableRegistration[V] {
	return r.On(ServerTick, m)
}

// OnClientTick sets the modifier run every client tick.
func (r *ImmutableRegistration[V]) OnClientTick(m Modifier[V]) *ImmutableRegistration[V] {
	return r.On(ClientTick, m)
}

// OnServerLoad sets the modifier run when the owner loads on the server.
func (r *ImmutableRegistration[V]) OnServerLoad(m Modifier[V]) *ImmutableRegistration[V] {
	return r.On(ServerLoad, m)
}

// OnClientLoad sets the modifier run when the owner loads on the client.
func (r *ImmutableRegistration[V]) OnClientLoad(m Modifier[V]) *ImmutableRegistration[V] {
	return r.On(ClientLoad, m)
}

// OnServerUnload sets the modifier run when the owner unloads on the server.
func (r *ImmutableRegistration[V]) OnServerUnload(m Modifier[V]) *ImmutableRegistration[V] {
	return r.On(ServerUnload, m)
}

// OnClientUnload sets the modifier run when the owner unloads on the client.
func (r *ImmutableRegistration[V]) OnClientUnload(m Modifier[V]) *ImmutableRegistration[V] {
	return r.On(ClientUnload, m)
}

// End completes the registration. factory computes the initial value of
// every new owner instance.
func (r *ImmutableRegistration[V]) End(factory func(owner Owner) V) error {
	if factory == nil {
		return fmt.Errorf("register %s: nil factory: %w", r.key.ID(), ErrIncompatibleImpl)
	}
	key := r.key
	qf := QualifiedFactory{
		Factory: func(owner Owner, c *Container) (Component, error) {
			return newCell(key, owner, factory(owner), c), nil
		},
		Dependencies: r.deps,
		Target:       r.owner,
	}
	if err := r.b.finish(r.owner, r.key, qf, r.filter, r.strategy); err != nil {
		return err
	}
	for _, h := range Hooks() {
		if m := r.callbacks[h]; m != nil {
			if err := RegisterCallback(r.b.registry, r.b.plugin, h, key, r.owner, m); err != nil {
				return err
			}
		}
	}
	return nil
}
