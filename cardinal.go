// Package cardinal attaches typed components to the instances of an open
// hierarchy of owner types.
//
// Plugins register, during a bootstrap phase, which components each owner
// type carries and which factories build them. Once the registry is frozen
// every concrete owner type is specialized exactly once into a Descriptor: a
// fixed slot layout in dependency order, an index from key to slot, and for
// every lifecycle hook the list of slots receiving it. Containers built from
// a descriptor answer lookups by slot index and run hooks through bound
// trampolines, without revisiting the registrations.
//
// # Quick Start
//
// Declare owner types, keys and registrations, then freeze:
//
//	energy := cardinal.NewPlugin("energy").Init(func(b *cardinal.Bootstrap) error {
//	    player, _ := b.Registry().OwnerType("player")
//	    key, err := cardinal.RegisterImmutableKey[int](b.Registry(), "mymod:energy")
//	    if err != nil {
//	        return err
//	    }
//	    return cardinal.BeginImmutable(b, player, key).
//	        OnServerTick(func(v int, _ cardinal.Owner) int { return min(v+1, 100) }).
//	        End(func(cardinal.Owner) int { return 0 })
//	})
//
//	reg := cardinal.NewBuilder().
//	    OwnerTypes(declareTypes).
//	    Plugin(energy).
//	    Init()
//
//	c, err := reg.NewContainer(player, p)
//	c.Tick()
//
// # Components
//
// Mutable components are plain Go values stored as returned by their factory.
// Immutable components are values wrapped in a Cell; they change by
// replacement and sync only when the new value differs from the old one.
//
// # Hooks
//
//	ServerTicker    ServerTick()
//	ClientTicker    ClientTick()
//	ServerLoader    ServerLoad()
//	ClientLoader    ClientLoad()
//	ServerUnloader  ServerUnload()
//	ClientUnloader  ClientUnload()
//
// Immutable components receive hooks through callbacks registered per
// component id and owner type instead.
package cardinal

// Version is the cardinal version.
const Version = "1.0.0"
