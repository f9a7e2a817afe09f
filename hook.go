package cardinal

import "reflect"

// Hook identifies a lifecycle event a container can dispatch to its
// components. Hooks run in declaration order: server before client, tick
// before load before unload.
type Hook uint8

const (
	// ServerTick runs once per server tick for every ticking owner.
	ServerTick Hook = iota

	// ClientTick runs once per client tick.
	ClientTick

	// ServerLoad runs when the owner is loaded into a server world.
	ServerLoad

	// ClientLoad runs when the owner is loaded on a client.
	ClientLoad

	// ServerUnload runs when the owner leaves a server world.
	ServerUnload

	// ClientUnload runs when the owner is unloaded on a client.
	ClientUnload

	// hookCount is the total number of hooks.
	hookCount
)

// Hooks returns every hook in dispatch order.
func Hooks() []Hook {
	return []Hook{ServerTick, ClientTick, ServerLoad, ClientLoad, ServerUnload, ClientUnload}
}

// String returns the string representation of the hook.
func (h Hook) String() string {
	switch h {
	case ServerTick:
		return "ServerTick"
	case ClientTick:
		return "ClientTick"
	case ServerLoad:
		return "ServerLoad"
	case ClientLoad:
		return "ClientLoad"
	case ServerUnload:
		return "ServerUnload"
	case ClientUnload:
		return "ClientUnload"
	default:
		return "Unknown"
	}
}

// Server reports whether the hook runs on the logical server.
func (h Hook) Server() bool {
	return h == ServerTick || h == ServerLoad || h == ServerUnload
}

// ServerTicker is implemented by components ticked on the server.
type ServerTicker interface {
	ServerTick()
}

// ClientTicker is implemented by components ticked on the client.
type ClientTicker interface {
	ClientTick()
}

// ServerLoader is implemented by components notified when their owner loads
// on the server.
type ServerLoader interface {
	ServerLoad()
}

// ClientLoader is implemented by components notified when their owner loads
// on the client.
type ClientLoader interface {
	ClientLoad()
}

// ServerUnloader is implemented by components notified when their owner
// unloads on the server.
type ServerUnloader interface {
	ServerUnload()
}

// ClientUnloader is implemented by components notified when their owner
// unloads on the client.
type ClientUnloader interface {
	ClientUnload()
}

// hookInterfaces maps each hook to the capability a component implements to
// receive it.
var hookInterfaces = [hookCount]reflect.Type{
	ServerTick:   reflect.TypeFor[ServerTicker](),
	ClientTick:   reflect.TypeFor[ClientTicker](),
	ServerLoad:   reflect.TypeFor[ServerLoader](),
	ClientLoad:   reflect.TypeFor[ClientLoader](),
	ServerUnload: reflect.TypeFor[ServerUnloader](),
	ClientUnload: reflect.TypeFor[ClientUnloader](),
}

// implementsHook reports whether values of type t receive hook h.
func implementsHook(t reflect.Type, h Hook) bool {
	return t != nil && t.Implements(hookInterfaces[h])
}

// method returns the bound entry point of comp for hook h.
// The type assertion happens once, when the trampoline is built.
func (h Hook) method(comp Component) func() {
	switch h {
	case ServerTick:
		return comp.(ServerTicker).ServerTick
	case ClientTick:
		return comp.(ClientTicker).ClientTick
	case ServerLoad:
		return comp.(ServerLoader).ServerLoad
	case ClientLoad:
		return comp.(ClientLoader).ClientLoad
	case ServerUnload:
		return comp.(ServerUnloader).ServerUnload
	case ClientUnload:
		return comp.(ClientUnloader).ClientUnload
	}
	return nil
}
