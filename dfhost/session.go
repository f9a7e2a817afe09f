package dfhost

import (
	"fmt"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/google/uuid"

	"github.com/oriumgames/cardinal"
)

// Session is a connected player and its container. The session itself is
// the owner instance of the container.
//
// Concurrency:
// The container is driven from the player's world transaction, by handlers
// and by the host's tick. Respawning swaps the container atomically; code
// holding the previous container keeps a valid but stale view.
type Session struct {
	host   *Host
	handle *world.EntityHandle
	uuid   uuid.UUID
	name   string
	xuid   string

	container     atomic.Pointer[cardinal.Container]
	world         atomic.Pointer[world.World]
	keepInventory atomic.Bool
	closed        atomic.Bool
}

// Host returns the host of the session.
func (s *Session) Host() *Host {
	return s.host
}

// Handle returns the player's entity handle.
func (s *Session) Handle() *world.EntityHandle {
	return s.handle
}

// UUID returns the player's UUID.
func (s *Session) UUID() uuid.UUID {
	return s.uuid
}

// Name returns the player's name.
func (s *Session) Name() string {
	return s.name
}

// XUID returns the player's XUID.
func (s *Session) XUID() string {
	return s.xuid
}

// Container returns the player's current container.
func (s *Session) Container() *cardinal.Container {
	return s.container.Load()
}

// World returns the last known world of the player.
func (s *Session) World() *world.World {
	return s.world.Load()
}

// Closed reports whether the player left.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Player returns the player within tx, or false if it is not part of it.
func (s *Session) Player(tx *world.Tx) (*player.Player, bool) {
	if s.handle == nil {
		return nil, false
	}
	e, ok := s.handle.Entity(tx)
	if !ok {
		return nil, false
	}
	p, ok := e.(*player.Player)
	return p, ok
}

// Exec runs fn within the player's world transaction.
// It returns false if the player is offline or the session is closed.
func (s *Session) Exec(fn func(tx *world.Tx, p *player.Player)) bool {
	if s.closed.Load() || s.handle == nil {
		return false
	}
	return s.handle.ExecWorld(func(tx *world.Tx, e world.Entity) {
		if p, ok := e.(*player.Player); ok {
			fn(tx, p)
		}
	})
}

// String returns a representation of the session for debugging.
func (s *Session) String() string {
	var ids []string
	if c := s.Container(); c != nil {
		for k := range c.All() {
			ids = append(ids, k.ID())
		}
	}
	return fmt.Sprintf("Session{Name: %s, UUID: %s, Components: %v}", s.name, s.uuid, ids)
}
