package dfhost

import (
	"context"
	"time"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

// saveTimeout bounds the store write made when a player quits.
const saveTimeout = 5 * time.Second

// Handler drives a session's container from player events. Every event is
// forwarded to the wrapped handler first.
//
// Concurrency:
// Dragonfly runs handlers within the player's world transaction, so they are
// serialized with the host's tick of that world.
type Handler struct {
	player.Handler
	session *Session
}

// NewHandler wraps next, which may be nil, with the session's lifecycle.
func NewHandler(s *Session, next player.Handler) *Handler {
	if next == nil {
		next = player.NopHandler{}
	}
	return &Handler{Handler: next, session: s}
}

// Compile-time check that Handler implements player.Handler.
var _ player.Handler = (*Handler)(nil)

// Session returns the session driven by the handler.
func (h *Handler) Session() *Session {
	return h.session
}

// HandleChangeWorld tracks the world of the player.
func (h *Handler) HandleChangeWorld(p *player.Player, before, after *world.World) {
	h.Handler.HandleChangeWorld(p, before, after)
	h.session.host.move(h.session, after)
}

// HandleDeath records whether the player keeps its inventory.
func (h *Handler) HandleDeath(p *player.Player, src world.DamageSource, keepInv *bool) {
	h.Handler.HandleDeath(p, src, keepInv)
	h.session.keepInventory.Store(keepInv != nil && *keepInv)
}

// HandleRespawn rebuilds the container of the player.
func (h *Handler) HandleRespawn(p *player.Player, pos *mgl64.Vec3, w **world.World) {
	h.Handler.HandleRespawn(p, pos, w)

	s := h.session
	if err := s.host.Respawn(s); err != nil {
		s.host.log.Error("cardinal: respawn failed", "player", s.name, "error", err)
	}
	if w != nil && *w != nil {
		s.host.move(s, *w)
	}
}

// HandleQuit unloads and saves the container of the player.
func (h *Handler) HandleQuit(p *player.Player) {
	h.Handler.HandleQuit(p)

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	s := h.session
	if err := s.host.Leave(ctx, s); err != nil {
		s.host.log.Error("cardinal: failed to save player", "player", s.name, "error", err)
	}
}
