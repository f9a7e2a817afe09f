// Package dfhost runs cardinal containers for dragonfly players.
//
// A Host keeps one container per connected player. It loads the container
// from a store when the player joins, runs server ticks inside the player's
// world transaction, rebuilds the container on respawn following each
// component's copy strategy and saves it when the player quits.
//
//	host, err := dfhost.New(registry, dfhost.WithStore(store))
//	host.Start()
//	defer host.Shutdown(ctx)
//
//	for p := range srv.Accept() {
//	    if _, err := host.Attach(ctx, p); err != nil {
//	        p.Disconnect("failed to load player data")
//	    }
//	}
package dfhost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/google/uuid"

	"github.com/oriumgames/cardinal"
	"github.com/oriumgames/cardinal/ddbstore"
	"github.com/oriumgames/cardinal/tree"
)

// ErrAlreadyJoined is returned when a player joins twice.
var ErrAlreadyJoined = errors.New("dfhost: player already joined")

// Identity identifies a player owner.
type Identity struct {
	Handle *world.EntityHandle
	UUID   uuid.UUID
	Name   string
	XUID   string
}

// PlayerIdentity returns the identity of p.
func PlayerIdentity(p *player.Player) Identity {
	return Identity{Handle: p.H(), UUID: p.UUID(), Name: p.Name(), XUID: p.XUID()}
}

// Option configures a Host.
type Option func(*Host)

// WithStore sets where player trees are loaded from and saved to.
func WithStore(s ddbstore.Store) Option {
	return func(h *Host) {
		h.store = s
	}
}

// WithSyncer sets the syncer of every player container.
func WithSyncer(s cardinal.Syncer) Option {
	return func(h *Host) {
		h.syncer = s
	}
}

// WithLogger overrides the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		h.log = l
	}
}

// WithTickRate overrides the configured tick rate.
func WithTickRate(d time.Duration) Option {
	return func(h *Host) {
		h.tickRate = d
	}
}

// Host owns the containers of connected players.
// Multiple hosts may share a registry, for instance one per server.
type Host struct {
	registry *cardinal.Registry
	types    OwnerTypes
	store    ddbstore.Store
	syncer   cardinal.Syncer
	log      *slog.Logger
	tickRate time.Duration

	// sessions indexes sessions by uuid, handle, name and world
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	byHandle map[*world.EntityHandle]*Session
	byName   map[string]*Session
	byWorld  map[*world.World]map[*Session]struct{}

	running    atomic.Bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	tickNumber atomic.Uint64
}

// New creates a host on a frozen registry.
func New(r *cardinal.Registry, opts ...Option) (*Host, error) {
	types, err := DeclareOwnerTypes(r)
	if err != nil {
		return nil, fmt.Errorf("dfhost: %w", err)
	}
	h := &Host{
		registry: r,
		types:    types,
		log:      r.Logger(),
		tickRate: r.Config().TickRate,
		sessions: make(map[uuid.UUID]*Session),
		byHandle: make(map[*world.EntityHandle]*Session),
		byName:   make(map[string]*Session),
		byWorld:  make(map[*world.World]map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.tickRate <= 0 {
		h.tickRate = 50 * time.Millisecond // 20 TPS
	}
	return h, nil
}

// Registry returns the registry containers are built from.
func (h *Host) Registry() *cardinal.Registry {
	return h.registry
}

// OwnerTypes returns the entity owner types.
func (h *Host) OwnerTypes() OwnerTypes {
	return h.types
}

// Attach joins p and installs a handler driving its container. Handlers set
// on p before are still called.
func (h *Host) Attach(ctx context.Context, p *player.Player) (*Session, error) {
	s, err := h.Join(ctx, PlayerIdentity(p), p.Tx().World())
	if err != nil {
		return nil, err
	}
	p.Handle(NewHandler(s, p.Handler()))
	return s, nil
}

// Join builds the container of a player, restores it from the store and
// runs its load hooks.
func (h *Host) Join(ctx context.Context, id Identity, w *world.World) (*Session, error) {
	if h.SessionByUUID(id.UUID) != nil {
		return nil, fmt.Errorf("join %s: %w", id.Name, ErrAlreadyJoined)
	}

	s := &Session{host: h, handle: id.Handle, uuid: id.UUID, name: id.Name, xuid: id.XUID}
	s.world.Store(w)

	c, err := h.newContainer(s)
	if err != nil {
		return nil, fmt.Errorf("join %s: %w", id.Name, err)
	}
	if err := h.load(ctx, s, c); err != nil {
		return nil, fmt.Errorf("join %s: %w", id.Name, err)
	}
	s.container.Store(c)

	if err := h.add(s); err != nil {
		return nil, fmt.Errorf("join %s: %w", id.Name, err)
	}
	c.Load()
	h.log.Debug("cardinal: player joined", "player", s.name, "components", c.Len())
	return s, nil
}

// Leave runs the unload hooks of the session, saves it and forgets it.
// Leaving twice is a no-op.
func (h *Host) Leave(ctx context.Context, s *Session) error {
	if s.closed.Swap(true) {
		return nil
	}
	defer h.remove(s)

	c := s.Container()
	c.Unload()
	if err := h.save(ctx, s, c); err != nil {
		return fmt.Errorf("leave %s: %w", s.name, err)
	}
	h.log.Debug("cardinal: player left", "player", s.name)
	return nil
}

// Save writes the session's container to the store.
func (h *Host) Save(ctx context.Context, s *Session) error {
	return h.save(ctx, s, s.Container())
}

// Respawn replaces the container of s by a fresh one. Components whose copy
// strategy allows it are copied over; inventories count as kept when the
// last death kept them.
func (h *Host) Respawn(s *Session) error {
	return h.replace(s, cardinal.CopyContext{KeepInventory: s.keepInventory.Load()})
}

// replace swaps the container of s for a new one copied from the old one.
func (h *Host) replace(s *Session, ctx cardinal.CopyContext) error {
	old := s.Container()
	c, err := h.newContainer(s)
	if err != nil {
		return fmt.Errorf("respawn %s: %w", s.name, err)
	}
	if err := c.CopyFrom(old, ctx); err != nil {
		return fmt.Errorf("respawn %s: %w", s.name, err)
	}
	old.Unload()
	s.container.Store(c)
	c.Load()
	return nil
}

// Shutdown stops ticking and makes every session leave.
func (h *Host) Shutdown(ctx context.Context) error {
	h.Stop()

	var errs []error
	for _, s := range h.Sessions() {
		if err := h.Leave(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Host) newContainer(s *Session) (*cardinal.Container, error) {
	var opts []cardinal.ContainerOption
	if h.syncer != nil {
		opts = append(opts, cardinal.WithSyncer(h.syncer))
	}
	return h.registry.NewContainer(h.types.Player, s, opts...)
}

func (h *Host) load(ctx context.Context, s *Session, c *cardinal.Container) error {
	if h.store == nil {
		return nil
	}
	root, err := h.store.Load(ctx, s.uuid.String())
	if errors.Is(err, ddbstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.ReadTree(root)
}

func (h *Host) save(ctx context.Context, s *Session, c *cardinal.Container) error {
	if h.store == nil {
		return nil
	}
	root := tree.NewCompound()
	if err := c.WriteTree(root); err != nil {
		return err
	}
	return h.store.Save(ctx, s.uuid.String(), root)
}

// add indexes s. Joins racing on the same uuid are settled here.
func (h *Host) add(s *Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s.uuid]; ok {
		return ErrAlreadyJoined
	}
	h.sessions[s.uuid] = s
	if s.handle != nil {
		h.byHandle[s.handle] = s
	}
	h.byName[s.name] = s
	h.index(s, s.World())
	return nil
}

func (h *Host) remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, s.uuid)
	if s.handle != nil {
		delete(h.byHandle, s.handle)
	}
	delete(h.byName, s.name)
	h.unindex(s, s.World())
}

// move updates the world of s.
func (h *Host) move(s *Session, to *world.World) {
	h.mu.Lock()
	defer h.mu.Unlock()

	from := s.world.Swap(to)
	if from == to || s.closed.Load() {
		return
	}
	h.unindex(s, from)
	h.index(s, to)
}

func (h *Host) index(s *Session, w *world.World) {
	if h.byWorld[w] == nil {
		h.byWorld[w] = make(map[*Session]struct{})
	}
	h.byWorld[w][s] = struct{}{}
}

func (h *Host) unindex(s *Session, w *world.World) {
	if set := h.byWorld[w]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(h.byWorld, w)
		}
	}
}

// Session returns the session of p, or nil.
func (h *Host) Session(p *player.Player) *Session {
	return h.SessionByHandle(p.H())
}

// SessionByHandle returns the session of an entity handle, or nil.
func (h *Host) SessionByHandle(handle *world.EntityHandle) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byHandle[handle]
}

// SessionByUUID returns the session of a player uuid, or nil.
func (h *Host) SessionByUUID(id uuid.UUID) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[id]
}

// SessionByName returns the session of a player name, or nil.
func (h *Host) SessionByName(name string) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byName[name]
}

// Sessions returns every open session.
func (h *Host) Sessions() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if !s.closed.Load() {
			out = append(out, s)
		}
	}
	return out
}

// SessionsInWorld returns the open sessions in w.
func (h *Host) SessionsInWorld(w *world.World) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.byWorld[w]
	out := make([]*Session, 0, len(set))
	for s := range set {
		if !s.closed.Load() {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the number of sessions.
func (h *Host) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// grouped returns a snapshot of the sessions grouped by world.
func (h *Host) grouped() map[*world.World][]*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[*world.World][]*Session, len(h.byWorld))
	for w, set := range h.byWorld {
		list := make([]*Session, 0, len(set))
		for s := range set {
			list = append(list, s)
		}
		out[w] = list
	}
	return out
}
