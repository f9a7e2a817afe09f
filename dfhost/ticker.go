package dfhost

import (
	"runtime/debug"
	"time"

	"github.com/df-mc/dragonfly/server/world"
)

// Start begins ticking containers at the host's tick rate.
func (h *Host) Start() {
	if h.running.Swap(true) {
		return
	}
	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})
	go h.tickLoop(h.stopCh, h.doneCh)
}

// Stop stops the tick loop and waits for it to exit.
func (h *Host) Stop() {
	if !h.running.Swap(false) {
		return
	}
	close(h.stopCh)
	<-h.doneCh
}

// TickNumber returns the number of ticks run so far.
func (h *Host) TickNumber() uint64 {
	return h.tickNumber.Load()
}

func (h *Host) tickLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.Tick()
		}
	}
}

// Tick runs the server tick hooks of every container once. Containers of
// players in a world tick inside that world's transaction; sessions without
// a world tick inline.
func (h *Host) Tick() {
	h.tickNumber.Add(1)

	for w, sessions := range h.grouped() {
		if w == nil {
			h.runTick(nil, sessions)
			continue
		}
		w.Exec(func(tx *world.Tx) {
			h.runTick(tx, sessions)
		})
	}
}

func (h *Host) runTick(tx *world.Tx, sessions []*Session) {
	for _, s := range sessions {
		if s.Closed() {
			continue
		}
		if tx != nil && s.handle != nil {
			if _, ok := s.handle.Entity(tx); !ok {
				continue
			}
		}
		h.tickSession(s)
	}
}

// tickSession ticks one container. A panicking component is logged and the
// remaining players keep ticking.
func (h *Host) tickSession(s *Session) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("cardinal: panic in server tick",
				"player", s.name,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	s.Container().Tick()
}
