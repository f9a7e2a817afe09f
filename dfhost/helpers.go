package dfhost

import (
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/form"
)

// sessionOf extracts the session from a player's handler.
// Returns nil if the player is not attached to a host.
func sessionOf(p *player.Player) *Session {
	h, ok := p.Handler().(*Handler)
	if !ok {
		return nil
	}
	return h.session
}

// Command extracts the player and session from a command source.
// Returns (nil, nil) if the source is not a player.
//
// Usage:
//
//	func (c Stats) Run(src cmd.Source, out *cmd.Output, tx *world.Tx) {
//	    p, sess := dfhost.Command(src)
//	    if sess == nil {
//	        out.Error("Player-only command")
//	        return
//	    }
//	    out.Printf("level %d", LevelKey.MustGet(sess.Container()).Level)
//	}
func Command(src cmd.Source) (*player.Player, *Session) {
	p, ok := src.(*player.Player)
	if !ok {
		return nil, nil
	}
	return p, sessionOf(p)
}

// Form extracts the player and session from a form submitter.
// Returns (nil, nil) if the submitter is not a player.
func Form(sub form.Submitter) (*player.Player, *Session) {
	p, ok := sub.(*player.Player)
	if !ok {
		return nil, nil
	}
	return p, sessionOf(p)
}

// Item extracts the player and session from an item user.
// Returns (nil, nil) if the user is not a player.
func Item(user item.User) (*player.Player, *Session) {
	p, ok := user.(*player.Player)
	if !ok {
		return nil, nil
	}
	return p, sessionOf(p)
}
