package dfhost

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/form"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// console is a command source that is not a player.
type console struct{ cmd.Source }

// kiosk is a form submitter that is not a player.
type kiosk struct{ form.Submitter }

// dispenser is an item user that is not a player.
type dispenser struct{ item.User }

func TestHelpersNonPlayer(t *testing.T) {
	p, s := Command(console{})
	assert.Nil(t, p)
	assert.Nil(t, s)

	p, s = Form(kiosk{})
	assert.Nil(t, p)
	assert.Nil(t, s)

	p, s = Item(dispenser{})
	assert.Nil(t, p)
	assert.Nil(t, s)
}

func TestAttach(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := world.Config{
		Log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		ReadOnly:     true,
		SaveInterval: -1,
		Entities:     entity.DefaultRegistry,
	}.New()
	t.Cleanup(func() { _ = w.Close() })

	var (
		attached  *Session
		attachErr error
		before    [3]*Session
		after     [3]*Session
		players   [3]*player.Player
	)
	<-w.Exec(func(tx *world.Tx) {
		p := tx.AddEntity(world.NewEntity(player.Type, player.Config{Name: "Steve"})).(*player.Player)
		defer tx.RemoveEntity(p)

		_, before[0] = Command(p)
		_, before[1] = Form(p)
		_, before[2] = Item(p)

		attached, attachErr = f.host.Attach(ctx, p)

		players[0], after[0] = Command(p)
		players[1], after[1] = Form(p)
		players[2], after[2] = Item(p)
		for i := range players {
			if players[i] != p {
				players[i] = nil
			}
		}
	})

	require.NoError(t, attachErr)
	require.NotNil(t, attached)
	assert.Equal(t, "Steve", attached.Name())
	assert.Same(t, w, attached.World())
	assert.Same(t, attached, f.host.SessionByName("Steve"))

	for i := range before {
		assert.Nil(t, before[i], "helper %d before attach", i)
		assert.NotNil(t, players[i], "helper %d player", i)
		assert.Same(t, attached, after[i], "helper %d after attach", i)
	}

	require.NoError(t, f.host.Leave(ctx, attached))
}
