package cardinal

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type level struct {
	value int
}

type mana struct {
	max int
}

func TestInstantiateReadsDependencies(t *testing.T) {
	r := bootstrapping(t)
	player := r.MustDeclareOwnerType("player", nil)

	levelKey, _ := RegisterKey[*level](r, "level")
	manaKey, _ := RegisterKey[*mana](r, "mana")

	b := r.Bootstrap("rpg", 1)
	require.NoError(t, Begin(b, player, manaKey).After(levelKey).End(func(_ Owner, c *Container) (*mana, error) {
		return &mana{max: 10 * levelKey.MustGet(c).value}, nil
	}))
	require.NoError(t, Begin(b, player, levelKey).End(func(Owner, *Container) (*level, error) {
		return &level{value: 3}, nil
	}))
	require.NoError(t, r.Freeze())

	c, err := r.NewContainer(player, "alex")
	require.NoError(t, err)
	assert.Equal(t, 30, manaKey.MustGet(c).max)
	assert.Equal(t, "alex", c.Owner())
	assert.Equal(t, 2, c.Len())

	var ids []string
	for k := range c.All() {
		ids = append(ids, k.ID())
	}
	assert.Equal(t, []string{"level", "mana"}, ids)
}

func TestInstantiateHidesLaterComponents(t *testing.T) {
	r := bootstrapping(t)
	owner := r.MustDeclareOwnerType("t", nil)

	first, _ := RegisterKey[*label](r, "first")
	second, _ := RegisterKey[*label](r, "second")

	var sawSecond bool
	require.NoError(t, r.RegisterStatic(owner, first, QualifiedFactory{Factory: func(_ Owner, c *Container) (Component, error) {
		sawSecond = c.Has(second)
		return &label{}, nil
	}}))
	require.NoError(t, r.RegisterStatic(owner, second, QualifiedFactory{Factory: constant(&label{})}))
	require.NoError(t, r.Freeze())

	c, err := r.NewContainer(owner, nil)
	require.NoError(t, err)
	assert.False(t, sawSecond)
	assert.True(t, c.Has(second))
}

func TestInstantiateFactoryFailure(t *testing.T) {
	r := bootstrapping(t)
	owner := r.MustDeclareOwnerType("t", nil)

	ok, _ := RegisterKey[*label](r, "ok")
	boom, _ := RegisterKey[*label](r, "boom")
	cause := errors.New("no database")

	require.NoError(t, r.RegisterStatic(owner, ok, QualifiedFactory{Factory: constant(&label{})}))
	require.NoError(t, r.RegisterStatic(owner, boom, QualifiedFactory{Factory: func(o Owner, _ *Container) (Component, error) {
		switch o {
		case "error":
			return nil, cause
		case "panic":
			panic("kaboom")
		}
		return &label{text: "fine"}, nil
	}}))
	require.NoError(t, r.Freeze())

	desc, err := r.Specialize(owner)
	require.NoError(t, err)

	tests := []struct {
		name  string
		owner string
		cause error
	}{
		{"error", "error", cause},
		{"panic", "panic", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := r.Instantiate(desc, tt.owner)
			assert.Nil(t, c)
			require.Error(t, err)
			assert.True(t, IsComponentInitFailed(err))
			assert.False(t, IsBootstrapFatal(err))

			var ie *ComponentInitError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, "boom", ie.Key)
			assert.Equal(t, "t", ie.Owner)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}

	c, err := r.Instantiate(desc, "healthy")
	require.NoError(t, err)
	assert.Equal(t, "fine", boom.MustGet(c).text)
}

func TestInstantiateRejectsWrongImpl(t *testing.T) {
	r := bootstrapping(t)
	owner := r.MustDeclareOwnerType("t", nil)
	k, _ := RegisterKey[any](r, "anything")

	require.NoError(t, r.RegisterStatic(owner, k, QualifiedFactory{
		Factory: constant(&label{}),
		Impl:    reflectTypeOf(&counter{}),
	}))
	require.NoError(t, r.Freeze())

	_, err := r.NewContainer(owner, nil)
	assert.ErrorIs(t, err, ErrComponentInitFailed)
	assert.ErrorIs(t, err, ErrIncompatibleImpl)
}

func TestInstantiatePhases(t *testing.T) {
	r := bootstrapping(t)
	owner := r.MustDeclareOwnerType("t", nil)
	require.NoError(t, r.Freeze())

	desc, err := r.Specialize(owner)
	require.NoError(t, err)

	fresh := bootstrapping(t)
	_, err = fresh.Instantiate(desc, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInstantiateAfterFailedBootstrap(t *testing.T) {
	r := bootstrapping(t)
	widget := r.MustDeclareOwnerType("widget", nil)
	gadget := r.MustDeclareOwnerType("gadget", nil)

	a, _ := RegisterKey[*label](r, "a")
	b, _ := RegisterKey[*label](r, "b")
	require.NoError(t, r.RegisterStatic(widget, a, QualifiedFactory{Factory: constant(&label{}), Dependencies: []*ComponentKey{b.ComponentKey()}}))
	require.NoError(t, r.RegisterStatic(widget, b, QualifiedFactory{Factory: constant(&label{}), Dependencies: []*ComponentKey{a.ComponentKey()}}))
	require.NoError(t, r.RegisterStatic(gadget, a, QualifiedFactory{Factory: constant(&label{})}))

	require.Error(t, r.Freeze())
	assert.False(t, r.Frozen())
	assert.ErrorIs(t, r.Err(), ErrCyclicDependency)

	desc, err := r.Specialize(gadget)
	require.NoError(t, err)
	_, err = r.Instantiate(desc, nil)
	assert.ErrorIs(t, err, ErrBootstrapFailed)

	assert.ErrorIs(t, r.Freeze(), ErrBootstrapFailed)
}

func TestConcurrentFreezeReportsFailure(t *testing.T) {
	r := bootstrapping(t)
	widget := r.MustDeclareOwnerType("widget", nil)
	a, _ := RegisterKey[*label](r, "a")
	b, _ := RegisterKey[*label](r, "b")
	require.NoError(t, r.RegisterStatic(widget, a, QualifiedFactory{Factory: constant(&label{}), Dependencies: []*ComponentKey{b.ComponentKey()}}))
	require.NoError(t, r.RegisterStatic(widget, b, QualifiedFactory{Factory: constant(&label{}), Dependencies: []*ComponentKey{a.ComponentKey()}}))

	const callers = 16
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = r.Freeze()
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.ErrorIs(t, err, ErrBootstrapFailed, "caller %d", i)
	}
	assert.False(t, r.Frozen())
}

func TestContainerTrampolines(t *testing.T) {
	r := bootstrapping(t)
	owner := r.MustDeclareOwnerType("t", nil)

	tick, _ := RegisterKey[*counter](r, "tick")
	name, _ := RegisterKey[*label](r, "name")
	require.NoError(t, r.RegisterStatic(owner, tick, QualifiedFactory{Factory: func(Owner, *Container) (Component, error) {
		return &counter{}, nil
	}}))
	require.NoError(t, r.RegisterStatic(owner, name, QualifiedFactory{Factory: constant(&label{})}))
	require.NoError(t, r.Freeze())

	a, err := r.NewContainer(owner, "a")
	require.NoError(t, err)
	b, err := r.NewContainer(owner, "b")
	require.NoError(t, err)

	a.Tick()
	a.Tick()
	a.Load()
	b.Tick()
	a.ClientTick()
	a.Unload()

	assert.Equal(t, 2, tick.MustGet(a).ticks)
	assert.True(t, tick.MustGet(a).loaded)
	assert.Equal(t, 1, tick.MustGet(b).ticks)
	assert.False(t, tick.MustGet(b).loaded)
	assert.True(t, a.Ticks(ServerTick))
	assert.False(t, a.Ticks(ClientTick))
}

func TestContainerLookup(t *testing.T) {
	r := bootstrapping(t)
	owner := r.MustDeclareOwnerType("t", nil)
	name, _ := RegisterKey[*label](r, "name")
	unused, _ := RegisterKey[*label](r, "unused")
	require.NoError(t, r.RegisterStatic(owner, name, QualifiedFactory{Factory: constant(&label{text: "x"})}))
	require.NoError(t, r.Freeze())

	c, err := r.NewContainer(owner, nil)
	require.NoError(t, err)

	comp, ok := c.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, "x", comp.(*label).text)

	_, ok = c.Lookup("missing")
	assert.False(t, ok)
	assert.False(t, unused.Has(c))
	assert.Panics(t, func() { unused.MustGet(c) })
}
