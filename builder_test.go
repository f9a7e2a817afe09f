package cardinal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entityTypes(r *Registry) error {
	entity := r.MustDeclareOwnerType("entity", nil)
	r.MustDeclareOwnerType("player", entity)
	return nil
}

func TestBuilderConcurrentPluginsAreDeterministic(t *testing.T) {
	for range 20 {
		var skin Key[*label]
		keys := func(r *Registry) error {
			var err error
			skin, err = RegisterKey[*label](r, "skin")
			return err
		}
		plugin := func(name string) *Plugin {
			return NewPlugin(name).Init(func(b *Bootstrap) error {
				entity, _ := b.Registry().OwnerType("entity")
				return Begin(b, entity, skin).
					Filter(func(*OwnerType) bool { return true }).
					End(func(Owner, *Container) (*label, error) { return &label{text: name}, nil })
			})
		}

		r, err := NewBuilder().
			Logger(quietLogger()).
			OwnerTypes(entityTypes).
			OwnerTypes(keys).
			Plugin(plugin("first")).
			Plugin(plugin("second")).
			Plugin(plugin("third")).
			Build()
		require.NoError(t, err)

		player, _ := r.OwnerType("player")
		c, err := r.NewContainer(player, nil)
		require.NoError(t, err)
		assert.Equal(t, "first", skin.MustGet(c).text)
	}
}

func TestBuilderPluginError(t *testing.T) {
	boom := errors.New("boom")
	r, err := NewBuilder().
		Logger(quietLogger()).
		OwnerTypes(entityTypes).
		Plugin(NewPlugin("ok").Init(func(*Bootstrap) error { return nil })).
		Plugin(NewPlugin("broken").Init(func(*Bootstrap) error { return boom })).
		Build()
	assert.Nil(t, r)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "plugin broken")
}

func TestBuilderOwnerTypesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewBuilder().
		Logger(quietLogger()).
		OwnerTypes(func(*Registry) error { return boom }).
		Build()
	assert.ErrorIs(t, err, boom)
}

func TestBuilderWidgetCycle(t *testing.T) {
	var a, b Key[*label]
	keys := func(r *Registry) error {
		r.MustDeclareOwnerType("widget", nil)
		var err error
		if a, err = RegisterKey[*label](r, "a"); err != nil {
			return err
		}
		b, err = RegisterKey[*label](r, "b")
		return err
	}
	widgets := NewPlugin("widgets").Init(func(bs *Bootstrap) error {
		widget, _ := bs.Registry().OwnerType("widget")
		factory := func(Owner, *Container) (*label, error) { return &label{}, nil }
		if err := Begin(bs, widget, a).After(b).End(factory); err != nil {
			return err
		}
		return Begin(bs, widget, b).After(a).End(factory)
	})

	builder := NewBuilder().Logger(quietLogger()).OwnerTypes(keys).Plugin(widgets)
	r, err := builder.Build()
	assert.Nil(t, r)
	require.Error(t, err)
	assert.True(t, IsCyclicDependency(err))
	assert.True(t, IsBootstrapFatal(err))

	var ce *CyclicDependencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "widget", ce.Owner)
	assert.ElementsMatch(t, []string{"a", "b"}, ce.Path)

	assert.Panics(t, func() {
		NewBuilder().Logger(quietLogger()).OwnerTypes(keys).Plugin(widgets).Init()
	})
}

func TestBuilderConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDeserializationWarnings = 1
	r := NewBuilder().Logger(quietLogger()).Config(cfg).Init()
	assert.True(t, r.Frozen())
	assert.Equal(t, 1, r.Config().MaxDeserializationWarnings)
}
