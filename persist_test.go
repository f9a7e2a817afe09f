package cardinal

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/cardinal/tree"
)

func TestContainerTreeRoundTrip(t *testing.T) {
	r := bootstrapping(t)
	player := r.MustDeclareOwnerType("player", nil)
	xp, _ := RegisterImmutableKey[int](r, "xp")
	title, _ := RegisterImmutableKey[string](r, "title")
	combo, _ := RegisterImmutableKey[int](r, "combo", Transient())
	name, _ := RegisterKey[*label](r, "name")

	b := r.Bootstrap("test", 1)
	require.NoError(t, BeginImmutable(b, player, xp).End(func(Owner) int { return 0 }))
	require.NoError(t, BeginImmutable(b, player, title).End(func(Owner) string { return "" }))
	require.NoError(t, BeginImmutable(b, player, combo).End(func(Owner) int { return 0 }))
	require.NoError(t, Begin(b, player, name).End(func(Owner, *Container) (*label, error) { return &label{}, nil }))
	require.NoError(t, r.Freeze())

	src, err := r.NewContainer(player, nil)
	require.NoError(t, err)
	xp.Set(src, 42)
	title.Set(src, "Knight")
	combo.Set(src, 9)

	root := tree.NewCompound()
	require.NoError(t, src.WriteTree(root))

	comps, ok := root.Compound(TreeKey)
	require.True(t, ok)
	assert.Equal(t, []string{"title", "xp"}, comps.Keys())

	dst, err := r.NewContainer(player, nil)
	require.NoError(t, err)
	require.NoError(t, dst.ReadTree(root))
	assert.Equal(t, 42, xp.Value(dst))
	assert.Equal(t, "Knight", title.Value(dst))
	assert.Equal(t, 0, combo.Value(dst))
}

func TestContainerReadTreeEmpty(t *testing.T) {
	r := bootstrapping(t)
	player := r.MustDeclareOwnerType("player", nil)
	xp, _ := RegisterImmutableKey[int](r, "xp")
	require.NoError(t, BeginImmutable(r.Bootstrap("test", 1), player, xp).End(func(Owner) int { return 5 }))
	require.NoError(t, r.Freeze())

	c, err := r.NewContainer(player, nil)
	require.NoError(t, err)

	root := tree.NewCompound()
	require.NoError(t, c.ReadTree(root))
	assert.Equal(t, 5, xp.Value(c))

	comps := tree.NewCompound()
	comps.PutCompound("xp", tree.NewCompound())
	root.PutCompound(TreeKey, comps)
	require.NoError(t, c.ReadTree(root))
	assert.Equal(t, 5, xp.Value(c))
}

func TestContainerReadTreeWarnings(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.MaxDeserializationWarnings = 2
	m := NewMetrics()
	r := NewRegistry(
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithConfig(cfg),
		WithMetrics(m),
	)
	require.NoError(t, r.BeginBootstrap())
	player := r.MustDeclareOwnerType("player", nil)
	require.NoError(t, r.Freeze())

	c, err := r.NewContainer(player, nil)
	require.NoError(t, err)

	ghost := tree.NewCompound()
	require.NoError(t, tree.Put(ghost, "value", 1))
	comps := tree.NewCompound()
	comps.PutCompound("ghost", ghost)
	root := tree.NewCompound()
	root.PutCompound(TreeKey, comps)

	for range 5 {
		require.NoError(t, c.ReadTree(root))
	}
	assert.Equal(t, 2, strings.Count(buf.String(), "failed to deserialize component"))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.DeserializationWarnings.WithLabelValues("ghost")))
}

func TestWarningLimiter(t *testing.T) {
	w := newWarningLimiter(1)
	assert.True(t, w.allow("a"))
	assert.False(t, w.allow("a"))
	assert.True(t, w.allow("b"))

	unlimited := newWarningLimiter(-1)
	for range 10 {
		assert.True(t, unlimited.allow("a"))
	}

	silent := newWarningLimiter(0)
	assert.False(t, silent.allow("a"))
}
