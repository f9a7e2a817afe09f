package cardinal

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// bootstrapping returns a registry accepting registrations.
func bootstrapping(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r := NewRegistry(append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, r.BeginBootstrap())
	return r
}

func constant(v Component) ComponentFactory {
	return func(Owner, *Container) (Component, error) {
		return v, nil
	}
}

// counter is a mutable component receiving server ticks and loads.
type counter struct {
	n      int
	ticks  int
	loaded bool
}

func (c *counter) ServerTick() { c.ticks++ }
func (c *counter) ServerLoad() { c.loaded = true }

// label is a mutable component without hooks.
type label struct {
	text string
}

func resolvedIDs(res *Resolution) []string {
	var ids []string
	for _, k := range res.Keys() {
		ids = append(ids, k.ID())
	}
	return ids
}

func reflectTypeOf(v any) reflect.Type {
	return reflect.TypeOf(v)
}
