package cardinal

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIsIdentityStable(t *testing.T) {
	r := bootstrapping(t)

	a, err := r.Intern("mymod:mana", reflect.TypeFor[int]())
	require.NoError(t, err)
	b, err := r.Intern("mymod:mana", reflect.TypeFor[int]())
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, "mymod:mana", a.ID())
	assert.Equal(t, Mutable, a.Kind())
}

func TestInternConflictingClass(t *testing.T) {
	r := bootstrapping(t)

	first, err := r.Intern("mana", reflect.TypeFor[int]())
	require.NoError(t, err)

	_, err = r.Intern("mana", reflect.TypeFor[string]())
	require.Error(t, err)
	assert.True(t, IsConflictingDeclaration(err))

	var cde *ConflictingDeclarationError
	require.ErrorAs(t, err, &cde)
	assert.Equal(t, "mana", cde.Name)

	got, ok := r.Lookup("mana")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, reflect.TypeFor[int](), got.Class())
}

func TestInternConflictingKind(t *testing.T) {
	r := bootstrapping(t)

	_, err := RegisterKey[int](r, "energy")
	require.NoError(t, err)

	_, err = RegisterImmutableKey[int](r, "energy")
	assert.ErrorIs(t, err, ErrConflictingDeclaration)
}

func TestInternInvalidIdentifier(t *testing.T) {
	r := bootstrapping(t)

	for _, id := range []string{"", "Upper", "two:colons:here", "space bar", ":path"} {
		t.Run(id, func(t *testing.T) {
			_, err := r.Intern(id, reflect.TypeFor[int]())
			assert.ErrorIs(t, err, ErrInvalidIdentifier)
		})
	}

	for _, id := range []string{"energy", "mymod:energy", "my_mod:stats/energy.max"} {
		assert.True(t, ValidIdentifier(id), id)
	}
}

func TestInternPhases(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))

	_, err := r.Intern("early", reflect.TypeFor[int]())
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, r.BeginBootstrap())
	k, err := r.Intern("known", reflect.TypeFor[int]())
	require.NoError(t, err)
	require.NoError(t, r.Freeze())

	_, err = r.Intern("late", reflect.TypeFor[int]())
	assert.ErrorIs(t, err, ErrRegistryFrozen)

	again, err := r.Intern("known", reflect.TypeFor[int]())
	require.NoError(t, err)
	assert.Same(t, k, again)
}

func TestInternConcurrent(t *testing.T) {
	r := bootstrapping(t)

	const workers = 32
	keys := make([]*ComponentKey, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k, err := r.Intern("shared", reflect.TypeFor[string]())
			assert.NoError(t, err)
			keys[i] = k
		}()
	}
	wg.Wait()

	for _, k := range keys {
		assert.Same(t, keys[0], k)
	}
	assert.Len(t, r.Keys(), 1)
}

func TestKeysSnapshot(t *testing.T) {
	r := bootstrapping(t)

	a, err := RegisterKey[*counter](r, "a")
	require.NoError(t, err)
	b, err := RegisterKey[*label](r, "b")
	require.NoError(t, err)

	keys := r.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, 0, a.ComponentKey().Index())
	assert.Equal(t, 1, b.ComponentKey().Index())

	keys[0] = nil
	assert.NotNil(t, r.Keys()[0])

	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}
