package cardinal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareOwnerType(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))

	entity, err := r.DeclareOwnerType("entity", nil)
	require.NoError(t, err)
	player, err := r.DeclareOwnerType("player", entity)
	require.NoError(t, err)

	again, err := r.DeclareOwnerType("player", entity)
	require.NoError(t, err)
	assert.Same(t, player, again)

	_, err = r.DeclareOwnerType("player", nil)
	assert.True(t, IsConflictingDeclaration(err))

	_, err = r.DeclareOwnerType("", nil)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	foreign := NewRegistry(WithLogger(quietLogger())).MustDeclareOwnerType("entity", nil)
	_, err = r.DeclareOwnerType("zombie", foreign)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	assert.Equal(t, 1, player.Depth())
	assert.Same(t, entity, player.Parent())
	assert.Equal(t, []*OwnerType{player, entity}, player.Ancestors())
	assert.Equal(t, []*OwnerType{entity, player}, r.OwnerTypes())

	got, ok := r.OwnerType("player")
	require.True(t, ok)
	assert.Same(t, player, got)
}

func TestOwnerTypeIsA(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	entity := r.MustDeclareOwnerType("entity", nil)
	living := r.MustDeclareOwnerType("living", entity)
	player := r.MustDeclareOwnerType("player", living)
	item := r.MustDeclareOwnerType("item", entity)

	assert.True(t, player.IsA(entity))
	assert.True(t, player.IsA(player))
	assert.False(t, entity.IsA(player))
	assert.False(t, item.IsA(living))
	assert.Equal(t, "<nil>", (*OwnerType)(nil).String())
}

func TestPredicates(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	entity := r.MustDeclareOwnerType("entity", nil)
	living := r.MustDeclareOwnerType("living", entity)
	player := r.MustDeclareOwnerType("player", living)
	item := r.MustDeclareOwnerType("item", entity)

	tests := []struct {
		name string
		pred Predicate
		want []*OwnerType
	}{
		{"under", Under(living), []*OwnerType{living, player}},
		{"exactly", Exactly(living), []*OwnerType{living}},
		{"named", Named("item", "player"), []*OwnerType{player, item}},
		{"and", And(Under(entity), Not(Under(living))), []*OwnerType{entity, item}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []*OwnerType
			for _, o := range r.OwnerTypes() {
				if tt.pred(o) {
					got = append(got, o)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDynamicPredicateOnSubtypes(t *testing.T) {
	r := bootstrapping(t)
	entity := r.MustDeclareOwnerType("entity", nil)
	living := r.MustDeclareOwnerType("living", entity)
	player := r.MustDeclareOwnerType("player", living)

	health, _ := RegisterKey[*label](r, "health")
	require.NoError(t, r.RegisterDynamic(Under(living), health, QualifiedFactory{Factory: constant(&label{})}))
	require.NoError(t, r.Freeze())

	for _, o := range []*OwnerType{entity, living, player} {
		desc, err := r.Specialize(o)
		require.NoError(t, err)
		assert.Equal(t, o != entity, desc.Has(health), o.Name())
	}
}
