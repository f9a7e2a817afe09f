package cardinal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inventory struct {
	items []string
}

func (i *inventory) CopyFrom(src Component) error {
	i.items = append([]string(nil), src.(*inventory).items...)
	return nil
}

func TestCopyStrategyAllows(t *testing.T) {
	death := CopyContext{}
	kept := CopyContext{KeepInventory: true}
	portal := CopyContext{Lossless: true}

	tests := []struct {
		strategy CopyStrategy
		death    bool
		kept     bool
		portal   bool
	}{
		{LosslessOnly, false, false, true},
		{AlwaysCopy, true, true, true},
		{CopyInventory, false, true, true},
		{NeverCopy, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			assert.Equal(t, tt.death, tt.strategy.Allows(death))
			assert.Equal(t, tt.kept, tt.strategy.Allows(kept))
			assert.Equal(t, tt.portal, tt.strategy.Allows(portal))
		})
	}
}

func TestContainerCopyFrom(t *testing.T) {
	r := bootstrapping(t)
	entity := r.MustDeclareOwnerType("entity", nil)
	player := r.MustDeclareOwnerType("player", entity)

	xp, _ := RegisterImmutableKey[int](r, "xp")
	hunger, _ := RegisterImmutableKey[int](r, "hunger")
	inv, _ := RegisterKey[*inventory](r, "inventory")

	b := r.Bootstrap("test", 1)
	require.NoError(t, BeginImmutable(b, player, xp).CopyStrategy(AlwaysCopy).End(func(Owner) int { return 0 }))
	require.NoError(t, BeginImmutable(b, player, hunger).End(func(Owner) int { return 20 }))
	require.NoError(t, Begin(b, player, inv).End(func(Owner, *Container) (*inventory, error) { return &inventory{}, nil }))
	require.NoError(t, b.SetCopyStrategy(inv, entity, CopyInventory))
	require.NoError(t, r.Freeze())

	desc, err := r.Specialize(player)
	require.NoError(t, err)
	i, _ := desc.SlotOf(inv)
	assert.Equal(t, CopyInventory, desc.Slot(i).CopyStrategy())

	old, err := r.Instantiate(desc, "steve")
	require.NoError(t, err)
	xp.Set(old, 30)
	hunger.Set(old, 3)
	inv.MustGet(old).items = []string{"sword"}

	dead, err := r.Instantiate(desc, "steve")
	require.NoError(t, err)
	require.NoError(t, dead.CopyFrom(old, CopyContext{}))
	assert.Equal(t, 30, xp.Value(dead))
	assert.Equal(t, 20, hunger.Value(dead))
	assert.Empty(t, inv.MustGet(dead).items)

	kept, err := r.Instantiate(desc, "steve")
	require.NoError(t, err)
	require.NoError(t, kept.CopyFrom(old, CopyContext{KeepInventory: true}))
	assert.Equal(t, []string{"sword"}, inv.MustGet(kept).items)
	assert.Equal(t, 20, hunger.Value(kept))

	portal, err := r.Instantiate(desc, "steve")
	require.NoError(t, err)
	require.NoError(t, portal.CopyFrom(old, CopyContext{Lossless: true}))
	assert.Equal(t, 3, hunger.Value(portal))
}

func TestSetCopyStrategyFrozen(t *testing.T) {
	r := bootstrapping(t)
	player := r.MustDeclareOwnerType("player", nil)
	xp, _ := RegisterImmutableKey[int](r, "xp")
	require.NoError(t, r.Freeze())

	assert.ErrorIs(t, r.SetCopyStrategy(xp, player, NeverCopy), ErrRegistryFrozen)
}
