package dfhost

import (
	"github.com/oriumgames/cardinal"
)

// Owner type names declared by the host.
const (
	EntityType = "minecraft:entity"
	LivingType = "minecraft:living"
	PlayerType = "minecraft:player"
)

// OwnerTypes holds the owner types of dragonfly entities.
type OwnerTypes struct {
	Entity *cardinal.OwnerType
	Living *cardinal.OwnerType
	Player *cardinal.OwnerType
}

// DeclareOwnerTypes declares the entity hierarchy on r. Declaring it twice
// returns the same types.
func DeclareOwnerTypes(r *cardinal.Registry) (OwnerTypes, error) {
	var t OwnerTypes
	var err error
	if t.Entity, err = r.DeclareOwnerType(EntityType, nil); err != nil {
		return t, err
	}
	if t.Living, err = r.DeclareOwnerType(LivingType, t.Entity); err != nil {
		return t, err
	}
	if t.Player, err = r.DeclareOwnerType(PlayerType, t.Living); err != nil {
		return t, err
	}
	return t, nil
}

// Declare is a Builder host callback declaring the entity hierarchy.
func Declare(r *cardinal.Registry) error {
	_, err := DeclareOwnerTypes(r)
	return err
}
