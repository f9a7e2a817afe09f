package cardinal

import (
	"errors"
	"fmt"
)

// Syncer is notified when a component of an owner changed and should be sent
// to remote peers. Encoding and transport are up to the implementation.
type Syncer interface {
	NotifySync(owner Owner, key *ComponentKey)
}

// SyncFunc adapts a function to Syncer.
type SyncFunc func(owner Owner, key *ComponentKey)

// NotifySync calls f.
func (f SyncFunc) NotifySync(owner Owner, key *ComponentKey) {
	f(owner, key)
}

// WireSyncable is implemented by components that can be encoded for a
// remote peer and updated from its encoding.
type WireSyncable interface {
	WriteSync() ([]byte, error)
	ApplySync(data []byte) error
}

func (c *Container) notifySync(key *ComponentKey) {
	c.registry.metrics.synced(key.id)
	if c.syncer != nil {
		c.syncer.NotifySync(c.owner, key)
	}
}

// Sync notifies the container's syncer that key changed.
// Mutable components call it after changing their own state.
func (c *Container) Sync(key Keyed) {
	if k := key.ComponentKey(); c.desc.Has(k) {
		c.notifySync(k)
	}
}

// EncodeSync encodes the component stored for key for a remote peer.
func (c *Container) EncodeSync(key Keyed) ([]byte, error) {
	w, err := c.wireSyncable(key)
	if err != nil {
		return nil, err
	}
	return w.WriteSync()
}

// ApplySync updates the component stored for key from a peer's encoding.
func (c *Container) ApplySync(key Keyed, data []byte) error {
	w, err := c.wireSyncable(key)
	if err != nil {
		return err
	}
	return w.ApplySync(data)
}

func (c *Container) wireSyncable(key Keyed) (WireSyncable, error) {
	k := key.ComponentKey()
	comp, ok := c.Get(k)
	if !ok {
		return nil, fmt.Errorf("sync %s on %s: %w", k, c.desc.owner.name, ErrUnknownKey)
	}
	w, ok := comp.(WireSyncable)
	if !ok {
		return nil, fmt.Errorf("sync %s: %T: %w", k, comp, errors.ErrUnsupported)
	}
	return w, nil
}
