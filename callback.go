package cardinal

import (
	"fmt"
)

// Modifier computes the replacement value of an immutable component.
type Modifier[V any] func(value V, owner Owner) V

// Listener observes an immutable component without replacing it.
type Listener[V any] func(value V, owner Owner)

type callbackKey struct {
	hook  Hook
	id    string
	owner *OwnerType
}

type callbackEntry struct {
	plugin string
	fn     any
}

// RegisterCallback binds m to hook h of the component key on owner.
//
// Callbacks can only be registered while bootstrapping. A plugin may replace
// its own callback; replacing another plugin's fails with a
// DuplicateCallbackError.
func RegisterCallback[V any](r *Registry, plugin string, h Hook, key ImmutableKey[V], owner *OwnerType, m Modifier[V]) error {
	if m == nil {
		return fmt.Errorf("register %s callback for %s: nil modifier: %w", h, key.ID(), ErrIncompatibleImpl)
	}
	return r.registerCallback(plugin, h, key.key, owner, m)
}

// RegisterListener binds l to hook h like RegisterCallback. The component
// value is left unchanged.
func RegisterListener[V any](r *Registry, plugin string, h Hook, key ImmutableKey[V], owner *OwnerType, l Listener[V]) error {
	if l == nil {
		return fmt.Errorf("register %s listener for %s: nil listener: %w", h, key.ID(), ErrIncompatibleImpl)
	}
	return RegisterCallback(r, plugin, h, key, owner, listen(l))
}

func listen[V any](l Listener[V]) Modifier[V] {
	return func(v V, owner Owner) V {
		l(v, owner)
		return v
	}
}

func (r *Registry) registerCallback(plugin string, h Hook, key *ComponentKey, owner *OwnerType, fn any) error {
	if h >= hookCount {
		return fmt.Errorf("register callback: unknown hook %d: %w", h, ErrInvalidIdentifier)
	}
	if key == nil || owner == nil {
		return fmt.Errorf("register %s callback: missing key or owner type: %w", h, ErrUnknownKey)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRegistering(); err != nil {
		return fmt.Errorf("register %s callback for %s on %s: %w", h, key.id, owner.name, err)
	}

	ck := callbackKey{hook: h, id: key.id, owner: owner}
	if prev, ok := r.callbacks[ck]; ok && prev.plugin != plugin {
		return &DuplicateCallbackError{
			Hook:     h,
			Key:      key.id,
			Owner:    owner.name,
			Plugin:   plugin,
			Existing: prev.plugin,
		}
	}
	r.callbacks[ck] = callbackEntry{plugin: plugin, fn: fn}
	return nil
}

func (r *Registry) callback(k callbackKey) (callbackEntry, bool) {
	if r.serving() {
		e, ok := r.callbacks[k]
		return e, ok
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.callbacks[k]
	return e, ok
}

// targetCallback finds the callback of hook h for id registered on target,
// the owner type a registration was declared for. Callbacks of other
// registrations of the same key, including ancestors', do not apply.
func (r *Registry) targetCallback(h Hook, id string, target *OwnerType) (any, bool) {
	e, ok := r.callback(callbackKey{hook: h, id: id, owner: target})
	if !ok {
		return nil, false
	}
	return e.fn, true
}

// Dispatch runs the callback registered for hook h of component id on owner
// against value. When no callback is registered, value is returned as is.
func Dispatch[V any](r *Registry, h Hook, id string, owner *OwnerType, value V, instance Owner) V {
	e, ok := r.callback(callbackKey{hook: h, id: id, owner: owner})
	if !ok {
		return value
	}
	m, ok := e.fn.(Modifier[V])
	if !ok {
		return value
	}
	return m(value, instance)
}
