package cardinal

import (
	"fmt"
	"sync"

	"github.com/oriumgames/cardinal/tree"
)

// TreeKey is the entry of an owner's tree that holds its components.
const TreeKey = "cardinal_components"

// TreePersistent is implemented by components saved with their owner.
type TreePersistent interface {
	WriteTree(t *tree.Compound) error
	ReadTree(t *tree.Compound) error
}

// WriteTree stores every persistent component under root[TreeKey], each in
// its own compound named by key id. Components writing nothing are omitted.
func (c *Container) WriteTree(root *tree.Compound) error {
	out := tree.NewCompound()
	for i, comp := range c.slots {
		p, ok := comp.(TreePersistent)
		if !ok {
			continue
		}
		id := c.desc.slots[i].key.id
		sub := tree.NewCompound()
		if err := p.WriteTree(sub); err != nil {
			return fmt.Errorf("write component %s: %w", id, err)
		}
		if sub.Len() > 0 {
			out.PutCompound(id, sub)
		}
	}
	if out.Len() > 0 {
		root.PutCompound(TreeKey, out)
	}
	return nil
}

// ReadTree loads components from root[TreeKey]. Entries for keys the owner
// type does not carry are skipped with a bounded number of warnings per id.
func (c *Container) ReadTree(root *tree.Compound) error {
	in, ok := root.Compound(TreeKey)
	if !ok {
		return nil
	}
	for _, id := range in.Keys() {
		sub, ok := in.Compound(id)
		if !ok {
			continue
		}
		comp, ok := c.Lookup(id)
		if !ok {
			c.registry.warnDeserialization(id, c.desc.owner, "unregistered or inapplicable component")
			continue
		}
		p, ok := comp.(TreePersistent)
		if !ok {
			continue
		}
		if err := p.ReadTree(sub); err != nil {
			return fmt.Errorf("read component %s: %w", id, err)
		}
	}
	return nil
}

// warningLimiter counts deserialization warnings per component id.
type warningLimiter struct {
	max    int
	mu     sync.Mutex
	counts map[string]int
}

func newWarningLimiter(max int) *warningLimiter {
	return &warningLimiter{max: max, counts: make(map[string]int)}
}

// allow reports whether another warning for id may be logged.
func (w *warningLimiter) allow(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.max >= 0 && w.counts[id] >= w.max {
		return false
	}
	w.counts[id]++
	return true
}

func (r *Registry) warnDeserialization(id string, owner *OwnerType, reason string) {
	r.metrics.deserializationWarning(id)
	if !r.config.LogDeserializationWarnings || !r.warnings.allow(id) {
		return
	}
	r.log.Warn("cardinal: failed to deserialize component",
		"component", id,
		"owner", owner.name,
		"reason", reason)
}
