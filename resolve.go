package cardinal

import (
	"fmt"
	"sync"
)

// ResolvedFactory is one entry of a resolution.
type ResolvedFactory struct {
	Key     *ComponentKey
	Factory QualifiedFactory
	Dynamic bool
}

// Resolution is the merged factory map of a concrete owner type, in
// initialization order.
type Resolution struct {
	owner   *OwnerType
	entries []*registration
}

// Owner returns the resolved owner type.
func (res *Resolution) Owner() *OwnerType {
	return res.owner
}

// Len returns the number of components resolved for the owner type.
func (res *Resolution) Len() int {
	return len(res.entries)
}

// Entries returns the resolved factories in initialization order.
func (res *Resolution) Entries() []ResolvedFactory {
	out := make([]ResolvedFactory, len(res.entries))
	for i, reg := range res.entries {
		out[i] = ResolvedFactory{Key: reg.key, Factory: reg.factory, Dynamic: reg.dynamic()}
	}
	return out
}

// Keys returns the resolved keys in initialization order.
func (res *Resolution) Keys() []*ComponentKey {
	out := make([]*ComponentKey, len(res.entries))
	for i, reg := range res.entries {
		out[i] = reg.key
	}
	return out
}

// Lookup returns the factory resolved for key.
func (res *Resolution) Lookup(key Keyed) (QualifiedFactory, bool) {
	k := key.ComponentKey()
	for _, reg := range res.entries {
		if reg.key == k {
			return reg.factory, true
		}
	}
	return QualifiedFactory{}, false
}

type resolveEntry struct {
	once sync.Once
	res  *Resolution
	err  error
}

// Resolve merges the registrations applicable to owner.
//
// Static registrations are collected from owner up to the root, the nearest
// owner type winning for each key. Dynamic registrations are then evaluated
// in registration order and fill keys that are still missing, the first
// match winning. The merged map is checked for cycles and sorted so every
// component comes after its dependencies.
//
// The result is computed once per owner type. Resolve fails with
// ErrNotInitialized until the registry is frozen.
func (r *Registry) Resolve(owner *OwnerType) (*Resolution, error) {
	if err := r.checkServing(); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", owner, err)
	}
	if owner == nil {
		return nil, fmt.Errorf("resolve: nil owner type: %w", ErrInvalidIdentifier)
	}

	v, _ := r.resolutions.LoadOrStore(owner, &resolveEntry{})
	e := v.(*resolveEntry)
	e.once.Do(func() {
		e.res, e.err = r.resolve(owner)
	})
	return e.res, e.err
}

func (r *Registry) resolve(owner *OwnerType) (*Resolution, error) {
	present := make(map[*ComponentKey]struct{})
	var merged []*registration

	for t := owner; t != nil; t = t.parent {
		tbl := r.static[t]
		if tbl == nil {
			continue
		}
		for _, reg := range tbl.entries {
			if _, ok := present[reg.key]; ok {
				continue
			}
			present[reg.key] = struct{}{}
			merged = append(merged, reg)
		}
	}

	for _, reg := range r.dynamic {
		if _, ok := present[reg.key]; ok {
			continue
		}
		if !reg.pred(owner) {
			continue
		}
		present[reg.key] = struct{}{}
		merged = append(merged, reg)
	}

	g := newDepGraph(merged)
	if path := g.findCycle(); path != nil {
		err := &CyclicDependencyError{Owner: owner.name, Path: path}
		r.log.Error("cardinal: dependency cycle", "owner", owner.name, "path", path)
		return nil, err
	}

	return &Resolution{owner: owner, entries: g.sort()}, nil
}
