package cardinal

// depGraph is the dependency graph of one merged factory map.
// Nodes are positions in regs; edges point from a component to the
// components it depends on. Dependencies missing from the map have no node.
type depGraph struct {
	regs  []*registration
	edges [][]int
}

func newDepGraph(regs []*registration) *depGraph {
	pos := make(map[*ComponentKey]int, len(regs))
	for i, reg := range regs {
		pos[reg.key] = i
	}
	g := &depGraph{regs: regs, edges: make([][]int, len(regs))}
	for i, reg := range regs {
		for _, dep := range reg.factory.Dependencies {
			if j, ok := pos[dep]; ok {
				g.edges[i] = append(g.edges[i], j)
			}
		}
	}
	return g
}

// findCycle returns the ids of the keys forming a cycle, or nil.
// The walk is depth-first and starts from nodes in map order, so the witness
// is stable for a given input.
func (g *depGraph) findCycle() []string {
	n := len(g.regs)
	visiting := NewBitset(n)
	done := NewBitset(n)
	var stack []int

	var visit func(i int) []string
	visit = func(i int) []string {
		visiting.Set(i)
		stack = append(stack, i)
		for _, j := range g.edges[i] {
			if done.Has(j) {
				continue
			}
			if visiting.Has(j) {
				start := len(stack) - 1
				for stack[start] != j {
					start--
				}
				path := make([]string, 0, len(stack)-start)
				for _, k := range stack[start:] {
					path = append(path, g.regs[k].key.id)
				}
				return path
			}
			if path := visit(j); path != nil {
				return path
			}
		}
		stack = stack[:len(stack)-1]
		visiting.Clear(i)
		done.Set(i)
		return nil
	}

	for i := range n {
		if done.Has(i) {
			continue
		}
		if path := visit(i); path != nil {
			return path
		}
	}
	return nil
}

// sort returns the registrations in dependency order. Among components that
// are ready at the same time the lowest registration ordinal goes first.
// The graph must be acyclic.
func (g *depGraph) sort() []*registration {
	n := len(g.regs)
	pending := make([]int, n)
	dependents := make([][]int, n)
	for i, deps := range g.edges {
		pending[i] = len(deps)
		for _, j := range deps {
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i := range n {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]*registration, 0, n)
	for len(ready) > 0 {
		best := 0
		for k := 1; k < len(ready); k++ {
			if g.regs[ready[k]].ordinal.less(g.regs[ready[best]].ordinal) {
				best = k
			}
		}
		i := ready[best]
		ready[best] = ready[len(ready)-1]
		ready = ready[:len(ready)-1]

		out = append(out, g.regs[i])
		for _, d := range dependents[i] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	return out
}
