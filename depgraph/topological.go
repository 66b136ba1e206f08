package depgraph

// topoSorter encapsulates state for a topological sort traversal.
type topoSorter struct {
	graph *Graph
	opts  options
	state map[string]int // White, Gray, Black
	path  []string       // current recursion stack, for cycle reporting
	order []string       // post-order sequence
}

// TopologicalSort computes a topological ordering of all nodes in g: for
// every edge u→v, u appears before v.
//
// Errors:
//   - *CycleError (matches ErrCycleDetected) naming one cycle.
//   - ctx.Err() when cancelled through WithContext.
func TopologicalSort(g *Graph, opts ...Option) ([]string, error) {
	nodes := g.Nodes()
	t := &topoSorter{
		graph: g,
		opts:  gather(opts),
		state: make(map[string]int, len(nodes)),
		order: make([]string, 0, len(nodes)),
	}
	for _, v := range nodes {
		if t.state[v] == White {
			if err := t.visit(v); err != nil {
				return nil, err
			}
		}
	}
	// Reverse post-order.
	for i, j := 0, len(t.order)-1; i < j; i, j = i+1, j-1 {
		t.order[i], t.order[j] = t.order[j], t.order[i]
	}

	return t.order, nil
}

// visit performs the DFS from id, marking states and detecting back-edges.
func (t *topoSorter) visit(id string) error {
	select {
	case <-t.opts.ctx.Done():
		return t.opts.ctx.Err()
	default:
	}
	t.state[id] = Gray
	t.path = append(t.path, id)

	succ, err := t.graph.Successors(id)
	if err != nil {
		return err
	}
	for _, nb := range succ {
		switch t.state[nb] {
		case Gray:
			seg := append([]string(nil), t.path[IndexOf(t.path, nb):]...)

			return &CycleError{Cycle: canonicalCycle(seg)}
		case White:
			if err = t.visit(nb); err != nil {
				return err
			}
		}
	}

	t.path = t.path[:len(t.path)-1]
	t.state[id] = Black
	t.order = append(t.order, id)

	return nil
}

// canonicalCycle rotates seg so the smallest ID comes first and closes it.
func canonicalCycle(seg []string) []string {
	rot := MinimalRotation(seg)

	return append(rot, rot[0])
}

// IndexOf returns the first index of val in s, or -1 if not found.
func IndexOf(s []string, val string) int {
	for i, x := range s {
		if x == val {
			return i
		}
	}

	return -1
}

// MinimalRotation returns the lexicographically smallest rotation of s.
// Cycles are short in practice, so the quadratic scan is adequate.
func MinimalRotation(s []string) []string {
	n := len(s)
	best := 0
	for k := 1; k < n; k++ {
		for i := 0; i < n; i++ {
			a, b := s[(k+i)%n], s[(best+i)%n]
			if a != b {
				if a < b {
					best = k
				}

				break
			}
		}
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = s[(best+i)%n]
	}

	return out
}
