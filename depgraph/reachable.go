package depgraph

import (
	"fmt"
	"sort"
)

// Reachable returns every node reachable from seeds (seeds included), sorted
// ascending. Unknown seeds fail with ErrNodeNotFound.
//
// Complexity: O(V+E).
func Reachable(g *Graph, seeds []string, opts ...Option) ([]string, error) {
	o := gather(opts)
	visited := make(map[string]bool, len(seeds))
	stack := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if !g.HasNode(s) {
			return nil, fmt.Errorf("depgraph: Reachable: %w: %q", ErrNodeNotFound, s)
		}
		if !visited[s] {
			visited[s] = true
			stack = append(stack, s)
		}
	}

	var id string
	for len(stack) > 0 {
		select {
		case <-o.ctx.Done():
			return nil, o.ctx.Err()
		default:
		}
		id, stack = stack[len(stack)-1], stack[:len(stack)-1]
		succ, err := g.Successors(id)
		if err != nil {
			return nil, err
		}
		for _, nb := range succ {
			if !visited[nb] {
				visited[nb] = true
				stack = append(stack, nb)
			}
		}
	}

	out := make([]string, 0, len(visited))
	for id := range visited {
		out = append(out, id)
	}
	sort.Strings(out)

	return out, nil
}
