// Package depgraph implements a small directed dependency graph with
// depth-first reachability, topological sorting and cycle reporting.
//
// What:
//
//   - Graph: a thread-safe set of string-identified nodes and directed edges
//     u→v meaning "u must be settled before v".
//   - Reachable: the closure of a seed set under outgoing edges (database
//     dependency closure of an inventory).
//   - TopologicalSort: a deterministic linear order of all nodes; when the
//     graph contains a cycle it returns a *CycleError naming one cycle in
//     canonical rotation (parameter formula ordering).
//
// Determinism:
//
//   - Nodes and successors are always visited in lexicographic order, so the
//     same graph yields the same order and the same reported cycle.
//
// Complexity:
//
//   - Reachable:       Time O(V+E), Memory O(V)
//   - TopologicalSort: Time O(V+E + L²) (L = length of a reported cycle), Memory O(V)
package depgraph
