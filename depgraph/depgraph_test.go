package depgraph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlca/depgraph"
)

// position returns index of v in slice or -1 if not found
func position(order []string, v string) int { return depgraph.IndexOf(order, v) }

func TestTopo_EmptyGraph(t *testing.T) {
	order, err := depgraph.TopologicalSort(depgraph.New())
	assert.NoError(t, err)
	assert.Empty(t, order)
}

// TestTopo_SimpleChain verifies linear chain A→B→C yields [A,B,C].
func TestTopo_SimpleChain(t *testing.T) {
	g := depgraph.New()
	require.NoError(t, g.AddEdge("A", "B"))
	require.NoError(t, g.AddEdge("B", "C"))

	order, err := depgraph.TopologicalSort(g)
	assert.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

// TestTopo_Dependencies checks that AddDependency orders dependencies first.
func TestTopo_Dependencies(t *testing.T) {
	g := depgraph.New()
	require.NoError(t, g.AddDependency("total", "a"))
	require.NoError(t, g.AddDependency("total", "b"))
	require.NoError(t, g.AddDependency("b", "a"))
	require.NoError(t, g.AddNode("lonely"))

	order, err := depgraph.TopologicalSort(g)
	require.NoError(t, err)
	assert.Len(t, order, 4)
	assert.Less(t, position(order, "a"), position(order, "b"))
	assert.Less(t, position(order, "b"), position(order, "total"))
}

func TestTopo_Deterministic(t *testing.T) {
	build := func() *depgraph.Graph {
		g := depgraph.New()
		for _, e := range [][2]string{{"x", "y"}, {"a", "y"}, {"m", "n"}, {"a", "m"}} {
			require.NoError(t, g.AddEdge(e[0], e[1]))
		}

		return g
	}
	first, err := depgraph.TopologicalSort(build())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := depgraph.TopologicalSort(build())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// TestTopo_Cycle ensures the reported cycle is canonical and matches the sentinel.
func TestTopo_Cycle(t *testing.T) {
	g := depgraph.New()
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.AddEdge("c", "a"))
	require.NoError(t, g.AddEdge("a", "b"))

	order, err := depgraph.TopologicalSort(g)
	assert.Nil(t, order)
	assert.ErrorIs(t, err, depgraph.ErrCycleDetected)
	var ce *depgraph.CycleError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"a", "b", "c", "a"}, ce.Cycle)
}

func TestTopo_SelfLoop(t *testing.T) {
	g := depgraph.New()
	require.NoError(t, g.AddEdge("p", "p"))
	_, err := depgraph.TopologicalSort(g)
	var ce *depgraph.CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"p", "p"}, ce.Cycle)
}

func TestTopo_Canceled(t *testing.T) {
	g := depgraph.New()
	require.NoError(t, g.AddEdge("a", "b"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := depgraph.TopologicalSort(g, depgraph.WithContext(ctx))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReachable(t *testing.T) {
	g := depgraph.New()
	require.NoError(t, g.AddEdge("ei", "biosphere"))
	require.NoError(t, g.AddEdge("fg", "ei"))
	require.NoError(t, g.AddNode("other"))

	got, err := depgraph.Reachable(g, []string{"fg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"biosphere", "ei", "fg"}, got)

	_, err = depgraph.Reachable(g, []string{"missing"})
	assert.ErrorIs(t, err, depgraph.ErrNodeNotFound)
}

func TestGraph_Basics(t *testing.T) {
	g := depgraph.New()
	assert.ErrorIs(t, g.AddNode(""), depgraph.ErrEmptyID)
	assert.ErrorIs(t, g.AddEdge("a", ""), depgraph.ErrEmptyID)
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "b"))
	assert.True(t, g.HasEdge("a", "b"))
	assert.False(t, g.HasEdge("b", "a"))
	assert.Equal(t, 2, g.Len())
	_, err := g.Successors("zz")
	assert.ErrorIs(t, err, depgraph.ErrNodeNotFound)
}

func TestMinimalRotation(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, depgraph.MinimalRotation([]string{"b", "c", "a"}))
	assert.Equal(t, []string{"a", "y", "a", "z"}, depgraph.MinimalRotation([]string{"a", "z", "a", "y"}))
}
