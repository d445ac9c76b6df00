package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a", 3)
	assert.Equal(t, 1, g.Len())

	g.AddNode("a", 99) // idempotent, keeps the original duration
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 3, g.nodes["a"].duration)

	g.AddNode("b", 4)
	assert.Equal(t, 2, g.Len())
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("a", 1)
		g.AddNode("b", 1)

		require.NoError(t, g.AddEdge("a", "b"))

		deps, err := g.Dependencies("b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, deps)

		dependents, err := g.Dependents("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, dependents)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("a", 1)

		assert.ErrorContains(t, g.AddEdge("dne", "a"), "source node not found")
		assert.ErrorContains(t, g.AddEdge("a", "dne"), "destination node not found")
		assert.ErrorContains(t, g.AddEdge("a", "a"), "self-referential edge")
	})
}

func TestTopoSort(t *testing.T) {
	t.Run("orders a diamond", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c", "d"} {
			g.AddNode(id, 1)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("a", "c"))
		require.NoError(t, g.AddEdge("b", "d"))
		require.NoError(t, g.AddEdge("c", "d"))

		sorted, err := g.TopoSort()
		require.NoError(t, err)
		require.Len(t, sorted, 4)

		pos := map[string]int{}
		for i, id := range sorted {
			pos[id] = i
		}
		assert.Less(t, pos["a"], pos["b"])
		assert.Less(t, pos["a"], pos["c"])
		assert.Less(t, pos["b"], pos["d"])
		assert.Less(t, pos["c"], pos["d"])
	})

	t.Run("is deterministic across calls", func(t *testing.T) {
		g := New()
		for _, id := range []string{"z", "m", "a"} {
			g.AddNode(id, 1)
		}
		first, err := g.TopoSort()
		require.NoError(t, err)
		second, err := g.TopoSort()
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("reports cycles", func(t *testing.T) {
		g := New()
		g.AddNode("a", 1)
		g.AddNode("b", 1)
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))

		_, err := g.TopoSort()
		assert.ErrorContains(t, err, "cycle detected")
	})
}

func TestTailLengths(t *testing.T) {
	// a(3) -> b(4) -> d(2)
	//      \-> c(1) -/
	g := New()
	g.AddNode("a", 3)
	g.AddNode("b", 4)
	g.AddNode("c", 1)
	g.AddNode("d", 2)
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "c"))
	require.NoError(t, g.AddEdge("b", "d"))
	require.NoError(t, g.AddEdge("c", "d"))

	tails, err := g.TailLengths()
	require.NoError(t, err)

	assert.Equal(t, 2, tails["d"])
	assert.Equal(t, 6, tails["b"]) // 4 + 2
	assert.Equal(t, 3, tails["c"]) // 1 + 2
	assert.Equal(t, 9, tails["a"]) // 3 + max(6, 3)

	critical, err := g.CriticalPathLength()
	require.NoError(t, err)
	assert.Equal(t, 9, critical)
}
