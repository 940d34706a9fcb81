package graph

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
)

func build(t *testing.T, decl map[string][]string, order ...string) *Graph {
	t.Helper()
	g := New()
	for _, n := range order {
		require.NoError(t, g.AddNode(n, decl[n]...))
	}
	return g
}

// assertValidOrder checks that every node appears once and after all of its deps.
func assertValidOrder(t *testing.T, g *Graph, order []string) {
	t.Helper()
	pos := map[string]int{}
	for i, n := range order {
		_, dup := pos[n]
		require.False(t, dup, "node %s appears twice in %v", n, order)
		pos[n] = i
	}
	for _, n := range order {
		for _, dep := range g.Edges(n) {
			p, ok := pos[dep]
			require.True(t, ok, "dependency %s of %s missing from %v", dep, n, order)
			assert.Less(t, p, pos[n], "%s must precede %s in %v", dep, n, order)
		}
	}
}

func TestTopologicalOrderChain(t *testing.T) {
	g := build(t, map[string][]string{
		"testbase": {"asserts"},
		"core":     {"testbase"},
		"ftp":      {"core"},
	}, "asserts", "testbase", "core", "ftp")

	order, err := g.TopologicalOrder("ftp")
	require.NoError(t, err)
	assert.Equal(t, []string{"asserts", "testbase", "core", "ftp"}, order)
}

func TestTopologicalOrderDiamondVisitsSharedOnce(t *testing.T) {
	g := build(t, map[string][]string{
		"b": {"a"},
		"c": {"a"},
		"d": {"b", "c"},
	}, "a", "b", "c", "d")

	order, err := g.TopologicalOrder("d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)
	assertValidOrder(t, g, order)
}

func TestTopologicalOrderRespectsDeclaredEdgeOrder(t *testing.T) {
	g := build(t, map[string][]string{"top": {"z", "y", "x"}}, "x", "y", "z", "top")

	order, err := g.TopologicalOrder("top")
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "y", "x", "top"}, order)
}

func TestTopologicalOrderWholeGraph(t *testing.T) {
	g := build(t, map[string][]string{
		"app":  {"lib", "util"},
		"lib":  {"util"},
		"tool": {},
	}, "app", "lib", "util", "tool")

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Len(t, order, 4)
	assertValidOrder(t, g, order)
	assert.Equal(t, "tool", order[len(order)-1])
}

func TestCycleDetected(t *testing.T) {
	g := build(t, map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"a"},
	}, "a", "b", "c", "d")

	_, err := g.TopologicalOrder("d")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryCycle))
	assert.Contains(t, err.Error(), "a -> b -> c -> a")

	members := cycleMembers(err)
	slices.Sort(members)
	assert.Equal(t, []string{"a", "b", "c"}, members)
	assert.NotContains(t, members, "d")
}

func cycleMembers(err error) []string {
	ce, ok := ferrors.AsClassified(err)
	if !ok || ce.Category() != ferrors.CategoryCycle {
		return nil
	}
	v, _ := ce.Context().Get("members")
	members, _ := v.([]string)
	return members
}

func TestSelfCycle(t *testing.T) {
	g := build(t, map[string][]string{"a": {"a"}}, "a")
	err := g.Validate()
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, cycleMembers(err))
}

func TestUnknownDependencyAndRoot(t *testing.T) {
	g := build(t, map[string][]string{"a": {"ghost"}}, "a")

	err := g.Validate()
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	v, _ := ferrors.GetContextString(err, "dependency")
	assert.Equal(t, "ghost", v)

	_, err = g.TopologicalOrder("nope")
	require.Error(t, err)
	assert.Nil(t, cycleMembers(err))
}

func TestDuplicateNode(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode("a"))
	err := g.AddNode("a")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	assert.Error(t, g.AddNode(""))
}

func TestClosure(t *testing.T) {
	g := build(t, map[string][]string{
		"testbase": {"asserts"},
		"core":     {"testbase"},
	}, "asserts", "testbase", "core")

	deps, err := g.Closure("core")
	require.NoError(t, err)
	assert.Equal(t, []string{"asserts", "testbase"}, deps)

	deps, err = g.Closure("asserts")
	require.NoError(t, err)
	assert.Empty(t, deps)
}
