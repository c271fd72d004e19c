package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(edges map[string][]string, order ...string) *DialectSpec {
	spec := &DialectSpec{Name: "d"}
	for _, label := range order {
		spec.Ops = append(spec.Ops, OpSpec{Label: label, Name: "d." + label, Extends: edges[label]})
	}
	return spec
}

func TestAnalyzeInheritance_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeInheritance(&DialectSpec{Name: "d"}))
}

func TestAnalyzeInheritance_DAG(t *testing.T) {
	// Diamond: d extends b and c, both extend a.
	spec := chain(map[string][]string{
		"b": {"a"},
		"c": {"a"},
		"d": {"b", "c"},
	}, "a", "b", "c", "d")
	assert.Empty(t, AnalyzeInheritance(spec))
}

func TestAnalyzeInheritance_SelfLoop(t *testing.T) {
	spec := chain(map[string][]string{"a": {"a"}}, "a")
	cycles := AnalyzeInheritance(spec)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "a"}, cycles[0].Path)
	assert.Equal(t, "a extends itself", cycles[0].Message)
}

func TestAnalyzeInheritance_ThreeNodeCycle(t *testing.T) {
	spec := chain(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}, "c", "a", "b")
	cycles := AnalyzeInheritance(spec)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"c", "a", "b", "c"}, cycles[0].Path, "walk starts at the earliest-declared member")
}

func TestAnalyzeInheritance_IndependentCycles(t *testing.T) {
	spec := chain(map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"x": {"x"},
		"y": {"a"},
	}, "x", "y", "a", "b")
	cycles := AnalyzeInheritance(spec)
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"x", "x"}, cycles[0].Path)
	assert.Equal(t, []string{"a", "b", "a"}, cycles[1].Path)
}

func TestAnalyzeInheritance_IgnoresUnknownAncestors(t *testing.T) {
	spec := chain(map[string][]string{"a": {"ghost"}}, "a")
	assert.Empty(t, AnalyzeInheritance(spec))
}

func TestTarjanSCC_DAG(t *testing.T) {
	graph := inheritanceGraph{"a": {"b"}, "b": {"c"}, "c": {}}
	sccs := tarjanSCC(graph, []string{"a", "b", "c"})
	assert.Len(t, sccs, 3, "each node is its own component")
}

func TestReconstructCyclePath_Empty(t *testing.T) {
	assert.Empty(t, reconstructCyclePath(nil, inheritanceGraph{}, nil))
}
