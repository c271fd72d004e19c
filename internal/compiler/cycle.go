package compiler

import (
	"fmt"
	"slices"
	"strings"
)

// InheritanceCycle is a loop in the extends graph of a dialect.
type InheritanceCycle struct {
	Path    []string `json:"path"`    // op labels: ["a", "b", "a"]
	Message string   `json:"message"` // human-readable description
}

// AnalyzeInheritance finds every cycle in the extends graph.
//
// The algorithm:
//  1. Build label -> ancestor labels from each op's extends list
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1, and each self-extending op
//
// Edges to undeclared labels are ignored; Validate reports those
// separately. Results follow declaration order.
func AnalyzeInheritance(spec *DialectSpec) []InheritanceCycle {
	if len(spec.Ops) == 0 {
		return []InheritanceCycle{}
	}

	order := make([]string, 0, len(spec.Ops))
	for _, op := range spec.Ops {
		order = append(order, op.Label)
	}
	graph := buildInheritanceGraph(spec)

	var cycles []InheritanceCycle
	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, sccToCycle(scc, graph, order))
		}
	}
	slices.SortFunc(cycles, func(a, b InheritanceCycle) int {
		return slices.Index(order, a.Path[0]) - slices.Index(order, b.Path[0])
	})
	return cycles
}

// inheritanceGraph maps an op label to the labels it extends.
type inheritanceGraph map[string][]string

func buildInheritanceGraph(spec *DialectSpec) inheritanceGraph {
	declared := make(map[string]bool, len(spec.Ops))
	for _, op := range spec.Ops {
		declared[op.Label] = true
	}

	graph := make(inheritanceGraph)
	for _, op := range spec.Ops {
		if graph[op.Label] == nil {
			graph[op.Label] = []string{}
		}
		for _, anc := range op.Extends {
			if declared[anc] {
				graph[op.Label] = append(graph[op.Label], anc)
			}
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph inheritanceGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm,
// visiting roots in the given order.
//
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph inheritanceGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToCycle(scc []string, graph inheritanceGraph, order []string) InheritanceCycle {
	if len(scc) == 1 {
		label := scc[0]
		return InheritanceCycle{
			Path:    []string{label, label},
			Message: fmt.Sprintf("%s extends itself", label),
		}
	}

	path := reconstructCyclePath(scc, graph, order)
	return InheritanceCycle{
		Path:    path,
		Message: fmt.Sprintf("inheritance cycle: %s", strings.Join(path, " -> ")),
	}
}

// reconstructCyclePath walks the SCC from its earliest-declared member,
// following extends edges to other members until it returns to the start.
func reconstructCyclePath(scc []string, graph inheritanceGraph, order []string) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}
	start := scc[0]
	for _, node := range order {
		if members[node] {
			start = node
			break
		}
	}

	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
