package graph

import (
	"fmt"
	"slices"
	"strings"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
)

// Graph is a set of named nodes with ordered dependency edges.
type Graph struct {
	nodes []string
	edges map[string][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{edges: map[string][]string{}}
}

// AddNode declares a node and its dependencies in order. Declaring the same
// node twice is a configuration error. Dependencies may be declared later.
func (g *Graph) AddNode(name string, deps ...string) error {
	if name == "" {
		return ferrors.ValidationError("graph node name cannot be empty").Build()
	}
	if _, ok := g.edges[name]; ok {
		return ferrors.ConfigError(fmt.Sprintf("duplicate node %q", name)).
			WithContext("node", name).Build()
	}
	g.nodes = append(g.nodes, name)
	g.edges[name] = slices.Clone(deps)
	if g.edges[name] == nil {
		g.edges[name] = []string{}
	}
	return nil
}

// Has reports whether name was declared.
func (g *Graph) Has(name string) bool {
	_, ok := g.edges[name]
	return ok
}

// Nodes returns node names in declaration order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// Edges returns the direct dependencies of name in declaration order.
func (g *Graph) Edges(name string) []string {
	return slices.Clone(g.edges[name])
}

// Validate checks that every edge targets a declared node and that the whole
// graph is acyclic.
func (g *Graph) Validate() error {
	_, err := g.TopologicalOrder()
	return err
}

// TopologicalOrder returns roots and everything they transitively depend on,
// dependencies first. With no roots the whole graph is ordered, starting from
// nodes in declaration order.
func (g *Graph) TopologicalOrder(roots ...string) ([]string, error) {
	if len(roots) == 0 {
		roots = g.nodes
	}

	s := &sorter{g: g, state: make(map[string]visitState, len(g.nodes))}
	for _, r := range roots {
		if !g.Has(r) {
			return nil, ferrors.ConfigError(fmt.Sprintf("unknown node %q", r)).
				WithContext("node", r).Build()
		}
		if err := s.visit(r, ""); err != nil {
			return nil, err
		}
	}
	return s.order, nil
}

// Closure returns the transitive dependencies of name, dependencies first,
// excluding name itself.
func (g *Graph) Closure(name string) ([]string, error) {
	order, err := g.TopologicalOrder(name)
	if err != nil {
		return nil, err
	}
	return order[:len(order)-1], nil
}

type visitState int

const (
	unvisited visitState = iota
	visiting
	done
)

type sorter struct {
	g     *Graph
	state map[string]visitState
	stack []string
	order []string
}

func (s *sorter) visit(name, from string) error {
	switch s.state[name] {
	case done:
		return nil
	case visiting:
		return cycleError(s.cycleFrom(name))
	}

	deps, ok := s.g.edges[name]
	if !ok {
		return ferrors.ConfigError(fmt.Sprintf("%s depends on unknown node %q", from, name)).
			WithContext("node", from).
			WithContext("dependency", name).
			Build()
	}

	s.state[name] = visiting
	s.stack = append(s.stack, name)
	for _, dep := range deps {
		if err := s.visit(dep, name); err != nil {
			return err
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	s.state[name] = done
	s.order = append(s.order, name)
	return nil
}

// cycleFrom returns the path on the current stack starting at name and
// closing back on it.
func (s *sorter) cycleFrom(name string) []string {
	i := slices.Index(s.stack, name)
	cycle := slices.Clone(s.stack[i:])
	return append(cycle, name)
}

func cycleError(path []string) error {
	members := path[:len(path)-1]
	rendered := strings.Join(path, " -> ")
	return ferrors.CycleDetected("dependency cycle: "+rendered).
		WithContext("cycle", rendered).
		WithContext("members", slices.Clone(members)).
		Build()
}
