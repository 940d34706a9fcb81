// Package graph implements a small directed dependency graph with ordered
// edges, a memoized depth-first topological sort and cycle reporting.
//
// Edges point from a node to the nodes it depends on. A topological order
// therefore lists dependencies before their dependents, visiting each node's
// edges in the order they were declared. Diamonds are legal; every node
// appears exactly once.
package graph
