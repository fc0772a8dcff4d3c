// Package graph fetches the neighbourhood of matched disorders from a graph
// store and renders it for the browser.
package graph

import "context"

// Node is a vertex shown in the visualization.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Edge is a directed, labelled relation between two nodes.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// Graph is the subgraph returned for a set of disorder names.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Store returns every outgoing relation of the nodes named in names.
type Store interface {
	Neighborhood(ctx context.Context, names []string) (Graph, error)
}

// builder deduplicates nodes while keeping first-seen order.
type builder struct {
	seen  map[string]struct{}
	graph Graph
}

func newBuilder() *builder {
	return &builder{
		seen:  make(map[string]struct{}),
		graph: Graph{Nodes: []Node{}, Edges: []Edge{}},
	}
}

func (b *builder) node(id, label string) {
	if _, ok := b.seen[id]; ok {
		return
	}
	b.seen[id] = struct{}{}
	b.graph.Nodes = append(b.graph.Nodes, Node{ID: id, Label: label})
}

func (b *builder) edge(from, to, label string) {
	b.graph.Edges = append(b.graph.Edges, Edge{From: from, To: to, Label: label})
}
