// Package graph assembles the citation graph for a seed paper and its 1-hop
// neighborhood. It combines explicit citation links with bibliographic-coupling
// similarity into a single undirected, weighted graph.
package graph

import (
	"github.com/researchgraph/backend/pkg/paper"
)

// EdgeType classifies how two papers are connected.
type EdgeType string

const (
	// EdgeCitation is a direct citation link between the seed and a neighbor.
	EdgeCitation EdgeType = "citation"
	// EdgeImplied connects the seed to a neighbor when no citation data is
	// available, so the visualization stays connected.
	EdgeImplied EdgeType = "implied"
	// EdgeSimilarity is a bibliographic-coupling link between two papers.
	EdgeSimilarity EdgeType = "similarity"
	// EdgeStrongCitation is a citation link reinforced by similarity.
	EdgeStrongCitation EdgeType = "strong_citation"
)

// Node is one paper in the graph, keyed by paper id.
type Node struct {
	ID            string
	Label         string
	Year          paper.Year
	CitationCount int
	IsSeed        bool
	References    map[string]bool
	Citations     map[string]bool
	Abstract      *string
}

// Edge is an undirected connection between two nodes. U and V record the
// orientation the edge was first created with; lookups ignore it.
type Edge struct {
	U      string
	V      string
	Weight float64
	Type   EdgeType
}

// Graph is an undirected graph of papers. A pair of nodes has at most one
// edge. Node and edge iteration follow insertion order so repeated builds of
// the same input produce identical output.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[[2]string]*Edge
	edgeOrder [][2]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[[2]string]*Edge),
	}
}

// AddNode adds a node. A node with an existing id replaces the stored
// attributes but keeps its position in the iteration order.
func (g *Graph) AddNode(n *Node) {
	if n.ID == "" {
		return
	}
	if _, exists := g.nodes[n.ID]; !exists {
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}
	g.nodes[n.ID] = n
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// SetEdge adds an edge between u and v, replacing any existing edge between
// the pair. Self-loops and edges to unknown nodes are ignored.
func (g *Graph) SetEdge(u, v string, weight float64, typ EdgeType) {
	if u == v || g.nodes[u] == nil || g.nodes[v] == nil {
		return
	}
	key := pairKey(u, v)
	if _, exists := g.edges[key]; !exists {
		g.edgeOrder = append(g.edgeOrder, key)
	}
	g.edges[key] = &Edge{U: u, V: v, Weight: weight, Type: typ}
}

// Edge returns the edge between u and v in either orientation, or nil.
func (g *Graph) Edge(u, v string) *Edge {
	return g.edges[pairKey(u, v)]
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		edges = append(edges, g.edges[key])
	}
	return edges
}

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int {
	return len(g.edges)
}

func pairKey(u, v string) [2]string {
	if u < v {
		return [2]string{u, v}
	}
	return [2]string{v, u}
}
