// Package flow converts an assembled, positioned citation graph into the JSON
// document consumed by the React Flow frontend.
package flow

import (
	"fmt"

	"github.com/researchgraph/backend/pkg/graph"
	"github.com/researchgraph/backend/pkg/layout"
	"github.com/researchgraph/backend/pkg/paper"
)

// Visual constants. The seed node gets a highlighted card; similarity edges
// render dashed and lighter than citation edges.
const (
	seedBackground = "#FFF9C4"
	seedBorder     = "2px solid #FBC02D"
	seedBoxShadow  = "0 0 10px rgba(251, 192, 45, 0.5)"

	edgeStroke          = "#b1b1b7"
	similarityStroke    = "#cccccc"
	edgeStrokeWidth     = 2
	solidDasharray      = "0"
	similarityDasharray = "5,5"
	arrowClosedMarker   = "arrowclosed"
)

// Graph is the serializable document returned to the frontend.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a positioned paper card.
type Node struct {
	ID       string    `json:"id"`
	Data     NodeData  `json:"data"`
	Position Position  `json:"position"`
	Type     string    `json:"type"`
	Style    NodeStyle `json:"style"`
}

// NodeData is the display payload of a node.
type NodeData struct {
	Label         string     `json:"label"`
	Year          paper.Year `json:"year"`
	CitationCount int        `json:"citationCount"`
	IsSeed        bool       `json:"isSeed"`
	Abstract      *string    `json:"abstract"`
}

// Position is the node's layout coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeStyle highlights the seed node; it serializes to {} for everything else.
type NodeStyle struct {
	Background string `json:"background,omitempty"`
	Border     string `json:"border,omitempty"`
	BoxShadow  string `json:"boxShadow,omitempty"`
	FontWeight string `json:"fontWeight,omitempty"`
}

// Edge is a styled connection between two paper cards.
type Edge struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Animated  bool      `json:"animated"`
	Label     string    `json:"label"`
	Style     EdgeStyle `json:"style"`
	MarkerEnd *Marker   `json:"markerEnd,omitempty"`
}

// EdgeStyle carries the stroke styling of an edge.
type EdgeStyle struct {
	Stroke          string `json:"stroke"`
	StrokeWidth     int    `json:"strokeWidth"`
	StrokeDasharray string `json:"strokeDasharray"`
}

// Marker is the arrow head drawn on directed edges.
type Marker struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

// FromGraph maps the graph and its computed positions to the frontend schema.
// Nodes without a position default to the origin.
//
// Edge direction models flow of knowledge: when both endpoints carry a known
// publication year and the years differ, the edge points from the older paper
// to the newer one and gets an arrow. Equal or unknown years leave the edge
// undirected in its original orientation.
func FromGraph(g *graph.Graph, pos map[string]layout.Point) *Graph {
	out := &Graph{
		Nodes: make([]Node, 0, g.NumNodes()),
		Edges: make([]Edge, 0, g.NumEdges()),
	}

	for _, n := range g.Nodes() {
		p := pos[n.ID]

		var style NodeStyle
		if n.IsSeed {
			style = NodeStyle{
				Background: seedBackground,
				Border:     seedBorder,
				BoxShadow:  seedBoxShadow,
				FontWeight: "bold",
			}
		}

		out.Nodes = append(out.Nodes, Node{
			ID: n.ID,
			Data: NodeData{
				Label:         n.Label,
				Year:          n.Year,
				CitationCount: n.CitationCount,
				IsSeed:        n.IsSeed,
				Abstract:      n.Abstract,
			},
			Position: Position{X: p.X, Y: p.Y},
			Type:     "default",
			Style:    style,
		})
	}

	for _, e := range g.Edges() {
		source, target := e.U, e.V
		arrow := false

		uYear, uKnown := g.Node(e.U).Year.Int()
		vYear, vKnown := g.Node(e.V).Year.Int()
		if uKnown && vKnown {
			switch {
			case uYear < vYear:
				arrow = true
			case vYear < uYear:
				source, target = e.V, e.U
				arrow = true
			}
		}

		stroke := edgeStroke
		dash := solidDasharray
		if e.Type == graph.EdgeSimilarity {
			stroke = similarityStroke
			dash = similarityDasharray
		}

		label := ""
		if e.Weight != 0 {
			label = fmt.Sprintf("%.2f", e.Weight)
		}

		edge := Edge{
			ID:       fmt.Sprintf("e%s-%s", source, target),
			Source:   source,
			Target:   target,
			Animated: false,
			Label:    label,
			Style: EdgeStyle{
				Stroke:          stroke,
				StrokeWidth:     edgeStrokeWidth,
				StrokeDasharray: dash,
			},
		}
		if arrow {
			edge.MarkerEnd = &Marker{Type: arrowClosedMarker, Color: stroke}
		}

		out.Edges = append(out.Edges, edge)
	}

	return out
}
