// Package layout computes 2-D coordinates for an assembled citation graph.
// The primary algorithm is a seeded force-directed placement; a circular
// arrangement is the fallback when the force computation fails, so callers
// always get positions back.
package layout

import (
	"fmt"
	"math"
	"math/rand/v2"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/researchgraph/backend/pkg/graph"
	"github.com/researchgraph/backend/pkg/logging"
)

const (
	// springUpdates is the number of force-directed iterations.
	springUpdates = 100

	// layoutSeed fixes the pseudo-random initial placement. Repeated runs
	// on an identical graph must produce identical coordinates.
	layoutSeed = 42

	// scaleFactor converts the smaller canvas dimension into the layout
	// spread.
	scaleFactor = 0.6
)

// Point is a 2-D coordinate.
type Point struct {
	X float64
	Y float64
}

// Positions computes coordinates for every node in g, scaled to
// 0.6 × min(width, height). It never fails: if the force-directed placement
// panics or produces non-finite coordinates, nodes are arranged evenly on a
// circle of the same scale instead.
func Positions(g *graph.Graph, width, height float64) map[string]Point {
	scale := scaleFactor * math.Min(width, height)

	pos, err := springPositions(g, scale)
	if err != nil {
		logging.Debug("spring layout failed, using circular fallback", "error", err)
		return circularPositions(g, scale)
	}
	return pos
}

// springPositions runs the Eades spring embedder over the graph. The embedder
// operates on an anonymous gonum graph; node ids map to positions by the
// graph's insertion order. Errors (including recovered panics) mean the
// caller should fall back.
func springPositions(g *graph.Graph, scale float64) (pos map[string]Point, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("spring layout panicked: %v", r)
		}
	}()

	nodes := g.Nodes()
	if len(nodes) == 0 {
		return map[string]Point{}, nil
	}

	ug := newOrderedGraph(g)
	ids := ug.ids

	eades := layout.EadesR2{
		Repulsion: scale / 5.0,
		Rate:      0.05,
		Updates:   springUpdates,
		Theta:     0.1,
		Src:       rand.NewPCG(layoutSeed, layoutSeed),
	}
	optimizer := layout.NewOptimizerR2(ug, eades.Update)
	for optimizer.Update() {
	}

	pos = make(map[string]Point, len(nodes))
	for _, n := range nodes {
		c := optimizer.Coord2(ids[n.ID])
		pos[n.ID] = Point{X: c.X, Y: c.Y}
	}

	rescale(pos, scale)

	for id, p := range pos {
		if !finite(p.X) || !finite(p.Y) {
			return nil, fmt.Errorf("non-finite coordinate for node %s", id)
		}
	}
	return pos, nil
}

// circularPositions places nodes evenly on a circle of radius scale, in graph
// insertion order. A single node sits at the origin.
func circularPositions(g *graph.Graph, scale float64) map[string]Point {
	nodes := g.Nodes()
	pos := make(map[string]Point, len(nodes))

	if len(nodes) == 1 {
		pos[nodes[0].ID] = Point{}
		return pos
	}

	step := 2 * math.Pi / float64(len(nodes))
	for i, n := range nodes {
		theta := float64(i) * step
		pos[n.ID] = Point{
			X: scale * math.Cos(theta),
			Y: scale * math.Sin(theta),
		}
	}
	return pos
}

// rescale centers the positions on the origin and scales them so the largest
// absolute coordinate equals scale. A degenerate spread leaves every node at
// the origin.
func rescale(pos map[string]Point, scale float64) {
	if len(pos) == 0 {
		return
	}

	var meanX, meanY float64
	for _, p := range pos {
		meanX += p.X
		meanY += p.Y
	}
	meanX /= float64(len(pos))
	meanY /= float64(len(pos))

	var lim float64
	for id, p := range pos {
		p.X -= meanX
		p.Y -= meanY
		pos[id] = p
		lim = math.Max(lim, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	if lim == 0 {
		return
	}

	factor := scale / lim
	for id, p := range pos {
		pos[id] = Point{X: p.X * factor, Y: p.Y * factor}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// orderedGraph presents the citation graph to gonum with a fixed iteration
// order. The embedder sums forces in whatever order Nodes and From yield, so
// map-backed iterators (as in simple.UndirectedGraph) perturb the low bits of
// the result between runs even with a fixed random source. Nodes iterate in
// graph insertion order and neighbors in edge insertion order.
type orderedGraph struct {
	nodes []gonumgraph.Node
	ids   map[string]int64
	adj   map[int64][]gonumgraph.Node
}

func newOrderedGraph(g *graph.Graph) *orderedGraph {
	nodes := g.Nodes()

	og := &orderedGraph{
		nodes: make([]gonumgraph.Node, len(nodes)),
		ids:   make(map[string]int64, len(nodes)),
		adj:   make(map[int64][]gonumgraph.Node, len(nodes)),
	}
	for i, n := range nodes {
		id := int64(i)
		og.nodes[i] = simple.Node(id)
		og.ids[n.ID] = id
	}
	for _, e := range g.Edges() {
		u, v := og.ids[e.U], og.ids[e.V]
		og.adj[u] = append(og.adj[u], simple.Node(v))
		og.adj[v] = append(og.adj[v], simple.Node(u))
	}
	return og
}

func (g *orderedGraph) Node(id int64) gonumgraph.Node {
	if id < 0 || id >= int64(len(g.nodes)) {
		return nil
	}
	return g.nodes[id]
}

func (g *orderedGraph) Nodes() gonumgraph.Nodes {
	return iterator.NewOrderedNodes(g.nodes)
}

func (g *orderedGraph) From(id int64) gonumgraph.Nodes {
	return iterator.NewOrderedNodes(g.adj[id])
}

func (g *orderedGraph) HasEdgeBetween(xid, yid int64) bool {
	for _, n := range g.adj[xid] {
		if n.ID() == yid {
			return true
		}
	}
	return false
}

func (g *orderedGraph) Edge(uid, vid int64) gonumgraph.Edge {
	if !g.HasEdgeBetween(uid, vid) {
		return nil
	}
	return simple.Edge{F: simple.Node(uid), T: simple.Node(vid)}
}
