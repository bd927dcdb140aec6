package graph

import (
	"errors"

	"github.com/researchgraph/backend/pkg/paper"
)

// ErrInvalidInput is returned when the seed record is missing a paper id.
var ErrInvalidInput = errors.New("seed paper has no paperId")

const (
	// DefaultSimilarityThreshold is the minimum Jaccard score for a
	// bibliographic-coupling edge. 0.05 is low on purpose: paper reference
	// lists are long, so even a handful of shared references is a signal.
	DefaultSimilarityThreshold = 0.05

	// DefaultImpliedWeight is the weight of fallback edges added when the
	// seed has no usable citation links to its neighborhood.
	DefaultImpliedWeight = 0.5
)

// Options tunes graph assembly. The zero value selects the defaults.
type Options struct {
	SimilarityThreshold float64
	ImpliedWeight       float64
}

func (o Options) withDefaults() Options {
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if o.ImpliedWeight == 0 {
		o.ImpliedWeight = DefaultImpliedWeight
	}
	return o
}

// Assemble builds the citation graph for a seed paper and its neighborhood.
//
// Neighborhood records without a paper id are dropped. The seed is connected
// to neighbors it cites and neighbors that cite it (weight 1.0). If that
// yields no edges at all, the seed is connected to every neighbor with a
// lighter implied edge so no node floats disconnected. Finally every
// unordered pair of nodes is scored by Jaccard similarity of their reference
// sets; scores above the threshold either create a similarity edge or
// reinforce an existing edge into a strong citation.
func Assemble(seed *paper.Paper, neighborhood []paper.Paper, opts Options) (*Graph, error) {
	if seed == nil || seed.PaperID == "" {
		return nil, ErrInvalidInput
	}
	opts = opts.withDefaults()

	g := New()
	g.AddNode(newNode(seed, true))

	neighborhoodIDs := make(map[string]bool, len(neighborhood))
	for i := range neighborhood {
		p := &neighborhood[i]
		if p.PaperID == "" {
			continue
		}
		if p.PaperID == seed.PaperID {
			// The seed can appear in its own citation lists upstream;
			// the seed node already exists and must stay the seed.
			continue
		}
		g.AddNode(newNode(p, false))
		neighborhoodIDs[p.PaperID] = true
	}

	// Citation layer. Both directions are checked because the source may
	// populate only one of references/citations on the seed.
	for _, ref := range seed.References {
		if neighborhoodIDs[ref.PaperID] {
			g.SetEdge(seed.PaperID, ref.PaperID, 1.0, EdgeCitation)
		}
	}
	for _, cit := range seed.Citations {
		if neighborhoodIDs[cit.PaperID] {
			g.SetEdge(seed.PaperID, cit.PaperID, 1.0, EdgeCitation)
		}
	}

	// No citation links at all: force a connection for the visualization.
	if g.NumEdges() == 0 {
		for _, n := range g.Nodes() {
			if !n.IsSeed {
				g.SetEdge(seed.PaperID, n.ID, opts.ImpliedWeight, EdgeImplied)
			}
		}
	}

	// Similarity layer: bibliographic coupling over every unordered pair,
	// the seed included.
	nodes := g.Nodes()
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			score := Jaccard(nodes[i].References, nodes[j].References)
			if score <= opts.SimilarityThreshold {
				continue
			}
			if e := g.Edge(nodes[i].ID, nodes[j].ID); e != nil {
				e.Weight += score
				e.Type = EdgeStrongCitation
			} else {
				g.SetEdge(nodes[i].ID, nodes[j].ID, score, EdgeSimilarity)
			}
		}
	}

	return g, nil
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]bool) float64 {
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func newNode(p *paper.Paper, isSeed bool) *Node {
	label := p.Title
	if label == "" {
		label = "Untitled"
	}
	return &Node{
		ID:            p.PaperID,
		Label:         label,
		Year:          p.Year,
		CitationCount: p.CitationCount,
		IsSeed:        isSeed,
		References:    p.ReferenceIDs(),
		Citations:     p.CitationIDs(),
		Abstract:      p.Abstract,
	}
}
