// Package source defines the metadata-source interface the graph builder
// consumes, and the neighborhood selection applied to a seed paper before
// assembly.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/researchgraph/backend/pkg/paper"
)

// ErrNotFound indicates the source has no paper for the requested id.
var ErrNotFound = errors.New("paper not found")

// NeighborhoodLimit bounds how many references and how many citations of the
// seed are considered for the 1-hop graph.
const NeighborhoodLimit = 20

// Source supplies paper metadata. Implementations exist for Semantic Scholar
// and OpenAlex.
type Source interface {
	// Search finds papers matching a free-text query.
	Search(ctx context.Context, query string) ([]paper.Paper, error)

	// Paper returns full details for one paper, including its reference
	// and citation stubs. Returns ErrNotFound when the id is unknown.
	Paper(ctx context.Context, id string) (*paper.Paper, error)

	// PapersBatch returns full details for many papers at once. Ids the
	// source cannot resolve are omitted from the result.
	PapersBatch(ctx context.Context, ids []string) ([]paper.Paper, error)
}

// NeighborhoodIDs selects the candidate neighborhood of a seed paper: its
// first NeighborhoodLimit references and first NeighborhoodLimit citations,
// deduplicated in encounter order. Stubs without an id are skipped.
func NeighborhoodIDs(seed *paper.Paper) []string {
	seen := make(map[string]bool)
	var ids []string

	add := func(refs []paper.Ref) {
		n := 0
		for _, r := range refs {
			if n == NeighborhoodLimit {
				break
			}
			n++
			if r.PaperID == "" || seen[r.PaperID] || r.PaperID == seed.PaperID {
				continue
			}
			seen[r.PaperID] = true
			ids = append(ids, r.PaperID)
		}
	}

	add(seed.References)
	add(seed.Citations)
	return ids
}

// Neighborhood fetches full records for the seed's candidate neighborhood.
// Records the source could not resolve, and records that come back without a
// paper id, are dropped.
func Neighborhood(ctx context.Context, src Source, seed *paper.Paper) ([]paper.Paper, error) {
	ids := NeighborhoodIDs(seed)
	if len(ids) == 0 {
		return nil, nil
	}

	papers, err := src.PapersBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching neighborhood: %w", err)
	}

	valid := papers[:0]
	for _, p := range papers {
		if p.PaperID != "" {
			valid = append(valid, p)
		}
	}
	return valid, nil
}
