// Package openalex is the OpenAlex metadata source. OpenAlex has no API key;
// identifying yourself with a mailto User-Agent gets you into the polite
// pool.
package openalex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/researchgraph/backend/pkg/fetch"
	"github.com/researchgraph/backend/pkg/paper"
	"github.com/researchgraph/backend/pkg/source"
)

const (
	// BaseURL is the OpenAlex API base URL.
	BaseURL = "https://api.openalex.org"

	// batchPageSize bounds ids per batched works request. The API allows
	// more, but pipe-joined ids live in the query string and URL length
	// is the real limit.
	batchPageSize = 50

	searchPageSize = 5

	workFields = "id,title,publication_year,referenced_works,cited_by_count,abstract_inverted_index"
)

// work is the OpenAlex Work payload, limited to the selected fields.
type work struct {
	ID                    string           `json:"id"`
	Title                 string           `json:"title"`
	PublicationYear       paper.Year       `json:"publication_year"`
	CitedByCount          int              `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	ReferencedWorks       []string         `json:"referenced_works"`
}

type worksPage struct {
	Results []work `json:"results"`
}

// Client talks to the OpenAlex works API. It implements source.Source.
type Client struct {
	fetcher *fetch.Client
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// NewClient creates an OpenAlex client on top of the given fetcher. Set the
// polite-pool contact via fetch.WithHeader("User-Agent", "mailto:you@...").
func NewClient(fetcher *fetch.Client, opts ...Option) *Client {
	c := &Client{
		fetcher: fetcher,
		baseURL: BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search finds works by title.
func (c *Client) Search(ctx context.Context, query string) ([]paper.Paper, error) {
	var page worksPage
	params := url.Values{
		"filter":   {"title.search:" + query},
		"per-page": {fmt.Sprint(searchPageSize)},
		"select":   {workFields},
	}
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"/works", params, &page); err != nil {
		return nil, fmt.Errorf("searching works: %w", err)
	}

	papers := make([]paper.Paper, 0, len(page.Results))
	for _, w := range page.Results {
		papers = append(papers, formatPaper(w))
	}
	return papers, nil
}

// Paper returns details for one work. Short ids (W...) and full OpenAlex URLs
// are both accepted.
func (c *Client) Paper(ctx context.Context, id string) (*paper.Paper, error) {
	var w work
	params := url.Values{"select": {workFields}}
	err := c.fetcher.GetJSON(ctx, c.baseURL+"/works/"+url.PathEscape(shortID(id)), params, &w)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, source.ErrNotFound
		}
		return nil, fmt.Errorf("fetching work %s: %w", id, err)
	}

	p := formatPaper(w)
	if p.PaperID == "" {
		return nil, source.ErrNotFound
	}
	return &p, nil
}

// PapersBatch fetches many works with the openalex_id filter, chunked to keep
// the pipe-joined id list within URL limits.
func (c *Client) PapersBatch(ctx context.Context, ids []string) ([]paper.Paper, error) {
	var papers []paper.Paper
	for start := 0; start < len(ids); start += batchPageSize {
		end := start + batchPageSize
		if end > len(ids) {
			end = len(ids)
		}

		full := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			full = append(full, "https://openalex.org/"+shortID(id))
		}

		var page worksPage
		params := url.Values{
			"filter":   {"openalex_id:" + strings.Join(full, "|")},
			"per-page": {fmt.Sprint(batchPageSize)},
			"select":   {workFields},
		}
		if err := c.fetcher.GetJSON(ctx, c.baseURL+"/works", params, &page); err != nil {
			return nil, fmt.Errorf("fetching works batch: %w", err)
		}
		for _, w := range page.Results {
			papers = append(papers, formatPaper(w))
		}
	}
	return papers, nil
}

// formatPaper maps an OpenAlex Work to the uniform paper record. OpenAlex
// does not expose an incoming-citation list in this view, so Citations stays
// empty.
func formatPaper(w work) paper.Paper {
	refs := make([]paper.Ref, 0, len(w.ReferencedWorks))
	for _, r := range w.ReferencedWorks {
		if id := shortID(r); id != "" {
			refs = append(refs, paper.Ref{PaperID: id})
		}
	}

	return paper.Paper{
		PaperID:       shortID(w.ID),
		Title:         w.Title,
		Year:          w.PublicationYear,
		CitationCount: w.CitedByCount,
		Abstract:      invertAbstract(w.AbstractInvertedIndex),
		References:    refs,
	}
}

// shortID strips the OpenAlex URL prefixes, leaving the bare W... id.
func shortID(id string) string {
	id = strings.TrimPrefix(id, "https://api.openalex.org/works/")
	id = strings.TrimPrefix(id, "https://openalex.org/")
	return id
}

// invertAbstract reconstructs abstract text from OpenAlex's inverted index,
// which maps each word to the positions it occupies.
func invertAbstract(index map[string][]int) *string {
	if len(index) == 0 {
		return nil
	}

	type placed struct {
		pos  int
		word string
	}
	var words []placed
	for word, positions := range index {
		for _, pos := range positions {
			words = append(words, placed{pos: pos, word: word})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].pos < words[j].pos })

	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.word
	}
	abstract := strings.Join(parts, " ")
	return &abstract
}
