// Package s2 is the Semantic Scholar Graph API metadata source.
package s2

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/researchgraph/backend/pkg/fetch"
	"github.com/researchgraph/backend/pkg/paper"
	"github.com/researchgraph/backend/pkg/source"
)

const (
	// BaseURL is the Semantic Scholar Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// RateLimit is the polite request rate for unauthenticated use.
	RateLimit = 1.0

	// searchLimit bounds free-text search results.
	searchLimit = 5

	// searchFields are the fields requested for search results.
	searchFields = "paperId,title,year,citationCount,abstract,authors"

	// detailFields additionally pull each paper's reference and citation
	// stubs; the batch endpoint needs the per-paper reference lists for
	// similarity scoring.
	detailFields = "paperId,title,year,citationCount,abstract,authors," +
		"citations.paperId,citations.title,citations.year,citations.abstract," +
		"references.paperId,references.title,references.year,references.abstract"
)

// Client talks to the Semantic Scholar Graph API. It implements
// source.Source.
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

// NewClient creates a Semantic Scholar client on top of the given fetcher.
// Pass the API key to the fetcher via fetch.WithHeader("x-api-key", ...).
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

// Search finds papers by title or keyword.
func (c *Client) Search(ctx context.Context, query string) ([]paper.Paper, error) {
	var resp struct {
		Data []paper.Paper `json:"data"`
	}
	params := url.Values{
		"query":  {query},
		"limit":  {fmt.Sprint(searchLimit)},
		"fields": {searchFields},
	}
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"/paper/search", params, &resp); err != nil {
		return nil, fmt.Errorf("searching papers: %w", err)
	}
	return resp.Data, nil
}

// Paper returns full details for one paper, including reference and citation
// stubs.
func (c *Client) Paper(ctx context.Context, id string) (*paper.Paper, error) {
	var p paper.Paper
	params := url.Values{"fields": {detailFields}}
	err := c.fetcher.GetJSON(ctx, c.baseURL+"/paper/"+url.PathEscape(id), params, &p)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, source.ErrNotFound
		}
		return nil, fmt.Errorf("fetching paper %s: %w", id, err)
	}
	if p.PaperID == "" {
		return nil, source.ErrNotFound
	}
	return &p, nil
}

// PapersBatch fetches many papers in one request. The batch endpoint returns
// null entries for unknown ids; those are dropped.
func (c *Client) PapersBatch(ctx context.Context, ids []string) ([]paper.Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var resp []*paper.Paper
	params := url.Values{"fields": {detailFields}}
	body := map[string][]string{"ids": ids}
	if err := c.fetcher.PostJSON(ctx, c.baseURL+"/paper/batch", params, body, &resp); err != nil {
		return nil, fmt.Errorf("fetching paper batch: %w", err)
	}

	papers := make([]paper.Paper, 0, len(resp))
	for _, p := range resp {
		if p != nil && p.PaperID != "" {
			papers = append(papers, *p)
		}
	}
	return papers, nil
}
