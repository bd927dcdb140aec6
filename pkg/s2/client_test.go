package s2

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/researchgraph/backend/pkg/cache"
	"github.com/researchgraph/backend/pkg/fetch"
	"github.com/researchgraph/backend/pkg/source"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(fetch.New(cache.NewMemory()), WithBaseURL(srv.URL))
}

func TestPaper(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/paper/abc" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("fields") == "" {
			t.Error("missing fields parameter")
		}
		w.Write([]byte(`{
			"paperId": "abc",
			"title": "A Paper",
			"year": 2019,
			"citationCount": 12,
			"references": [{"paperId": "r1", "title": "Ref"}],
			"citations": [{"paperId": "c1"}]
		}`))
	})

	p, err := c.Paper(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Paper: %v", err)
	}
	if p.PaperID != "abc" || p.Title != "A Paper" {
		t.Errorf("paper = %+v", p)
	}
	if len(p.References) != 1 || p.References[0].PaperID != "r1" {
		t.Errorf("references = %+v", p.References)
	}
}

func TestPaperNotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Paper(context.Background(), "nope")
	if !errors.Is(err, source.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPapersBatchDropsNullEntries(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body map[string][]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		if len(body["ids"]) != 3 {
			t.Errorf("ids = %v, want 3 entries", body["ids"])
		}
		w.Write([]byte(`[
			{"paperId": "a", "title": "First"},
			null,
			{"paperId": "b", "title": "Second"}
		]`))
	})

	papers, err := c.PapersBatch(context.Background(), []string{"a", "missing", "b"})
	if err != nil {
		t.Fatalf("PapersBatch: %v", err)
	}
	if len(papers) != 2 || papers[0].PaperID != "a" || papers[1].PaperID != "b" {
		t.Errorf("papers = %+v", papers)
	}
}

func TestPapersBatchEmptyInput(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request for empty id list")
	})

	papers, err := c.PapersBatch(context.Background(), nil)
	if err != nil || papers != nil {
		t.Errorf("PapersBatch(nil) = %v, %v; want nil, nil", papers, err)
	}
}

func TestSearch(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "transformers" {
			t.Errorf("query = %q", got)
		}
		w.Write([]byte(`{"data": [{"paperId": "a", "title": "Hit"}]}`))
	})

	results, err := c.Search(context.Background(), "transformers")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Hit" {
		t.Errorf("results = %+v", results)
	}
}
