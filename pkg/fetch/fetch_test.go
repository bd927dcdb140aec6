package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/researchgraph/backend/pkg/cache"
)

func TestGetJSONCachesResponses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"value": 7}`))
	}))
	defer srv.Close()

	c := New(cache.NewMemory())

	var out struct {
		Value int `json:"value"`
	}
	for i := 0; i < 3; i++ {
		if err := c.GetJSON(context.Background(), srv.URL, nil, &out); err != nil {
			t.Fatalf("GetJSON: %v", err)
		}
		if out.Value != 7 {
			t.Fatalf("out.Value = %d, want 7", out.Value)
		}
	}

	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1 (warm cache)", hits.Load())
	}
}

func TestQueryParamsArePartOfTheKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"q": "` + r.URL.Query().Get("q") + `"}`))
	}))
	defer srv.Close()

	c := New(cache.NewMemory())

	var out struct {
		Q string `json:"q"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, url.Values{"q": {"first"}}, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if err := c.GetJSON(context.Background(), srv.URL, url.Values{"q": {"second"}}, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Q != "second" {
		t.Errorf("out.Q = %q, want second (distinct cache keys per query)", out.Q)
	}
}

func TestPostJSONKeyIncludesBody(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(cache.NewMemory())

	var out map[string]any
	body1 := map[string][]string{"ids": {"a"}}
	body2 := map[string][]string{"ids": {"b"}}

	if err := c.PostJSON(context.Background(), srv.URL, nil, body1, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if err := c.PostJSON(context.Background(), srv.URL, nil, body2, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if err := c.PostJSON(context.Background(), srv.URL, nil, body1, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}

	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2 (bodies key separately)", hits.Load())
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := New(cache.NewMemory())

	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, nil, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if !out.OK {
		t.Error("out.OK = false, want true after retry")
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(cache.NewMemory())

	var out map[string]any
	err := c.GetJSON(context.Background(), srv.URL, nil, &out)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want StatusError 404", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1 (no retry on 404)", hits.Load())
	}
}

func TestHeadersAreSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"key": "` + r.Header.Get("X-Api-Key") + `"}`))
	}))
	defer srv.Close()

	c := New(cache.NewMemory(), WithHeader("x-api-key", "secret"))

	var out struct {
		Key string `json:"key"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, nil, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Key != "secret" {
		t.Errorf("header received = %q, want secret", out.Key)
	}
}
