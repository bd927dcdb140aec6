// Package web is the HTTP surface of the service: search, graph building,
// LLM summaries, and an SSE stream of build progress.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/researchgraph/backend/pkg/flow"
	"github.com/researchgraph/backend/pkg/graph"
	"github.com/researchgraph/backend/pkg/layout"
	"github.com/researchgraph/backend/pkg/logging"
	"github.com/researchgraph/backend/pkg/pubsub"
	"github.com/researchgraph/backend/pkg/source"
	"github.com/researchgraph/backend/pkg/summarize"
)

const (
	defaultCanvasWidth  = 1000
	defaultCanvasHeight = 1000

	buildSteps = 4

	summaryErrorNotice     = "Failed to generate summary due to an error."
	explanationErrorNotice = "Failed to generate explanation."
)

// Server represents the web server
type Server struct {
	router     *mux.Router
	source     source.Source
	summarizer *summarize.Client
	publisher  pubsub.Publisher
}

// NewServer creates a new web server on top of a metadata source and a
// summarizer.
func NewServer(src source.Source, summarizer *summarize.Client) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// build_status: buffer last 10 events, replay only the current state
	// to new subscribers
	ssePublisher.ConfigureTopic(pubsub.TopicBuildStatus, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	s := &Server{
		router:     mux.NewRouter(),
		source:     src,
		summarizer: summarizer,
		publisher:  ssePublisher,
	}
	s.setupRoutes()
	return s
}

// Handler returns the full middleware-wrapped handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(corsMiddleware(s.router))
}

// publishBuildStatus publishes a build progress event
func (s *Server) publishBuildStatus(state, message string, step int) {
	status := pubsub.BuildStatus{
		State:   state,
		Message: message,
		Step:    step,
		Total:   buildSteps,
	}
	if err := s.publisher.Publish(pubsub.TopicBuildStatus, state, status); err != nil {
		logging.Warn("failed to publish build status", "state", state, "error", err)
	}
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/build_status", s.handleSubscribeBuildStatus).Methods("GET")

	// API routes
	s.router.HandleFunc("/search", s.handleSearch).Methods("GET")
	s.router.HandleFunc("/build_graph", s.handleBuildGraph).Methods("GET")
	s.router.HandleFunc("/summarize_connection", s.handleSummarizeConnection).Methods("POST")
	s.router.HandleFunc("/explain_abstract", s.handleExplainAbstract).Methods("POST")
	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"message": "ResearchGraph Backend is running"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		http.Error(w, "query parameter is required", http.StatusBadRequest)
		return
	}

	results, err := s.source.Search(r.Context(), query)
	if err != nil {
		logging.ErrorContext(r.Context(), "search failed", "query", query, "error", err)
		http.Error(w, "search failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, map[string]any{"results": results})
}

func (s *Server) handleBuildGraph(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paperID := r.URL.Query().Get("paper_id")
	if paperID == "" {
		http.Error(w, "paper_id parameter is required", http.StatusBadRequest)
		return
	}
	width, err := dimensionParam(r, "width", defaultCanvasWidth)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	height, err := dimensionParam(r, "height", defaultCanvasHeight)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// 1. Fetch seed paper details (references/citations included)
	s.publishBuildStatus(pubsub.StateFetchingSeed, "Fetching seed paper", 1)
	seed, err := s.source.Paper(ctx, paperID)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			http.Error(w, "Paper not found", http.StatusNotFound)
			return
		}
		logging.ErrorContext(ctx, "seed fetch failed", "paperID", paperID, "error", err)
		http.Error(w, "failed to fetch paper", http.StatusBadGateway)
		return
	}

	// 2. Resolve the 1-hop neighborhood
	s.publishBuildStatus(pubsub.StateFetchingNeighborhood, "Fetching neighborhood papers", 2)
	neighborhood, err := source.Neighborhood(ctx, s.source, seed)
	if err != nil {
		logging.ErrorContext(ctx, "neighborhood fetch failed", "paperID", paperID, "error", err)
		http.Error(w, "failed to fetch neighborhood", http.StatusBadGateway)
		return
	}

	// 3. Assemble nodes and edges
	s.publishBuildStatus(pubsub.StateAssembling, "Assembling graph", 3)
	g, err := graph.Assemble(seed, neighborhood, graph.Options{})
	if err != nil {
		logging.ErrorContext(ctx, "graph assembly failed", "paperID", paperID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// 4. Lay out and map to the wire format
	s.publishBuildStatus(pubsub.StateLayout, "Computing layout", 4)
	positions := layout.Positions(g, float64(width), float64(height))
	result := flow.FromGraph(g, positions)

	s.publishBuildStatus(pubsub.StateReady, "Graph ready", buildSteps)
	logging.InfoContext(ctx, "graph built",
		"paperID", paperID,
		"nodes", len(result.Nodes),
		"edges", len(result.Edges),
	)
	writeJSON(w, result)
}

func (s *Server) handleSummarizeConnection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceAbstract string `json:"source_abstract"`
		TargetAbstract string `json:"target_abstract"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	summary, err := s.summarizer.SummarizeConnection(r.Context(), req.SourceAbstract, req.TargetAbstract)
	if err != nil {
		// The UI treats the summary text as the answer, errors included.
		logging.ErrorContext(r.Context(), "summarize failed", "error", err)
		summary = summaryErrorNotice
	}
	writeJSON(w, map[string]string{"summary": summary})
}

func (s *Server) handleExplainAbstract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Abstract string `json:"abstract"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	explanation, err := s.summarizer.ExplainAbstract(r.Context(), req.Abstract)
	if err != nil {
		logging.ErrorContext(r.Context(), "explain failed", "error", err)
		explanation = explanationErrorNotice
	}
	writeJSON(w, map[string]string{"explanation": explanation})
}

func (s *Server) handleSubscribeBuildStatus(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	sub, err := s.publisher.Subscribe(r.Context(), pubsub.TopicBuildStatus)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	// Stream events
	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			logging.ErrorContext(r.Context(), "error writing SSE event", "error", err)
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}

// dimensionParam parses an optional positive integer query parameter.
func dimensionParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

// corsMiddleware allows the browser frontend to call the API from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start starts the web server on the specified port
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("starting web server", "addr", fmt.Sprintf("http://localhost%s", addr))
	return http.ListenAndServe(addr, s.Handler())
}
