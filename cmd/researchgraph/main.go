package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/researchgraph/backend/pkg/cache"
	"github.com/researchgraph/backend/pkg/config"
	"github.com/researchgraph/backend/pkg/fetch"
	"github.com/researchgraph/backend/pkg/logging"
	"github.com/researchgraph/backend/pkg/openalex"
	"github.com/researchgraph/backend/pkg/s2"
	"github.com/researchgraph/backend/pkg/source"
	"github.com/researchgraph/backend/pkg/summarize"
	"github.com/researchgraph/backend/pkg/web"
)

func main() {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	flags := pflag.NewFlagSet("researchgraph", pflag.ExitOnError)
	flags.Int("port", 8000, "Port for the HTTP server")
	flags.String("source", "openalex", "Paper metadata source (openalex or s2)")
	flags.String("cache", "api_cache.sqlite", "Path to the SQLite response cache")
	flags.String("mailto", "", "Contact address for the OpenAlex polite pool")
	flags.Bool("json-logs", false, "Emit logs as JSON")
	flags.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Legacy environment variables from before the RESEARCHGRAPH_ prefix
	if cfg.OpenAIKey == "" {
		cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.S2APIKey == "" {
		cfg.S2APIKey = os.Getenv("S2_API_KEY")
	}

	level := logging.LevelFromVerbosity(cfg.VerboseCnt)
	if cfg.JSONLogs {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}

	store, err := cache.OpenSQLite(cfg.CachePath)
	if err != nil {
		logging.Fatal("failed to open response cache", "path", cfg.CachePath, "error", err)
	}
	defer store.Close()

	var src source.Source
	switch cfg.Source {
	case "s2":
		opts := []fetch.Option{fetch.WithRateLimit(s2.RateLimit)}
		if cfg.S2APIKey != "" {
			opts = append(opts, fetch.WithHeader("x-api-key", cfg.S2APIKey))
		}
		src = s2.NewClient(fetch.New(store, opts...))
	default:
		var opts []fetch.Option
		if cfg.Mailto != "" {
			opts = append(opts, fetch.WithHeader("User-Agent", "researchgraph (mailto:"+cfg.Mailto+")"))
		}
		src = openalex.NewClient(fetch.New(store, opts...))
	}

	summarizer := summarize.New(cfg.OpenAIKey, cfg.OpenAIModel)
	if !summarizer.Enabled() {
		logging.Warn("no OpenAI API key configured, summaries are disabled")
	}

	logging.Info("starting researchgraph backend",
		"port", cfg.Port,
		"source", cfg.Source,
		"cache", cfg.CachePath,
	)

	server := web.NewServer(src, summarizer)
	if err := server.Start(cfg.Port); err != nil {
		logging.Fatal("server failed", "error", err)
	}
}
