package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all configuration for the application
type Config struct {
	Port        int    `koanf:"port"`
	Source      string `koanf:"source"`
	CachePath   string `koanf:"cache"`
	Mailto      string `koanf:"mailto"`
	S2APIKey    string `koanf:"s2-api-key"`
	OpenAIKey   string `koanf:"openai-api-key"`
	OpenAIModel string `koanf:"openai-model"`
	JSONLogs    bool   `koanf:"json-logs"`
	VerboseCnt  int    `koanf:"verbose"`
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"port":           8000,
		"source":         "openalex",
		"cache":          "api_cache.sqlite",
		"mailto":         "",
		"s2-api-key":     "",
		"openai-api-key": "",
		"openai-model":   "gpt-4o-mini",
		"json-logs":      false,
		"verbose":        0,
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional) - researchgraph.toml
	// We ignore errors here as the file might not exist
	_ = k.Load(file.Provider("researchgraph.toml"), toml.Parser())

	// 3. Environment Variables
	// Prefix: RESEARCHGRAPH_ (e.g., RESEARCHGRAPH_PORT=9090). Underscores map
	// to the dashed keys used by the flags.
	if err := k.Load(env.Provider("RESEARCHGRAPH_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "RESEARCHGRAPH_")), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Source != "openalex" && cfg.Source != "s2" {
		return nil, fmt.Errorf("unknown source %q (want openalex or s2)", cfg.Source)
	}

	return &cfg, nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
