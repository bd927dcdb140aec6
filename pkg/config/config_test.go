package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.Source != "openalex" {
		t.Errorf("Source = %q, want openalex", cfg.Source)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %q, want gpt-4o-mini", cfg.OpenAIModel)
	}
	if cfg.CachePath != "api_cache.sqlite" {
		t.Errorf("CachePath = %q, want api_cache.sqlite", cfg.CachePath)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RESEARCHGRAPH_PORT", "9100")
	t.Setenv("RESEARCHGRAPH_SOURCE", "s2")
	t.Setenv("RESEARCHGRAPH_OPENAI_MODEL", "gpt-4o")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Port)
	}
	if cfg.Source != "s2" {
		t.Errorf("Source = %q, want s2", cfg.Source)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Errorf("OpenAIModel = %q, want gpt-4o", cfg.OpenAIModel)
	}
}

func TestLoadFlagsBeatEnv(t *testing.T) {
	t.Setenv("RESEARCHGRAPH_PORT", "9100")

	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.Int("port", 8000, "")
	if err := f.Parse([]string{"--port", "9200"}); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9200 {
		t.Errorf("Port = %d, want 9200 (flag should win over env)", cfg.Port)
	}
}

func TestLoadRejectsUnknownSource(t *testing.T) {
	t.Setenv("RESEARCHGRAPH_SOURCE", "wikipedia")
	if _, err := Load(nil); err == nil {
		t.Error("expected error for unknown source")
	}
}
