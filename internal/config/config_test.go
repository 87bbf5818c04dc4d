package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"PriceScanner/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(searchAPIKeyEnv, "")

	cfg := Load()
	if cfg.Cache.TTL != 24*time.Hour {
		t.Fatalf("unexpected default ttl: %v", cfg.Cache.TTL)
	}
	if cfg.Source.MaxResults != 10 {
		t.Fatalf("unexpected max results: %d", cfg.Source.MaxResults)
	}
	if cfg.Source.Country != "au" {
		t.Fatalf("unexpected country: %s", cfg.Source.Country)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
source:
  scanner: customsearch
  timeout: 5s
cache:
  backend: memory
  ttl: 5m
customSearch:
  allowedDomains:
    coles.com.au: Coles
chatgpt:
  model: gpt-4o
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(searchAPIKeyEnv, "key-from-env")
	t.Setenv(cacheTTLEnv, "600")
	t.Setenv(chatGPTModelEnv, "")

	cfg := Load()

	if cfg.Source.Scanner != "customsearch" {
		t.Fatalf("scanner not loaded from yaml: %s", cfg.Source.Scanner)
	}
	if cfg.Source.Timeout != 5*time.Second {
		t.Fatalf("timeout not loaded from yaml: %v", cfg.Source.Timeout)
	}
	if cfg.Source.Fallback != "demo" {
		t.Fatalf("absent key lost its default: %q", cfg.Source.Fallback)
	}
	if cfg.Cache.Backend != "memory" {
		t.Fatalf("backend not loaded: %s", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Fatalf("env ttl override not applied: %v", cfg.Cache.TTL)
	}
	if cfg.SearchAPI.APIKey != "key-from-env" {
		t.Fatalf("env api key not applied: %q", cfg.SearchAPI.APIKey)
	}
	if len(cfg.CustomSearch.AllowedDomains) != 1 {
		t.Fatalf("allow-list should be replaced, got %v", cfg.CustomSearch.AllowedDomains)
	}
	if cfg.ChatGPT.Model != "gpt-4o" {
		t.Fatalf("model not loaded: %s", cfg.ChatGPT.Model)
	}
	if cfg.ChatGPT.MaxTokens != 2000 {
		t.Fatalf("default max tokens lost: %d", cfg.ChatGPT.MaxTokens)
	}
}

func TestLoadBrokenYAMLFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("source: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Source.Scanner != "searchapi" {
		t.Fatalf("expected defaults after parse failure, got %s", cfg.Source.Scanner)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Cache.Backend = "memcached"
	if err := cfg.Validate(); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	cfg = Default()
	cfg.Cache.TTL = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero ttl accepted")
	}

	cfg = Default()
	cfg.HTML.Renderer = "lynx"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown renderer accepted")
	}
}
