package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPrecedenceFlagsOverEnvOverFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  model: file-model\nlistenAddr: 0.0.0.0:9000\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("LLM_API_KEY", "env-key")

	flagCfg := Config{LLMModel: "flag-model"}
	cfg := Load(flagCfg, path)

	if cfg.LLMModel != "flag-model" {
		t.Fatalf("expected flag value to win, got %q", cfg.LLMModel)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("expected file value for unset flag, got %q", cfg.ListenAddr)
	}
	if cfg.LLMAPIKey != "env-key" {
		t.Fatalf("expected env value, got %q", cfg.LLMAPIKey)
	}
	if cfg.EventQueueCap != 100 {
		t.Fatalf("expected default queue cap, got %d", cfg.EventQueueCap)
	}
}

func TestLoadDefaultsCacheDirsAndLimits(t *testing.T) {
	cfg := Load(Config{}, "")
	if cfg.HTTPCacheDir == "" || cfg.LLMCacheDir == "" {
		t.Fatalf("expected default cache directories, got %+v", cfg)
	}
	if cfg.CacheMaxAge <= 0 {
		t.Fatalf("expected a positive default cache max age, got %v", cfg.CacheMaxAge)
	}
	if cfg.HTTPCacheMaxBytes <= 0 {
		t.Fatalf("expected a positive default http cache byte limit, got %d", cfg.HTTPCacheMaxBytes)
	}
}

func TestProxyFromEnvRewritesSocksScheme(t *testing.T) {
	t.Setenv("ALL_PROXY", "socks://localhost:1080")
	if got := ProxyFromEnv(); got != "socks5://localhost:1080" {
		t.Fatalf("expected rewritten scheme, got %q", got)
	}
}
