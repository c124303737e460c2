// Package config implements the three-layer (flags > env > file > defaults)
// server configuration, adapted from the teacher's internal/app/config.go
// family for a long-running HTTP service instead of a one-shot CLI run.
package config

import "time"

// Config holds runtime configuration for the veritas server.
type Config struct {
	ListenAddr string

	// Default LLM provider settings; callers may still override per-request
	// via the api_key/provider/model fields spec §6 carries on every call.
	LLMBaseURL string
	LLMModel   string
	FinalModel string
	LLMAPIKey  string

	SearxURL string
	SearxKey string

	CheckpointDir string
	LogDir        string
	LogFile       string
	DisableLog    bool

	// BackupDir, when non-empty, receives a timestamped Markdown (and,
	// if PDFExport is set, PDF) copy of every final document (spec §4.8,
	// §6: "final_synthesis_backups/", "academic_synthesis_backups/").
	BackupDir string
	PDFExport bool

	// HTTPCacheDir and LLMCacheDir back the Source Fetcher's conditional-GET
	// cache (spec §4.3) and an optional LLM response cache respectively.
	// CacheMaxAge and HTTPCacheMaxBytes bound the periodic maintenance sweep
	// that keeps both directories from growing without limit.
	HTTPCacheDir      string
	LLMCacheDir       string
	CacheMaxAge       time.Duration
	HTTPCacheMaxBytes int64

	DefaultLanguage string
	EventQueueCap   int
	Verbose         bool

	ShutdownTimeout time.Duration
}

// Defaults returns the built-in configuration baseline (spec §6: "local-only,
// default 127.0.0.1:8420").
func Defaults() Config {
	return Config{
		ListenAddr:        "127.0.0.1:8420",
		CheckpointDir:     "./checkpoints",
		BackupDir:         "./backups",
		HTTPCacheDir:      "./cache/http",
		LLMCacheDir:       "./cache/llm",
		CacheMaxAge:       7 * 24 * time.Hour,
		HTTPCacheMaxBytes: 200 * 1024 * 1024,
		DefaultLanguage:   "en",
		EventQueueCap:     100,
		ShutdownTimeout:   10 * time.Second,
	}
}
