package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv populates unset fields of cfg from environment variables. Explicit
// cfg values (from flags) take precedence over env, mirroring the teacher's
// ApplyEnvToConfig (internal/app/config_env.go).
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.ListenAddr == "" {
		if v := os.Getenv("VERITAS_LISTEN_ADDR"); v != "" {
			cfg.ListenAddr = v
		}
	}
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = os.Getenv("LLM_BASE_URL")
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = os.Getenv("LLM_MODEL")
	}
	if cfg.FinalModel == "" {
		cfg.FinalModel = os.Getenv("LLM_FINAL_MODEL")
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	}
	if cfg.SearxURL == "" {
		v := os.Getenv("SEARX_URL")
		if v == "" {
			v = os.Getenv("SEARXNG_URL")
		}
		cfg.SearxURL = v
	}
	if cfg.SearxKey == "" {
		v := os.Getenv("SEARX_KEY")
		if v == "" {
			v = os.Getenv("SEARXNG_KEY")
		}
		cfg.SearxKey = v
	}
	if cfg.CheckpointDir == "" {
		cfg.CheckpointDir = os.Getenv("VERITAS_CHECKPOINT_DIR")
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = os.Getenv("VERITAS_BACKUP_DIR")
	}
	if cfg.HTTPCacheDir == "" {
		cfg.HTTPCacheDir = os.Getenv("VERITAS_HTTP_CACHE_DIR")
	}
	if cfg.LLMCacheDir == "" {
		cfg.LLMCacheDir = os.Getenv("VERITAS_LLM_CACHE_DIR")
	}
	if cfg.CacheMaxAge == 0 {
		if d, ok := envDuration("VERITAS_CACHE_MAX_AGE"); ok {
			cfg.CacheMaxAge = d
		}
	}
	if cfg.HTTPCacheMaxBytes == 0 {
		if n, ok := envInt("VERITAS_HTTP_CACHE_MAX_BYTES"); ok {
			cfg.HTTPCacheMaxBytes = int64(n)
		}
	}
	if !cfg.PDFExport {
		cfg.PDFExport = envBool("VERITAS_PDF_EXPORT")
	}
	// LUTUM_LOG_DIR/LUTUM_LOG_FILE/LUTUM_DISABLE_LOG_FILE per spec §4.9.
	if cfg.LogDir == "" {
		cfg.LogDir = os.Getenv("LUTUM_LOG_DIR")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = os.Getenv("LUTUM_LOG_FILE")
	}
	if !cfg.DisableLog {
		cfg.DisableLog = envBool("LUTUM_DISABLE_LOG_FILE")
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = os.Getenv("VERITAS_LANGUAGE")
	}
	if cfg.EventQueueCap == 0 {
		if n, ok := envInt("VERITAS_EVENT_QUEUE_CAP"); ok {
			cfg.EventQueueCap = n
		}
	}
	if !cfg.Verbose {
		cfg.Verbose = envBool("VERBOSE")
	}
}

func envBool(key string) bool {
	s := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envInt(key string) (int, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ProxyFromEnv reports the configured proxy URL, rewriting the legacy
// "socks://" scheme to "socks5://" (spec §4.9 environment table).
func ProxyFromEnv() string {
	for _, key := range []string{"ALL_PROXY", "HTTPS_PROXY", "HTTP_PROXY", "all_proxy", "https_proxy", "http_proxy"} {
		if v := os.Getenv(key); v != "" {
			if strings.HasPrefix(v, "socks://") {
				v = "socks5://" + strings.TrimPrefix(v, "socks://")
			}
			return v
		}
	}
	return ""
}
