package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML schema, mirroring the teacher's
// config_file.go nested-section style (internal/app/config_file.go).
type FileConfig struct {
	ListenAddr string `yaml:"listenAddr"`

	LLM struct {
		BaseURL    string `yaml:"base"`
		Model      string `yaml:"model"`
		FinalModel string `yaml:"finalModel"`
		APIKey     string `yaml:"key"`
	} `yaml:"llm"`

	Searx struct {
		URL string `yaml:"url"`
		Key string `yaml:"key"`
	} `yaml:"searx"`

	CheckpointDir string `yaml:"checkpointDir"`
	BackupDir     string `yaml:"backupDir"`
	PDFExport     bool   `yaml:"pdfExport"`
	Language      string `yaml:"language"`
	EventQueueCap int    `yaml:"eventQueueCap"`
	Verbose       bool   `yaml:"verbose"`

	Cache struct {
		HTTPDir     string `yaml:"httpDir"`
		LLMDir      string `yaml:"llmDir"`
		MaxAgeHours int    `yaml:"maxAgeHours"`
		MaxBytes    int64  `yaml:"maxBytes"`
	} `yaml:"cache"`
}

// LoadFile reads and parses a YAML config file. A missing file is not an
// error; callers should check os.IsNotExist on the returned error.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return fc, nil
}

// ApplyFile fills unset Config fields from a parsed FileConfig, the layer
// below env and above built-in defaults.
func ApplyFile(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.FinalModel == "" {
		cfg.FinalModel = fc.LLM.FinalModel
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if cfg.SearxURL == "" {
		cfg.SearxURL = fc.Searx.URL
	}
	if cfg.SearxKey == "" {
		cfg.SearxKey = fc.Searx.Key
	}
	if cfg.CheckpointDir == "" {
		cfg.CheckpointDir = fc.CheckpointDir
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = fc.BackupDir
	}
	if cfg.HTTPCacheDir == "" {
		cfg.HTTPCacheDir = fc.Cache.HTTPDir
	}
	if cfg.LLMCacheDir == "" {
		cfg.LLMCacheDir = fc.Cache.LLMDir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAgeHours > 0 {
		cfg.CacheMaxAge = time.Duration(fc.Cache.MaxAgeHours) * time.Hour
	}
	if cfg.HTTPCacheMaxBytes == 0 {
		cfg.HTTPCacheMaxBytes = fc.Cache.MaxBytes
	}
	if !cfg.PDFExport {
		cfg.PDFExport = fc.PDFExport
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = fc.Language
	}
	if cfg.EventQueueCap == 0 {
		cfg.EventQueueCap = fc.EventQueueCap
	}
	if !cfg.Verbose {
		cfg.Verbose = fc.Verbose
	}
}

// Load resolves the full flags > env > file > defaults precedence. flagCfg
// carries whatever flags the caller already parsed; filePath may be empty.
func Load(flagCfg Config, filePath string) Config {
	cfg := flagCfg
	ApplyEnv(&cfg)
	if filePath != "" {
		if fc, err := LoadFile(filePath); err == nil {
			ApplyFile(&cfg, fc)
		}
	}
	def := Defaults()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.CheckpointDir == "" {
		cfg.CheckpointDir = def.CheckpointDir
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = def.BackupDir
	}
	if cfg.HTTPCacheDir == "" {
		cfg.HTTPCacheDir = def.HTTPCacheDir
	}
	if cfg.LLMCacheDir == "" {
		cfg.LLMCacheDir = def.LLMCacheDir
	}
	if cfg.CacheMaxAge == 0 {
		cfg.CacheMaxAge = def.CacheMaxAge
	}
	if cfg.HTTPCacheMaxBytes == 0 {
		cfg.HTTPCacheMaxBytes = def.HTTPCacheMaxBytes
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = def.DefaultLanguage
	}
	if cfg.EventQueueCap == 0 {
		cfg.EventQueueCap = def.EventQueueCap
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	return cfg
}
