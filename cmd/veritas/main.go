// Command veritas runs the local HTTP research service (spec §6):
// the deep-research orchestrator (Flat, Academic, Ask modes) fronted by the
// NDJSON/SSE event protocol a desktop shell drives. Port-conflict recovery,
// CORS, and security headers are out of scope (spec §1) and left to that
// shell's reverse proxy.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/veritas/internal/cache"
	"github.com/hyperifyio/veritas/internal/config"
	"github.com/hyperifyio/veritas/internal/events"
	"github.com/hyperifyio/veritas/internal/httpapi"
	"github.com/hyperifyio/veritas/internal/httpclient"
	"github.com/hyperifyio/veritas/internal/robots"
	"github.com/hyperifyio/veritas/internal/scrape"
	"github.com/hyperifyio/veritas/internal/search"
	"github.com/hyperifyio/veritas/internal/session"
)

// cacheSweepInterval is how often Maintain runs against the on-disk caches;
// it is independent of Config.CacheMaxAge, which controls what counts as
// expired once a sweep runs.
const cacheSweepInterval = 1 * time.Hour

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	logRing := events.NewLogRing(50)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Hook(logRing)

	var (
		listenAddr    string
		llmBaseURL    string
		llmModel      string
		llmFinalModel string
		llmAPIKey     string
		searxURL      string
		searxKey      string
		checkpointDir string
		backupDir     string
		pdfExport     bool
		language      string
		configFile    string
		verbose       bool
		httpCacheDir  string
		llmCacheDir   string
	)
	flag.StringVar(&listenAddr, "listen", "", "Address to listen on (default 127.0.0.1:8420)")
	flag.StringVar(&llmBaseURL, "llm.base", "", "Default OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", "", "Default work model")
	flag.StringVar(&llmFinalModel, "llm.finalModel", "", "Default final/synthesis model")
	flag.StringVar(&llmAPIKey, "llm.key", "", "Default API key")
	flag.StringVar(&searxURL, "searx.url", "", "SearxNG base URL")
	flag.StringVar(&searxKey, "searx.key", "", "SearxNG API key")
	flag.StringVar(&checkpointDir, "checkpoint.dir", "", "Checkpoint root directory")
	flag.StringVar(&backupDir, "backup.dir", "", "Final-document backup directory")
	flag.BoolVar(&pdfExport, "backup.pdf", false, "Also render a PDF copy of each final document")
	flag.StringVar(&language, "lang", "", "Default language (de|en)")
	flag.StringVar(&configFile, "config", "", "Optional YAML config file")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.StringVar(&httpCacheDir, "cache.http.dir", "", "HTTP conditional-GET cache directory")
	flag.StringVar(&llmCacheDir, "cache.llm.dir", "", "LLM response cache directory")
	flag.Parse()

	cfg := config.Load(config.Config{
		ListenAddr:      listenAddr,
		LLMBaseURL:      llmBaseURL,
		LLMModel:        llmModel,
		FinalModel:      llmFinalModel,
		LLMAPIKey:       llmAPIKey,
		SearxURL:        searxURL,
		SearxKey:        searxKey,
		CheckpointDir:   checkpointDir,
		BackupDir:       backupDir,
		PDFExport:       pdfExport,
		DefaultLanguage: language,
		Verbose:         verbose,
		HTTPCacheDir:    httpCacheDir,
		LLMCacheDir:     llmCacheDir,
	}, configFile)

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	httpClient := httpclient.NewHighThroughput(true)
	searchProvider := &search.SearxNG{BaseURL: cfg.SearxURL, APIKey: cfg.SearxKey, HTTPClient: httpClient, UserAgent: "veritas-research/1.0", Language: cfg.DefaultLanguage}

	httpCache := &cache.HTTPCache{Dir: cfg.HTTPCacheDir}
	llmCache := &cache.LLMCache{Dir: cfg.LLMCacheDir, StrictPerms: true}
	scraper := &scrape.HTTPScraper{
		Fetch:       scrape.NewDefaultFetchClient(httpClient, "veritas-research/1.0", httpCache, 4),
		Robots:      &robots.Manager{HTTPClient: httpClient, Cache: httpCache, UserAgent: "veritas-research/1.0"},
		UserAgent:   "veritas-research/1.0",
		HonorRobots: true,
	}

	bus := events.NewBus()
	bus.QueueCap = cfg.EventQueueCap
	checkpoints := &session.Store{Root: cfg.CheckpointDir}
	asks := httpapi.NewAskStore(cfg.CheckpointDir + "/ask")

	srv := httpapi.NewServer(cfg, bus, checkpoints, searchProvider, scraper, asks)
	srv.LogRing = logRing
	srv.LLMCache = llmCache

	maintainCtx, stopMaintain := context.WithCancel(context.Background())
	defer stopMaintain()
	go runCacheMaintenance(maintainCtx, cfg)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("veritas listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	log.Info().Msg("shutting down")
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
	}
}

// runCacheMaintenance sweeps the HTTP and LLM on-disk caches on a fixed
// interval until ctx is cancelled, keeping both bounded by cfg.CacheMaxAge
// and cfg.HTTPCacheMaxBytes without blocking any request path.
func runCacheMaintenance(ctx context.Context, cfg config.Config) {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache.Maintain(cfg.HTTPCacheDir, cfg.LLMCacheDir, cfg.CacheMaxAge, cfg.HTTPCacheMaxBytes)
		}
	}
}
