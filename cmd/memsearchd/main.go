package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/pkeller/memsearch/config"
	memslogger "github.com/pkeller/memsearch/logger"
	"github.com/pkeller/memsearch/remote"
	"github.com/pkeller/memsearch/search"
	"github.com/pkeller/memsearch/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", config.GetConfigPath(), "Path to YAML config file")
		logFile    = flag.String("logfile", "", "Path to log file. If not set, logs to stderr")
		pretty     = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
	)
	flag.Parse()

	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}

	logger, err := memslogger.InitWithOptions(*logFile, *pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url must be configured (see %s)", *configPath)
	}
	logger.Info().
		Str("config", *configPath).
		Str("backend", cfg.Backend.BaseURL).
		Msg("memsearchd starting")

	engine, cache := buildEngine(cfg, logger)
	srv := server.NewServer(engine, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sweep expired cache entries so they don't pin LRU slots between reads.
	var janitor *cron.Cron
	if cache != nil {
		janitor = cron.New()
		if _, err := janitor.AddFunc(fmt.Sprintf("@every %s", cfg.Search.CacheTTL.Std()), func() {
			if removed := cache.PurgeExpired(); removed > 0 {
				logger.Debug().Int("removed", removed).Msg("Cache janitor purged expired entries")
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule cache janitor: %w", err)
		}
		janitor.Start()
		defer janitor.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		cancel()
	}()

	return srv.Serve(ctx)
}

// buildEngine wires the remote clients, fetcher, cache, and engine from config.
func buildEngine(cfg config.Config, logger zerolog.Logger) (*search.Engine, *search.ResultCache) {
	sources := []search.CandidateSource{
		remote.NewDocumentClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, remote.DocumentOptions{
			MinDocumentScore: cfg.Document.MinDocumentScore,
			MinChunkScore:    cfg.Document.MinChunkScore,
			RewriteQuery:     cfg.Document.RewriteQuery,
			Rerank:           cfg.Document.Rerank,
		}, logger),
		remote.NewMemoryClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, remote.MemoryOptions{
			MinScore: cfg.Memory.MinScore,
			Rerank:   cfg.Memory.Rerank,
		}, logger),
	}

	fetcher := search.NewFetcher(sources, search.FetcherConfig{
		CallTimeout:    cfg.Search.CallTimeout.Std(),
		MaxRetries:     cfg.Search.MaxRetries,
		InitialBackoff: cfg.Search.InitialBackoff.Std(),
	}, logger)

	var cache *search.ResultCache
	if !cfg.Search.CacheDisabled {
		var err error
		cache, err = search.NewResultCache(cfg.Search.CacheSize, cfg.Search.CacheTTL.Std())
		if err != nil {
			logger.Warn().Err(err).Msg("Result cache unavailable, continuing without it")
			cache = nil
		}
	}

	engine := search.NewEngine(fetcher, cache, search.EngineConfig{
		OverfetchMultiplier: cfg.Search.OverfetchMultiplier,
		OverfetchFloor:      cfg.Search.OverfetchFloor,
		QueryTimeout:        cfg.Search.QueryTimeout.Std(),
		SharedOwner:         cfg.Search.SharedOwner,
	}, logger)
	return engine, cache
}
