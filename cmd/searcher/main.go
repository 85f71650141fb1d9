package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/newa-nlp/newasearch/internal/analytics"
	"github.com/newa-nlp/newasearch/internal/corpus"
	"github.com/newa-nlp/newasearch/internal/index"
	"github.com/newa-nlp/newasearch/internal/search"
	"github.com/newa-nlp/newasearch/internal/searcher/cache"
	"github.com/newa-nlp/newasearch/internal/searcher/handler"
	"github.com/newa-nlp/newasearch/pkg/config"
	"github.com/newa-nlp/newasearch/pkg/health"
	"github.com/newa-nlp/newasearch/pkg/kafka"
	"github.com/newa-nlp/newasearch/pkg/logger"
	"github.com/newa-nlp/newasearch/pkg/metrics"
	"github.com/newa-nlp/newasearch/pkg/middleware"
	"github.com/newa-nlp/newasearch/pkg/postgres"
	pkgredis "github.com/newa-nlp/newasearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting searcher service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open corpus store", "error", err)
		os.Exit(1)
	}
	if closeStore != nil {
		defer closeStore()
	}

	format, err := index.ParseFormat(cfg.Index.Format)
	if err != nil {
		slog.Error("invalid index format", "format", cfg.Index.Format, "error", err)
		os.Exit(1)
	}
	engine := search.NewEngine(nil, store)
	if err := engine.LoadIndex(cfg.Index.Path, format); err != nil {
		slog.Error("failed to load index", "path", cfg.Index.Path, "error", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		queryCache = cache.New(redisClient, cfg.Redis)
		// Cached responses may predate the index loaded above.
		if err := queryCache.Invalidate(ctx); err != nil {
			slog.Warn("query cache invalidation failed", "error", err)
		}
		slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var collector *analytics.Collector
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.EventsTopic)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()
	}

	checker := health.NewChecker("searcher")
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats := engine.IndexStats()
		if stats.DocumentCount == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index is empty"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("corpus", func(ctx context.Context) health.ComponentHealth {
		if _, err := store.Count(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(engine, queryCache, collector, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /healthz", checker.LiveHandler())
	mux.HandleFunc("GET /readyz", checker.ReadyHandler())

	var root http.Handler = mux
	root = middleware.Timeout(cfg.Server.RequestTimeout)(root)
	if m != nil {
		root = middleware.Metrics(m)(root)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("searcher service ready", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down searcher service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	slog.Info("searcher service stopped")
}

// openStore builds the configured corpus store. The returned close function
// may be nil.
func openStore(cfg *config.Config) (corpus.Store, func() error, error) {
	switch cfg.Corpus.Backend {
	case "csv":
		store, err := corpus.NewCSVStore(cfg.Corpus.CSVPath, cfg.Corpus.IDColumn, cfg.Corpus.ContentColumn)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store, err := corpus.NewPostgresStore(client, cfg.Corpus.Table, cfg.Corpus.IDColumn, cfg.Corpus.ContentColumn)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown corpus backend %q (must be 'csv' or 'postgres')", cfg.Corpus.Backend)
	}
}
