package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/newa-nlp/newasearch/internal/analytics"
	"github.com/newa-nlp/newasearch/internal/corpus"
	"github.com/newa-nlp/newasearch/internal/index"
	"github.com/newa-nlp/newasearch/internal/tokenizer"
	"github.com/newa-nlp/newasearch/pkg/config"
	"github.com/newa-nlp/newasearch/pkg/kafka"
	"github.com/newa-nlp/newasearch/pkg/logger"
	"github.com/newa-nlp/newasearch/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	corpusPath := flag.String("corpus", "", "corpus CSV path (overrides config)")
	output := flag.String("output", "", "index output path (overrides config)")
	formatName := flag.String("format", "", "index format: json or binary (overrides config)")
	modeName := flag.String("mode", "", "tokenizer mode: space or regex (overrides config)")
	pattern := flag.String("pattern", "", "custom token regex pattern")
	workers := flag.Int("workers", 0, "parallel build workers (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if *corpusPath != "" {
		cfg.Corpus.Backend = "csv"
		cfg.Corpus.CSVPath = *corpusPath
	}
	if *output != "" {
		cfg.Index.Path = *output
	}
	if *formatName != "" {
		cfg.Index.Format = *formatName
	}
	if *modeName != "" {
		cfg.Index.TokenizerMode = *modeName
	}
	if *pattern != "" {
		cfg.Index.Pattern = *pattern
	}
	if *workers > 0 {
		cfg.Index.Workers = *workers
	}

	mode, err := tokenizer.ParseMode(cfg.Index.TokenizerMode)
	if err != nil {
		slog.Error("invalid tokenizer mode", "error", err)
		os.Exit(1)
	}
	format, err := index.ParseFormat(cfg.Index.Format)
	if err != nil {
		slog.Error("invalid index format", "error", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open corpus store", "error", err)
		os.Exit(1)
	}
	if closeStore != nil {
		defer closeStore()
	}

	ctx := context.Background()
	slog.Info("building inverted index",
		"backend", cfg.Corpus.Backend,
		"mode", mode.String(),
		"workers", cfg.Index.Workers,
	)
	start := time.Now()
	idx, skipped, err := index.Build(ctx, store, index.BuildOptions{
		Mode:          mode,
		Pattern:       cfg.Index.Pattern,
		Workers:       cfg.Index.Workers,
		ProgressEvery: cfg.Index.ProgressEvery,
	})
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}

	if err := index.Save(idx, cfg.Index.Path, format); err != nil {
		slog.Error("saving index failed", "path", cfg.Index.Path, "error", err)
		os.Exit(1)
	}
	stats := idx.Stats()
	slog.Info("index saved",
		"path", cfg.Index.Path,
		"format", format.String(),
		"documents", stats.DocumentCount,
		"unique_terms", stats.UniqueTerms,
		"total_terms", stats.TotalTerms,
		"skipped", skipped,
	)

	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.EventsTopic)
		defer producer.Close()
		event := analytics.BuildEvent{
			Type:          analytics.EventIndexBuild,
			Documents:     stats.DocumentCount,
			UniqueTerms:   stats.UniqueTerms,
			TotalTerms:    stats.TotalTerms,
			SkippedDocs:   skipped,
			DurationMs:    time.Since(start).Milliseconds(),
			IndexPath:     cfg.Index.Path,
			IndexFormat:   format.String(),
			CorpusBackend: cfg.Corpus.Backend,
			Timestamp:     time.Now().UTC(),
		}
		if err := producer.Publish(ctx, kafka.Event{Key: "analytics", Value: event}); err != nil {
			slog.Warn("publishing build event failed", "error", err)
		}
	}
}

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
