package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/newa-nlp/newasearch/internal/corpus"
	"github.com/newa-nlp/newasearch/internal/tokenizer"
	"github.com/newa-nlp/newasearch/pkg/metrics"
	"github.com/newa-nlp/newasearch/pkg/progress"
)

// BuildOptions configures a full index build over a corpus store.
type BuildOptions struct {
	// Mode and Pattern configure tokenization; Pattern empty means the
	// canonical Devanagari default.
	Mode    tokenizer.Mode
	Pattern string
	// Workers > 1 shards the corpus across goroutines that build partial
	// indexes merged by posting-set union.
	Workers int
	// ProgressEvery controls how often OnProgress fires, in records.
	ProgressEvery int
	OnProgress    progress.Func
	// Metrics, when set, receives per-document build counters.
	Metrics *metrics.Metrics
}

// Build tokenizes every document in the store and assembles an inverted
// index, returning the index and the number of records skipped. Records that
// fail to tokenize are reported through the progress callback and skipped; a
// missing or malformed source fails the whole build up front.
func Build(ctx context.Context, store corpus.Store, opts BuildOptions) (*InvertedIndex, int, error) {
	report := progress.OrDefault(opts.OnProgress)
	logger := slog.Default().With("component", "index-builder")

	total, err := store.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("counting corpus records: %w", err)
	}

	start := time.Now()
	var idx *InvertedIndex
	var skipped int
	if opts.Workers > 1 {
		idx, skipped, err = buildParallel(ctx, store, opts, total, report)
	} else {
		idx, skipped, err = buildSequential(ctx, store, opts, total, report)
	}
	if err != nil {
		return nil, 0, err
	}

	if opts.Metrics != nil {
		opts.Metrics.DocsIndexedTotal.Add(float64(idx.DocumentCount()))
		opts.Metrics.IndexedTermsTotal.Add(float64(idx.TotalTerms()))
		opts.Metrics.DocsSkippedTotal.Add(float64(skipped))
		opts.Metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
	}
	stats := idx.Stats()
	logger.Info("index build complete",
		"documents", stats.DocumentCount,
		"unique_terms", stats.UniqueTerms,
		"total_terms", stats.TotalTerms,
		"skipped", skipped,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return idx, skipped, nil
}

func buildSequential(ctx context.Context, store corpus.Store, opts BuildOptions, total int, report progress.Func) (*InvertedIndex, int, error) {
	idx := New()
	step := every(opts)
	processed := 0
	skipped := 0
	err := store.ForEach(ctx, func(doc corpus.Document) error {
		terms, err := tokenizer.Tokenize(doc.Content, opts.Mode, opts.Pattern)
		if err != nil {
			skipped++
			report(processed, total, fmt.Sprintf("skipping document %s: %v", doc.ID, err))
			return nil
		}
		idx.AddDocument(doc.ID, terms)
		processed++
		if processed%step == 0 || processed == total {
			report(processed, total, fmt.Sprintf("processed %d documents", processed))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return idx, skipped, nil
}

func every(opts BuildOptions) int {
	if opts.ProgressEvery > 0 {
		return opts.ProgressEvery
	}
	return 1000
}

// buildParallel reads records sequentially and fans them out to worker
// goroutines holding private partial indexes, merged once all workers stop.
func buildParallel(ctx context.Context, store corpus.Store, opts BuildOptions, total int, report progress.Func) (*InvertedIndex, int, error) {
	type skipCount struct{ n int }
	docs := make(chan corpus.Document, opts.Workers*4)
	parts := make([]*InvertedIndex, opts.Workers)
	skips := make([]skipCount, opts.Workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		part := New()
		parts[w] = part
		skip := &skips[w]
		g.Go(func() error {
			for doc := range docs {
				terms, err := tokenizer.Tokenize(doc.Content, opts.Mode, opts.Pattern)
				if err != nil {
					skip.n++
					report(0, total, fmt.Sprintf("skipping document %s: %v", doc.ID, err))
					continue
				}
				part.AddDocument(doc.ID, terms)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(docs)
		return store.ForEach(gctx, func(doc corpus.Document) error {
			select {
			case docs <- doc:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	idx := New()
	skipped := 0
	for w, part := range parts {
		idx.Merge(part)
		skipped += skips[w].n
	}
	report(idx.DocumentCount(), total, fmt.Sprintf("processed %d documents", idx.DocumentCount()))
	return idx, skipped, nil
}
