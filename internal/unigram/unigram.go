// Package unigram aggregates token frequency tables over corpus texts, with
// frequency and codepoint ("alphabetical") sort orders and CSV input/output.
package unigram

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/newa-nlp/newasearch/internal/tokenizer"
	apperrors "github.com/newa-nlp/newasearch/pkg/errors"
)

// SortOrder selects the ordering of the frequency table.
type SortOrder int

const (
	// SortByFrequency orders by count descending, ties broken by token
	// ascending.
	SortByFrequency SortOrder = iota
	// SortByCodepoint orders by the token's codepoint sequence ascending, an
	// approximation of Devanagari alphabetical order.
	SortByCodepoint
)

// ParseSortOrder converts an order name ("freq" or "dev") into a SortOrder.
func ParseSortOrder(s string) (SortOrder, error) {
	switch s {
	case "freq":
		return SortByFrequency, nil
	case "dev":
		return SortByCodepoint, nil
	default:
		return 0, apperrors.Newf(apperrors.ErrInvalidArgument, "sort order must be 'freq' or 'dev', got %q", s)
	}
}

// String returns the order's configuration name.
func (o SortOrder) String() string {
	switch o {
	case SortByFrequency:
		return "freq"
	case SortByCodepoint:
		return "dev"
	default:
		return "unknown"
	}
}

// Entry is one row of the frequency table.
type Entry struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Build aggregates token counts across texts. Empty or whitespace-only texts
// contribute nothing. topK > 0 truncates the sorted table to its first topK
// entries; topK may exceed the number of entries.
func Build(texts []string, mode tokenizer.Mode, pattern string, order SortOrder, topK int) ([]Entry, error) {
	switch order {
	case SortByFrequency, SortByCodepoint:
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "unknown sort order %d", order)
	}

	counts := make(map[string]int)
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		tokens, err := tokenizer.Tokenize(text, mode, pattern)
		if err != nil {
			return nil, err
		}
		for _, t := range tokens {
			counts[t]++
		}
	}

	entries := make([]Entry, 0, len(counts))
	for token, count := range counts {
		entries = append(entries, Entry{Token: token, Count: count})
	}
	switch order {
	case SortByFrequency:
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Count != entries[j].Count {
				return entries[i].Count > entries[j].Count
			}
			return entries[i].Token < entries[j].Token
		})
	case SortByCodepoint:
		// UTF-8 byte order equals codepoint order, so plain string
		// comparison sorts by the codepoint sequence.
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Token < entries[j].Token
		})
	}

	if topK > 0 && len(entries) > topK {
		entries = entries[:topK]
	}
	return entries, nil
}

// BuildFromCSV aggregates token counts over one named text column of a CSV
// file. A missing file yields ErrNotFound; a missing column yields
// ErrInvalidArgument naming the available columns.
func BuildFromCSV(path, contentColumn string, mode tokenizer.Mode, pattern string, order SortOrder, topK int) ([]Entry, error) {
	if contentColumn == "" {
		contentColumn = "content"
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "CSV file not found: %s", path)
		}
		return nil, fmt.Errorf("opening CSV %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "reading header of %s: %v", path, err)
	}
	colIdx := -1
	for i, name := range header {
		if strings.TrimSpace(name) == contentColumn {
			colIdx = i
			break
		}
	}
	if colIdx == -1 {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument,
			"column %q not found in %s, available columns: %v", contentColumn, path, header)
	}

	logger := slog.Default().With("component", "unigram")
	var texts []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skipping malformed corpus row", "path", path, "error", err)
			continue
		}
		if len(record) <= colIdx {
			logger.Warn("skipping short corpus row", "path", path, "fields", len(record))
			continue
		}
		texts = append(texts, record[colIdx])
	}
	return Build(texts, mode, pattern, order, topK)
}

// WriteCSV writes the frequency table with a token,count header, preserving
// the order produced by Build.
func WriteCSV(entries []Entry, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating unigram CSV %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"token", "count"}); err != nil {
		return fmt.Errorf("writing unigram header: %w", err)
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Token, strconv.Itoa(e.Count)}); err != nil {
			return fmt.Errorf("writing unigram row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing unigram CSV: %w", err)
	}
	return nil
}
