// Package search orchestrates an inverted index and a corpus store to answer
// document-level and sentence-level queries, with context windows and term
// highlighting.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/newa-nlp/newasearch/internal/corpus"
	"github.com/newa-nlp/newasearch/internal/index"
	"github.com/newa-nlp/newasearch/internal/tokenizer"
	apperrors "github.com/newa-nlp/newasearch/pkg/errors"
)

// contextWindow is the number of runes of surrounding document text returned
// on each side of a matched sentence.
const contextWindow = 100

// ellipsis marks a clipped context window edge.
const ellipsis = "..."

// SentenceResult is one sentence-level match.
type SentenceResult struct {
	Document string `json:"document"`
	Sentence string `json:"sentence"`
	Context  string `json:"context"`
}

// HighlightedResult is a sentence-level match with query terms wrapped in
// emphasis markers. OriginalSentence carries the unmodified sentence.
type HighlightedResult struct {
	Document         string `json:"document"`
	Sentence         string `json:"sentence"`
	Context          string `json:"context"`
	OriginalSentence string `json:"original_sentence"`
}

// Engine answers queries against one loaded inverted index and a corpus
// store. The index is exclusively owned and replaced wholesale on reload.
// Document content lookups are memoized for the lifetime of the engine; the
// memo is lock-protected, so any number of queries may run concurrently.
type Engine struct {
	mu    sync.RWMutex
	idx   *index.InvertedIndex
	store corpus.Store

	memoMu sync.RWMutex
	memo   map[string]string

	logger *slog.Logger
}

// NewEngine creates an engine. Both idx and store may be nil and supplied
// later via LoadIndex and SetStore.
func NewEngine(idx *index.InvertedIndex, store corpus.Store) *Engine {
	return &Engine{
		idx:    idx,
		store:  store,
		memo:   make(map[string]string),
		logger: slog.Default().With("component", "search-engine"),
	}
}

// LoadIndex reads an index from disk and swaps it in atomically.
func (e *Engine) LoadIndex(path string, format index.Format) error {
	idx, err := index.Load(path, format)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.idx = idx
	e.mu.Unlock()
	stats := idx.Stats()
	e.logger.Info("index loaded",
		"path", path,
		"format", format.String(),
		"documents", stats.DocumentCount,
		"unique_terms", stats.UniqueTerms,
	)
	return nil
}

// SetStore attaches the corpus store used for sentence search and document
// content lookup.
func (e *Engine) SetStore(store corpus.Store) {
	e.mu.Lock()
	e.store = store
	e.mu.Unlock()
}

func (e *Engine) snapshot() (*index.InvertedIndex, corpus.Store) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx, e.store
}

// SearchDocuments tokenizes query and returns the matching document ids in
// ascending order, truncated to limit when limit > 0. A query with no
// Devanagari tokens yields an empty result without error.
func (e *Engine) SearchDocuments(query string, op index.Op, limit int) ([]string, error) {
	idx, _ := e.snapshot()
	if idx == nil {
		return nil, apperrors.New(apperrors.ErrPreconditionFailed, "no index loaded")
	}
	terms, err := tokenizer.Tokenize(query, tokenizer.ModeRegex, "")
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return []string{}, nil
	}
	set, err := idx.Search(terms, op)
	if err != nil {
		return nil, err
	}
	docs := make([]string, 0, len(set))
	for docID := range set {
		docs = append(docs, docID)
	}
	sort.Strings(docs)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// SearchSentences returns the sentences matching query, in corpus record
// order, each with a context window of the surrounding document text.
// Scanning stops once limit results have been collected.
func (e *Engine) SearchSentences(ctx context.Context, query string, op index.Op, limit int) ([]SentenceResult, error) {
	idx, store := e.snapshot()
	if idx == nil {
		return nil, apperrors.New(apperrors.ErrPreconditionFailed, "no index loaded")
	}
	if store == nil {
		return nil, apperrors.New(apperrors.ErrPreconditionFailed, "no corpus store attached")
	}

	docIDs, err := e.SearchDocuments(query, op, 0)
	if err != nil {
		return nil, err
	}
	results := []SentenceResult{}
	if len(docIDs) == 0 {
		return results, nil
	}
	matched := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		matched[id] = struct{}{}
	}
	queryTerms, err := tokenizer.Tokenize(query, tokenizer.ModeRegex, "")
	if err != nil {
		return nil, err
	}

	err = store.ForEach(ctx, func(doc corpus.Document) error {
		if _, ok := matched[doc.ID]; !ok {
			return nil
		}
		if doc.Content == "" {
			return nil
		}
		sentences, err := tokenizer.SplitSentences(doc.Content, "")
		if err != nil {
			return err
		}
		for _, sentence := range sentences {
			tokens, err := tokenizer.Tokenize(sentence, tokenizer.ModeRegex, "")
			if err != nil {
				return err
			}
			if !sentenceMatches(tokens, queryTerms, op) {
				continue
			}
			results = append(results, SentenceResult{
				Document: doc.ID,
				Sentence: sentence,
				Context:  sentenceContext(doc.Content, sentence),
			})
			if limit > 0 && len(results) >= limit {
				return corpus.ErrStop
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// SearchWithHighlight runs SearchSentences and wraps every case-insensitive
// occurrence of each query term in ** markers, in both the sentence and its
// context. Terms are substituted sequentially and independently, so
// overlapping matches between distinct terms resolve in term order.
func (e *Engine) SearchWithHighlight(ctx context.Context, query string, op index.Op, limit int) ([]HighlightedResult, error) {
	matches, err := e.SearchSentences(ctx, query, op, limit)
	if err != nil {
		return nil, err
	}
	queryTerms, err := tokenizer.Tokenize(query, tokenizer.ModeRegex, "")
	if err != nil {
		return nil, err
	}
	results := make([]HighlightedResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, HighlightedResult{
			Document:         m.Document,
			Sentence:         highlightTerms(m.Sentence, queryTerms),
			Context:          highlightTerms(m.Context, queryTerms),
			OriginalSentence: m.Sentence,
		})
	}
	return results, nil
}

// DocumentContent returns the full content of a document, memoized for the
// lifetime of the engine. A missing document yields ErrNotFound.
func (e *Engine) DocumentContent(ctx context.Context, docID string) (string, error) {
	_, store := e.snapshot()
	if store == nil {
		return "", apperrors.New(apperrors.ErrPreconditionFailed, "no corpus store attached")
	}
	e.memoMu.RLock()
	content, ok := e.memo[docID]
	e.memoMu.RUnlock()
	if ok {
		return content, nil
	}
	content, found, err := store.Content(ctx, docID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", apperrors.Newf(apperrors.ErrNotFound, "document not found: %s", docID)
	}
	e.memoMu.Lock()
	e.memo[docID] = content
	e.memoMu.Unlock()
	return content, nil
}

// IndexStats returns the loaded index's statistics, or zero stats when no
// index is loaded.
func (e *Engine) IndexStats() index.Stats {
	idx, _ := e.snapshot()
	if idx == nil {
		return index.Stats{}
	}
	return idx.Stats()
}

// sentenceMatches reports whether the sentence's token set satisfies the
// query terms under the given operation.
func sentenceMatches(sentenceTokens, queryTerms []string, op index.Op) bool {
	if len(queryTerms) == 0 {
		return false
	}
	tokenSet := make(map[string]struct{}, len(sentenceTokens))
	for _, t := range sentenceTokens {
		tokenSet[t] = struct{}{}
	}
	if op == index.OpAnd {
		for _, term := range queryTerms {
			if _, ok := tokenSet[term]; !ok {
				return false
			}
		}
		return true
	}
	for _, term := range queryTerms {
		if _, ok := tokenSet[term]; ok {
			return true
		}
	}
	return false
}

// sentenceContext extracts the document text surrounding the first verbatim
// occurrence of sentence, contextWindow runes on each side, with ellipsis
// markers on clipped edges. When the sentence cannot be located in the
// content it falls back to the sentence itself.
func sentenceContext(content, sentence string) string {
	byteStart := strings.Index(content, sentence)
	if byteStart == -1 {
		return sentence
	}
	runes := []rune(content)
	start := utf8.RuneCountInString(content[:byteStart])
	end := start + utf8.RuneCountInString(sentence)

	ctxStart := start - contextWindow
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := end + contextWindow
	if ctxEnd > len(runes) {
		ctxEnd = len(runes)
	}
	window := string(runes[ctxStart:ctxEnd])
	if ctxStart > 0 {
		window = ellipsis + window
	}
	if ctxEnd < len(runes) {
		window = window + ellipsis
	}
	return window
}

// highlightTerms wraps every case-insensitive occurrence of each term in
// ** markers, replacing the matched text with the query term itself.
func highlightTerms(text string, terms []string) string {
	for _, term := range terms {
		text = replaceFold(text, term, "**"+term+"**")
	}
	return text
}

// replaceFold replaces every case-insensitive, non-overlapping occurrence of
// old in s with repl.
func replaceFold(s, old, repl string) string {
	if old == "" {
		return s
	}
	var b strings.Builder
	lower := strings.ToLower(s)
	target := strings.ToLower(old)
	for {
		i := strings.Index(lower, target)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(repl)
		s = s[i+len(target):]
		lower = lower[i+len(target):]
	}
}
