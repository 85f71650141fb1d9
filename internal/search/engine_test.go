package search

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/newa-nlp/newasearch/internal/corpus"
	"github.com/newa-nlp/newasearch/internal/index"
	"github.com/newa-nlp/newasearch/internal/tokenizer"
	apperrors "github.com/newa-nlp/newasearch/pkg/errors"
)

type memStore struct {
	docs []corpus.Document
}

func (m *memStore) ForEach(ctx context.Context, fn func(corpus.Document) error) error {
	for _, doc := range m.docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			if err == corpus.ErrStop {
				return nil
			}
			return err
		}
	}
	return nil
}

func (m *memStore) Content(ctx context.Context, docID string) (string, bool, error) {
	for _, doc := range m.docs {
		if doc.ID == docID {
			return doc.Content, true, nil
		}
	}
	return "", false, nil
}

func (m *memStore) Count(ctx context.Context) (int, error) {
	return len(m.docs), nil
}

func newTestEngine(t *testing.T) (*Engine, *memStore) {
	t.Helper()
	store := &memStore{docs: []corpus.Document{
		{ID: "d1", Content: "क ख ग। घ ङ च। क छ।"},
		{ID: "d2", Content: "ख ज।"},
		{ID: "d3", Content: "झ ट।"},
	}}
	idx := index.New()
	for _, doc := range store.docs {
		terms, err := tokenizer.Tokenize(doc.Content, tokenizer.ModeRegex, "")
		if err != nil {
			t.Fatalf("tokenizing %s: %v", doc.ID, err)
		}
		idx.AddDocument(doc.ID, terms)
	}
	return NewEngine(idx, store), store
}

func TestSearchDocuments(t *testing.T) {
	engine, _ := newTestEngine(t)
	tests := []struct {
		name  string
		query string
		op    index.Op
		limit int
		want  []string
	}{
		{"single term", "क", index.OpAnd, 0, []string{"d1"}},
		{"and intersects", "क ख", index.OpAnd, 0, []string{"d1"}},
		{"or unions", "क ज", index.OpOr, 0, []string{"d1", "d2"}},
		{"and misses", "क ज", index.OpAnd, 0, []string{}},
		{"limit truncates", "ख", index.OpOr, 1, []string{"d1"}},
		{"no devanagari tokens", "hello world", index.OpAnd, 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.SearchDocuments(tt.query, tt.op, tt.limit)
			if err != nil {
				t.Fatalf("SearchDocuments() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SearchDocuments(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSearchDocumentsNoIndex(t *testing.T) {
	engine := NewEngine(nil, &memStore{})
	if _, err := engine.SearchDocuments("क", index.OpAnd, 0); !errors.Is(err, apperrors.ErrPreconditionFailed) {
		t.Errorf("SearchDocuments() error = %v, want ErrPreconditionFailed", err)
	}
}

func TestSearchSentences(t *testing.T) {
	engine, _ := newTestEngine(t)
	results, err := engine.SearchSentences(context.Background(), "क", index.OpAnd, 0)
	if err != nil {
		t.Fatalf("SearchSentences() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	if results[0].Sentence != "क ख ग" || results[1].Sentence != "क छ" {
		t.Errorf("sentences = [%q, %q], want [क ख ग, क छ]", results[0].Sentence, results[1].Sentence)
	}
	for _, r := range results {
		if r.Document != "d1" {
			t.Errorf("result document = %s, want d1", r.Document)
		}
		// Short document, so the window spans the whole content unclipped.
		if r.Context != "क ख ग। घ ङ च। क छ।" {
			t.Errorf("context = %q, want full document content", r.Context)
		}
	}
}

func TestSearchSentencesOrAcrossDocuments(t *testing.T) {
	engine, _ := newTestEngine(t)
	results, err := engine.SearchSentences(context.Background(), "ग ज", index.OpOr, 0)
	if err != nil {
		t.Fatalf("SearchSentences() error = %v", err)
	}
	var got []string
	for _, r := range results {
		got = append(got, r.Document+":"+r.Sentence)
	}
	want := []string{"d1:क ख ग", "d2:ख ज"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("results = %v, want %v", got, want)
	}
}

func TestSearchSentencesLimitStopsScan(t *testing.T) {
	engine, _ := newTestEngine(t)
	results, err := engine.SearchSentences(context.Background(), "ख", index.OpOr, 1)
	if err != nil {
		t.Fatalf("SearchSentences() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Document != "d1" || results[0].Sentence != "क ख ग" {
		t.Errorf("result = %+v, want first matching sentence of d1", results[0])
	}
}

func TestSearchSentencesPreconditions(t *testing.T) {
	noIndex := NewEngine(nil, &memStore{})
	if _, err := noIndex.SearchSentences(context.Background(), "क", index.OpAnd, 0); !errors.Is(err, apperrors.ErrPreconditionFailed) {
		t.Errorf("no index: error = %v, want ErrPreconditionFailed", err)
	}
	noStore := NewEngine(index.New(), nil)
	if _, err := noStore.SearchSentences(context.Background(), "क", index.OpAnd, 0); !errors.Is(err, apperrors.ErrPreconditionFailed) {
		t.Errorf("no store: error = %v, want ErrPreconditionFailed", err)
	}
}

func TestSentenceContext(t *testing.T) {
	sentence := "TARGET SENTENCE."

	t.Run("clipped both sides", func(t *testing.T) {
		content := strings.Repeat("अ", 150) + sentence + strings.Repeat("ब", 150)
		want := ellipsis + strings.Repeat("अ", 100) + sentence + strings.Repeat("ब", 100) + ellipsis
		if got := sentenceContext(content, sentence); got != want {
			t.Errorf("sentenceContext() = %q, want %q", got, want)
		}
	})

	t.Run("unclipped", func(t *testing.T) {
		content := strings.Repeat("अ", 50) + sentence + strings.Repeat("ब", 50)
		if got := sentenceContext(content, sentence); got != content {
			t.Errorf("sentenceContext() = %q, want whole content without ellipsis", got)
		}
	})

	t.Run("clipped right only", func(t *testing.T) {
		content := sentence + strings.Repeat("ब", 150)
		want := sentence + strings.Repeat("ब", 100) + ellipsis
		if got := sentenceContext(content, sentence); got != want {
			t.Errorf("sentenceContext() = %q, want %q", got, want)
		}
	})

	t.Run("sentence not in content", func(t *testing.T) {
		if got := sentenceContext("something else entirely", sentence); got != sentence {
			t.Errorf("sentenceContext() = %q, want fallback to sentence", got)
		}
	})
}

func TestSearchWithHighlight(t *testing.T) {
	engine, _ := newTestEngine(t)
	results, err := engine.SearchWithHighlight(context.Background(), "क ग", index.OpAnd, 0)
	if err != nil {
		t.Fatalf("SearchWithHighlight() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Sentence != "**क** ख **ग**" {
		t.Errorf("highlighted sentence = %q, want **क** ख **ग**", r.Sentence)
	}
	if r.OriginalSentence != "क ख ग" {
		t.Errorf("original sentence = %q, want क ख ग", r.OriginalSentence)
	}
	if !strings.Contains(r.Context, "**क**") || !strings.Contains(r.Context, "**ग**") {
		t.Errorf("context %q missing highlight markers", r.Context)
	}
}

func TestHighlightTermsCaseInsensitive(t *testing.T) {
	got := highlightTerms("School is near the school gate", []string{"school"})
	want := "**school** is near the **school** gate"
	if got != want {
		t.Errorf("highlightTerms() = %q, want %q", got, want)
	}
}

func TestDocumentContent(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	content, err := engine.DocumentContent(ctx, "d2")
	if err != nil {
		t.Fatalf("DocumentContent() error = %v", err)
	}
	if content != "ख ज।" {
		t.Errorf("DocumentContent(d2) = %q, want ख ज।", content)
	}

	// Second lookup is served from the memo, not the store.
	store.docs[1].Content = "mutated"
	content, err = engine.DocumentContent(ctx, "d2")
	if err != nil {
		t.Fatalf("DocumentContent() error = %v", err)
	}
	if content != "ख ज।" {
		t.Errorf("memoized DocumentContent(d2) = %q, want ख ज।", content)
	}

	if _, err := engine.DocumentContent(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("DocumentContent(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDocumentContentNoStore(t *testing.T) {
	engine := NewEngine(index.New(), nil)
	if _, err := engine.DocumentContent(context.Background(), "d1"); !errors.Is(err, apperrors.ErrPreconditionFailed) {
		t.Errorf("DocumentContent() error = %v, want ErrPreconditionFailed", err)
	}
}

func TestLoadIndexSwapsIndex(t *testing.T) {
	engine, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "index.json")

	fresh := index.New()
	fresh.AddDocument("d9", []string{"ठ"})
	if err := index.Save(fresh, path, index.FormatJSON); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := engine.LoadIndex(path, index.FormatJSON); err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}

	got, err := engine.SearchDocuments("ठ", index.OpAnd, 0)
	if err != nil {
		t.Fatalf("SearchDocuments() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"d9"}) {
		t.Errorf("SearchDocuments(ठ) = %v, want [d9]", got)
	}
	// The old index is gone wholesale.
	got, err = engine.SearchDocuments("क", index.OpAnd, 0)
	if err != nil {
		t.Fatalf("SearchDocuments() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("SearchDocuments(क) = %v, want empty after reload", got)
	}
}

func TestIndexStats(t *testing.T) {
	engine, _ := newTestEngine(t)
	stats := engine.IndexStats()
	if stats.DocumentCount != 3 {
		t.Errorf("DocumentCount = %d, want 3", stats.DocumentCount)
	}
	if got := NewEngine(nil, nil).IndexStats(); got != (index.Stats{}) {
		t.Errorf("IndexStats() without index = %+v, want zero stats", got)
	}
}
