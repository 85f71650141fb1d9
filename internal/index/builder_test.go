package index

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/newa-nlp/newasearch/internal/corpus"
	"github.com/newa-nlp/newasearch/internal/tokenizer"
)

// memStore is an in-memory corpus.Store for build tests.
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

func testCorpus() *memStore {
	return &memStore{docs: []corpus.Document{
		{ID: "d1", Content: "क ख क।"},
		{ID: "d2", Content: "ख ग"},
	}}
}

func TestBuildSequential(t *testing.T) {
	idx, skipped, err := Build(context.Background(), testCorpus(), BuildOptions{Mode: tokenizer.ModeRegex})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}

	got := idx.Stats()
	want := Stats{DocumentCount: 2, UniqueTerms: 3, TotalTerms: 5, AverageTermsPerDocument: 2.5}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
	if docs := idx.Documents("ख"); !reflect.DeepEqual(docs, docSet("d1", "d2")) {
		t.Errorf("Documents(ख) = %v, want {d1 d2}", docs)
	}
}

func TestBuildParallelMatchesSequential(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 250; i++ {
		store.docs = append(store.docs, corpus.Document{
			ID:      fmt.Sprintf("doc-%03d", i),
			Content: fmt.Sprintf("क ख ग। क%d", i%7),
		})
	}

	sequential, _, err := Build(context.Background(), store, BuildOptions{Mode: tokenizer.ModeSpace})
	if err != nil {
		t.Fatalf("sequential Build() error = %v", err)
	}
	parallel, _, err := Build(context.Background(), store, BuildOptions{Mode: tokenizer.ModeSpace, Workers: 4})
	if err != nil {
		t.Fatalf("parallel Build() error = %v", err)
	}

	if got, want := parallel.Stats(), sequential.Stats(); got != want {
		t.Errorf("parallel Stats() = %+v, sequential %+v", got, want)
	}
	seqPortable := sequential.Portable()
	parPortable := parallel.Portable()
	if !reflect.DeepEqual(parPortable, seqPortable) {
		t.Error("parallel postings differ from sequential postings")
	}
}

func TestBuildSkipsUntokenizableDocuments(t *testing.T) {
	var messages []string
	idx, skipped, err := Build(context.Background(), testCorpus(), BuildOptions{
		Mode:    tokenizer.ModeRegex,
		Pattern: "[unclosed",
		OnProgress: func(processed, total int, message string) {
			messages = append(messages, message)
		},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := idx.DocumentCount(); got != 0 {
		t.Errorf("DocumentCount() = %d, want 0 when every document is skipped", got)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(messages) != 2 {
		t.Errorf("got %d progress reports, want one per skipped document", len(messages))
	}
}

func TestBuildReportsProgress(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 25; i++ {
		store.docs = append(store.docs, corpus.Document{ID: fmt.Sprintf("d%d", i), Content: "क"})
	}

	var checkpoints []int
	_, _, err := Build(context.Background(), store, BuildOptions{
		Mode:          tokenizer.ModeSpace,
		ProgressEvery: 10,
		OnProgress: func(processed, total int, message string) {
			checkpoints = append(checkpoints, processed)
		},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	sort.Ints(checkpoints)
	if !reflect.DeepEqual(checkpoints, []int{10, 20, 25}) {
		t.Errorf("progress checkpoints = %v, want [10 20 25]", checkpoints)
	}
}

func TestBuildHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Build(ctx, testCorpus(), BuildOptions{Workers: 2}); err == nil {
		t.Error("Build() with cancelled context returned nil error")
	}
}
