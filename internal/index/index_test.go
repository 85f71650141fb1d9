package index

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/newa-nlp/newasearch/pkg/errors"
)

// buildTestIndex assembles the two-document corpus used across scenarios:
// d1 = [क ख क], d2 = [ख ग].
func buildTestIndex() *InvertedIndex {
	idx := New()
	idx.AddDocument("d1", []string{"क", "ख", "क"})
	idx.AddDocument("d2", []string{"ख", "ग"})
	return idx
}

func docSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestAddDocument(t *testing.T) {
	idx := buildTestIndex()

	if got := idx.DocumentCount(); got != 2 {
		t.Errorf("DocumentCount() = %d, want 2", got)
	}
	// Repeated क in d1 counts twice in total terms.
	if got := idx.TotalTerms(); got != 5 {
		t.Errorf("TotalTerms() = %d, want 5", got)
	}
	want := map[string]map[string]struct{}{
		"क": docSet("d1"),
		"ख": docSet("d1", "d2"),
		"ग": docSet("d2"),
	}
	for term, expected := range want {
		if got := idx.Documents(term); !reflect.DeepEqual(got, expected) {
			t.Errorf("Documents(%s) = %v, want %v", term, got, expected)
		}
	}
}

func TestAddDocumentSkipsEmptyTerms(t *testing.T) {
	idx := New()
	idx.AddDocument("d1", []string{"क", "", "  ", "ख"})
	if got := idx.TotalTerms(); got != 2 {
		t.Errorf("TotalTerms() = %d, want 2", got)
	}
}

func TestAddDocumentDoesNotDeduplicateByID(t *testing.T) {
	idx := New()
	idx.AddDocument("d1", []string{"क"})
	idx.AddDocument("d1", []string{"क"})
	if got := idx.DocumentCount(); got != 2 {
		t.Errorf("DocumentCount() = %d, want 2", got)
	}
	if got := idx.TotalTerms(); got != 2 {
		t.Errorf("TotalTerms() = %d, want 2", got)
	}
	if got := idx.Documents("क"); !reflect.DeepEqual(got, docSet("d1")) {
		t.Errorf("Documents(क) = %v, want {d1}", got)
	}
}

func TestDocumentsUnknownTerm(t *testing.T) {
	idx := buildTestIndex()
	got := idx.Documents("missing")
	if len(got) != 0 {
		t.Errorf("Documents(missing) = %v, want empty set", got)
	}
}

func TestSearch(t *testing.T) {
	idx := buildTestIndex()
	tests := []struct {
		name  string
		terms []string
		op    Op
		want  map[string]struct{}
	}{
		{"and intersects", []string{"क", "ख"}, OpAnd, docSet("d1")},
		{"or unions", []string{"क", "ग"}, OpOr, docSet("d1", "d2")},
		{"and misses", []string{"क", "ग"}, OpAnd, docSet()},
		{"zero terms", nil, OpAnd, docSet()},
		{"zero terms or", nil, OpOr, docSet()},
		{"unknown term and", []string{"क", "missing"}, OpAnd, docSet()},
		{"unknown term or", []string{"क", "missing"}, OpOr, docSet("d1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Search(tt.terms, tt.op)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search(%v, %v) = %v, want %v", tt.terms, tt.op, got, tt.want)
			}
		})
	}
}

func TestSearchSingleTermBothOps(t *testing.T) {
	idx := buildTestIndex()
	for _, term := range []string{"क", "ख", "ग", "missing"} {
		want := idx.Documents(term)
		andResult, err := idx.Search([]string{term}, OpAnd)
		if err != nil {
			t.Fatalf("Search(AND) error = %v", err)
		}
		orResult, err := idx.Search([]string{term}, OpOr)
		if err != nil {
			t.Fatalf("Search(OR) error = %v", err)
		}
		if !reflect.DeepEqual(andResult, want) || !reflect.DeepEqual(orResult, want) {
			t.Errorf("single-term search for %q: AND=%v OR=%v want %v", term, andResult, orResult, want)
		}
	}
}

func TestSearchInvalidOp(t *testing.T) {
	idx := buildTestIndex()
	if _, err := idx.Search([]string{"क"}, Op(42)); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("Search() error = %v, want ErrInvalidArgument", err)
	}
}

func TestParseOp(t *testing.T) {
	for name, want := range map[string]Op{"AND": OpAnd, "and": OpAnd, "OR": OpOr, "or": OpOr} {
		got, err := ParseOp(name)
		if err != nil || got != want {
			t.Errorf("ParseOp(%q) = %v, %v, want %v", name, got, err, want)
		}
	}
	if _, err := ParseOp("XOR"); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("ParseOp(XOR) error = %v, want ErrInvalidArgument", err)
	}
}

func TestStats(t *testing.T) {
	idx := buildTestIndex()
	got := idx.Stats()
	want := Stats{
		DocumentCount:           2,
		UniqueTerms:             3,
		TotalTerms:              5,
		AverageTermsPerDocument: 2.5,
	}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestStatsEmptyIndex(t *testing.T) {
	got := New().Stats()
	if got != (Stats{}) {
		t.Errorf("Stats() = %+v, want zero stats", got)
	}
}

func TestPortableRoundTrip(t *testing.T) {
	idx := buildTestIndex()
	restored := FromPortable(idx.Portable(), idx.DocumentCount())

	if restored.DocumentCount() != idx.DocumentCount() {
		t.Errorf("DocumentCount() = %d, want %d", restored.DocumentCount(), idx.DocumentCount())
	}
	for _, term := range []string{"क", "ख", "ग"} {
		if got, want := restored.Documents(term), idx.Documents(term); !reflect.DeepEqual(got, want) {
			t.Errorf("Documents(%s) = %v, want %v", term, got, want)
		}
	}
	// The portable form stores each (term, doc) pair once, so the repeated
	// क in d1 is not recoverable: 4 pairs instead of 5 occurrences.
	if got := restored.TotalTerms(); got != 4 {
		t.Errorf("TotalTerms() after round trip = %d, want 4", got)
	}
}

func TestMerge(t *testing.T) {
	sequential := buildTestIndex()

	a := New()
	a.AddDocument("d1", []string{"क", "ख", "क"})
	b := New()
	b.AddDocument("d2", []string{"ख", "ग"})
	a.Merge(b)

	if got, want := a.Stats(), sequential.Stats(); got != want {
		t.Errorf("merged Stats() = %+v, want %+v", got, want)
	}
	for _, term := range []string{"क", "ख", "ग"} {
		if got, want := a.Documents(term), sequential.Documents(term); !reflect.DeepEqual(got, want) {
			t.Errorf("merged Documents(%s) = %v, want %v", term, got, want)
		}
	}
}
