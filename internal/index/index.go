// Package index implements the term→document inverted index: incremental
// construction, boolean AND/OR query evaluation, statistics, and JSON/binary
// persistence.
package index

import (
	"sort"
	"strings"

	apperrors "github.com/newa-nlp/newasearch/pkg/errors"
)

// Op is a boolean search operation over per-term posting sets.
type Op int

const (
	// OpAnd intersects posting sets.
	OpAnd Op = iota
	// OpOr unions posting sets.
	OpOr
)

// ParseOp converts an operation name ("AND" or "OR", case-insensitive) into
// an Op.
func ParseOp(s string) (Op, error) {
	switch strings.ToUpper(s) {
	case "AND":
		return OpAnd, nil
	case "OR":
		return OpOr, nil
	default:
		return 0, apperrors.Newf(apperrors.ErrInvalidArgument, "operation must be 'AND' or 'OR', got %q", s)
	}
}

// String returns the operation's wire name.
func (op Op) String() string {
	switch op {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	default:
		return "unknown"
	}
}

// Stats summarises an index.
type Stats struct {
	DocumentCount           int     `json:"document_count"`
	UniqueTerms             int     `json:"unique_terms"`
	TotalTerms              int     `json:"total_terms"`
	AverageTermsPerDocument float64 `json:"average_terms_per_document"`
}

// InvertedIndex maps terms to the set of document identifiers containing
// them. It does not deduplicate documents by id: adding the same id twice
// increments the document count twice, which is legal and meaningful for
// corpora where an id may carry several revisions.
type InvertedIndex struct {
	postings      map[string]map[string]struct{}
	documentCount int
	totalTerms    int
}

// New returns an empty index.
func New() *InvertedIndex {
	return &InvertedIndex{
		postings: make(map[string]map[string]struct{}),
	}
}

// AddDocument records one document. The document count is incremented
// unconditionally; every non-empty term inserts docID into that term's
// posting set and counts one term occurrence, so repeated terms contribute
// repeatedly to the total even though the posting set stores docID once.
func (idx *InvertedIndex) AddDocument(docID string, terms []string) {
	idx.documentCount++
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		set, ok := idx.postings[term]
		if !ok {
			set = make(map[string]struct{})
			idx.postings[term] = set
		}
		set[docID] = struct{}{}
		idx.totalTerms++
	}
}

// Documents returns the posting set for term. Unknown terms yield an empty
// set. The returned map is a copy; callers may mutate it freely.
func (idx *InvertedIndex) Documents(term string) map[string]struct{} {
	set := idx.postings[term]
	out := make(map[string]struct{}, len(set))
	for docID := range set {
		out[docID] = struct{}{}
	}
	return out
}

// Search evaluates a boolean query over the per-term posting sets. Zero
// terms yield an empty set. AND intersects starting from the smallest
// posting set; OR unions everything.
func (idx *InvertedIndex) Search(terms []string, op Op) (map[string]struct{}, error) {
	switch op {
	case OpAnd, OpOr:
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "unknown search operation %d", op)
	}
	if len(terms) == 0 {
		return make(map[string]struct{}), nil
	}

	if op == OpOr {
		result := make(map[string]struct{})
		for _, term := range terms {
			for docID := range idx.postings[term] {
				result[docID] = struct{}{}
			}
		}
		return result, nil
	}

	// AND: intersect against progressively smaller candidate sets by
	// starting from the rarest term.
	ordered := make([]string, len(terms))
	copy(ordered, terms)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(idx.postings[ordered[i]]) < len(idx.postings[ordered[j]])
	})
	result := idx.Documents(ordered[0])
	for _, term := range ordered[1:] {
		if len(result) == 0 {
			return result, nil
		}
		set := idx.postings[term]
		for docID := range result {
			if _, ok := set[docID]; !ok {
				delete(result, docID)
			}
		}
	}
	return result, nil
}

// Stats returns aggregate counts for the index. The average is 0 for an
// empty index.
func (idx *InvertedIndex) Stats() Stats {
	s := Stats{
		DocumentCount: idx.documentCount,
		UniqueTerms:   len(idx.postings),
		TotalTerms:    idx.totalTerms,
	}
	if idx.documentCount > 0 {
		s.AverageTermsPerDocument = float64(idx.totalTerms) / float64(idx.documentCount)
	}
	return s
}

// DocumentCount returns the number of AddDocument calls.
func (idx *InvertedIndex) DocumentCount() int {
	return idx.documentCount
}

// TotalTerms returns the number of term occurrences added.
func (idx *InvertedIndex) TotalTerms() int {
	return idx.totalTerms
}

// Portable converts the set-valued postings into sorted lists suitable for
// serialization.
func (idx *InvertedIndex) Portable() map[string][]string {
	out := make(map[string][]string, len(idx.postings))
	for term, set := range idx.postings {
		docs := make([]string, 0, len(set))
		for docID := range set {
			docs = append(docs, docID)
		}
		sort.Strings(docs)
		out[term] = docs
	}
	return out
}

// FromPortable rebuilds an index from its portable form. The total term
// count is recomputed as the sum of posting-list lengths, which undercounts
// relative to a native build when documents contained repeated terms; the
// codecs restore the exact persisted value on top of this.
func FromPortable(data map[string][]string, docCount int) *InvertedIndex {
	idx := New()
	idx.documentCount = docCount
	for term, docs := range data {
		set := make(map[string]struct{}, len(docs))
		for _, docID := range docs {
			set[docID] = struct{}{}
		}
		idx.postings[term] = set
		idx.totalTerms += len(docs)
	}
	return idx
}

// Merge unions other's postings into idx and adds its document and term
// counts. Posting-set union is commutative and associative, so partial
// indexes built over corpus shards merge into the same index a sequential
// build produces.
func (idx *InvertedIndex) Merge(other *InvertedIndex) {
	for term, docs := range other.postings {
		set, ok := idx.postings[term]
		if !ok {
			set = make(map[string]struct{}, len(docs))
			idx.postings[term] = set
		}
		for docID := range docs {
			set[docID] = struct{}{}
		}
	}
	idx.documentCount += other.documentCount
	idx.totalTerms += other.totalTerms
}
