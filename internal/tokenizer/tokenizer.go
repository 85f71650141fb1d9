// Package tokenizer provides text segmentation for Newari/Devanagari text:
// token extraction, sentence splitting, and whitespace/punctuation cleanup.
// All tokens are lower-cased for matching consistency.
package tokenizer

import (
	"regexp"
	"strings"

	apperrors "github.com/newa-nlp/newasearch/pkg/errors"
)

// Mode selects the tokenization strategy.
type Mode int

const (
	// ModeSpace splits on whitespace and drops empty pieces.
	ModeSpace Mode = iota
	// ModeRegex extracts every non-overlapping match of a pattern. This is
	// the default for Devanagari text.
	ModeRegex
)

// DefaultPattern is the canonical Devanagari token pattern: the Devanagari
// block minus the danda marks (U+0964, U+0965), the digits (U+0966–U+096F),
// and the abbreviation sign (U+0970). Danda characters and digits therefore
// act as token separators. The index build and the unigram build both use
// this single pattern so that token sets agree across the system.
const DefaultPattern = `[\x{0900}-\x{0963}\x{0971}-\x{097F}]+`

// DefaultSentenceDelimiters matches Devanagari sentence-final punctuation:
// danda, double danda, and the Latin ! and ? marks.
const DefaultSentenceDelimiters = `[\x{0964}\x{0965}!?]`

var (
	defaultRe   = regexp.MustCompile(DefaultPattern)
	sentenceRe  = regexp.MustCompile(DefaultSentenceDelimiters)
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[\x{0964}\x{0965}!?.,;:()\[\]{}"'-]`)
)

// ParseMode converts a mode name ("space" or "regex") into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "space":
		return ModeSpace, nil
	case "regex":
		return ModeRegex, nil
	default:
		return 0, apperrors.Newf(apperrors.ErrInvalidArgument, "tokenizer mode must be 'space' or 'regex', got %q", s)
	}
}

// String returns the mode's configuration name.
func (m Mode) String() string {
	switch m {
	case ModeSpace:
		return "space"
	case ModeRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// Tokenize splits text into lower-cased tokens. In ModeRegex, pattern
// replaces DefaultPattern when non-empty. Empty or whitespace-only input
// yields a nil slice without error.
func Tokenize(text string, mode Mode, pattern string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var raw []string
	switch mode {
	case ModeSpace:
		raw = strings.Fields(text)
	case ModeRegex:
		re := defaultRe
		if pattern != "" {
			var err error
			re, err = regexp.Compile(pattern)
			if err != nil {
				return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "compiling token pattern %q: %v", pattern, err)
			}
		}
		raw = re.FindAllString(text, -1)
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "unknown tokenizer mode %d", mode)
	}

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		tokens = append(tokens, strings.ToLower(t))
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	return tokens, nil
}

// SplitSentences splits text on sentence-final punctuation. delimiterPattern
// replaces DefaultSentenceDelimiters when non-empty. Results are trimmed and
// empty pieces dropped.
func SplitSentences(text string, delimiterPattern string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	re := sentenceRe
	if delimiterPattern != "" {
		var err error
		re, err = regexp.Compile(delimiterPattern)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "compiling sentence delimiter pattern %q: %v", delimiterPattern, err)
		}
	}
	pieces := re.Split(text, -1)
	sentences := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		sentences = append(sentences, p)
	}
	if len(sentences) == 0 {
		return nil, nil
	}
	return sentences, nil
}

// IsDevanagari reports whether text contains at least one run of Devanagari
// characters matched by DefaultPattern.
func IsDevanagari(text string) bool {
	return defaultRe.MatchString(text)
}

// Clean collapses runs of whitespace to a single space and trims the ends.
// With stripPunctuation, it also removes common punctuation (including the
// danda marks) and re-collapses whitespace.
func Clean(text string, stripPunctuation bool) string {
	if text == "" {
		return ""
	}
	cleaned := whitespace.ReplaceAllString(strings.TrimSpace(text), " ")
	if stripPunctuation {
		cleaned = punctuation.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(whitespace.ReplaceAllString(cleaned, " "))
	}
	return cleaned
}
