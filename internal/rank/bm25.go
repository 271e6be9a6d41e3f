// Package rank provides the relevance scoring primitives of the pipeline:
// a BM25 lexical scorer over a fixed document set, reciprocal-rank and
// weighted fusion of vector and lexical rankings, and the keyword boost
// overlay.
package rank

import (
	"math"
	"strings"
	"unicode"
)

// Default BM25 parameters.
const (
	// DefaultK1 controls term-frequency saturation.
	DefaultK1 = 1.5

	// DefaultB controls document-length normalisation.
	DefaultB = 0.75
)

// Scorer computes BM25 relevance for a query against a fixed in-memory
// document set. Statistics are built over the supplied documents only;
// there is no external corpus. Scorers are deterministic and pure.
type Scorer struct {
	k1 float64
	b  float64

	docs   [][]string
	termDF map[string]int
	avgLen float64
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithK1 sets the term-saturation parameter.
func WithK1(k1 float64) Option {
	return func(s *Scorer) { s.k1 = k1 }
}

// WithB sets the length-normalisation parameter.
func WithB(b float64) Option {
	return func(s *Scorer) { s.b = b }
}

// NewScorer builds term statistics over the given documents.
func NewScorer(documents []string, opts ...Option) *Scorer {
	s := &Scorer{
		k1:     DefaultK1,
		b:      DefaultB,
		termDF: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.docs = make([][]string, len(documents))
	total := 0
	for i, doc := range documents {
		terms := Tokenize(doc)
		s.docs[i] = terms
		total += len(terms)

		seen := make(map[string]bool, len(terms))
		for _, term := range terms {
			if !seen[term] {
				seen[term] = true
				s.termDF[term]++
			}
		}
	}
	if len(documents) > 0 {
		s.avgLen = float64(total) / float64(len(documents))
	}

	return s
}

// Len returns the number of documents in the scorer's set.
func (s *Scorer) Len() int {
	return len(s.docs)
}

// ScoreDocument returns the BM25 score of the document at docIndex for the
// given query terms. Empty queries and out-of-range indexes score 0.
func (s *Scorer) ScoreDocument(queryTerms []string, docIndex int) float64 {
	if len(queryTerms) == 0 || docIndex < 0 || docIndex >= len(s.docs) {
		return 0
	}

	doc := s.docs[docIndex]
	if len(doc) == 0 {
		return 0
	}

	tf := make(map[string]int, len(doc))
	for _, term := range doc {
		tf[term]++
	}

	n := float64(len(s.docs))
	docLen := float64(len(doc))

	var score float64
	for _, term := range queryTerms {
		freq := float64(tf[term])
		if freq == 0 {
			continue
		}

		df := float64(s.termDF[term])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))

		num := freq * (s.k1 + 1)
		denom := freq + s.k1*(1-s.b+s.b*docLen/s.avgLen)
		score += idf * num / denom
	}

	return score
}

// Tokenize lower-cases, strips non-word runes, splits on whitespace and
// drops empty tokens.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	return strings.Fields(cleaned)
}
