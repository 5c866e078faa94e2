// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// SparseVector is one L2-normalized TF-IDF feature row. Indices are sorted
// ascending; Values holds the weight for the matching index position.
type SparseVector struct {
	Indices []int32
	Values  []float64
}

// SimilarityIndex holds the content feature matrix and the id↔row mapping.
//
// The mapping is a bijection: every movie id owns exactly one row and every
// row has exactly one owning id. It is rebuilt from scratch whenever the
// feature matrix is rebuilt, never reused across model generations.
//
// Fields are exported for gob serialization; the struct is immutable after
// construction and safe for concurrent reads.
type SimilarityIndex struct {
	// Vocabulary maps a term to its feature column.
	Vocabulary map[string]int

	// IDF is the per-column inverse document frequency.
	IDF []float64

	// Rows holds one normalized feature vector per movie, row-aligned with
	// RowToID.
	Rows []SparseVector

	// RowToID maps a row index to the owning movie id.
	RowToID []int64

	// IDToRow maps a movie id to its row index.
	IDToRow map[int64]int
}

// BuildSimilarityIndex fits a TF-IDF index over the movie catalog's content
// text (overview + genres). Vocabulary selection and column layout are
// deterministic for a fixed catalog.
func BuildSimilarityIndex(ctx context.Context, movies []Movie, maxFeatures int) (*SimilarityIndex, error) {
	if maxFeatures <= 0 {
		return nil, fmt.Errorf("max features must be positive, got %d", maxFeatures)
	}
	if len(movies) == 0 {
		return nil, fmt.Errorf("no movies to index")
	}

	idx := &SimilarityIndex{
		IDToRow: make(map[int64]int, len(movies)),
		RowToID: make([]int64, 0, len(movies)),
	}

	// Tokenize every document once; duplicate ids are a catalog corruption.
	docs := make([][]string, 0, len(movies))
	for _, mv := range movies {
		if _, dup := idx.IDToRow[mv.ID]; dup {
			return nil, fmt.Errorf("duplicate movie id %d in catalog", mv.ID)
		}
		idx.IDToRow[mv.ID] = len(idx.RowToID)
		idx.RowToID = append(idx.RowToID, mv.ID)
		docs = append(docs, tokenize(mv.Content()))
	}

	if contextCancelled(ctx) {
		return nil, ctx.Err()
	}

	// Corpus-wide term counts drive vocabulary selection; document counts
	// drive IDF.
	termCounts := make(map[string]int)
	docCounts := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			termCounts[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docCounts[tok]++
			}
		}
	}

	// Keep the maxFeatures most frequent terms, ties broken alphabetically,
	// then lay columns out in alphabetical order so the matrix shape is a
	// pure function of the catalog.
	terms := make([]string, 0, len(termCounts))
	for term := range termCounts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termCounts[terms[i]] != termCounts[terms[j]] {
			return termCounts[terms[i]] > termCounts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	idx.Vocabulary = make(map[string]int, len(terms))
	idx.IDF = make([]float64, len(terms))
	n := float64(len(docs))
	for col, term := range terms {
		idx.Vocabulary[term] = col
		// Smoothed IDF: ln((1+n)/(1+df)) + 1, never zero.
		idx.IDF[col] = math.Log((1+n)/(1+float64(docCounts[term]))) + 1
	}

	if contextCancelled(ctx) {
		return nil, ctx.Err()
	}

	// Build normalized rows.
	idx.Rows = make([]SparseVector, len(docs))
	for row, tokens := range docs {
		idx.Rows[row] = idx.vectorize(tokens)
	}

	return idx, nil
}

// vectorize converts a token stream into an L2-normalized TF-IDF row.
func (s *SimilarityIndex) vectorize(tokens []string) SparseVector {
	counts := make(map[int]float64)
	for _, tok := range tokens {
		if col, ok := s.Vocabulary[tok]; ok {
			counts[col]++
		}
	}

	vec := SparseVector{
		Indices: make([]int32, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	cols := make([]int, 0, len(counts))
	for col := range counts {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	var norm float64
	for _, col := range cols {
		w := counts[col] * s.IDF[col]
		vec.Indices = append(vec.Indices, int32(col))
		vec.Values = append(vec.Values, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec.Values {
			vec.Values[i] /= norm
		}
	}
	return vec
}

// RowCount returns the number of item rows.
func (s *SimilarityIndex) RowCount() int {
	return len(s.Rows)
}

// RowFor returns the feature row for a movie id, or false if unknown.
func (s *SimilarityIndex) RowFor(movieID int64) (int, bool) {
	row, ok := s.IDToRow[movieID]
	return row, ok
}

// IDFor returns the movie id owning a row index.
func (s *SimilarityIndex) IDFor(row int) int64 {
	return s.RowToID[row]
}

// FeatureCount returns the vocabulary size.
func (s *SimilarityIndex) FeatureCount() int {
	return len(s.IDF)
}

// SimilarityToAll computes the cosine similarity of one row against every
// row, including itself. Rows are unit vectors, so this is a sparse dot
// product per pair: O(M × nnz) per query instead of materializing the full
// O(M²) pairwise matrix.
func (s *SimilarityIndex) SimilarityToAll(row int) []float64 {
	query := s.Rows[row]
	sims := make([]float64, len(s.Rows))
	for j := range s.Rows {
		sims[j] = sparseDot(query, s.Rows[j])
	}
	return sims
}

// sparseDot merge-walks two sorted sparse vectors.
func sparseDot(a, b SparseVector) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			dot += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return dot
}

// tokenize lowercases text and splits it into word tokens of at least two
// characters, dropping English stop words.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := tokens[:0]
	for _, tok := range tokens {
		if len(tok) < 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// stopWords is the English stop word list applied before TF-IDF weighting.
var stopWords = func() map[string]struct{} {
	words := []string{
		"a", "about", "above", "after", "again", "against", "all", "am", "an",
		"and", "any", "are", "as", "at", "be", "because", "been", "before",
		"being", "below", "between", "both", "but", "by", "can", "cannot",
		"could", "did", "do", "does", "doing", "down", "during", "each",
		"few", "for", "from", "further", "had", "has", "have", "having",
		"he", "her", "here", "hers", "herself", "him", "himself", "his",
		"how", "i", "if", "in", "into", "is", "it", "its", "itself", "just",
		"me", "more", "most", "my", "myself", "no", "nor", "not", "now",
		"of", "off", "on", "once", "only", "or", "other", "our", "ours",
		"ourselves", "out", "over", "own", "same", "she", "should", "so",
		"some", "such", "than", "that", "the", "their", "theirs", "them",
		"themselves", "then", "there", "these", "they", "this", "those",
		"through", "to", "too", "under", "until", "up", "very", "was", "we",
		"were", "what", "when", "where", "which", "while", "who", "whom",
		"why", "will", "with", "would", "you", "your", "yours", "yourself",
		"yourselves",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()
