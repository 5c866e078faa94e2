// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package recommend

import (
	"fmt"
	"sort"
	"time"
)

// Similar-query clamping bounds. The upper bound caps both response size and
// the per-query similarity compute.
const (
	MinTopN = 1
	MaxTopN = 50
)

// Snapshot is the atomic unit of serving state: a factor model and a
// similarity index trained from the same data extraction, plus build
// metadata. It is immutable after construction and replaced wholesale on
// reload, never mutated in place.
type Snapshot struct {
	factors    ScoringModel
	similarity SimilaritySource

	builtAt     time.Time
	ratingCount int
	version     int
}

// NewSnapshot bundles a trained factor model and similarity index. Both
// components must be present; the similarity mapping is checked for
// bijectivity so a corrupt artifact can never be served.
func NewSnapshot(factors ScoringModel, similarity SimilaritySource, builtAt time.Time, ratingCount, version int) (*Snapshot, error) {
	if factors == nil {
		return nil, fmt.Errorf("factor model is nil")
	}
	if similarity == nil {
		return nil, fmt.Errorf("similarity index is nil")
	}

	// Every row must be owned by exactly one id that maps back to it.
	for row := 0; row < similarity.RowCount(); row++ {
		id := similarity.IDFor(row)
		mapped, ok := similarity.RowFor(id)
		if !ok || mapped != row {
			return nil, fmt.Errorf("similarity mapping is not a bijection at row %d (movie %d)", row, id)
		}
	}

	return &Snapshot{
		factors:     factors,
		similarity:  similarity,
		builtAt:     builtAt,
		ratingCount: ratingCount,
		version:     version,
	}, nil
}

// BuiltAt returns when the snapshot's models were trained.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// RatingCount returns the number of ratings the models were trained on.
func (s *Snapshot) RatingCount() int { return s.ratingCount }

// Version returns the published artifact version this snapshot was loaded from.
func (s *Snapshot) Version() int { return s.version }

// MovieCount returns the similarity index cardinality.
func (s *Snapshot) MovieCount() int { return s.similarity.RowCount() }

// Factors returns the snapshot's scoring model.
func (s *Snapshot) Factors() ScoringModel { return s.factors }

// Similarity returns the snapshot's similarity source.
func (s *Snapshot) Similarity() SimilaritySource { return s.similarity }

// Score returns the estimated rating for one (user, movie) pair. Unseen
// pairs get the model's fallback estimate; Score itself never fails.
func (s *Snapshot) Score(userID string, movieID int64) float64 {
	return s.factors.Score(userID, movieID)
}

// BatchScore scores every movie id for the user and returns the predictions
// sorted by score descending. Equal scores keep their input order (stable
// sort), which makes the ordering contract fully deterministic.
func (s *Snapshot) BatchScore(userID string, movieIDs []int64) []Prediction {
	preds := make([]Prediction, len(movieIDs))
	for i, id := range movieIDs {
		preds[i] = Prediction{MovieID: id, Score: s.factors.Score(userID, id)}
	}
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Score > preds[j].Score
	})
	return preds
}

// Similar returns up to topN movie ids most similar to movieID, ordered by
// descending similarity with ties broken by ascending row index. The query
// movie is excluded. topN is clamped to [MinTopN, MaxTopN]. Returns
// ErrUnknownMovie for ids absent from the mapping.
func (s *Snapshot) Similar(movieID int64, topN int) ([]int64, error) {
	row, ok := s.similarity.RowFor(movieID)
	if !ok {
		return nil, fmt.Errorf("movie %d: %w", movieID, ErrUnknownMovie)
	}

	if topN < MinTopN {
		topN = MinTopN
	}
	if topN > MaxTopN {
		topN = MaxTopN
	}

	sims := s.similarity.SimilarityToAll(row)

	order := make([]int, 0, len(sims)-1)
	for j := range sims {
		if j == row {
			continue
		}
		order = append(order, j)
	}
	sort.Slice(order, func(a, b int) bool {
		if sims[order[a]] != sims[order[b]] {
			return sims[order[a]] > sims[order[b]]
		}
		return order[a] < order[b]
	})

	if len(order) > topN {
		order = order[:topN]
	}
	ids := make([]int64, len(order))
	for i, j := range order {
		ids[i] = s.similarity.IDFor(j)
	}
	return ids, nil
}

// Interface conformance for the in-repo model implementations.
var (
	_ ScoringModel     = (*FactorModel)(nil)
	_ SimilaritySource = (*SimilarityIndex)(nil)
)
