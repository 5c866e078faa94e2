// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package recommend

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Gateway owns the current Snapshot and answers all serving queries against
// it. The snapshot sits behind an atomic pointer: Reload is a single swap,
// so a reader holding a snapshot handle always sees one consistent
// generation of both models. Readers never block and writers never wait for
// readers.
type Gateway struct {
	logger  zerolog.Logger
	current atomic.Pointer[Snapshot]
}

// NewGateway creates a gateway with no snapshot loaded. Queries return
// ErrModelUnavailable until the first Reload.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewGateway(logger zerolog.Logger) *Gateway {
	return &Gateway{
		logger: logger.With().Str("component", "gateway").Logger(),
	}
}

// Reload installs a new snapshot. In-flight queries finish against the
// snapshot they started with; new queries see the new one.
func (g *Gateway) Reload(s *Snapshot) {
	old := g.current.Swap(s)

	event := g.logger.Info().
		Int("version", s.Version()).
		Time("built_at", s.BuiltAt()).
		Int("movies", s.MovieCount()).
		Int("ratings", s.RatingCount())
	if old != nil {
		event = event.Int("previous_version", old.Version())
	}
	event.Msg("snapshot installed")
}

// Current returns the snapshot serving requests right now, or false when no
// snapshot has been loaded yet.
func (g *Gateway) Current() (*Snapshot, bool) {
	s := g.current.Load()
	return s, s != nil
}

// PredictBatch scores every movie id for the user against the current
// snapshot, sorted by score descending. Returns ErrModelUnavailable when no
// snapshot is loaded.
func (g *Gateway) PredictBatch(userID string, movieIDs []int64) ([]Prediction, error) {
	s, ok := g.Current()
	if !ok {
		return nil, ErrModelUnavailable
	}
	return s.BatchScore(userID, movieIDs), nil
}

// Similar returns up to topN movies similar to movieID from the current
// snapshot. Returns ErrModelUnavailable when no snapshot is loaded and
// ErrUnknownMovie for ids outside the mapping.
func (g *Gateway) Similar(movieID int64, topN int) ([]int64, error) {
	s, ok := g.Current()
	if !ok {
		return nil, ErrModelUnavailable
	}
	return s.Similar(movieID, topN)
}

// Info describes the current snapshot for the /model/info endpoint.
type Info struct {
	Version        int
	BuiltAt        time.Time
	RatingCount    int
	MovieCount     int
	UserCount      int
	Factors        int
	FeatureCount   int
	SampleMovieIDs []int64
}

// Info returns build metadata for the current snapshot, or false when none
// is loaded. It never fails: fields that cannot be derived from the loaded
// model types are left zero.
func (g *Gateway) Info() (Info, bool) {
	s, ok := g.Current()
	if !ok {
		return Info{}, false
	}

	info := Info{
		Version:     s.Version(),
		BuiltAt:     s.BuiltAt(),
		RatingCount: s.RatingCount(),
		MovieCount:  s.MovieCount(),
	}

	if fm, isFactor := s.Factors().(*FactorModel); isFactor {
		info.UserCount = fm.UserCount()
		info.Factors = fm.Factors
	}
	if si, isIndex := s.Similarity().(*SimilarityIndex); isIndex {
		info.FeatureCount = si.FeatureCount()
	}

	sampleLen := s.MovieCount()
	if sampleLen > 5 {
		sampleLen = 5
	}
	info.SampleMovieIDs = make([]int64, sampleLen)
	for i := 0; i < sampleLen; i++ {
		info.SampleMovieIDs[i] = s.Similarity().IDFor(i)
	}

	return info, true
}
