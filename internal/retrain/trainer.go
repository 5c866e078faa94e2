// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package retrain

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinemate/internal/artifact"
	"github.com/tomtom215/cinemate/internal/recommend"
)

// ModelTrainer is the default Trainer: it fits the factor model and builds
// the similarity index from one extraction.
type ModelTrainer struct {
	factorCfg   recommend.FactorConfig
	maxFeatures int
	logger      zerolog.Logger
	now         func() time.Time
}

// NewModelTrainer creates a trainer with the given training parameters.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewModelTrainer(factorCfg recommend.FactorConfig, maxFeatures int, logger zerolog.Logger) *ModelTrainer {
	return &ModelTrainer{
		factorCfg:   factorCfg,
		maxFeatures: maxFeatures,
		logger:      logger.With().Str("component", "trainer").Logger(),
		now:         time.Now,
	}
}

// Train fits both models on the extracted data and returns a publishable
// bundle. Both models train from the same extraction, so the bundle is
// internally consistent.
func (t *ModelTrainer) Train(ctx context.Context, ratings []recommend.Rating, movies []recommend.Movie) (artifact.Bundle, error) {
	if len(ratings) == 0 {
		return artifact.Bundle{}, fmt.Errorf("no ratings to train on")
	}
	if len(movies) == 0 {
		return artifact.Bundle{}, fmt.Errorf("no movies to index")
	}

	start := t.now()

	factors, err := recommend.TrainFactorModel(ctx, ratings, t.factorCfg)
	if err != nil {
		return artifact.Bundle{}, fmt.Errorf("train factor model: %w", err)
	}
	t.logger.Info().
		Int("users", factors.UserCount()).
		Int("items", factors.ItemCount()).
		Int("factors", t.factorCfg.Factors).
		Dur("elapsed", t.now().Sub(start)).
		Msg("factor model trained")

	similarity, err := recommend.BuildSimilarityIndex(ctx, movies, t.maxFeatures)
	if err != nil {
		return artifact.Bundle{}, fmt.Errorf("build similarity index: %w", err)
	}
	t.logger.Info().
		Int("movies", similarity.RowCount()).
		Int("features", similarity.FeatureCount()).
		Msg("similarity index built")

	return artifact.Bundle{
		Factors:     factors,
		Similarity:  similarity,
		BuiltAt:     t.now().UTC(),
		RatingCount: len(ratings),
	}, nil
}
