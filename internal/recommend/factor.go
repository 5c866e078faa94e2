// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package recommend

import (
	"context"
	"fmt"
	"math/rand"
)

// FactorConfig contains training configuration for the factor model.
type FactorConfig struct {
	// Factors is the latent factor dimension. Typical range: 50-200.
	Factors int

	// Epochs is the number of SGD passes over the ratings.
	Epochs int

	// LearningRate is the SGD step size.
	LearningRate float64

	// Regularization is the L2 regularization applied to biases and factors.
	Regularization float64

	// Seed seeds factor initialization for reproducible models.
	Seed int64

	// ScaleMin and ScaleMax bound the rating scale; predictions are clamped
	// into this interval.
	ScaleMin float64
	ScaleMax float64
}

// DefaultFactorConfig returns the production training parameters
// (100 factors, 20 epochs, seed 42, ratings on [0.5, 5.0]).
func DefaultFactorConfig() FactorConfig {
	return FactorConfig{
		Factors:        100,
		Epochs:         20,
		LearningRate:   0.005,
		Regularization: 0.02,
		Seed:           42,
		ScaleMin:       0.5,
		ScaleMax:       5.0,
	}
}

// FactorModel is a biased matrix factorization model over explicit ratings.
//
// The predicted rating is
//
//	r̂(u,i) = μ + b_u + b_i + p_u · q_i
//
// clamped to the rating scale. For a user or movie absent from training the
// corresponding bias and the interaction term are dropped, so the estimate
// degrades gracefully toward the global mean instead of erroring — unseen
// pairs always get a score.
//
// Fields are exported for gob serialization; the struct is immutable after
// training and safe for concurrent reads.
type FactorModel struct {
	GlobalMean float64
	ScaleMin   float64
	ScaleMax   float64
	Factors    int

	// UserIndex maps user UUID to a row in UserBias/UserFactors.
	UserIndex map[string]int

	// ItemIndex maps movie id to a row in ItemBias/ItemFactors.
	ItemIndex map[int64]int

	UserBias []float64
	ItemBias []float64

	UserFactors [][]float64
	ItemFactors [][]float64
}

// TrainFactorModel fits a factor model on the given ratings using SGD.
// Training is deterministic for a fixed config and input order.
func TrainFactorModel(ctx context.Context, ratings []Rating, cfg FactorConfig) (*FactorModel, error) {
	if cfg.Factors <= 0 {
		return nil, fmt.Errorf("factor dimension must be positive, got %d", cfg.Factors)
	}
	if cfg.Epochs <= 0 {
		return nil, fmt.Errorf("epoch count must be positive, got %d", cfg.Epochs)
	}
	if cfg.ScaleMax <= cfg.ScaleMin {
		return nil, fmt.Errorf("invalid rating scale [%g, %g]", cfg.ScaleMin, cfg.ScaleMax)
	}
	if len(ratings) == 0 {
		return nil, fmt.Errorf("no ratings to train on")
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.005
	}
	if cfg.Regularization < 0 {
		cfg.Regularization = 0.02
	}

	m := &FactorModel{
		ScaleMin:  cfg.ScaleMin,
		ScaleMax:  cfg.ScaleMax,
		Factors:   cfg.Factors,
		UserIndex: make(map[string]int),
		ItemIndex: make(map[int64]int),
	}

	// Index users and movies in first-seen order so the layout is a pure
	// function of the input.
	var sum float64
	for _, r := range ratings {
		if _, ok := m.UserIndex[r.UserID]; !ok {
			m.UserIndex[r.UserID] = len(m.UserIndex)
		}
		if _, ok := m.ItemIndex[r.MovieID]; !ok {
			m.ItemIndex[r.MovieID] = len(m.ItemIndex)
		}
		sum += r.Score
	}
	m.GlobalMean = sum / float64(len(ratings))

	numUsers := len(m.UserIndex)
	numItems := len(m.ItemIndex)
	m.UserBias = make([]float64, numUsers)
	m.ItemBias = make([]float64, numItems)
	m.UserFactors = make([][]float64, numUsers)
	m.ItemFactors = make([][]float64, numItems)

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // deterministic init, not cryptographic
	for u := 0; u < numUsers; u++ {
		m.UserFactors[u] = initFactors(rng, cfg.Factors)
	}
	for i := 0; i < numItems; i++ {
		m.ItemFactors[i] = initFactors(rng, cfg.Factors)
	}

	lr := cfg.LearningRate
	reg := cfg.Regularization

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if contextCancelled(ctx) {
			return nil, ctx.Err()
		}

		for _, r := range ratings {
			u := m.UserIndex[r.UserID]
			i := m.ItemIndex[r.MovieID]

			pu := m.UserFactors[u]
			qi := m.ItemFactors[i]

			var dot float64
			for f := 0; f < cfg.Factors; f++ {
				dot += pu[f] * qi[f]
			}

			err := r.Score - (m.GlobalMean + m.UserBias[u] + m.ItemBias[i] + dot)

			m.UserBias[u] += lr * (err - reg*m.UserBias[u])
			m.ItemBias[i] += lr * (err - reg*m.ItemBias[i])

			for f := 0; f < cfg.Factors; f++ {
				puf := pu[f]
				pu[f] += lr * (err*qi[f] - reg*puf)
				qi[f] += lr * (err*puf - reg*qi[f])
			}
		}
	}

	return m, nil
}

// initFactors draws a factor vector from N(0, 0.1).
func initFactors(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for f := range v {
		v[f] = rng.NormFloat64() * 0.1
	}
	return v
}

// Score returns the estimated rating for (userID, movieID), clamped to the
// rating scale. Unknown users or movies fall back to the terms that remain.
func (m *FactorModel) Score(userID string, movieID int64) float64 {
	est := m.GlobalMean

	u, knownUser := m.UserIndex[userID]
	i, knownItem := m.ItemIndex[movieID]

	if knownUser {
		est += m.UserBias[u]
	}
	if knownItem {
		est += m.ItemBias[i]
	}
	if knownUser && knownItem {
		pu := m.UserFactors[u]
		qi := m.ItemFactors[i]
		for f := 0; f < m.Factors; f++ {
			est += pu[f] * qi[f]
		}
	}

	if est < m.ScaleMin {
		return m.ScaleMin
	}
	if est > m.ScaleMax {
		return m.ScaleMax
	}
	return est
}

// ScoreRange returns the rating scale the model clamps to.
func (m *FactorModel) ScoreRange() (float64, float64) {
	return m.ScaleMin, m.ScaleMax
}

// UserCount returns the number of distinct users seen at training time.
func (m *FactorModel) UserCount() int {
	return len(m.UserIndex)
}

// ItemCount returns the number of distinct movies seen at training time.
func (m *FactorModel) ItemCount() int {
	return len(m.ItemIndex)
}

// contextCancelled checks if the context has been canceled.
func contextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
