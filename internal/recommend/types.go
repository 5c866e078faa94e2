// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package recommend

import (
	"errors"
)

// Sentinel errors for the serving path. The API layer maps these onto the
// HTTP error taxonomy (503 / 404).
var (
	// ErrModelUnavailable indicates no snapshot is loaded.
	ErrModelUnavailable = errors.New("no model snapshot loaded")

	// ErrUnknownMovie indicates a movie id absent from the similarity mapping.
	ErrUnknownMovie = errors.New("movie id not present in similarity index")
)

// Rating is one explicit user-movie rating used for training.
type Rating struct {
	// UserID is the application-issued user UUID.
	UserID string `json:"user_id"`

	// MovieID is the catalog movie id.
	MovieID int64 `json:"movie_id"`

	// Score is the rating on the [0.5, 5.0] scale.
	Score float64 `json:"score"`
}

// Movie is one catalog entry. Text attributes are consumed only at training
// time to build content features; the serving path holds no catalog text.
type Movie struct {
	// ID is the catalog movie id.
	ID int64 `json:"id"`

	// Title is the movie title.
	Title string `json:"title"`

	// Overview is the plot synopsis, possibly empty.
	Overview string `json:"overview"`

	// Genres is the genre text (e.g. "Action Thriller"), possibly empty.
	Genres string `json:"genres"`
}

// Content returns the text the similarity index is built from: overview and
// genre text space-joined, missing fields treated as empty.
func (m Movie) Content() string {
	if m.Overview == "" {
		return m.Genres
	}
	if m.Genres == "" {
		return m.Overview
	}
	return m.Overview + " " + m.Genres
}

// ScoringModel is the capability a snapshot needs from a trained factor
// model: estimate the affinity of one user for one movie. Implementations
// must return a fallback (global/bias) estimate for unseen pairs rather
// than erroring.
type ScoringModel interface {
	// Score returns the estimated rating for (userID, movieID).
	Score(userID string, movieID int64) float64

	// ScoreRange returns the (min, max) of the model's valid output scale.
	ScoreRange() (float64, float64)
}

// SimilaritySource is the capability a snapshot needs from a content
// similarity index: row-aligned feature vectors plus the id mapping.
type SimilaritySource interface {
	// RowCount returns the number of item rows.
	RowCount() int

	// RowFor returns the feature row for a movie id, or false if unknown.
	RowFor(movieID int64) (int, bool)

	// IDFor returns the movie id owning a row index.
	IDFor(row int) int64

	// SimilarityToAll returns the similarity of the given row against every
	// row, including itself. The slice is freshly allocated per call.
	SimilarityToAll(row int) []float64
}

// Prediction is one scored movie id.
type Prediction struct {
	MovieID int64
	Score   float64
}
