// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

// Package models defines the JSON payloads shared by the HTTP API.
package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP endpoints.
//
// Status field values:
//   - "success": request completed, see Data
//   - "error": request failed, see Error
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "MODEL_UNAVAILABLE", "message": "no snapshot loaded"},
//	  "metadata": {"timestamp": "2026-08-29T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError carries a machine-readable error code alongside a best-effort
// human-readable message. Internal error text is never copied here verbatim.
//
// Codes used by the serving API:
//   - MODEL_UNAVAILABLE: no snapshot loaded (503)
//   - NOT_FOUND: movie id absent from the similarity mapping (404)
//   - VALIDATION_ERROR: malformed request shape (400/422)
//   - PREDICTION_FAILURE: unexpected scoring/similarity failure (500)
//   - RATE_LIMIT_EXCEEDED: too many requests (429)
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PredictRequest is the body of POST /recommend/svd.
type PredictRequest struct {
	UserID   string  `json:"user_id" validate:"required,uuid_shaped"`
	MovieIDs []int64 `json:"movie_ids" validate:"required,min=1,max=500"`
}

// Prediction is one scored movie in a batch prediction response.
type Prediction struct {
	MovieID int64   `json:"movieId"`
	Score   float64 `json:"score"`
}

// PredictResponse is the data payload of POST /recommend/svd,
// sorted non-increasing by score.
type PredictResponse struct {
	Data []Prediction `json:"data"`
}

// SimilarResponse is the data payload of GET /recommend/content-based/{movie_id}.
type SimilarResponse struct {
	Data []int64 `json:"data"`
}

// HealthStatus reports serving-process health and per-artifact presence.
// The endpoint that returns it never errors.
type HealthStatus struct {
	Status          string     `json:"status"` // healthy | degraded
	Version         string     `json:"version"`
	SnapshotLoaded  bool       `json:"snapshot_loaded"`
	FactorLoaded    bool       `json:"factor_model_loaded"`
	SimilarityIndex bool       `json:"similarity_index_loaded"`
	SnapshotBuiltAt *time.Time `json:"snapshot_built_at,omitempty"`
	Uptime          float64    `json:"uptime_seconds"`
}

// ModelInfo is the training metadata payload of GET /model/info, exposed for
// debugging and dashboards.
type ModelInfo struct {
	BuiltAt        time.Time `json:"built_at"`
	RatingCount    int       `json:"rating_count"`
	MovieCount     int       `json:"movie_count"`
	UserCount      int       `json:"user_count"`
	Factors        int       `json:"factors"`
	FeatureCount   int       `json:"feature_count"`
	MatrixShape    [2]int    `json:"matrix_shape"` // [movies, features]
	SampleMovieIDs []int64   `json:"sample_movie_ids"`
}
