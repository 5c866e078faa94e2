// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

// Package api provides the HTTP serving surface: health probes, model
// metadata, batch rating prediction, and content-based similarity lookups.
//
// Every endpoint responds with the models.APIResponse envelope. The health
// and model-info endpoints never fail: with no snapshot loaded they report a
// degraded state instead of erroring.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cinemate/internal/config"
	"github.com/tomtom215/cinemate/internal/models"
	"github.com/tomtom215/cinemate/internal/recommend"
)

// Handler owns the serving endpoints.
type Handler struct {
	gateway   *recommend.Gateway
	cfg       *config.APIConfig
	version   string
	startedAt time.Time
}

// NewHandler creates the API handler.
func NewHandler(gateway *recommend.Gateway, cfg *config.APIConfig, version string) *Handler {
	return &Handler{
		gateway:   gateway,
		cfg:       cfg,
		version:   version,
		startedAt: time.Now(),
	}
}

// Root serves a small service banner at GET /.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	respondSuccess(w, map[string]interface{}{
		"service": "CineMate Recommendation API",
		"version": h.version,
		"endpoints": []string{
			"/health",
			"/model/info",
			"/recommend/svd",
			"/recommend/content-based/{movie_id}",
		},
	}, start)
}

// Health reports process and model state at GET /health. It always returns
// 200: a missing snapshot is a degraded state, not an error.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()

	status := models.HealthStatus{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.startedAt).Seconds(),
	}

	if snap, ok := h.gateway.Current(); ok {
		status.SnapshotLoaded = true
		status.FactorLoaded = snap.Factors() != nil
		status.SimilarityIndex = snap.Similarity() != nil
		builtAt := snap.BuiltAt()
		status.SnapshotBuiltAt = &builtAt
	} else {
		status.Status = "degraded"
	}

	respondSuccess(w, status, start)
}

// HealthLive is the liveness probe: the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady is the readiness probe: 503 until a snapshot is serving.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	if _, ok := h.gateway.Current(); !ok {
		respondError(w, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", "no model snapshot loaded", nil)
		return
	}
	respondSuccess(w, map[string]string{"status": "ready"}, time.Now())
}

// ModelInfo serves training metadata at GET /model/info. Like Health it
// never fails: without a snapshot it reports available=false.
func (h *Handler) ModelInfo(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()

	info, ok := h.gateway.Info()
	if !ok {
		respondSuccess(w, map[string]interface{}{"available": false}, start)
		return
	}

	respondSuccess(w, models.ModelInfo{
		BuiltAt:        info.BuiltAt,
		RatingCount:    info.RatingCount,
		MovieCount:     info.MovieCount,
		UserCount:      info.UserCount,
		Factors:        info.Factors,
		FeatureCount:   info.FeatureCount,
		MatrixShape:    [2]int{info.MovieCount, info.FeatureCount},
		SampleMovieIDs: info.SampleMovieIDs,
	}, start)
}

// PredictSVD handles POST /recommend/svd: batch rating prediction for one
// user over up to 500 movie ids, sorted by predicted score descending.
func (h *Handler) PredictSVD(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusUnprocessableEntity, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    apiErr,
		})
		return
	}

	preds, err := h.gateway.PredictBatch(req.UserID, req.MovieIDs)
	if err != nil {
		if errors.Is(err, recommend.ErrModelUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", "no model snapshot loaded", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "PREDICTION_FAILURE", "prediction failed", err)
		return
	}

	out := make([]models.Prediction, len(preds))
	for i, p := range preds {
		out[i] = models.Prediction{MovieID: p.MovieID, Score: p.Score}
	}
	respondSuccess(w, out, start)
}

// SimilarMovies handles GET /recommend/content-based/{movie_id}?top_n=N:
// content-based similarity lookup against the TF-IDF index.
func (h *Handler) SimilarMovies(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	movieID, err := strconv.ParseInt(chi.URLParam(r, "movie_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "movie_id must be an integer", err)
		return
	}

	topN := parseIntParam(r.URL.Query().Get("top_n"), h.cfg.DefaultTopN)

	ids, err := h.gateway.Similar(movieID, topN)
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrModelUnavailable):
			respondError(w, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", "no model snapshot loaded", nil)
		case errors.Is(err, recommend.ErrUnknownMovie):
			respondError(w, http.StatusNotFound, "NOT_FOUND", "movie id not found in model", nil)
		default:
			respondError(w, http.StatusInternalServerError, "PREDICTION_FAILURE", "similarity lookup failed", err)
		}
		return
	}

	// Empty result is a valid response, serialized as [] rather than null.
	if ids == nil {
		ids = []int64{}
	}
	respondSuccess(w, ids, start)
}
