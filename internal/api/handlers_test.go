// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinemate/internal/config"
	"github.com/tomtom215/cinemate/internal/models"
	"github.com/tomtom215/cinemate/internal/recommend"
)

const testUserID = "6f1c4e2a-0b3d-4c5e-8f7a-9b0c1d2e3f4a"

// envelope mirrors models.APIResponse with raw data for per-test decoding.
type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func testAPIConfig() *config.APIConfig {
	return &config.APIConfig{
		MaxBatchMovies: 500,
		DefaultTopN:    10,
		MaxTopN:        50,
	}
}

func testSnapshot(t *testing.T) *recommend.Snapshot {
	t.Helper()

	ratings := []recommend.Rating{
		{UserID: testUserID, MovieID: 10, Score: 5.0},
		{UserID: testUserID, MovieID: 20, Score: 2.0},
		{UserID: "7a2d5f3b-1c4e-5d6f-9a8b-0c1d2e3f4a5b", MovieID: 10, Score: 4.0},
		{UserID: "7a2d5f3b-1c4e-5d6f-9a8b-0c1d2e3f4a5b", MovieID: 30, Score: 3.0},
	}
	cfg := recommend.DefaultFactorConfig()
	cfg.Factors = 4
	cfg.Epochs = 10
	factors, err := recommend.TrainFactorModel(context.Background(), ratings, cfg)
	if err != nil {
		t.Fatalf("TrainFactorModel() error = %v", err)
	}

	movies := []recommend.Movie{
		{ID: 10, Title: "Star Wars", Overview: "space rebellion against an empire", Genres: "Science Fiction"},
		{ID: 20, Title: "Star Trek", Overview: "space exploration aboard a starship", Genres: "Science Fiction"},
		{ID: 30, Title: "The Godfather", Overview: "crime family saga", Genres: "Crime Drama"},
	}
	similarity, err := recommend.BuildSimilarityIndex(context.Background(), movies, 100)
	if err != nil {
		t.Fatalf("BuildSimilarityIndex() error = %v", err)
	}

	snap, err := recommend.NewSnapshot(factors, similarity, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), len(ratings), 1)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return snap
}

func newTestServer(t *testing.T, loaded bool) http.Handler {
	t.Helper()
	gateway := recommend.NewGateway(zerolog.Nop())
	if loaded {
		gateway.Reload(testSnapshot(t))
	}
	cfg := testAPIConfig()
	return NewRouter(NewHandler(gateway, cfg, "test"), cfg)
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding response body %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func TestRootBanner(t *testing.T) {
	handler := newTestServer(t, false)
	rec, env := doRequest(t, handler, http.MethodGet, "/", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decoding banner: %v", err)
	}
	if data["service"] != "CineMate Recommendation API" {
		t.Errorf("service = %v", data["service"])
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		loaded     bool
		wantStatus string
	}{
		{"no snapshot is degraded not an error", false, "degraded"},
		{"snapshot loaded is healthy", true, "healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestServer(t, tt.loaded)
			rec, env := doRequest(t, handler, http.MethodGet, "/health", nil)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var hs models.HealthStatus
			if err := json.Unmarshal(env.Data, &hs); err != nil {
				t.Fatalf("decoding health: %v", err)
			}
			if hs.Status != tt.wantStatus {
				t.Errorf("health status = %q, want %q", hs.Status, tt.wantStatus)
			}
			if hs.SnapshotLoaded != tt.loaded {
				t.Errorf("snapshot_loaded = %v, want %v", hs.SnapshotLoaded, tt.loaded)
			}
		})
	}
}

func TestHealthProbes(t *testing.T) {
	unloaded := newTestServer(t, false)
	loaded := newTestServer(t, true)

	if rec, _ := doRequest(t, unloaded, http.MethodGet, "/health/live", nil); rec.Code != http.StatusOK {
		t.Errorf("/health/live = %d, want 200", rec.Code)
	}
	if rec, _ := doRequest(t, unloaded, http.MethodGet, "/health/ready", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/health/ready without snapshot = %d, want 503", rec.Code)
	}
	if rec, _ := doRequest(t, loaded, http.MethodGet, "/health/ready", nil); rec.Code != http.StatusOK {
		t.Errorf("/health/ready with snapshot = %d, want 200", rec.Code)
	}
}

func TestModelInfo(t *testing.T) {
	t.Run("unavailable reports rather than errors", func(t *testing.T) {
		handler := newTestServer(t, false)
		rec, env := doRequest(t, handler, http.MethodGet, "/model/info", nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var data map[string]interface{}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("decoding info: %v", err)
		}
		if avail, _ := data["available"].(bool); avail {
			t.Error("available = true without a snapshot")
		}
	})

	t.Run("loaded snapshot metadata", func(t *testing.T) {
		handler := newTestServer(t, true)
		rec, env := doRequest(t, handler, http.MethodGet, "/model/info", nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var info models.ModelInfo
		if err := json.Unmarshal(env.Data, &info); err != nil {
			t.Fatalf("decoding info: %v", err)
		}
		if info.MovieCount != 3 {
			t.Errorf("movie_count = %d, want 3", info.MovieCount)
		}
		if info.UserCount != 2 {
			t.Errorf("user_count = %d, want 2", info.UserCount)
		}
		if info.RatingCount != 4 {
			t.Errorf("rating_count = %d, want 4", info.RatingCount)
		}
		if info.MatrixShape[0] != 3 {
			t.Errorf("matrix_shape[0] = %d, want 3", info.MatrixShape[0])
		}
		if len(info.SampleMovieIDs) != 3 {
			t.Errorf("sample_movie_ids length = %d, want 3", len(info.SampleMovieIDs))
		}
	})
}

func predictBody(t *testing.T, userID string, movieIDs []int64) []byte {
	t.Helper()
	body, err := json.Marshal(models.PredictRequest{UserID: userID, MovieIDs: movieIDs})
	if err != nil {
		t.Fatalf("encoding request: %v", err)
	}
	return body
}

func manyMovieIDs(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids
}

func TestPredictSVD(t *testing.T) {
	tests := []struct {
		name     string
		loaded   bool
		body     []byte
		wantCode int
		wantErr  string
	}{
		{
			name:     "valid request",
			loaded:   true,
			wantCode: http.StatusOK,
		},
		{
			name:     "malformed JSON",
			loaded:   true,
			body:     []byte(`{"user_id": `),
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_ERROR",
		},
		{
			name:     "invalid user id shape",
			loaded:   true,
			body:     nil, // filled below
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "VALIDATION_ERROR",
		},
		{
			name:     "no snapshot loaded",
			loaded:   false,
			wantCode: http.StatusServiceUnavailable,
			wantErr:  "MODEL_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestServer(t, tt.loaded)

			body := tt.body
			if body == nil {
				userID := testUserID
				if tt.wantErr == "VALIDATION_ERROR" && tt.wantCode == http.StatusUnprocessableEntity {
					userID = "not-a-uuid"
				}
				body = predictBody(t, userID, []int64{10, 20, 30})
			}

			rec, env := doRequest(t, handler, http.MethodPost, "/recommend/svd", body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr != "" {
				if env.Error == nil || env.Error.Code != tt.wantErr {
					t.Errorf("error = %+v, want code %s", env.Error, tt.wantErr)
				}
				return
			}

			var preds []models.Prediction
			if err := json.Unmarshal(env.Data, &preds); err != nil {
				t.Fatalf("decoding predictions: %v", err)
			}
			if len(preds) != 3 {
				t.Fatalf("got %d predictions, want 3", len(preds))
			}
			for i := 1; i < len(preds); i++ {
				if preds[i].Score > preds[i-1].Score {
					t.Errorf("predictions not sorted descending at index %d", i)
				}
			}
		})
	}
}

func TestPredictSVDBatchBounds(t *testing.T) {
	handler := newTestServer(t, true)

	tests := []struct {
		name     string
		movieIDs []int64
		wantCode int
	}{
		{"empty list rejected", []int64{}, http.StatusUnprocessableEntity},
		{"single id accepted", []int64{10}, http.StatusOK},
		{"500 ids accepted", manyMovieIDs(500), http.StatusOK},
		{"501 ids rejected", manyMovieIDs(501), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doRequest(t, handler, http.MethodPost, "/recommend/svd", predictBody(t, testUserID, tt.movieIDs))
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestSimilarMovies(t *testing.T) {
	tests := []struct {
		name     string
		loaded   bool
		path     string
		wantCode int
		wantErr  string
	}{
		{"known movie", true, "/recommend/content-based/10", http.StatusOK, ""},
		{"top_n respected", true, "/recommend/content-based/10?top_n=1", http.StatusOK, ""},
		{"unknown movie", true, "/recommend/content-based/999", http.StatusNotFound, "NOT_FOUND"},
		{"non-integer id", true, "/recommend/content-based/abc", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"no snapshot", false, "/recommend/content-based/10", http.StatusServiceUnavailable, "MODEL_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestServer(t, tt.loaded)
			rec, env := doRequest(t, handler, http.MethodGet, tt.path, nil)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr != "" {
				if env.Error == nil || env.Error.Code != tt.wantErr {
					t.Errorf("error = %+v, want code %s", env.Error, tt.wantErr)
				}
				return
			}

			var ids []int64
			if err := json.Unmarshal(env.Data, &ids); err != nil {
				t.Fatalf("decoding ids: %v", err)
			}
			if len(ids) == 0 || len(ids) > 2 {
				t.Errorf("got %d similar movies, want 1-2", len(ids))
			}
			for _, id := range ids {
				if fmt.Sprintf("/recommend/content-based/%d", id) == tt.path {
					t.Errorf("query movie %d present in its own results", id)
				}
			}
		})
	}
}

func TestSimilarMoviesTopNQuery(t *testing.T) {
	handler := newTestServer(t, true)

	rec, env := doRequest(t, handler, http.MethodGet, "/recommend/content-based/10?top_n=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var ids []int64
	if err := json.Unmarshal(env.Data, &ids); err != nil {
		t.Fatalf("decoding ids: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("top_n=1 returned %d ids, want 1", len(ids))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("/metrics = %d, want 200", rec.Code)
	}
}

func TestRequestIDHeaderPresent(t *testing.T) {
	handler := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}
