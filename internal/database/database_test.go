// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/cinemate/internal/config"
	"github.com/tomtom215/cinemate/internal/recommend"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedRatings(t *testing.T, db *DB, ratings []recommend.Rating) {
	t.Helper()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range ratings {
		if err := db.InsertRating(context.Background(), r, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("InsertRating() error = %v", err)
		}
	}
}

func TestCountRatings(t *testing.T) {
	db := newTestDB(t)

	count, err := db.CountRatings(context.Background())
	if err != nil {
		t.Fatalf("CountRatings() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountRatings() on empty table = %d, want 0", count)
	}

	seedRatings(t, db, []recommend.Rating{
		{UserID: "6f1c4e2a-0b3d-4c5e-8f7a-9b0c1d2e3f4a", MovieID: 1, Score: 4.5},
		{UserID: "6f1c4e2a-0b3d-4c5e-8f7a-9b0c1d2e3f4a", MovieID: 2, Score: 3.0},
		{UserID: "7a2d5f3b-1c4e-5d6f-9a8b-0c1d2e3f4a5b", MovieID: 1, Score: 5.0},
	})

	count, err = db.CountRatings(context.Background())
	if err != nil {
		t.Fatalf("CountRatings() error = %v", err)
	}
	if count != 3 {
		t.Errorf("CountRatings() = %d, want 3", count)
	}
}

func TestExtractRatingsOrdering(t *testing.T) {
	db := newTestDB(t)

	input := []recommend.Rating{
		{UserID: "6f1c4e2a-0b3d-4c5e-8f7a-9b0c1d2e3f4a", MovieID: 2, Score: 3.0},
		{UserID: "7a2d5f3b-1c4e-5d6f-9a8b-0c1d2e3f4a5b", MovieID: 1, Score: 5.0},
		{UserID: "6f1c4e2a-0b3d-4c5e-8f7a-9b0c1d2e3f4a", MovieID: 1, Score: 4.5},
	}
	seedRatings(t, db, input)

	got, err := db.ExtractRatings(context.Background())
	if err != nil {
		t.Fatalf("ExtractRatings() error = %v", err)
	}
	if len(got) != len(input) {
		t.Fatalf("ExtractRatings() returned %d rows, want %d", len(got), len(input))
	}

	// Insertion-time order is preserved.
	for i := range input {
		if got[i] != input[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], input[i])
		}
	}
}

func TestExtractMovies(t *testing.T) {
	db := newTestDB(t)

	movies := []recommend.Movie{
		{ID: 30, Title: "The Godfather", Overview: "crime family saga", Genres: "Crime Drama"},
		{ID: 10, Title: "Star Wars", Overview: "space rebellion", Genres: "Science Fiction"},
	}
	for _, m := range movies {
		if err := db.UpsertMovie(context.Background(), m); err != nil {
			t.Fatalf("UpsertMovie() error = %v", err)
		}
	}

	got, err := db.ExtractMovies(context.Background())
	if err != nil {
		t.Fatalf("ExtractMovies() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ExtractMovies() returned %d rows, want 2", len(got))
	}
	if got[0].ID != 10 || got[1].ID != 30 {
		t.Errorf("movies not ordered by id: got (%d, %d)", got[0].ID, got[1].ID)
	}
	if got[1].Overview != "crime family saga" {
		t.Errorf("overview = %q, want %q", got[1].Overview, "crime family saga")
	}
}

func TestUpsertMovieReplaces(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.UpsertMovie(ctx, recommend.Movie{ID: 1, Title: "Draft Title"}); err != nil {
		t.Fatalf("UpsertMovie() error = %v", err)
	}
	if err := db.UpsertMovie(ctx, recommend.Movie{ID: 1, Title: "Final Title", Genres: "Drama"}); err != nil {
		t.Fatalf("UpsertMovie() replace error = %v", err)
	}

	got, err := db.ExtractMovies(ctx)
	if err != nil {
		t.Fatalf("ExtractMovies() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ExtractMovies() returned %d rows, want 1", len(got))
	}
	if got[0].Title != "Final Title" || got[0].Genres != "Drama" {
		t.Errorf("upsert did not replace: got %+v", got[0])
	}
}

func TestExtractMoviesNullColumns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Insert with explicit NULLs, bypassing UpsertMovie.
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO movies (movie_id, title, overview, genres) VALUES (7, 'Untitled', NULL, NULL)`)
	if err != nil {
		t.Fatalf("insert with nulls: %v", err)
	}

	got, err := db.ExtractMovies(ctx)
	if err != nil {
		t.Fatalf("ExtractMovies() error = %v", err)
	}
	if got[0].Overview != "" || got[0].Genres != "" {
		t.Errorf("null columns = (%q, %q), want empty strings", got[0].Overview, got[0].Genres)
	}
	if got[0].Content() != "" {
		t.Errorf("Content() for all-null movie = %q, want empty", got[0].Content())
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
