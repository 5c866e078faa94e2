// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/cinemate/internal/metrics"
	"github.com/tomtom215/cinemate/internal/recommend"
)

// CountRatings returns the total number of stored ratings.
func (db *DB) CountRatings(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return count, nil
}

// ExtractRatings returns every rating ordered by insertion time, oldest
// first. The ordering keeps user and movie index assignment stable across
// training runs on the same data.
func (db *DB) ExtractRatings(ctx context.Context) ([]recommend.Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, movie_id, rating
		FROM ratings
		ORDER BY rated_at, user_id, movie_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []recommend.Rating
	for rows.Next() {
		var r recommend.Rating
		if err := rows.Scan(&r.UserID, &r.MovieID, &r.Score); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}

	metrics.RecordExtract("ratings", time.Since(start))
	return ratings, nil
}

// ExtractMovies returns the full movie catalog ordered by id. Null overview
// or genres columns come back as empty strings.
func (db *DB) ExtractMovies(ctx context.Context) ([]recommend.Movie, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT movie_id, title, overview, genres
		FROM movies
		ORDER BY movie_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	defer rows.Close()

	var movies []recommend.Movie
	for rows.Next() {
		var (
			m        recommend.Movie
			overview sql.NullString
			genres   sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Title, &overview, &genres); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		m.Overview = overview.String
		m.Genres = genres.String
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}

	metrics.RecordExtract("movies", time.Since(start))
	return movies, nil
}

// InsertRating stores one rating. Used by seeding and tests.
func (db *DB) InsertRating(ctx context.Context, r recommend.Rating, ratedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO ratings (user_id, movie_id, rating, rated_at) VALUES (?, ?, ?, ?)`,
		r.UserID, r.MovieID, r.Score, ratedAt)
	if err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

// UpsertMovie stores or replaces one catalog entry.
func (db *DB) UpsertMovie(ctx context.Context, m recommend.Movie) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO movies (movie_id, title, overview, genres)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (movie_id) DO UPDATE SET
			title = excluded.title,
			overview = excluded.overview,
			genres = excluded.genres
	`, m.ID, m.Title, m.Overview, m.Genres)
	if err != nil {
		return fmt.Errorf("upsert movie: %w", err)
	}
	return nil
}
