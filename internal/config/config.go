// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

// Package config provides layered configuration for CineMate using Koanf v2.
//
// Configuration is loaded from three sources (highest priority wins):
//  1. Environment variables
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the top-level configuration for both the serving process and the
// retrain pipeline.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	Retrain   RetrainConfig   `koanf:"retrain"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings for the serving process.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// ReloadInterval is how often the serving process checks the artifact
	// store for a newly published snapshot. Zero disables hot reload.
	ReloadInterval time.Duration `koanf:"reload_interval"`
}

// DatabaseConfig holds settings for the ratings/catalog database.
// Only the retrain pipeline opens this database; the serving path never does.
type DatabaseConfig struct {
	// Path is the DuckDB database file holding the ratings and movies tables.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// ArtifactsConfig holds settings for the model artifact store.
type ArtifactsConfig struct {
	// Dir is the directory holding published model artifacts and the manifest.
	Dir string `koanf:"dir"`
}

// RetrainConfig holds the staleness policy and pipeline settings.
type RetrainConfig struct {
	// RatingThreshold is the number of new ratings that alone justifies a
	// retrain. Either this or DayLimit being exceeded triggers a run.
	RatingThreshold int `koanf:"rating_threshold"`

	// DayLimit is the number of days since the last retrain that alone
	// justifies a retrain.
	DayLimit int `koanf:"day_limit"`

	// DeployHookURL is the webhook invoked once after a successful publish.
	// Empty disables the deploy signal. Failures are logged, never fatal.
	DeployHookURL string `koanf:"deploy_hook_url"`

	// DeployTimeout bounds the deploy webhook call so it can never stall
	// the pipeline.
	DeployTimeout time.Duration `koanf:"deploy_timeout"`

	// Factors is the latent factor dimension for the SVD model.
	Factors int `koanf:"factors"`

	// Epochs is the number of SGD passes over the ratings.
	Epochs int `koanf:"epochs"`

	// Seed seeds the training RNG for reproducible models.
	Seed int64 `koanf:"seed"`

	// MaxFeatures caps the TF-IDF vocabulary size.
	MaxFeatures int `koanf:"max_features"`
}

// APIConfig holds request validation bounds for the serving API.
type APIConfig struct {
	// MaxBatchMovies bounds the movie_ids list accepted by the batch
	// prediction endpoint.
	MaxBatchMovies int `koanf:"max_batch_movies"`

	// DefaultTopN is the similar-movies result count when top_n is absent.
	DefaultTopN int `koanf:"default_top_n"`

	// MaxTopN clamps the similar-movies result count.
	MaxTopN int `koanf:"max_top_n"`

	// RateLimitReqs and RateLimitWindow bound per-client request rates on
	// the recommendation endpoints.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would misbehave at
// runtime. It is called by LoadWithKoanf after all layers are merged.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts.dir must not be empty")
	}
	if c.Retrain.RatingThreshold < 0 {
		return fmt.Errorf("retrain.rating_threshold must be >= 0, got %d", c.Retrain.RatingThreshold)
	}
	if c.Retrain.DayLimit < 1 {
		return fmt.Errorf("retrain.day_limit must be >= 1, got %d", c.Retrain.DayLimit)
	}
	if c.Retrain.Factors < 1 {
		return fmt.Errorf("retrain.factors must be >= 1, got %d", c.Retrain.Factors)
	}
	if c.Retrain.Epochs < 1 {
		return fmt.Errorf("retrain.epochs must be >= 1, got %d", c.Retrain.Epochs)
	}
	if c.Retrain.MaxFeatures < 1 {
		return fmt.Errorf("retrain.max_features must be >= 1, got %d", c.Retrain.MaxFeatures)
	}
	if c.Retrain.DeployHookURL != "" {
		u, err := url.Parse(c.Retrain.DeployHookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("retrain.deploy_hook_url %q is not a valid http(s) URL", c.Retrain.DeployHookURL)
		}
	}
	if c.API.MaxBatchMovies < 1 {
		return fmt.Errorf("api.max_batch_movies must be >= 1, got %d", c.API.MaxBatchMovies)
	}
	if c.API.DefaultTopN < 1 || c.API.DefaultTopN > c.API.MaxTopN {
		return fmt.Errorf("api.default_top_n %d out of range [1, %d]", c.API.DefaultTopN, c.API.MaxTopN)
	}
	return nil
}
