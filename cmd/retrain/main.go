// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

// Package main is the entry point for the CineMate retrain pipeline.
//
// One invocation runs one complete cycle: check whether the published model
// is stale, extract training data from DuckDB, train the factor model and
// similarity index, publish the bundle to the artifact store, and fire the
// deploy webhook. Intended to run from cron or a scheduler.
//
// # Exit Codes
//
//	0  models published, or staleness condition not met (clean no-op)
//	1  any failure: extraction, training, or publish
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/cinemate/internal/artifact"
	"github.com/tomtom215/cinemate/internal/config"
	"github.com/tomtom215/cinemate/internal/database"
	"github.com/tomtom215/cinemate/internal/logging"
	"github.com/tomtom215/cinemate/internal/recommend"
	"github.com/tomtom215/cinemate/internal/retrain"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting CineMate retrain")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open database")
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	store, err := artifact.NewStore(cfg.Artifacts.Dir, logging.Logger())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open artifact store")
		return 1
	}

	factorCfg := recommend.DefaultFactorConfig()
	factorCfg.Factors = cfg.Retrain.Factors
	factorCfg.Epochs = cfg.Retrain.Epochs
	factorCfg.Seed = cfg.Retrain.Seed
	trainer := retrain.NewModelTrainer(factorCfg, cfg.Retrain.MaxFeatures, logging.Logger())

	opts := []retrain.Option{}
	if cfg.Retrain.DeployHookURL != "" {
		opts = append(opts, retrain.WithNotifier(
			retrain.NewWebhookNotifier(cfg.Retrain.DeployHookURL, cfg.Retrain.DeployTimeout, logging.Logger())))
	}

	orchestrator, err := retrain.NewOrchestrator(
		retrain.Policy{
			RatingThreshold: cfg.Retrain.RatingThreshold,
			DayLimit:        cfg.Retrain.DayLimit,
		},
		db, trainer, store, logging.Logger(), opts...)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build retrain pipeline")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manifest, err := orchestrator.Run(ctx)
	switch {
	case errors.Is(err, retrain.ErrRetrainAborted):
		logging.Info().Msg("Retrain not needed")
		return 0
	case err != nil:
		logging.Error().Err(err).Msg("Retrain failed")
		return 1
	default:
		logging.Info().Int("version", manifest.Version).Msg("Retrain published")
		return 0
	}
}
