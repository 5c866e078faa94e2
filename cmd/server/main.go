// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

// Package main is the entry point for the CineMate serving process.
//
// The server loads the most recently published model snapshot from the
// artifact store and serves rating predictions and content-based similarity
// lookups over HTTP. It never trains models itself; the retrain binary
// publishes new snapshots, which the server picks up by polling the artifact
// manifest.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layered loading (env > config.yaml > defaults)
//  2. Logging: zerolog, JSON or console format
//  3. Artifact store: open the snapshot directory and load the published
//     version if one exists (a missing snapshot is a degraded start, not a
//     fatal error)
//  4. Supervisor tree: HTTP server plus the snapshot reload watcher
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests (10s timeout) and the watcher stops.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/cinemate/internal/api"
	"github.com/tomtom215/cinemate/internal/artifact"
	"github.com/tomtom215/cinemate/internal/config"
	"github.com/tomtom215/cinemate/internal/logging"
	"github.com/tomtom215/cinemate/internal/metrics"
	"github.com/tomtom215/cinemate/internal/recommend"
	"github.com/tomtom215/cinemate/internal/supervisor"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting CineMate server")

	store, err := artifact.NewStore(cfg.Artifacts.Dir, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open artifact store")
	}

	gateway := recommend.NewGateway(logging.Logger())

	// Best-effort initial load. With no published snapshot the API starts
	// degraded and the watcher installs the first publish.
	snap, manifest, err := store.LoadSnapshot(context.Background())
	switch {
	case err == nil:
		gateway.Reload(snap)
		metrics.SnapshotVersion.Set(float64(snap.Version()))
		metrics.SnapshotMovies.Set(float64(snap.MovieCount()))
		logging.Info().
			Int("version", manifest.Version).
			Int("movies", manifest.MovieCount).
			Msg("Snapshot loaded")
	case errors.Is(err, artifact.ErrNoManifest):
		logging.Warn().Msg("No published snapshot, serving degraded until first publish")
	default:
		logging.Fatal().Err(err).Msg("Failed to load snapshot")
	}

	handler := api.NewHandler(gateway, &cfg.API, version)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, &cfg.API),
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	tree := supervisor.NewTree(slog.New(logging.NewSlogHandler()), treeCfg)
	tree.AddAPIService(supervisor.NewHTTPService(srv, treeCfg.ShutdownTimeout))
	if cfg.Server.ReloadInterval > 0 {
		tree.AddArtifactService(supervisor.NewReloadService(store, gateway, cfg.Server.ReloadInterval, logging.Logger()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", srv.Addr).Msg("Listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited")
		os.Exit(1)
	}
	logging.Info().Msg("Shutdown complete")
}
