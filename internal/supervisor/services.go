// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinemate/internal/artifact"
	"github.com/tomtom215/cinemate/internal/metrics"
	"github.com/tomtom215/cinemate/internal/recommend"
)

// HTTPServer matches *http.Server's lifecycle methods so the service can be
// tested with a mock.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService wraps an HTTP server as a supervised service, translating the
// blocking ListenAndServe pattern into suture's context-aware Serve.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService wraps an HTTP server for supervision.
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service. Returns nil only on graceful shutdown;
// http.ErrServerClosed is expected then and not treated as a failure.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// The original context is canceled; shutdown needs its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer for suture's log messages.
func (h *HTTPService) String() string { return "http-server" }

// SnapshotSource is the artifact-store surface the reloader needs.
type SnapshotSource interface {
	Manifest() (artifact.Manifest, error)
	LoadSnapshot(ctx context.Context) (*recommend.Snapshot, artifact.Manifest, error)
}

// ReloadService polls the artifact store and hot-swaps the gateway snapshot
// when a new version is published. The deploy webhook remains the
// authoritative publish signal; the watcher makes picking it up cheap and
// removes the need for a process restart.
type ReloadService struct {
	store    SnapshotSource
	gateway  *recommend.Gateway
	interval time.Duration
	logger   zerolog.Logger
}

// NewReloadService creates the snapshot watcher.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewReloadService(store SnapshotSource, gateway *recommend.Gateway, interval time.Duration, logger zerolog.Logger) *ReloadService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReloadService{
		store:    store,
		gateway:  gateway,
		interval: interval,
		logger:   logger.With().Str("component", "snapshot_reloader").Logger(),
	}
}

// Serve implements suture.Service: check immediately, then on every tick,
// until the context is canceled.
func (s *ReloadService) Serve(ctx context.Context) error {
	s.checkOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.checkOnce(ctx)
		}
	}
}

// checkOnce compares the published manifest version against the serving
// snapshot and reloads when they differ. All failures are logged and
// counted; the watcher never gives up.
func (s *ReloadService) checkOnce(ctx context.Context) {
	manifest, err := s.store.Manifest()
	if errors.Is(err, artifact.ErrNoManifest) {
		return
	}
	if err != nil {
		metrics.SnapshotReloads.WithLabelValues("failure").Inc()
		s.logger.Warn().Err(err).Msg("manifest check failed")
		return
	}

	if current, ok := s.gateway.Current(); ok && current.Version() == manifest.Version {
		metrics.SnapshotReloads.WithLabelValues("unchanged").Inc()
		return
	}

	snap, _, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		metrics.SnapshotReloads.WithLabelValues("failure").Inc()
		s.logger.Error().Err(err).Int("version", manifest.Version).Msg("snapshot load failed")
		return
	}

	s.gateway.Reload(snap)
	metrics.SnapshotReloads.WithLabelValues("success").Inc()
	metrics.SnapshotVersion.Set(float64(snap.Version()))
	metrics.SnapshotMovies.Set(float64(snap.MovieCount()))
}

// String implements fmt.Stringer for suture's log messages.
func (s *ReloadService) String() string { return "snapshot-reloader" }
