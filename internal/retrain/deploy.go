// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package retrain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinemate/internal/artifact"
)

// WebhookNotifier signals a completed publish by POSTing the manifest
// summary to a deploy hook URL.
type WebhookNotifier struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  zerolog.Logger
}

// NewWebhookNotifier creates a notifier for the given hook URL.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewWebhookNotifier(url string, timeout time.Duration, logger zerolog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebhookNotifier{
		url:     url,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "deploy_hook").Logger(),
	}
}

// deployPayload is the webhook body.
type deployPayload struct {
	Event       string    `json:"event"`
	Version     int       `json:"version"`
	PublishedAt time.Time `json:"published_at"`
	RatingCount int       `json:"rating_count"`
	MovieCount  int       `json:"movie_count"`
}

// Notify POSTs the publish event. Any non-2xx response is an error; the
// caller treats all errors as best-effort.
func (n *WebhookNotifier) Notify(ctx context.Context, manifest artifact.Manifest) error {
	payload := deployPayload{
		Event:       "model_published",
		Version:     manifest.Version,
		PublishedAt: manifest.PublishedAt,
		RatingCount: manifest.LastCount,
		MovieCount:  manifest.MovieCount,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode deploy payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build deploy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send deploy signal: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		_ = resp.Body.Close()                 //nolint:errcheck // error on close after read is not actionable
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("deploy hook returned %d", resp.StatusCode)
	}

	n.logger.Info().Int("version", manifest.Version).Msg("deploy signal delivered")
	return nil
}
