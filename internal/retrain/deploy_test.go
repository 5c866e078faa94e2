// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

package retrain

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinemate/internal/artifact"
)

func TestWebhookNotifierDeliversPayload(t *testing.T) {
	var (
		gotMethod      string
		gotContentType string
		gotBody        []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 5*time.Second, zerolog.Nop())
	manifest := artifact.Manifest{
		Version:     4,
		PublishedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		LastCount:   1650,
		MovieCount:  300,
	}

	if err := n.Notify(context.Background(), manifest); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %s, want application/json", gotContentType)
	}

	var payload deployPayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if payload.Event != "model_published" {
		t.Errorf("event = %q, want model_published", payload.Event)
	}
	if payload.Version != 4 {
		t.Errorf("version = %d, want 4", payload.Version)
	}
	if payload.RatingCount != 1650 {
		t.Errorf("rating count = %d, want 1650", payload.RatingCount)
	}
}

func TestWebhookNotifierErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"200 accepted", http.StatusOK, false},
		{"204 accepted", http.StatusNoContent, false},
		{"500 rejected", http.StatusInternalServerError, true},
		{"404 rejected", http.StatusNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			n := NewWebhookNotifier(srv.URL, 5*time.Second, zerolog.Nop())
			err := n.Notify(context.Background(), artifact.Manifest{Version: 1})
			if (err != nil) != tt.wantErr {
				t.Errorf("Notify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWebhookNotifierUnreachableHost(t *testing.T) {
	// Reserved TEST-NET address, nothing listens there.
	n := NewWebhookNotifier("http://192.0.2.1:9/hook", 100*time.Millisecond, zerolog.Nop())

	if err := n.Notify(context.Background(), artifact.Manifest{Version: 1}); err == nil {
		t.Error("Notify() to unreachable host succeeded")
	}
}
