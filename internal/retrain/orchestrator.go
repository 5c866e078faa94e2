// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

// Package retrain implements the offline model refresh pipeline.
//
// A run walks a fixed state machine: Idle, CheckingCondition, Training,
// Publishing, Deploying, back to Idle. Any non-terminal state can fall into
// Failed. The condition check compares the live rating count and the age of
// the published artifacts against configured thresholds; when neither
// threshold is met the run aborts early with ErrRetrainAborted, which is a
// normal outcome and not a failure.
package retrain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinemate/internal/artifact"
	"github.com/tomtom215/cinemate/internal/metrics"
	"github.com/tomtom215/cinemate/internal/recommend"
)

// ErrRetrainAborted signals that the staleness condition was not met. The
// pipeline exits cleanly without training.
var ErrRetrainAborted = errors.New("retrain aborted: condition not met")

// State identifies a phase of the retrain pipeline.
type State string

// Pipeline states. Failed is terminal for a run; every successful run ends
// back at Idle.
const (
	StateIdle              State = "idle"
	StateCheckingCondition State = "checking_condition"
	StateTraining          State = "training"
	StatePublishing        State = "publishing"
	StateDeploying         State = "deploying"
	StateFailed            State = "failed"
)

// DataSource supplies training data. Implemented by the database package.
type DataSource interface {
	CountRatings(ctx context.Context) (int, error)
	ExtractRatings(ctx context.Context) ([]recommend.Rating, error)
	ExtractMovies(ctx context.Context) ([]recommend.Movie, error)
}

// Publisher persists trained bundles. Implemented by the artifact store.
type Publisher interface {
	Manifest() (artifact.Manifest, error)
	Publish(ctx context.Context, bundle artifact.Bundle) (artifact.Manifest, error)
}

// Trainer builds a model bundle from extracted data.
type Trainer interface {
	Train(ctx context.Context, ratings []recommend.Rating, movies []recommend.Movie) (artifact.Bundle, error)
}

// Notifier signals a completed publish to the serving side. Errors are
// logged, never propagated: a missed signal delays a reload, it does not
// invalidate the published artifacts.
type Notifier interface {
	Notify(ctx context.Context, manifest artifact.Manifest) error
}

// Policy holds the staleness thresholds that gate a retrain.
type Policy struct {
	// RatingThreshold is the minimum number of new ratings since the last
	// publish that forces a retrain.
	RatingThreshold int

	// DayLimit is the maximum artifact age in days before a retrain is
	// forced regardless of rating volume.
	DayLimit int
}

// Orchestrator drives one retrain run end to end.
type Orchestrator struct {
	policy   Policy
	source   DataSource
	trainer  Trainer
	store    Publisher
	notifier Notifier
	logger   zerolog.Logger

	// now is replaceable for tests.
	now func() time.Time

	state State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithNotifier sets the deploy signal target. Without one, the deploy phase
// is a no-op.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// NewOrchestrator wires a retrain pipeline.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewOrchestrator(policy Policy, source DataSource, trainer Trainer, store Publisher, logger zerolog.Logger, opts ...Option) (*Orchestrator, error) {
	if source == nil || trainer == nil || store == nil {
		return nil, fmt.Errorf("orchestrator dependencies are incomplete")
	}
	if policy.RatingThreshold < 1 {
		return nil, fmt.Errorf("rating threshold must be positive, got %d", policy.RatingThreshold)
	}
	if policy.DayLimit < 1 {
		return nil, fmt.Errorf("day limit must be positive, got %d", policy.DayLimit)
	}

	o := &Orchestrator{
		policy:  policy,
		source:  source,
		trainer: trainer,
		store:   store,
		logger:  logger.With().Str("component", "retrain").Logger(),
		now:     time.Now,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State { return o.state }

// transition moves the pipeline to the next state and logs it.
func (o *Orchestrator) transition(next State) {
	o.logger.Debug().
		Str("from", string(o.state)).
		Str("to", string(next)).
		Msg("state transition")
	o.state = next
}

// fail marks the run failed and wraps the causing error.
func (o *Orchestrator) fail(err error) error {
	o.transition(StateFailed)
	metrics.RetrainRuns.WithLabelValues("failed").Inc()
	return err
}

// Run executes one complete retrain cycle. It returns the published manifest
// on success, ErrRetrainAborted when the staleness condition is not met, and
// a wrapped error on any failure. After a successful run or a clean abort
// the orchestrator is back at Idle and reusable.
func (o *Orchestrator) Run(ctx context.Context) (artifact.Manifest, error) {
	start := o.now()
	defer func() {
		metrics.RetrainDuration.Observe(o.now().Sub(start).Seconds())
	}()

	o.transition(StateCheckingCondition)
	stale, reason, err := o.checkCondition(ctx)
	if err != nil {
		return artifact.Manifest{}, o.fail(fmt.Errorf("check condition: %w", err))
	}
	if !stale {
		o.logger.Info().Str("reason", reason).Msg("retrain not needed")
		metrics.RetrainRuns.WithLabelValues("skipped").Inc()
		o.transition(StateIdle)
		return artifact.Manifest{}, ErrRetrainAborted
	}
	o.logger.Info().Str("reason", reason).Msg("retrain triggered")

	o.transition(StateTraining)
	ratings, err := o.source.ExtractRatings(ctx)
	if err != nil {
		return artifact.Manifest{}, o.fail(fmt.Errorf("extract ratings: %w", err))
	}
	movies, err := o.source.ExtractMovies(ctx)
	if err != nil {
		return artifact.Manifest{}, o.fail(fmt.Errorf("extract movies: %w", err))
	}
	bundle, err := o.trainer.Train(ctx, ratings, movies)
	if err != nil {
		return artifact.Manifest{}, o.fail(fmt.Errorf("train models: %w", err))
	}

	o.transition(StatePublishing)
	manifest, err := o.store.Publish(ctx, bundle)
	if err != nil {
		return artifact.Manifest{}, o.fail(fmt.Errorf("publish bundle: %w", err))
	}

	o.transition(StateDeploying)
	if o.notifier != nil {
		if err := o.notifier.Notify(ctx, manifest); err != nil {
			// Deploy signal is best-effort. The publish already succeeded.
			o.logger.Warn().Err(err).Int("version", manifest.Version).Msg("deploy signal failed")
		}
	}

	o.logger.Info().
		Int("version", manifest.Version).
		Int("ratings", manifest.LastCount).
		Int("movies", manifest.MovieCount).
		Dur("elapsed", o.now().Sub(start)).
		Msg("retrain complete")
	metrics.RetrainRuns.WithLabelValues("published").Inc()
	o.transition(StateIdle)
	return manifest, nil
}

// checkCondition decides whether the published artifacts are stale. Either
// threshold alone is sufficient. A store with no published manifest is
// always stale.
func (o *Orchestrator) checkCondition(ctx context.Context) (bool, string, error) {
	currentCount, err := o.source.CountRatings(ctx)
	if err != nil {
		return false, "", err
	}

	manifest, err := o.store.Manifest()
	if errors.Is(err, artifact.ErrNoManifest) {
		return true, "no published model", nil
	}
	if err != nil {
		return false, "", err
	}

	delta := currentCount - manifest.LastCount
	ageDays := int(o.now().Sub(manifest.LastDate).Hours() / 24)

	switch {
	case delta >= o.policy.RatingThreshold:
		return true, fmt.Sprintf("%d new ratings (threshold %d)", delta, o.policy.RatingThreshold), nil
	case ageDays >= o.policy.DayLimit:
		return true, fmt.Sprintf("model is %d days old (limit %d)", ageDays, o.policy.DayLimit), nil
	default:
		return false, fmt.Sprintf("%d new ratings, model %d days old", delta, ageDays), nil
	}
}
