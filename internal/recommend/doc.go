// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

// Package recommend implements the in-memory recommendation index served by
// CineMate.
//
// # Architecture
//
// A Snapshot bundles everything one generation of requests is answered from:
//
//   - FactorModel: biased matrix factorization over explicit ratings,
//     predicting per-(user, movie) affinity scores
//   - SimilarityIndex: TF-IDF content features with an id-to-row mapping,
//     answering "movies like this one" queries
//
// Snapshots are immutable after construction. The Gateway holds the current
// Snapshot behind an atomic pointer; Reload swaps the whole bundle in one
// store, so concurrent readers always observe a factor model and similarity
// index that were trained together — never a mix of generations.
//
// # Design Principles
//
//   - Deterministic: training is seeded, same inputs produce identical models
//   - Read paths never block: queries touch only immutable snapshot state
//   - Fixed id contract: user ids are strings (UUIDs), movie ids are int64,
//     validated when the snapshot is built
//
// # Thread Safety
//
// All query methods are safe for unbounded concurrent use. Reload is safe to
// call concurrently with queries; in-flight requests finish against the
// snapshot they started with.
package recommend
