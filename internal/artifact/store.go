// CineMate - Movie Recommendation Serving and Retraining
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinemate

// Package artifact provides durable persistence for trained model bundles.
//
// A bundle (factor model plus similarity index) is published as a set of
// gob-encoded, gzip-compressed artifact files under a versioned directory,
// described by a single manifest.json at the store root. The manifest is the
// commit point: artifacts are staged into a temporary directory, renamed into
// place, and only then does an atomic manifest swap make the new version
// visible. Readers that observe a manifest always find complete, checksummed
// artifacts behind it.
//
// # Storage Layout
//
//	<dir>/manifest.json         current published version (commit point)
//	<dir>/v3/factors.gob.gz     per-version artifact files
//	<dir>/v3/similarity.gob.gz
//
// # Thread Safety
//
// All store operations are safe for concurrent use. Writes are serialized by
// a mutex; reads go through the manifest and never see a partial publish.
package artifact

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinemate/internal/recommend"
)

// Artifact file names within a version directory.
const (
	factorsFile    = "factors.gob.gz"
	similarityFile = "similarity.gob.gz"
	manifestFile   = "manifest.json"
)

// ErrNoManifest is returned when the store has never published a version.
var ErrNoManifest = errors.New("no published manifest")

// ArtifactInfo describes one artifact file referenced by a manifest.
type ArtifactInfo struct {
	// File is the artifact filename relative to the version directory.
	File string `json:"file"`

	// Checksum is the SHA-256 checksum of the uncompressed gob payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed size on disk.
	SizeBytes int64 `json:"size_bytes"`
}

// Manifest describes the currently published model version. Writing it is
// the commit point of a publish; its LastCount and LastDate fields drive the
// retrain staleness decision.
type Manifest struct {
	// Version is the published version (monotonically increasing).
	Version int `json:"version"`

	// BuiltAt is when the models were trained.
	BuiltAt time.Time `json:"built_at"`

	// PublishedAt is when this manifest was committed.
	PublishedAt time.Time `json:"published_at"`

	// LastCount is the number of ratings the models were trained on.
	LastCount int `json:"last_count"`

	// LastDate is the training timestamp used for age-based staleness.
	LastDate time.Time `json:"last_date"`

	// MovieCount is the similarity index cardinality.
	MovieCount int `json:"movie_count"`

	// UserCount is the number of distinct users in the factor model.
	UserCount int `json:"user_count"`

	// Artifacts maps artifact names ("factors", "similarity") to file info.
	Artifacts map[string]ArtifactInfo `json:"artifacts"`
}

// Bundle is a complete trained model set ready for publication.
type Bundle struct {
	Factors    *recommend.FactorModel
	Similarity *recommend.SimilarityIndex

	// BuiltAt is the training timestamp recorded as the manifest's LastDate.
	BuiltAt time.Time

	// RatingCount is recorded as the manifest's LastCount.
	RatingCount int
}

// Store manages versioned model bundles under a single directory.
type Store struct {
	dir    string
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewStore opens (creating if needed) an artifact store at dir.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStore(dir string, logger zerolog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact directory is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "artifact_store").Logger(),
	}, nil
}

// Manifest returns the currently published manifest. Returns ErrNoManifest
// when nothing has been published yet.
func (s *Store) Manifest() (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, manifestFile)) //nolint:gosec // path is store-owned
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, ErrNoManifest
		}
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Version < 1 || len(m.Artifacts) == 0 {
		return Manifest{}, fmt.Errorf("manifest is malformed: version=%d artifacts=%d", m.Version, len(m.Artifacts))
	}
	return m, nil
}

// Publish stages, verifies, and atomically commits a bundle as the next
// version. On any failure the previously published version remains intact
// and the staging directory is removed.
func (s *Store) Publish(ctx context.Context, bundle Bundle) (Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bundle.Factors == nil || bundle.Similarity == nil {
		return Manifest{}, fmt.Errorf("bundle is incomplete")
	}
	if err := ctx.Err(); err != nil {
		return Manifest{}, err
	}

	version := 1
	if current, err := s.Manifest(); err == nil {
		version = current.Version + 1
	} else if !errors.Is(err, ErrNoManifest) {
		return Manifest{}, err
	}

	versionDir := filepath.Join(s.dir, fmt.Sprintf("v%d", version))
	stagingDir := versionDir + ".staging"

	if err := os.MkdirAll(stagingDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return Manifest{}, fmt.Errorf("create staging directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(stagingDir) } //nolint:errcheck // best-effort staging cleanup

	factorsInfo, err := writeArtifact(filepath.Join(stagingDir, factorsFile), bundle.Factors)
	if err != nil {
		cleanup()
		return Manifest{}, fmt.Errorf("stage factor model: %w", err)
	}
	similarityInfo, err := writeArtifact(filepath.Join(stagingDir, similarityFile), bundle.Similarity)
	if err != nil {
		cleanup()
		return Manifest{}, fmt.Errorf("stage similarity index: %w", err)
	}

	if err := os.Rename(stagingDir, versionDir); err != nil {
		cleanup()
		return Manifest{}, fmt.Errorf("commit version directory: %w", err)
	}

	manifest := Manifest{
		Version:     version,
		BuiltAt:     bundle.BuiltAt,
		PublishedAt: time.Now().UTC(),
		LastCount:   bundle.RatingCount,
		LastDate:    bundle.BuiltAt,
		MovieCount:  len(bundle.Similarity.RowToID),
		UserCount:   bundle.Factors.UserCount(),
		Artifacts: map[string]ArtifactInfo{
			"factors":    factorsInfo,
			"similarity": similarityInfo,
		},
	}

	if err := s.commitManifest(manifest); err != nil {
		_ = os.RemoveAll(versionDir) //nolint:errcheck // best-effort rollback of uncommitted version
		return Manifest{}, err
	}

	s.logger.Info().
		Int("version", version).
		Int("ratings", manifest.LastCount).
		Int("movies", manifest.MovieCount).
		Int64("factors_bytes", factorsInfo.SizeBytes).
		Int64("similarity_bytes", similarityInfo.SizeBytes).
		Msg("bundle published")

	return manifest, nil
}

// commitManifest writes the manifest to a temp file and renames it over the
// live one. The rename is the atomic commit.
func (s *Store) commitManifest(m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp := filepath.Join(s.dir, manifestFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o640); err != nil { //nolint:gosec // 0640 is acceptable for the manifest
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, manifestFile)); err != nil {
		_ = os.Remove(tmp) //nolint:errcheck // best-effort cleanup of temp manifest
		return fmt.Errorf("commit manifest: %w", err)
	}
	return nil
}

// LoadSnapshot reads the published manifest, verifies and decodes its
// artifacts, and assembles a serving snapshot. Returns ErrNoManifest when
// the store is empty.
func (s *Store) LoadSnapshot(ctx context.Context) (*recommend.Snapshot, Manifest, error) {
	manifest, err := s.Manifest()
	if err != nil {
		return nil, Manifest{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Manifest{}, err
	}

	versionDir := filepath.Join(s.dir, fmt.Sprintf("v%d", manifest.Version))

	var factors recommend.FactorModel
	if err := readArtifact(filepath.Join(versionDir, factorsFile), manifest.Artifacts["factors"], &factors); err != nil {
		return nil, Manifest{}, fmt.Errorf("load factor model v%d: %w", manifest.Version, err)
	}

	var similarity recommend.SimilarityIndex
	if err := readArtifact(filepath.Join(versionDir, similarityFile), manifest.Artifacts["similarity"], &similarity); err != nil {
		return nil, Manifest{}, fmt.Errorf("load similarity index v%d: %w", manifest.Version, err)
	}

	snap, err := recommend.NewSnapshot(&factors, &similarity, manifest.BuiltAt, manifest.LastCount, manifest.Version)
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("assemble snapshot v%d: %w", manifest.Version, err)
	}
	return snap, manifest, nil
}

// writeArtifact gob-encodes data, checksums it, and writes it gzip-compressed.
func writeArtifact(path string, data interface{}) (ArtifactInfo, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return ArtifactInfo{}, fmt.Errorf("encode: %w", err)
	}
	raw := buf.Bytes()

	hash := sha256.Sum256(raw)

	f, err := os.Create(path) //nolint:gosec // path is store-owned
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("create: %w", err)
	}

	gzw := gzip.NewWriter(f)
	if _, err := gzw.Write(raw); err != nil {
		_ = f.Close() //nolint:errcheck // write error already reported
		return ArtifactInfo{}, fmt.Errorf("compress: %w", err)
	}
	if err := gzw.Close(); err != nil {
		_ = f.Close() //nolint:errcheck // compression error already reported
		return ArtifactInfo{}, fmt.Errorf("finalize compression: %w", err)
	}
	if err := f.Close(); err != nil {
		return ArtifactInfo{}, fmt.Errorf("close: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("stat: %w", err)
	}

	return ArtifactInfo{
		File:      filepath.Base(path),
		Checksum:  hex.EncodeToString(hash[:]),
		SizeBytes: stat.Size(),
	}, nil
}

// readArtifact decompresses, checksum-verifies, and gob-decodes an artifact.
func readArtifact(path string, info ArtifactInfo, target interface{}) error {
	f, err := os.Open(path) //nolint:gosec // path is store-owned
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	hash := sha256.Sum256(raw)
	checksum := hex.EncodeToString(hash[:])
	if info.Checksum != "" && checksum != info.Checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", info.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
