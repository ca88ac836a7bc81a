package services

import (
	"context"
	"fmt"

	"github.com/yishak-cs/basket-recommender/internal/association"
	"github.com/yishak-cs/basket-recommender/internal/ingest"
	"github.com/yishak-cs/basket-recommender/internal/logging"
	"github.com/yishak-cs/basket-recommender/internal/storage"
)

// ModelSource is a strategy for obtaining a model: loading a persisted
// snapshot or building one from a dataset
type ModelSource interface {
	Name() string
	LoadModel(ctx context.Context) (*association.Model, error)
}

// SnapshotSource loads a model previously saved by a build
type SnapshotSource struct {
	store *storage.Store
}

// NewSnapshotSource creates a source reading from store
func NewSnapshotSource(store *storage.Store) *SnapshotSource {
	return &SnapshotSource{store: store}
}

func (s *SnapshotSource) Name() string { return "snapshot" }

// LoadModel reads the snapshot. Any corruption is returned as an error.
func (s *SnapshotSource) LoadModel(ctx context.Context) (*association.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, meta, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	logging.Info().
		Str("path", s.store.Path()).
		Time("built_at", meta.BuiltAt).
		Str("checksum", meta.Checksum).
		Msg("Loaded model snapshot")
	return m, nil
}

// BuildSource builds a fresh model from a dataset loader and optionally
// saves it
type BuildSource struct {
	name    string
	loader  ingest.Loader
	builder association.Builder
	store   *storage.Store
}

// NewBuildSource creates a build strategy. store may be nil to skip saving.
func NewBuildSource(name string, loader ingest.Loader, store *storage.Store) *BuildSource {
	return &BuildSource{
		name:    name,
		loader:  loader,
		builder: association.Builder{Source: name},
		store:   store,
	}
}

func (s *BuildSource) Name() string { return "build:" + s.name }

// LoadModel loads the dataset, builds the model and saves it when a store is set
func (s *BuildSource) LoadModel(ctx context.Context) (*association.Model, error) {
	ds, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	m := s.builder.Build(ds.Sales, ds.Categories)
	if m.Empty() {
		logging.Warn().Str("source", s.name).Msg("Built model has no co-occurring products")
	}

	if s.store != nil {
		meta, err := s.store.Save(m)
		if err != nil {
			return nil, fmt.Errorf("failed to save model: %w", err)
		}
		logging.Info().
			Str("path", s.store.Path()).
			Int64("size_bytes", meta.SizeBytes).
			Msg("Saved model snapshot")
	}
	return m, nil
}
