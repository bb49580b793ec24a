// Package ingest loads a corpus batch: validate, format, embed into the
// vector store, build the category index, and hand it to the query side.
// Loading is a one-shot phase; queries issued meanwhile fail fast on the
// consumer's readiness guard.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pokelab/pokedex/internal/catalog"
	"github.com/pokelab/pokedex/internal/docs"
	"github.com/pokelab/pokedex/internal/domain"
)

// Service runs corpus loads.
type Service struct {
	store    DocumentStore
	target   CatalogInstaller
	indexDir string
	logger   *zap.Logger
}

// New creates an ingest service. indexDir, when non-empty, receives the
// per-dimension JSON index files after every load.
func New(store DocumentStore, target CatalogInstaller, indexDir string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, target: target, indexDir: indexDir, logger: logger}
}

// Load ingests one record batch. The catalog is only installed after the
// vector store upsert succeeds, so a half-loaded corpus never looks ready.
func (s *Service) Load(ctx context.Context, records []domain.EntityRecord) error {
	if err := validateBatch(records); err != nil {
		return err
	}

	documents, err := docs.FormatAll(records)
	if err != nil {
		return fmt.Errorf("format corpus: %w", err)
	}

	if err := s.store.Upsert(ctx, documents); err != nil {
		return fmt.Errorf("upsert corpus: %w", err)
	}

	cat := catalog.Build(records)
	if s.indexDir != "" {
		if err := cat.Save(s.indexDir); err != nil {
			return fmt.Errorf("persist category index: %w", err)
		}
	}

	s.target.Install(cat)
	s.logger.Info("corpus loaded",
		zap.Int("records", len(records)),
		zap.Int("documents", len(documents)),
		zap.Strings("dimensions", cat.Dimensions()),
	)
	return nil
}

// validateBatch enforces per-batch name uniqueness.
func validateBatch(records []domain.EntityRecord) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.Name == "" {
			return fmt.Errorf("%w: record %d has no name", domain.ErrInvalidRecord, r.ID)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateName, r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}
