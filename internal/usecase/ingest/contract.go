package ingest

import (
	"context"

	"github.com/pokelab/pokedex/internal/catalog"
	"github.com/pokelab/pokedex/internal/domain"
)

// DocumentStore receives formatted documents for embedding and storage.
type DocumentStore interface {
	Upsert(ctx context.Context, docs []domain.Document) error
}

// CatalogInstaller receives the built category index once the store is
// populated, flipping the consumer into the ready state.
type CatalogInstaller interface {
	Install(cat *catalog.Catalog)
}
