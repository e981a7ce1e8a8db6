package catalog

import (
	"context"
	"fmt"

	"evo-store/internal/model"

	"github.com/rs/zerolog"
)

// Upserter stores catalog entries.
type Upserter interface {
	Upsert(ctx context.Context, product *model.Product) error
}

// ImportResult summarises an import run.
type ImportResult struct {
	Loaded   int
	Upserted int
	Failed   int
}

// Importer loads a catalog file and upserts every record.
type Importer struct {
	loader Loader
	store  Upserter
	logger zerolog.Logger
}

// NewImporter creates an importer.
func NewImporter(loader Loader, store Upserter, logger zerolog.Logger) *Importer {
	return &Importer{
		loader: loader,
		store:  store,
		logger: logger.With().Str("component", "catalog-importer").Logger(),
	}
}

// Import upserts the records of the named file. Individual upsert failures
// are counted and logged; the run continues. Existing stock levels are
// replaced by the file's values.
func (i *Importer) Import(ctx context.Context, name string) (ImportResult, error) {
	products, err := i.loader.Load(ctx, name)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to load catalog: %w", err)
	}

	result := ImportResult{Loaded: len(products)}
	for idx := range products {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := i.store.Upsert(ctx, &products[idx]); err != nil {
			i.logger.Error().Err(err).Str("product_id", products[idx].ID).Msg("failed to import product")
			result.Failed++
			continue
		}
		result.Upserted++
	}

	i.logger.Info().
		Str("source", name).
		Int("loaded", result.Loaded).
		Int("upserted", result.Upserted).
		Int("failed", result.Failed).
		Msg("catalog import finished")

	return result, nil
}
