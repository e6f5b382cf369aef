package providers

import (
	"context"
	"errors"

	"github.com/moviegrounds/backend/internal/domain/entities"
)

// ErrCorpusCacheMiss signals that no usable cached corpus exists.
// A malformed artifact is also reported as a miss so callers rebuild.
var ErrCorpusCacheMiss = errors.New("corpus cache miss")

// CorpusCache persists the enriched corpus between process runs.
type CorpusCache interface {
	// Load returns the cached corpus, or ErrCorpusCacheMiss when the
	// artifact is absent or unparseable.
	Load(ctx context.Context) ([]entities.EnrichedMovie, error)

	// Store replaces the cached corpus with the given one. It is only
	// called after a complete successful rebuild.
	Store(ctx context.Context, corpus []entities.EnrichedMovie) error
}
