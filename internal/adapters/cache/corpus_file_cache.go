package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moviegrounds/backend/internal/domain/entities"
	"github.com/moviegrounds/backend/internal/domain/providers"
)

// CorpusFileCache persists the enriched corpus as a JSON array on disk.
type CorpusFileCache struct {
	path string
}

// NewCorpusFileCache creates a file-backed corpus cache at the given path.
func NewCorpusFileCache(path string) *CorpusFileCache {
	return &CorpusFileCache{path: path}
}

var _ providers.CorpusCache = (*CorpusFileCache)(nil)

// Load returns the cached corpus. An absent or unparseable artifact is
// reported as providers.ErrCorpusCacheMiss so callers rebuild from source.
func (c *CorpusFileCache) Load(ctx context.Context) ([]entities.EnrichedMovie, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, providers.ErrCorpusCacheMiss
		}
		return nil, fmt.Errorf("reading corpus cache: %w", err)
	}

	var corpus []entities.EnrichedMovie
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("%w: %v", providers.ErrCorpusCacheMiss, err)
	}
	return corpus, nil
}

// Store writes the full corpus. The temp-file rename keeps a crashed write
// from leaving a half-written artifact behind.
func (c *CorpusFileCache) Store(ctx context.Context, corpus []entities.EnrichedMovie) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(corpus, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing corpus cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replacing corpus cache: %w", err)
	}
	return nil
}
