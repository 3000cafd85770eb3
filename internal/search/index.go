package search

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/listenupapp/plantcare/internal/domain"
)

// PlantIndex wraps an in-memory Bleve index of plant names.
//
// Thread safety: all public methods are safe for concurrent use.
// Rebuild takes the write lock while it swaps the underlying index.
type PlantIndex struct {
	index  bleve.Index
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the plant index.
type Options struct {
	Logger *slog.Logger // Logger for operations (uses discard if nil)
}

// NewPlantIndex creates an empty in-memory index. The index is derived
// state: it is rebuilt from the store whenever plants are loaded.
func NewPlantIndex(opts Options) (*PlantIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &PlantIndex{
		index:  index,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *PlantIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexPlant adds or replaces a single plant.
func (s *PlantIndex) IndexPlant(p domain.Plant) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := NewPlantDocument(p)
	return s.index.Index(doc.ID, doc.ToMap())
}

// DeletePlant removes a plant from the index.
func (s *PlantIndex) DeletePlant(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount returns the number of indexed plants.
func (s *PlantIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild replaces the whole index with plants. Documents are written in
// batches of 500.
func (s *PlantIndex) Rebuild(plants []domain.Plant) error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	const batchSize = 500
	for i := 0; i < len(plants); i += batchSize {
		end := min(i+batchSize, len(plants))

		batch := fresh.NewBatch()
		for _, p := range plants[i:end] {
			doc := NewPlantDocument(p)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				_ = fresh.Close()
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := fresh.Batch(batch); err != nil {
			_ = fresh.Close()
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	s.mu.Lock()
	old := s.index
	s.index = fresh
	s.mu.Unlock()

	if err := old.Close(); err != nil {
		s.logger.Warn("failed to close previous search index", "error", err)
	}
	s.logger.Debug("search index rebuilt", "plants", len(plants))
	return nil
}
