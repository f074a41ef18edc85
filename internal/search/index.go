package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
)

// SetIndex wraps a Bleve index of catalog sets.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index corruption during rebuild operations.
type SetIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex // Protects index operations during rebuild
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// This triggers an automatic rebuild on startup when the version doesn't match.
const mappingVersion = "1"

// indexBatchSize bounds memory use while indexing the full catalog.
const indexBatchSize = 500

// NewSetIndex creates or opens a set index.
// If an existing index is found, it opens it. Otherwise, creates a new one.
// If the existing index is corrupted or has an outdated mapping, it's removed and recreated.
func NewSetIndex(opts Options) (*SetIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	indexPath := filepath.Join(opts.DataPath, "sets.bleve")
	versionPath := filepath.Join(opts.DataPath, "sets.version")

	var index bleve.Index
	var err error
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil {
			logger.Info("search index has no version file, will rebuild with current mapping",
				"new_version", mappingVersion,
			)
			needsRebuild = true
		} else if string(existingVersion) != mappingVersion {
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	if index == nil {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); writeErr != nil {
			logger.Warn("failed to write search version file", "error", writeErr)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &SetIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *SetIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexSet indexes or replaces a single set.
func (s *SetIndex) IndexSet(set *domain.SetMeta) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(set.SetNumber, SetToDocument(set).ToMap())
}

// IndexSets indexes multiple sets in batches.
func (s *SetIndex) IndexSets(ctx context.Context, sets []domain.SetMeta) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexSets(ctx, s.index, sets)
}

func (s *SetIndex) indexSets(ctx context.Context, index bleve.Index, sets []domain.SetMeta) error {
	for i := 0; i < len(sets); i += indexBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(i+indexBatchSize, len(sets))
		batch := index.NewBatch()
		for j := i; j < end; j++ {
			if err := batch.Index(sets[j].SetNumber, SetToDocument(&sets[j]).ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", sets[j].SetNumber, err)
			}
		}

		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteSet removes a set from the index.
func (s *SetIndex) DeleteSet(setNumber string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(setNumber)
}

// DocumentCount returns the total number of indexed sets.
func (s *SetIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Reindex drops the index and fills a fresh one with sets.
//
// The exclusive lock is held for the whole rebuild, so searches wait rather
// than observe a half-filled index.
func (s *SetIndex) Reindex(ctx context.Context, sets []domain.SetMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index

	if err := s.indexSets(ctx, index, sets); err != nil {
		return err
	}

	s.logger.Info("rebuilt search index", "path", s.path, "sets", len(sets))
	return nil
}
