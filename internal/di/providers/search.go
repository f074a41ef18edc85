package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/brickcomplete/brickcomplete-server/internal/config"
	"github.com/brickcomplete/brickcomplete-server/internal/logger"
	"github.com/brickcomplete/brickcomplete-server/internal/search"
	"github.com/brickcomplete/brickcomplete-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SetIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve set index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewSetIndex(search.Options{
		DataPath: cfg.Data.SearchPath(),
		Logger:   log.WithComponent("search"),
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SetIndex: index}, nil
}

// TriggerSearchReindexIfNeeded builds the index in the background when it is
// empty but the catalog has sets. Searches use the catalog until it finishes.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	catalogService := do.MustInvoke[*service.CatalogService](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	sets, err := catalogHandle.SetCount(ctx)
	if err != nil || sets == 0 {
		return
	}

	log.Info("Search index is empty but the catalog has sets, triggering initial reindex",
		"set_count", sets,
	)

	go func() {
		if err := catalogService.Reindex(ctx); err != nil {
			log.WithError(err).Error("Initial search reindex failed")
			return
		}
		count, _ := indexHandle.DocumentCount()
		log.Info("Initial search reindex completed", "documents", count)
	}()
}
