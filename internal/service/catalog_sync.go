package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brickcomplete/brickcomplete-server/internal/importer"
	"github.com/brickcomplete/brickcomplete-server/internal/watcher"
)

// TableImporter reloads a single catalog table from a dump file.
type TableImporter interface {
	ImportFile(ctx context.Context, table, path string) (*importer.TableReport, error)
}

// CatalogSync keeps the catalog in step with a watched dataset directory.
// Each settled dump file is re-imported, then the search index is rebuilt and
// cached resolutions are dropped.
type CatalogSync struct {
	importer    TableImporter
	catalog     *CatalogService
	inventories *InventoryService
	logger      *slog.Logger
}

// NewCatalogSync creates a new catalog sync.
func NewCatalogSync(imp TableImporter, catalog *CatalogService, inventories *InventoryService, logger *slog.Logger) *CatalogSync {
	return &CatalogSync{
		importer:    imp,
		catalog:     catalog,
		inventories: inventories,
		logger:      logger,
	}
}

// Run consumes watcher events until ctx is done or the event channel closes.
func (c *CatalogSync) Run(ctx context.Context, events <-chan watcher.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.logger.Warn("dataset watcher error", "error", err)
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := c.HandleEvent(ctx, event); err != nil {
				c.logger.Error("catalog sync failed", "path", event.Path, "error", err)
			}
		}
	}
}

// HandleEvent applies one settled file event. Removals are ignored: the catalog
// keeps the last imported data until a replacement dump arrives.
func (c *CatalogSync) HandleEvent(ctx context.Context, event watcher.Event) error {
	table, ok := importer.TableForFile(event.Path)
	if !ok {
		return nil
	}
	if event.Type == watcher.EventRemoved {
		c.logger.Info("catalog dump removed, keeping imported rows", "table", table, "path", event.Path)
		return nil
	}

	report, err := c.importer.ImportFile(ctx, table, event.Path)
	if err != nil {
		return fmt.Errorf("import %s: %w", table, err)
	}
	c.logger.Info("catalog table reloaded",
		"table", table,
		"rows", report.Rows,
		"event", event.Type.String(),
	)

	c.inventories.Purge()

	if err := c.catalog.Reindex(ctx); err != nil {
		return fmt.Errorf("reindex after %s: %w", table, err)
	}
	return nil
}
