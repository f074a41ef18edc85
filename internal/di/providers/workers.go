package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/brickcomplete/brickcomplete-server/internal/config"
	"github.com/brickcomplete/brickcomplete-server/internal/importer"
	"github.com/brickcomplete/brickcomplete-server/internal/logger"
	"github.com/brickcomplete/brickcomplete-server/internal/service"
	"github.com/brickcomplete/brickcomplete-server/internal/watcher"
)

// CatalogWatcherHandle wraps the dataset watcher with shutdown capability.
// Watcher is nil when watching is disabled.
type CatalogWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CatalogWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideCatalogWatcher re-imports Rebrickable dumps when they change in the
// configured CSV directory.
func ProvideCatalogWatcher(i do.Injector) (*CatalogWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Catalog.Watch {
		return &CatalogWatcherHandle{}, nil
	}

	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	catalogService := do.MustInvoke[*service.CatalogService](i)
	inventories := do.MustInvoke[*service.InventoryService](i)

	w, err := watcher.New(log.WithComponent("watcher"), watcher.Options{
		IgnoreHidden: true,
		SettleDelay:  cfg.Catalog.SettleDelay,
		Suffixes:     []string{".csv", ".csv.gz"},
	})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(cfg.Catalog.CSVDir); err != nil {
		return nil, err
	}

	catalogSync := service.NewCatalogSync(
		importer.New(catalogHandle.Store, log.WithComponent("importer")),
		catalogService,
		inventories,
		log.WithComponent("catalog_sync"),
	)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil {
			log.WithError(err).Error("Catalog watcher stopped")
		}
	}()
	go catalogSync.Run(ctx, w.Events(), w.Errors())

	log.Info("Catalog watcher started", "dir", cfg.Catalog.CSVDir)

	return &CatalogWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}
