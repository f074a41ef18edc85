package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/brickcomplete/brickcomplete-server/internal/config"
	"github.com/brickcomplete/brickcomplete-server/internal/logger"
	"github.com/brickcomplete/brickcomplete-server/internal/store"
	"github.com/brickcomplete/brickcomplete-server/internal/store/sqlite"
)

// StoreHandle wraps the user inventory store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the Badger store of user inventories.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.Data.UserStorePath()
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("User store initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// CatalogHandle wraps the SQLite reference catalog with shutdown capability.
type CatalogHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *CatalogHandle) Shutdown() error {
	return h.Close()
}

// ProvideCatalog provides the reference catalog database.
func ProvideCatalog(i do.Injector) (*CatalogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.Catalog.DBPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Catalog database opened", "path", cfg.Catalog.DBPath)

	return &CatalogHandle{Store: db}, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
