// Package di provides dependency injection configuration for the brickcomplete server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/brickcomplete/brickcomplete-server/internal/auth"
	"github.com/brickcomplete/brickcomplete-server/internal/config"
	"github.com/brickcomplete/brickcomplete-server/internal/di/providers"
	"github.com/brickcomplete/brickcomplete-server/internal/inventory"
	"github.com/brickcomplete/brickcomplete-server/internal/logger"
	"github.com/brickcomplete/brickcomplete-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideCatalog)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Upstream clients
	do.Provide(injector, providers.ProvideRebrickableClient)
	do.Provide(injector, providers.ProvideInstructionsClient)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideResolver)
	do.Provide(injector, providers.ProvideInventoryService)
	do.Provide(injector, providers.ProvideCollectionService)
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideInstructionService)

	// Workers
	do.Provide(injector, providers.ProvideCatalogWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.CatalogHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.RebrickableClientHandle](injector)
	_ = do.MustInvoke[*providers.InstructionsClientHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*inventory.Resolver](injector)
	_ = do.MustInvoke[*service.InventoryService](injector)
	_ = do.MustInvoke[*service.CollectionService](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.InstructionService](injector)

	// Workers
	_ = do.MustInvoke[*providers.CatalogWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
