package providers

import (
	"github.com/samber/do/v2"

	"github.com/brickcomplete/brickcomplete-server/internal/config"
	"github.com/brickcomplete/brickcomplete-server/internal/inventory"
	"github.com/brickcomplete/brickcomplete-server/internal/logger"
	"github.com/brickcomplete/brickcomplete-server/internal/metadata/rebrickable"
	"github.com/brickcomplete/brickcomplete-server/internal/service"
)

// ProvideResolver provides the catalog-first inventory resolver.
func ProvideResolver(i do.Injector) (*inventory.Resolver, error) {
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	clientHandle := do.MustInvoke[*RebrickableClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	var source inventory.Source
	if clientHandle.Client != nil {
		source = rebrickable.NewSourceAdapter(clientHandle.Client)
	}

	return inventory.NewResolver(catalogHandle.Store, catalogHandle.Store, source, log.Logger), nil
}

// ProvideInventoryService provides the inventory service.
func ProvideInventoryService(i do.Injector) (*service.InventoryService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	resolver := do.MustInvoke[*inventory.Resolver](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewInventoryService(resolver, storeHandle.Store, service.CacheOptions{
		Size: cfg.Cache.InventorySize,
		TTL:  cfg.Cache.InventoryTTL,
	}, log.Logger), nil
}

// ProvideCollectionService provides the collection service.
func ProvideCollectionService(i do.Injector) (*service.CollectionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	inventories := do.MustInvoke[*service.InventoryService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCollectionService(storeHandle.Store, inventories, catalogHandle.Store, log.Logger), nil
}

// ProvideCatalogService provides the catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(catalogHandle.Store, indexHandle.SetIndex, log.Logger), nil
}

// ProvideInstructionService provides the instruction lookup service.
func ProvideInstructionService(i do.Injector) (*service.InstructionService, error) {
	clientHandle := do.MustInvoke[*InstructionsClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewInstructionService(clientHandle.Client, log.Logger), nil
}
