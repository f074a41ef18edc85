package api

import (
	"github.com/brickcomplete/brickcomplete-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Inventory    *service.InventoryService
	Collection   *service.CollectionService
	Catalog      *service.CatalogService
	Instructions *service.InstructionService
}
