package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	"github.com/brickcomplete/brickcomplete-server/internal/service"
)

func (s *Server) registerCollectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCollection",
		Method:      http.MethodGet,
		Path:        "/api/v1/collection",
		Summary:     "Get my collection",
		Description: "Returns every set the user has an inventory of, grouped by set",
		Tags:        []string{"Collection"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "addToCollection",
		Method:      http.MethodPost,
		Path:        "/api/v1/collection",
		Summary:     "Add set to collection",
		Description: "Creates the Default inventory of a set if the user has none. Repeated calls return the same inventory",
		Tags:        []string{"Collection"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddToCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSetInventories",
		Method:      http.MethodGet,
		Path:        "/api/v1/sets/{set_number}/inventories",
		Summary:     "List inventories of a set",
		Description: "Returns the user's inventories of one set, oldest first",
		Tags:        []string{"Inventories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSetInventories)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createInventory",
		Method:        http.MethodPost,
		Path:          "/api/v1/sets/{set_number}/inventories",
		Summary:       "Create inventory",
		Description:   "Creates a named inventory of a set",
		Tags:          []string{"Inventories"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateInventory)
}

func (s *Server) registerInventoryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getInventory",
		Method:      http.MethodGet,
		Path:        "/api/v1/inventories/{id}",
		Summary:     "Get inventory",
		Description: "Returns an inventory record",
		Tags:        []string{"Inventories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetInventory)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateInventory",
		Method:      http.MethodPatch,
		Path:        "/api/v1/inventories/{id}",
		Summary:     "Update inventory",
		Description: "Renames an inventory or changes its description",
		Tags:        []string{"Inventories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateInventory)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteInventory",
		Method:        http.MethodDelete,
		Path:          "/api/v1/inventories/{id}",
		Summary:       "Delete inventory",
		Description:   "Deletes an inventory and its modifications",
		Tags:          []string{"Inventories"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteInventory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getModifications",
		Method:      http.MethodGet,
		Path:        "/api/v1/inventories/{id}/modifications",
		Summary:     "Get modifications",
		Description: "Returns the stored overrides keyed by encoded part key",
		Tags:        []string{"Inventories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetModifications)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveModifications",
		Method:      http.MethodPut,
		Path:        "/api/v1/inventories/{id}/modifications",
		Summary:     "Save inventory",
		Description: "Replaces all overrides, from either the full desired quantities or a sparse override map",
		Tags:        []string{"Inventories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSaveModifications)

	huma.Register(s.api, huma.Operation{
		OperationID: "editInventoryPart",
		Method:      http.MethodPost,
		Path:        "/api/v1/inventories/{id}/parts",
		Summary:     "Edit one part",
		Description: "Sets the quantity of a single line",
		Tags:        []string{"Inventories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleEditPart)

	huma.Register(s.api, huma.Operation{
		OperationID: "getInventoryParts",
		Method:      http.MethodGet,
		Path:        "/api/v1/inventories/{id}/parts",
		Summary:     "Get effective inventory",
		Description: "Returns the set inventory with the user's modifications applied",
		Tags:        []string{"Inventories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetInventoryParts)
}

// === DTOs ===

// InventoryResponse contains a user inventory in API responses.
type InventoryResponse struct {
	ID          string    `json:"id" doc:"Inventory ID"`
	SetNumber   string    `json:"set_number" doc:"Set number"`
	Name        string    `json:"name" doc:"Inventory name"`
	Description string    `json:"description,omitempty" doc:"Markdown description"`
	IsPublic    bool      `json:"is_public" doc:"Visible to other users"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last update time"`
}

// InventoryOutput wraps an inventory for Huma.
type InventoryOutput struct {
	Body InventoryResponse
}

// InventoryListResponse contains a list of inventories.
type InventoryListResponse struct {
	Inventories []InventoryResponse `json:"inventories" doc:"Inventories"`
}

// InventoryListOutput wraps an inventory list for Huma.
type InventoryListOutput struct {
	Body InventoryListResponse
}

// CollectionSetResponse is one set in a collection.
type CollectionSetResponse struct {
	Set         SetResponse         `json:"set" doc:"Set metadata"`
	Inventories []InventoryResponse `json:"inventories" doc:"The user's inventories of the set"`
}

// CollectionResponse is a user's collection.
type CollectionResponse struct {
	Sets []CollectionSetResponse `json:"sets" doc:"Sets in the collection"`
}

// CollectionOutput wraps a collection for Huma.
type CollectionOutput struct {
	Body CollectionResponse
}

// AuthInput carries the bearer token.
type AuthInput struct {
	Authorization string `header:"Authorization"`
}

// AddToCollectionRequest is the request body for adding a set.
type AddToCollectionRequest struct {
	SetNumber string `json:"set_number" validate:"required,setnum" doc:"Set number, e.g. 75192-1"`
}

// AddToCollectionInput wraps the add request for Huma.
type AddToCollectionInput struct {
	Authorization string `header:"Authorization"`
	Body          AddToCollectionRequest
}

// AddToCollectionResponse reports the Default inventory of the set.
type AddToCollectionResponse struct {
	Inventory InventoryResponse `json:"inventory" doc:"The Default inventory"`
	Created   bool              `json:"created" doc:"Whether this call created it"`
}

// AddToCollectionOutput wraps the add response for Huma.
type AddToCollectionOutput struct {
	Status int
	Body   AddToCollectionResponse
}

// SetInventoriesInput identifies a set for an authenticated user.
type SetInventoriesInput struct {
	Authorization string `header:"Authorization"`
	SetNumber     string `path:"set_number" maxLength:"64" doc:"Set number"`
}

// CreateInventoryRequest is the request body for creating an inventory.
type CreateInventoryRequest struct {
	Name        string `json:"name" validate:"required,max=100" doc:"Inventory name, unique per set"`
	Description string `json:"description,omitempty" validate:"max=10000" doc:"Description, HTML is converted to Markdown"`
	IsPublic    bool   `json:"is_public,omitempty" doc:"Visible to other users"`
}

// CreateInventoryInput wraps the create request for Huma.
type CreateInventoryInput struct {
	Authorization string `header:"Authorization"`
	SetNumber     string `path:"set_number" maxLength:"64" doc:"Set number"`
	Body          CreateInventoryRequest
}

// InventoryIDInput identifies an inventory.
type InventoryIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Inventory ID"`
}

// UpdateInventoryRequest is the request body for updating an inventory.
type UpdateInventoryRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=100" doc:"New name"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000" doc:"New description"`
	IsPublic    *bool   `json:"is_public,omitempty" doc:"Visible to other users"`
}

// UpdateInventoryInput wraps the update request for Huma.
type UpdateInventoryInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Inventory ID"`
	Body          UpdateInventoryRequest
}

// ModificationsResponse contains an inventory's stored overrides.
type ModificationsResponse struct {
	InventoryID   string         `json:"inventory_id" doc:"Inventory ID"`
	Modifications map[string]int `json:"modifications" doc:"Overridden quantity by encoded part key"`
}

// ModificationsOutput wraps overrides for Huma.
type ModificationsOutput struct {
	Body ModificationsResponse
}

// PartDescriptorRequest describes a part the set does not contain.
type PartDescriptorRequest struct {
	PartName  string `json:"part_name,omitempty" validate:"max=200" doc:"Part name"`
	ColorName string `json:"color_name,omitempty" validate:"max=100" doc:"Color name"`
	ImageURL  string `json:"image_url,omitempty" validate:"omitempty,url" doc:"Part image URL"`
}

// SaveModificationsRequest is a batch save. Exactly one of quantities or
// modifications must be given.
type SaveModificationsRequest struct {
	Quantities    map[string]int                   `json:"quantities,omitempty" validate:"omitempty,dive,keys,partkey,endkeys,gte=0" doc:"Full desired quantity by part key"`
	Modifications map[string]int                   `json:"modifications,omitempty" validate:"omitempty,dive,keys,partkey,endkeys,gte=0" doc:"Sparse overrides by part key"`
	Descriptors   map[string]PartDescriptorRequest `json:"descriptors,omitempty" validate:"omitempty,dive,keys,partkey,endkeys" doc:"Display data for parts outside the set"`
}

// SaveModificationsInput wraps the batch save for Huma.
type SaveModificationsInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Inventory ID"`
	Body          SaveModificationsRequest
}

// EditPartRequest sets the quantity of one line.
type EditPartRequest struct {
	PartNumber    string `json:"part_number" validate:"required,max=64" doc:"Part number"`
	ColorID       int    `json:"color_id" doc:"Color ID"`
	IsSpare       bool   `json:"is_spare,omitempty" doc:"Spare part line"`
	IsMinifigPart bool   `json:"is_minifig_part,omitempty" doc:"Minifigure part line"`
	Quantity      int    `json:"quantity" validate:"gte=0" doc:"New quantity"`
	Notes         string `json:"notes,omitempty" validate:"max=1000" doc:"Free-text notes kept with the override"`
	PartDescriptorRequest
}

// EditPartInput wraps the single edit for Huma.
type EditPartInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Inventory ID"`
	Body          EditPartRequest
}

// EffectiveInventoryResponse is an inventory with modifications applied.
type EffectiveInventoryResponse struct {
	Inventory     InventoryResponse  `json:"inventory" doc:"Inventory record"`
	Set           SetResponse        `json:"set" doc:"Set metadata"`
	Provenance    string             `json:"provenance" doc:"catalog, fallback or placeholder"`
	Parts         []PartLineResponse `json:"parts" doc:"Effective inventory lines"`
	Modifications map[string]int     `json:"modifications" doc:"Stored overrides by part key"`
	TotalParts    int                `json:"total_parts" doc:"Sum of effective quantities"`
}

// EffectiveInventoryOutput wraps the effective inventory for Huma.
type EffectiveInventoryOutput struct {
	Body EffectiveInventoryResponse
}

// === Handlers ===

func (s *Server) handleGetCollection(ctx context.Context, input *AuthInput) (*CollectionOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	entries, err := s.services.Collection.ListCollection(ctx, userID)
	if err != nil {
		return nil, err
	}

	sets := make([]CollectionSetResponse, len(entries))
	for i, e := range entries {
		sets[i] = CollectionSetResponse{
			Set:         toSetResponse(e.Set),
			Inventories: toInventoryList(e.Inventories),
		}
	}
	return &CollectionOutput{Body: CollectionResponse{Sets: sets}}, nil
}

func (s *Server) handleAddToCollection(ctx context.Context, input *AddToCollectionInput) (*AddToCollectionOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if err := s.validate(&input.Body); err != nil {
		return nil, err
	}

	inv, created, err := s.services.Collection.AddToCollection(ctx, userID, input.Body.SetNumber)
	if err != nil {
		return nil, err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return &AddToCollectionOutput{
		Status: status,
		Body: AddToCollectionResponse{
			Inventory: toInventoryResponse(inv),
			Created:   created,
		},
	}, nil
}

func (s *Server) handleListSetInventories(ctx context.Context, input *SetInventoriesInput) (*InventoryListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	invs, err := s.services.Collection.ListInventories(ctx, userID, input.SetNumber)
	if err != nil {
		return nil, err
	}
	return &InventoryListOutput{Body: InventoryListResponse{Inventories: toInventoryList(invs)}}, nil
}

func (s *Server) handleCreateInventory(ctx context.Context, input *CreateInventoryInput) (*InventoryOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if err := s.validate(&input.Body); err != nil {
		return nil, err
	}

	inv, err := s.services.Collection.CreateInventory(ctx, userID, service.CreateInventoryRequest{
		SetNumber:   input.SetNumber,
		Name:        input.Body.Name,
		Description: input.Body.Description,
		IsPublic:    input.Body.IsPublic,
	})
	if err != nil {
		return nil, err
	}
	return &InventoryOutput{Body: toInventoryResponse(inv)}, nil
}

func (s *Server) handleGetInventory(ctx context.Context, input *InventoryIDInput) (*InventoryOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	inv, err := s.services.Collection.GetInventory(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &InventoryOutput{Body: toInventoryResponse(inv)}, nil
}

func (s *Server) handleUpdateInventory(ctx context.Context, input *UpdateInventoryInput) (*InventoryOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if err := s.validate(&input.Body); err != nil {
		return nil, err
	}

	inv, err := s.services.Collection.UpdateInventory(ctx, userID, input.ID, service.UpdateInventoryRequest{
		Name:        input.Body.Name,
		Description: input.Body.Description,
		IsPublic:    input.Body.IsPublic,
	})
	if err != nil {
		return nil, err
	}
	return &InventoryOutput{Body: toInventoryResponse(inv)}, nil
}

func (s *Server) handleDeleteInventory(ctx context.Context, input *InventoryIDInput) (*struct{}, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Collection.DeleteInventory(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleGetModifications(ctx context.Context, input *InventoryIDInput) (*ModificationsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	mods, err := s.services.Collection.GetModifications(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ModificationsOutput{Body: ModificationsResponse{InventoryID: input.ID, Modifications: mods}}, nil
}

func (s *Server) handleSaveModifications(ctx context.Context, input *SaveModificationsInput) (*ModificationsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if err := s.validate(&input.Body); err != nil {
		return nil, err
	}

	var descriptors map[string]service.PartDescriptor
	if len(input.Body.Descriptors) > 0 {
		descriptors = make(map[string]service.PartDescriptor, len(input.Body.Descriptors))
		for key, d := range input.Body.Descriptors {
			descriptors[key] = service.PartDescriptor(d)
		}
	}

	mods, err := s.services.Collection.SaveInventory(ctx, userID, input.ID, service.SaveInventoryRequest{
		Quantities:    input.Body.Quantities,
		Modifications: input.Body.Modifications,
		Descriptors:   descriptors,
	})
	if err != nil {
		return nil, err
	}
	return &ModificationsOutput{Body: ModificationsResponse{InventoryID: input.ID, Modifications: mods}}, nil
}

func (s *Server) handleEditPart(ctx context.Context, input *EditPartInput) (*ModificationsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if err := s.validate(&input.Body); err != nil {
		return nil, err
	}

	mods, err := s.services.Collection.EditPart(ctx, userID, input.ID, service.EditPartRequest{
		PartNumber:     input.Body.PartNumber,
		ColorID:        input.Body.ColorID,
		IsSpare:        input.Body.IsSpare,
		IsMinifigPart:  input.Body.IsMinifigPart,
		Quantity:       input.Body.Quantity,
		Notes:          input.Body.Notes,
		PartDescriptor: service.PartDescriptor(input.Body.PartDescriptorRequest),
	})
	if err != nil {
		return nil, err
	}
	return &ModificationsOutput{Body: ModificationsResponse{InventoryID: input.ID, Modifications: mods}}, nil
}

func (s *Server) handleGetInventoryParts(ctx context.Context, input *InventoryIDInput) (*EffectiveInventoryOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	eff, err := s.services.Inventory.EffectiveInventory(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, l := range eff.Lines {
		total += l.Quantity
	}

	return &EffectiveInventoryOutput{Body: EffectiveInventoryResponse{
		Inventory:     toInventoryResponse(eff.Inventory),
		Set:           toSetResponse(eff.Resolution.Set),
		Provenance:    string(eff.Resolution.Provenance),
		Parts:         toPartLines(eff.Lines),
		Modifications: eff.Modifications,
		TotalParts:    total,
	}}, nil
}

// === Mapping ===

func toInventoryResponse(inv *domain.UserInventory) InventoryResponse {
	return InventoryResponse{
		ID:          inv.ID,
		SetNumber:   inv.SetNumber,
		Name:        inv.Name,
		Description: inv.Description,
		IsPublic:    inv.IsPublic,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
}

func toInventoryList(invs []*domain.UserInventory) []InventoryResponse {
	resp := make([]InventoryResponse, len(invs))
	for i, inv := range invs {
		resp[i] = toInventoryResponse(inv)
	}
	return resp
}
