package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	"github.com/brickcomplete/brickcomplete-server/internal/metadata/instructions"
)

func (s *Server) registerSetRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchSets",
		Method:      http.MethodGet,
		Path:        "/api/v1/sets/search",
		Summary:     "Search sets",
		Description: "Finds sets by number, name or theme",
		Tags:        []string{"Sets"},
	}, s.handleSearchSets)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestSets",
		Method:      http.MethodGet,
		Path:        "/api/v1/sets/suggestions",
		Summary:     "Suggest set numbers",
		Description: "Autocompletes a set number prefix. Prefixes shorter than two characters return nothing",
		Tags:        []string{"Sets"},
	}, s.handleSuggestSets)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSet",
		Method:      http.MethodGet,
		Path:        "/api/v1/sets/{set_number}",
		Summary:     "Get set inventory",
		Description: "Returns set metadata with its canonical inventory and where it came from",
		Tags:        []string{"Sets"},
	}, s.handleGetSet)

	huma.Register(s.api, huma.Operation{
		OperationID: "checkInstructions",
		Method:      http.MethodGet,
		Path:        "/api/v1/sets/{set_number}/instructions",
		Summary:     "Check building instructions",
		Description: "Reports whether LEGO publishes building instructions for the set",
		Tags:        []string{"Instructions"},
	}, s.handleCheckInstructions)

	huma.Register(s.api, huma.Operation{
		OperationID: "getInstructionImages",
		Method:      http.MethodGet,
		Path:        "/api/v1/sets/{set_number}/instructions/images",
		Summary:     "Get instruction images",
		Description: "Returns scanned instruction pages of the set",
		Tags:        []string{"Instructions"},
	}, s.handleInstructionImages)
}

// === DTOs ===

// SetResponse contains set metadata in API responses.
type SetResponse struct {
	SetNumber string `json:"set_number" doc:"Set number, e.g. 75192-1"`
	Name      string `json:"name" doc:"Set name"`
	Year      int    `json:"year,omitempty" doc:"Release year"`
	ThemeID   int    `json:"theme_id,omitempty" doc:"Theme ID"`
	ThemeName string `json:"theme_name,omitempty" doc:"Theme name"`
	NumParts  int    `json:"num_parts,omitempty" doc:"Part count published for the set"`
	ImageURL  string `json:"image_url,omitempty" doc:"Box image URL"`
	SetURL    string `json:"set_url" doc:"Rebrickable page of the set"`
}

// MinifigSourceResponse attributes part demand to a minifigure.
type MinifigSourceResponse struct {
	MinifigNumber string `json:"minifig_number" doc:"Minifigure number"`
	MinifigName   string `json:"minifig_name" doc:"Minifigure name"`
	Quantity      int    `json:"quantity" doc:"Parts needed for all copies of the figure"`
	QuantityInSet int    `json:"quantity_in_set" doc:"Copies of the figure in the set"`
	PerFigure     int    `json:"per_figure" doc:"Parts needed per figure"`
}

// PartLineResponse is one inventory line.
type PartLineResponse struct {
	Key            string                  `json:"key" doc:"Encoded part key, e.g. 3001_1_regular_normal"`
	PartNumber     string                  `json:"part_number" doc:"Part number"`
	PartName       string                  `json:"part_name" doc:"Part name"`
	ColorID        int                     `json:"color_id" doc:"Color ID"`
	ColorName      string                  `json:"color_name" doc:"Color name"`
	ColorRGB       string                  `json:"color_rgb,omitempty" doc:"Color as hex RGB"`
	Quantity       int                     `json:"quantity" doc:"Quantity"`
	IsSpare        bool                    `json:"is_spare" doc:"Spare part"`
	IsMinifigPart  bool                    `json:"is_minifig_part" doc:"Part of a minifigure"`
	ImageURL       string                  `json:"image_url,omitempty" doc:"Part image URL"`
	Category       string                  `json:"category,omitempty" doc:"Part category"`
	MinifigSources []MinifigSourceResponse `json:"minifig_sources,omitempty" doc:"Minifigures contributing to the quantity"`
	Notes          string                  `json:"notes,omitempty" doc:"User notes from the inventory's override"`
}

// SearchSetsInput contains parameters for searching sets.
type SearchSetsInput struct {
	Query string `query:"q" required:"true" maxLength:"200" doc:"Search text"`
	Limit int    `query:"limit" minimum:"0" doc:"Maximum results (default 20, at most 100)"`
}

// SuggestSetsInput contains parameters for set number suggestions.
type SuggestSetsInput struct {
	Query string `query:"q" maxLength:"64" doc:"Set number prefix"`
	Limit int    `query:"limit" minimum:"0" doc:"Maximum results (default 10)"`
}

// SetListResponse contains a list of sets.
type SetListResponse struct {
	Sets  []SetResponse `json:"sets" doc:"Matching sets"`
	Count int           `json:"count" doc:"Number of sets returned"`
}

// SetListOutput wraps a set list for Huma.
type SetListOutput struct {
	Body SetListResponse
}

// SetNumberInput identifies a set by path.
type SetNumberInput struct {
	SetNumber string `path:"set_number" maxLength:"64" doc:"Set number, e.g. 75192-1"`
}

// SetInventoryResponse is a set with its canonical inventory.
type SetInventoryResponse struct {
	Set         SetResponse        `json:"set" doc:"Set metadata"`
	Provenance  string             `json:"provenance" doc:"catalog, fallback or placeholder"`
	Inventory   []PartLineResponse `json:"inventory" doc:"Canonical inventory lines"`
	TotalParts  int                `json:"total_parts" doc:"Sum of quantities"`
	UniqueParts int                `json:"unique_parts" doc:"Number of lines"`
}

// SetInventoryOutput wraps the set inventory for Huma.
type SetInventoryOutput struct {
	Body SetInventoryResponse
}

// InstructionsOutput wraps an availability check for Huma.
type InstructionsOutput struct {
	Body *instructions.Availability
}

// InstructionImagesOutput wraps scraped instruction images for Huma.
type InstructionImagesOutput struct {
	Body *instructions.Images
}

// === Handlers ===

func (s *Server) handleSearchSets(ctx context.Context, input *SearchSetsInput) (*SetListOutput, error) {
	sets, err := s.services.Catalog.SearchSets(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}
	return &SetListOutput{Body: toSetList(sets)}, nil
}

func (s *Server) handleSuggestSets(ctx context.Context, input *SuggestSetsInput) (*SetListOutput, error) {
	sets, err := s.services.Catalog.SuggestSetNumbers(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}
	return &SetListOutput{Body: toSetList(sets)}, nil
}

func (s *Server) handleGetSet(ctx context.Context, input *SetNumberInput) (*SetInventoryOutput, error) {
	result, err := s.services.Inventory.ResolveSet(ctx, input.SetNumber)
	if err != nil {
		return nil, err
	}

	lines := toPartLines(result.Inventory)
	total := 0
	for _, l := range result.Inventory {
		total += l.Quantity
	}

	return &SetInventoryOutput{Body: SetInventoryResponse{
		Set:         toSetResponse(result.Set),
		Provenance:  string(result.Provenance),
		Inventory:   lines,
		TotalParts:  total,
		UniqueParts: len(lines),
	}}, nil
}

func (s *Server) handleCheckInstructions(ctx context.Context, input *SetNumberInput) (*InstructionsOutput, error) {
	result, err := s.services.Instructions.CheckInstructions(ctx, input.SetNumber)
	if err != nil {
		return nil, err
	}
	return &InstructionsOutput{Body: result}, nil
}

func (s *Server) handleInstructionImages(ctx context.Context, input *SetNumberInput) (*InstructionImagesOutput, error) {
	result, err := s.services.Instructions.InstructionImages(ctx, input.SetNumber)
	if err != nil {
		return nil, err
	}
	return &InstructionImagesOutput{Body: result}, nil
}

// === Mapping ===

func toSetResponse(m domain.SetMeta) SetResponse {
	return SetResponse{
		SetNumber: m.SetNumber,
		Name:      m.Name,
		Year:      m.Year,
		ThemeID:   m.ThemeID,
		ThemeName: m.ThemeName,
		NumParts:  m.NumParts,
		ImageURL:  m.ImageURL,
		SetURL:    m.SetURL,
	}
}

func toSetList(sets []domain.SetMeta) SetListResponse {
	resp := make([]SetResponse, len(sets))
	for i, m := range sets {
		resp[i] = toSetResponse(m)
	}
	return SetListResponse{Sets: resp, Count: len(resp)}
}

func toPartLines(lines []domain.PartLine) []PartLineResponse {
	resp := make([]PartLineResponse, len(lines))
	for i := range lines {
		l := &lines[i]
		resp[i] = PartLineResponse{
			Key:           l.Key().Encode(),
			PartNumber:    l.PartNumber,
			PartName:      l.PartName,
			ColorID:       l.ColorID,
			ColorName:     l.ColorName,
			ColorRGB:      l.ColorRGB,
			Quantity:      l.Quantity,
			IsSpare:       l.IsSpare,
			IsMinifigPart: l.IsMinifigPart,
			ImageURL:      l.ImageURL,
			Category:      l.Category,
			Notes:         l.Notes,
		}
		for _, src := range l.MinifigSources {
			resp[i].MinifigSources = append(resp[i].MinifigSources, MinifigSourceResponse(src))
		}
	}
	return resp
}
