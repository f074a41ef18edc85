package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getPart",
		Method:      http.MethodGet,
		Path:        "/api/v1/parts/{part_number}",
		Summary:     "Get part",
		Description: "Returns a catalog part definition",
		Tags:        []string{"Catalog"},
	}, s.handleGetPart)

	huma.Register(s.api, huma.Operation{
		OperationID: "getColor",
		Method:      http.MethodGet,
		Path:        "/api/v1/colors/{id}",
		Summary:     "Get color",
		Description: "Returns a catalog color",
		Tags:        []string{"Catalog"},
	}, s.handleGetColor)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCatalogStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/stats",
		Summary:     "Catalog statistics",
		Description: "Returns row counts per catalog table",
		Tags:        []string{"Catalog"},
	}, s.handleCatalogStats)
}

// GetPartInput identifies a part by path.
type GetPartInput struct {
	PartNumber string `path:"part_number" maxLength:"64" doc:"Part number, e.g. 3001"`
}

// PartResponse contains a catalog part.
type PartResponse struct {
	PartNumber string `json:"part_number" doc:"Part number"`
	Name       string `json:"name" doc:"Part name"`
	CategoryID int    `json:"category_id,omitempty" doc:"Part category ID"`
	Category   string `json:"category,omitempty" doc:"Part category name"`
	Material   string `json:"material,omitempty" doc:"Material"`
}

// PartOutput wraps a part for Huma.
type PartOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         PartResponse
}

// GetColorInput identifies a color by path.
type GetColorInput struct {
	ID int `path:"id" doc:"Color ID"`
}

// ColorResponse contains a catalog color.
type ColorResponse struct {
	ID      int    `json:"id" doc:"Color ID"`
	Name    string `json:"name" doc:"Color name"`
	RGB     string `json:"rgb,omitempty" doc:"Hex RGB"`
	IsTrans bool   `json:"is_trans" doc:"Transparent color"`
}

// ColorOutput wraps a color for Huma.
type ColorOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         ColorResponse
}

// CatalogStatsResponse contains catalog table counts.
type CatalogStatsResponse struct {
	Tables map[string]int64 `json:"tables" doc:"Row count per catalog table"`
}

// CatalogStatsOutput wraps catalog stats for Huma.
type CatalogStatsOutput struct {
	Body CatalogStatsResponse
}

func (s *Server) handleGetPart(ctx context.Context, input *GetPartInput) (*PartOutput, error) {
	part, err := s.services.Catalog.Part(ctx, input.PartNumber)
	if err != nil {
		return nil, err
	}
	return &PartOutput{
		CacheControl: CacheOneHour,
		Body: PartResponse{
			PartNumber: part.PartNumber,
			Name:       part.Name,
			CategoryID: part.CategoryID,
			Category:   part.Category,
			Material:   part.Material,
		},
	}, nil
}

func (s *Server) handleGetColor(ctx context.Context, input *GetColorInput) (*ColorOutput, error) {
	color, err := s.services.Catalog.Color(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ColorOutput{
		CacheControl: CacheOneHour,
		Body:         ColorResponse(*color),
	}, nil
}

func (s *Server) handleCatalogStats(ctx context.Context, _ *struct{}) (*CatalogStatsOutput, error) {
	stats, err := s.services.Catalog.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &CatalogStatsOutput{Body: CatalogStatsResponse{Tables: stats}}, nil
}
