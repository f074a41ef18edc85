package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	"github.com/brickcomplete/brickcomplete-server/internal/normalize"
)

// Sort orders understood by Search.
const (
	SortRelevance = "relevance"
	SortYear      = "year"
	SortSetNumber = "set_number"
	SortName      = "name"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string // User's search query, matched against set numbers, names and themes

	// Filters
	Theme   string // Exact theme name
	MinYear int
	MaxYear int

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "year", "set_number", "name"
	SortOrder string // "asc", "desc"

	IncludeFacets bool // Include theme counts in results
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:     20,
		SortBy:    SortRelevance,
		SortOrder: "desc",
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SetHit     `json:"hits"`
	Themes []FacetCount `json:"themes,omitempty"`
}

// SetHit is a single matching set.
type SetHit struct {
	SetNumber string  `json:"set_number"`
	Score     float64 `json:"score"`
	Name      string  `json:"name"`
	ThemeID   int     `json:"theme_id,omitempty"`
	ThemeName string  `json:"theme_name,omitempty"`
	Year      int     `json:"year,omitempty"`
	NumParts  int     `json:"num_parts,omitempty"`
	ImageURL  string  `json:"image_url,omitempty"`
}

// Meta converts the hit back to set metadata.
func (h *SetHit) Meta() domain.SetMeta {
	return domain.SetMeta{
		SetNumber: h.SetNumber,
		Name:      h.Name,
		Year:      h.Year,
		ThemeID:   h.ThemeID,
		ThemeName: h.ThemeName,
		NumParts:  h.NumParts,
		ImageURL:  h.ImageURL,
		SetURL:    domain.SetURL(h.SetNumber),
	}
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// storedFields are returned with every hit.
var storedFields = []string{
	"set_number", "name", "theme_id", "theme_name", "year", "num_parts", "image_url",
}

// Search executes a search query.
func (s *SetIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(searchRequest, params)
	if params.IncludeFacets {
		searchRequest.AddFacet("theme_name", bleve.NewFacetRequest("theme_name", 20))
	}
	searchRequest.Fields = storedFields

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SetHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		setHit := SetHit{
			SetNumber: hit.ID,
			Score:     hit.Score,
		}
		if n, ok := hit.Fields["name"].(string); ok {
			setHit.Name = n
		}
		if t, ok := hit.Fields["theme_name"].(string); ok {
			setHit.ThemeName = t
		}
		if u, ok := hit.Fields["image_url"].(string); ok {
			setHit.ImageURL = u
		}
		if id, ok := hit.Fields["theme_id"].(float64); ok {
			setHit.ThemeID = int(id)
		}
		if y, ok := hit.Fields["year"].(float64); ok {
			setHit.Year = int(y)
		}
		if n, ok := hit.Fields["num_parts"].(float64); ok {
			setHit.NumParts = int(n)
		}
		result.Hits = append(result.Hits, setHit)
	}

	if facet, ok := searchResult.Facets["theme_name"]; ok && facet.Terms != nil {
		for _, term := range facet.Terms.Terms() {
			result.Themes = append(result.Themes, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	folded := normalize.SearchText(params.Query)
	if folded != "" {
		textQueries := []query.Query{}

		// Set number prefix: "75192" finds "75192-1"
		if raw := normalize.SetNumber(params.Query); raw != "" {
			numberQuery := bleve.NewPrefixQuery(raw)
			numberQuery.SetField("set_number")
			numberQuery.SetBoost(5.0)
			textQueries = append(textQueries, numberQuery)
		}

		nameMatch := bleve.NewMatchQuery(folded)
		nameMatch.SetField("search_name")
		nameMatch.SetBoost(3.0)
		textQueries = append(textQueries, nameMatch)

		themeMatch := bleve.NewMatchQuery(folded)
		themeMatch.SetField("search_theme")
		themeMatch.SetBoost(1.0)
		textQueries = append(textQueries, themeMatch)

		words := strings.Fields(folded)

		// Fuzzy matching for typo tolerance on single words
		if len(words) == 1 {
			fuzzyQuery := bleve.NewFuzzyQuery(folded)
			fuzzyQuery.SetFuzziness(1)
			fuzzyQuery.SetField("search_name")
			fuzzyQuery.SetBoost(0.8)
			textQueries = append(textQueries, fuzzyQuery)
		}

		// Prefix on the word being typed (minimum 2 chars)
		if last := words[len(words)-1]; len(last) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(last)
			prefixQuery.SetField("search_name")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Theme != "" {
		tq := bleve.NewTermQuery(params.Theme)
		tq.SetField("theme_name")
		queries = append(queries, tq)
	}

	if params.MinYear > 0 || params.MaxYear > 0 {
		lo := float64(params.MinYear)
		hi := float64(params.MaxYear)
		if params.MaxYear == 0 {
			hi = 3000
		}
		inclusive := true
		rangeQuery := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, &inclusive, &inclusive)
		rangeQuery.SetField("year")
		queries = append(queries, rangeQuery)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	desc := params.SortOrder == "desc"
	switch params.SortBy {
	case SortYear:
		if desc {
			req.SortBy([]string{"-year", "set_number"})
		} else {
			req.SortBy([]string{"year", "set_number"})
		}
	case SortSetNumber:
		if desc {
			req.SortBy([]string{"-set_number"})
		} else {
			req.SortBy([]string{"set_number"})
		}
	case SortName:
		if desc {
			req.SortBy([]string{"-name", "set_number"})
		} else {
			req.SortBy([]string{"name", "set_number"})
		}
	default:
		req.SortBy([]string{"-_score", "set_number"})
	}
}
