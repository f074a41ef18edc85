package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for set documents.
//
//  1. Stemmed full-text search on the folded set name and theme
//  2. Exact and prefix matching on set numbers
//  3. Numeric range queries and sorting on year and part count
//  4. Stored display fields so hits render without a catalog lookup
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Folded name - primary search target
	searchNameMapping := bleve.NewTextFieldMapping()
	searchNameMapping.Analyzer = en.AnalyzerName
	searchNameMapping.Store = false
	searchNameMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("search_name", searchNameMapping)

	// Folded theme - secondary target, simple analyzer keeps "technic" unstemmed
	searchThemeMapping := bleve.NewTextFieldMapping()
	searchThemeMapping.Analyzer = simple.Name
	searchThemeMapping.Store = false
	docMapping.AddFieldMappingsAt("search_theme", searchThemeMapping)

	// Display name - stored, also searchable and sortable
	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Analyzer = keyword.Name
	nameMapping.Store = true
	docMapping.AddFieldMappingsAt("name", nameMapping)

	// --- Keyword fields (exact match, facetable) ---

	setNumberMapping := bleve.NewTextFieldMapping()
	setNumberMapping.Analyzer = keyword.Name
	setNumberMapping.Store = true
	docMapping.AddFieldMappingsAt("set_number", setNumberMapping)

	themeNameMapping := bleve.NewTextFieldMapping()
	themeNameMapping.Analyzer = keyword.Name
	themeNameMapping.Store = true
	docMapping.AddFieldMappingsAt("theme_name", themeNameMapping)

	// Image URL - stored only
	imageMapping := bleve.NewTextFieldMapping()
	imageMapping.Index = false
	imageMapping.Store = true
	docMapping.AddFieldMappingsAt("image_url", imageMapping)

	// --- Numeric fields (range queries, sorting) ---

	themeIDMapping := bleve.NewNumericFieldMapping()
	themeIDMapping.Store = true
	docMapping.AddFieldMappingsAt("theme_id", themeIDMapping)

	yearMapping := bleve.NewNumericFieldMapping()
	yearMapping.Store = true
	docMapping.AddFieldMappingsAt("year", yearMapping)

	numPartsMapping := bleve.NewNumericFieldMapping()
	numPartsMapping.Store = true
	docMapping.AddFieldMappingsAt("num_parts", numPartsMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
