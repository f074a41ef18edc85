package search

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) (*SetIndex, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "search-test-*")
	require.NoError(t, err)

	index, err := NewSetIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)

	cleanup := func() {
		_ = index.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return index, cleanup
}

func testSets() []domain.SetMeta {
	return []domain.SetMeta{
		{SetNumber: "75192-1", Name: "Millennium Falcon", Year: 2017, ThemeID: 171, ThemeName: "Star Wars", NumParts: 7541},
		{SetNumber: "10182-1", Name: "Café Corner", Year: 2007, ThemeID: 155, ThemeName: "Modular Buildings", NumParts: 2056},
		{SetNumber: "60215-1", Name: "Fire Station", Year: 2019, ThemeID: 52, ThemeName: "City", NumParts: 509},
		{SetNumber: "60110-1", Name: "Fire Station", Year: 2016, ThemeID: 52, ThemeName: "City", NumParts: 919},
	}
}

func indexTestSets(t *testing.T, index *SetIndex) {
	t.Helper()
	require.NoError(t, index.IndexSets(context.Background(), testSets()))
}

func hitNumbers(result *SearchResult) []string {
	numbers := make([]string, 0, len(result.Hits))
	for _, h := range result.Hits {
		numbers = append(numbers, h.SetNumber)
	}
	return numbers
}

func TestNewSetIndex(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewSetIndex_ReopensExisting(t *testing.T) {
	tmpDir := t.TempDir()

	index, err := NewSetIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)
	indexTestSets(t, index)
	require.NoError(t, index.Close())

	reopened, err := NewSetIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
}

func TestNewSetIndex_RebuildsOnVersionChange(t *testing.T) {
	tmpDir := t.TempDir()

	index, err := NewSetIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)
	indexTestSets(t, index)
	require.NoError(t, index.Close())

	require.NoError(t, os.WriteFile(tmpDir+"/sets.version", []byte("0"), 0o644))

	rebuilt, err := NewSetIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)
	defer rebuilt.Close()

	count, err := rebuilt.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSetIndex_IndexAndDelete(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	set := testSets()[0]
	require.NoError(t, index.IndexSet(&set))

	// Re-indexing the same set replaces it
	set.Name = "Millennium Falcon UCS"
	require.NoError(t, index.IndexSet(&set))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, index.DeleteSet(set.SetNumber))

	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSetIndex_Search_ByName(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestSets(t, index)

	params := DefaultSearchParams()
	params.Query = "falcon"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)

	hit := result.Hits[0]
	assert.Equal(t, "75192-1", hit.SetNumber)
	assert.Equal(t, "Millennium Falcon", hit.Name)
	assert.Equal(t, "Star Wars", hit.ThemeName)
	assert.Equal(t, 2017, hit.Year)
	assert.Equal(t, 7541, hit.NumParts)
}

func TestSetIndex_Search_FoldsAccents(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestSets(t, index)

	for _, q := range []string{"cafe", "Café", "CAFÉ corner"} {
		params := DefaultSearchParams()
		params.Query = q

		result, err := index.Search(context.Background(), params)
		require.NoError(t, err)
		assert.Contains(t, hitNumbers(result), "10182-1", "query %q", q)
	}
}

func TestSetIndex_Search_BySetNumberPrefix(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestSets(t, index)

	params := DefaultSearchParams()
	params.Query = "7519"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, []string{"75192-1"}, hitNumbers(result))
}

func TestSetIndex_Search_Filters(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestSets(t, index)

	ctx := context.Background()

	t.Run("theme", func(t *testing.T) {
		params := DefaultSearchParams()
		params.Theme = "City"
		params.SortBy = SortSetNumber
		params.SortOrder = "asc"

		result, err := index.Search(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, []string{"60110-1", "60215-1"}, hitNumbers(result))
	})

	t.Run("year range", func(t *testing.T) {
		params := DefaultSearchParams()
		params.MinYear = 2016
		params.MaxYear = 2017
		params.SortBy = SortYear
		params.SortOrder = "desc"

		result, err := index.Search(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, []string{"75192-1", "60110-1"}, hitNumbers(result))
	})

	t.Run("query and theme", func(t *testing.T) {
		params := DefaultSearchParams()
		params.Query = "station"
		params.Theme = "Star Wars"

		result, err := index.Search(ctx, params)
		require.NoError(t, err)
		assert.Empty(t, result.Hits)
	})
}

func TestSetIndex_Search_LimitAndFacets(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestSets(t, index)

	params := DefaultSearchParams()
	params.Limit = 2
	params.IncludeFacets = true
	params.SortBy = SortSetNumber
	params.SortOrder = "asc"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), result.Total)
	assert.Equal(t, []string{"10182-1", "60110-1"}, hitNumbers(result))

	counts := map[string]int{}
	for _, f := range result.Themes {
		counts[f.Value] = f.Count
	}
	assert.Equal(t, 2, counts["City"])
	assert.Equal(t, 1, counts["Star Wars"])
}

func TestSetIndex_Reindex(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestSets(t, index)

	replacement := []domain.SetMeta{
		{SetNumber: "21318-1", Name: "Tree House", Year: 2019, ThemeName: "Ideas"},
	}
	require.NoError(t, index.Reindex(context.Background(), replacement))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	params := DefaultSearchParams()
	params.Query = "tree"
	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, []string{"21318-1"}, hitNumbers(result))
}

func TestSetHit_Meta(t *testing.T) {
	hit := SetHit{SetNumber: "75192-1", Name: "Millennium Falcon", Year: 2017}
	meta := hit.Meta()

	assert.Equal(t, "https://rebrickable.com/sets/75192-1/", meta.SetURL)
	assert.Equal(t, "Millennium Falcon", meta.Name)
}

func TestSetToDocument(t *testing.T) {
	set := testSets()[1]
	doc := SetToDocument(&set)

	assert.Equal(t, "cafe corner", doc.SearchName)
	assert.Equal(t, "modular buildings", doc.SearchTheme)

	m := doc.ToMap()
	assert.Equal(t, "Café Corner", m["name"])
	assert.NotContains(t, (&SetDocument{SetNumber: "x"}).ToMap(), "year")
}
