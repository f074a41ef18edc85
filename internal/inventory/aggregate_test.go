package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
)

func brick(part string, color int, colorName string, qty int) domain.PartLine {
	return domain.PartLine{
		PartNumber: part,
		PartName:   "Brick " + part,
		ColorID:    color,
		ColorName:  colorName,
		Quantity:   qty,
		Category:   "Bricks",
	}
}

// byKey indexes lines by identity key, failing on duplicates.
func byKey(t *testing.T, lines []domain.PartLine) map[domain.PartKey]domain.PartLine {
	t.Helper()
	out := make(map[domain.PartKey]domain.PartLine, len(lines))
	for _, l := range lines {
		_, dup := out[l.Key()]
		require.False(t, dup, "duplicate identity key %s", l.Key())
		out[l.Key()] = l
	}
	return out
}

func TestAggregate_MergesByIdentityKey(t *testing.T) {
	lines := Aggregate([]domain.PartLine{
		brick("3001", 1, "Blue", 2),
		brick("3001", 1, "Blue", 3),
		brick("3001", 4, "Red", 1),
	})

	require.Len(t, lines, 2)
	got := byKey(t, lines)
	assert.Equal(t, 5, got[domain.PartKey{PartNumber: "3001", ColorID: 1}].Quantity)
	assert.Equal(t, 1, got[domain.PartKey{PartNumber: "3001", ColorID: 4}].Quantity)
}

func TestAggregate_Idempotent(t *testing.T) {
	input := []domain.PartLine{
		brick("3001", 4, "Red", 2),
		brick("3003", 1, "Blue", 4),
		brick("3020", 9999, "[Unknown]", 1),
	}

	once := Aggregate(input)
	twice := Aggregate(once)

	assert.Equal(t, once, twice)
	assert.ElementsMatch(t, input, once)
}

func TestAggregate_AssociativeAndCommutative(t *testing.T) {
	a := brick("3001", 1, "Blue", 2)
	b := brick("3001", 1, "Blue", 5)
	c := brick("3002", 1, "Blue", 1)

	stepwise := Aggregate(append(Aggregate([]domain.PartLine{a, b}), c))
	all := Aggregate([]domain.PartLine{a, b, c})
	reversed := Aggregate([]domain.PartLine{c, b, a})

	assert.Equal(t, all, stepwise)
	assert.Equal(t, all, reversed)
	assert.Equal(t, 7, byKey(t, all)[a.Key()].Quantity)
}

func TestAggregate_ConcatenatesMinifigSources(t *testing.T) {
	head := domain.PartLine{PartNumber: "3626c", PartName: "Head", ColorID: 14, ColorName: "Yellow", Quantity: 1}

	first := ExpandMinifig(domain.MinifigRef{Number: "fig-1", Name: "Pilot", QuantityInSet: 1}, []domain.PartLine{head})
	second := ExpandMinifig(domain.MinifigRef{Number: "fig-2", Name: "Mechanic", QuantityInSet: 2}, []domain.PartLine{head})

	lines := Aggregate(append(first, second...))

	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	require.Len(t, lines[0].MinifigSources, 2)
	assert.Equal(t, "fig-1", lines[0].MinifigSources[0].MinifigNumber)
	assert.Equal(t, "fig-2", lines[0].MinifigSources[1].MinifigNumber)
	assert.Equal(t, 2, lines[0].MinifigSources[1].Quantity)
}

func TestAggregate_DescriptorsFromFirstRecord(t *testing.T) {
	first := domain.PartLine{PartNumber: "3001", ColorID: 1, PartName: "Brick 2 x 4", Quantity: 1}
	second := domain.PartLine{PartNumber: "3001", ColorID: 1, PartName: "Other name", ColorName: "Blue", ImageURL: "img", Quantity: 1}

	lines := Aggregate([]domain.PartLine{first, second})

	require.Len(t, lines, 1)
	assert.Equal(t, "Brick 2 x 4", lines[0].PartName)
	assert.Equal(t, "Blue", lines[0].ColorName)
	assert.Equal(t, "img", lines[0].ImageURL)
}

func TestAggregate_SkipsNonPositiveQuantities(t *testing.T) {
	lines := Aggregate([]domain.PartLine{brick("3001", 1, "Blue", 0), brick("3002", 1, "Blue", -2)})
	assert.Empty(t, lines)
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	src := []domain.PartLine{
		{PartNumber: "x", ColorID: 1, Quantity: 1, MinifigSources: []domain.MinifigSource{{MinifigNumber: "a", Quantity: 1}}},
		{PartNumber: "x", ColorID: 1, Quantity: 1, MinifigSources: []domain.MinifigSource{{MinifigNumber: "b", Quantity: 1}}},
	}

	Aggregate(src)

	assert.Equal(t, 1, src[0].Quantity)
	assert.Len(t, src[0].MinifigSources, 1)
}

func TestSortLines_RegularBeforeSpare(t *testing.T) {
	regular := domain.PartLine{PartNumber: "3001", ColorID: 4, ColorName: "Red", Category: "Bricks", PartName: "Brick 2x4", Quantity: 1}
	spare := regular
	spare.IsSpare = true

	lines := Aggregate([]domain.PartLine{spare, regular})

	require.Len(t, lines, 2)
	assert.False(t, lines[0].IsSpare)
	assert.True(t, lines[1].IsSpare)
}

func TestSortLines_Order(t *testing.T) {
	lines := []domain.PartLine{
		{PartNumber: "s1", ColorID: 1, ColorName: "Blue", PartName: "A", IsSpare: true, Quantity: 1},
		{PartNumber: "u1", ColorID: domain.UnknownColorID, ColorName: "[Unknown]", PartName: "A", Quantity: 1},
		{PartNumber: "r2", ColorID: 4, ColorName: "Red", Category: "Plates", PartName: "A", Quantity: 1},
		{PartNumber: "r1", ColorID: 4, ColorName: "Red", Category: "Bricks", PartName: "B", Quantity: 1},
		{PartNumber: "r0", ColorID: 4, ColorName: "Red", Category: "", PartName: "Z", Quantity: 1},
		{PartNumber: "b1", ColorID: 1, ColorName: "Blue", PartName: "C", Quantity: 1},
	}

	SortLines(lines)

	var order []string
	for _, l := range lines {
		order = append(order, l.PartNumber)
	}
	assert.Equal(t, []string{"b1", "r0", "r1", "r2", "u1", "s1"}, order)
}

func TestExpandMinifig_ScalesByQuantityInSet(t *testing.T) {
	ref := domain.MinifigRef{Number: "fig-000123", Name: "Astronaut", QuantityInSet: 3}
	parts := []domain.PartLine{{PartNumber: "P", ColorID: 1, Quantity: 2}}

	lines := ExpandMinifig(ref, parts)

	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, 6, line.Quantity)
	assert.True(t, line.IsMinifigPart)
	require.Len(t, line.MinifigSources, 1)

	src := line.MinifigSources[0]
	assert.Equal(t, "fig-000123", src.MinifigNumber)
	assert.Equal(t, "Astronaut", src.MinifigName)
	assert.Equal(t, 6, src.Quantity, "merged total contributed by the figure")
	assert.Equal(t, 3, src.QuantityInSet)
	assert.Equal(t, 2, src.PerFigure, "per-occurrence quantity")

	assert.False(t, parts[0].IsMinifigPart, "input must not be modified")
}

func TestExpandMinifig_TreatsMissingQuantityAsOne(t *testing.T) {
	lines := ExpandMinifig(domain.MinifigRef{Number: "fig"}, []domain.PartLine{{PartNumber: "P", Quantity: 2}})
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

// A set-level part and a minifig-derived part with the same part and color
// stay separate lines, because the minifig flag is part of the identity key.
func TestAggregate_SetAndMinifigLinesStayDistinct(t *testing.T) {
	setLine := domain.PartLine{PartNumber: "3001", ColorID: 1, ColorName: "Blue", Quantity: 4}
	fig := domain.MinifigRef{Number: "fig-1", Name: "Figure", QuantityInSet: 2}
	figLines := ExpandMinifig(fig, []domain.PartLine{{PartNumber: "3001", ColorID: 1, ColorName: "Blue", Quantity: 1}})

	lines := Aggregate(append([]domain.PartLine{setLine}, figLines...))

	require.Len(t, lines, 2)
	got := byKey(t, lines)
	assert.Equal(t, 4, got[domain.PartKey{PartNumber: "3001", ColorID: 1}].Quantity)
	minifigLine := got[domain.PartKey{PartNumber: "3001", ColorID: 1, IsMinifig: true}]
	assert.Equal(t, 2, minifigLine.Quantity)
	assert.Equal(t, 2, minifigLine.MinifigSources[0].Quantity)

	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	assert.Equal(t, 6, total)
}
