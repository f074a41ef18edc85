package inventory

import (
	"cmp"
	"slices"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
)

// Aggregate merges records that share an identity key and returns the canonical,
// deterministically ordered inventory.
//
// Within a group quantities are summed and minifig sources are concatenated in
// encounter order. Descriptive fields come from the first record of the group;
// fields it leaves empty are taken from later records.
// Records with a non-positive quantity are ignored.
func Aggregate(records []domain.PartLine) []domain.PartLine {
	index := make(map[domain.PartKey]int, len(records))
	out := make([]domain.PartLine, 0, len(records))

	for _, rec := range records {
		if rec.Quantity <= 0 {
			continue
		}

		key := rec.Key()
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, rec.Clone())
			continue
		}

		merged := &out[i]
		merged.Quantity += rec.Quantity
		merged.MinifigSources = append(merged.MinifigSources, rec.MinifigSources...)
		fillDescriptors(merged, &rec)
	}

	SortLines(out)
	return out
}

// fillDescriptors copies descriptive fields from src into dst where dst has none.
func fillDescriptors(dst, src *domain.PartLine) {
	if dst.PartName == "" {
		dst.PartName = src.PartName
	}
	if dst.ColorName == "" {
		dst.ColorName = src.ColorName
	}
	if dst.ColorRGB == "" {
		dst.ColorRGB = src.ColorRGB
	}
	if dst.ImageURL == "" {
		dst.ImageURL = src.ImageURL
	}
	if dst.Category == "" {
		dst.Category = src.Category
	}
}

// SortLines orders lines for display: regular before spare, unknown color last,
// then by color name, category (empty first) and part name.
// Part number, color ID and the minifig flag break the remaining ties.
func SortLines(lines []domain.PartLine) {
	slices.SortStableFunc(lines, compareLines)
}

func compareLines(a, b domain.PartLine) int {
	if c := compareBool(a.IsSpare, b.IsSpare); c != 0 {
		return c
	}
	if c := compareBool(a.ColorID == domain.UnknownColorID, b.ColorID == domain.UnknownColorID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ColorName, b.ColorName); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Category, b.Category); c != 0 {
		return c
	}
	if c := cmp.Compare(a.PartName, b.PartName); c != 0 {
		return c
	}
	if c := cmp.Compare(a.PartNumber, b.PartNumber); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ColorID, b.ColorID); c != 0 {
		return c
	}
	return compareBool(a.IsMinifigPart, b.IsMinifigPart)
}

// compareBool orders false before true.
func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
