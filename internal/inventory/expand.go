// Package inventory builds canonical set inventories and reconciles user modifications against them.
package inventory

import "github.com/brickcomplete/brickcomplete-server/internal/domain"

// ExpandMinifig turns the per-figure parts of one minifigure into set-level demand.
// Each quantity is multiplied by the number of copies of the figure in the set,
// the line is tagged as a minifig part, and the figure is recorded as its source.
func ExpandMinifig(ref domain.MinifigRef, parts []domain.PartLine) []domain.PartLine {
	copies := ref.QuantityInSet
	if copies <= 0 {
		copies = 1
	}

	out := make([]domain.PartLine, 0, len(parts))
	for _, p := range parts {
		if p.Quantity <= 0 {
			continue
		}

		line := p.Clone()
		line.Quantity = p.Quantity * copies
		line.IsMinifigPart = true
		line.MinifigSources = []domain.MinifigSource{{
			MinifigNumber: ref.Number,
			MinifigName:   ref.Name,
			Quantity:      line.Quantity,
			QuantityInSet: copies,
			PerFigure:     p.Quantity,
		}}
		out = append(out, line)
	}
	return out
}

// expandFetched flattens an upstream set into set-level and minifig-level lines.
func expandFetched(f *domain.FetchedSet) []domain.PartLine {
	lines := make([]domain.PartLine, 0, len(f.Parts))
	for _, p := range f.Parts {
		lines = append(lines, p.Clone())
	}
	for _, fig := range f.Minifigs {
		lines = append(lines, ExpandMinifig(fig.MinifigRef, fig.Parts)...)
	}
	return lines
}

// normalizeFetched merges duplicate upstream records so each persisted row is
// written once with its full quantity.
func normalizeFetched(f *domain.FetchedSet) *domain.FetchedSet {
	out := &domain.FetchedSet{
		Set:      f.Set,
		Parts:    Aggregate(f.Parts),
		Minifigs: make([]domain.FetchedMinifig, 0, len(f.Minifigs)),
	}
	for _, fig := range f.Minifigs {
		out.Minifigs = append(out.Minifigs, domain.FetchedMinifig{
			MinifigRef: fig.MinifigRef,
			Parts:      Aggregate(fig.Parts),
		})
	}
	return out
}
