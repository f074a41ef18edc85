package inventory

import (
	"fmt"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
)

// Modification overrides the quantity of one inventory line.
// A zero Quantity removes the line from the effective inventory.
// Line carries descriptive data for parts the canonical inventory does not contain.
type Modification struct {
	Quantity int
	Line     *domain.PartLine
}

// Modifications is a sparse override map. A key that is absent inherits the
// canonical quantity; a key that is present replaces it, zero included.
type Modifications map[domain.PartKey]Modification

// ApplyModifications produces the effective inventory for a canonical inventory
// and a set of overrides.
//
// Canonical lines keep their position; overridden quantities replace the canonical
// ones and lines overridden to zero are dropped. Overrides for keys the canonical
// inventory lacks are appended when positive, described by Modification.Line or,
// failing that, by the key alone. Appended lines are ordered like canonical ones.
func ApplyModifications(canonical []domain.PartLine, mods Modifications) []domain.PartLine {
	out := make([]domain.PartLine, 0, len(canonical)+len(mods))
	known := make(map[domain.PartKey]struct{}, len(canonical))

	for _, line := range canonical {
		key := line.Key()
		known[key] = struct{}{}

		mod, ok := mods[key]
		if !ok {
			out = append(out, line.Clone())
			continue
		}
		if mod.Quantity <= 0 {
			continue
		}
		effective := line.Clone()
		effective.Quantity = mod.Quantity
		out = append(out, effective)
	}

	var added []domain.PartLine
	for key, mod := range mods {
		if _, ok := known[key]; ok || mod.Quantity <= 0 {
			continue
		}
		added = append(added, lineFor(key, mod))
	}
	SortLines(added)

	return append(out, added...)
}

// ComputeModifications returns the overrides that turn canonical into desired.
//
// A key is recorded when its desired quantity differs from the canonical one.
// Canonical keys missing from desired count as desired zero and are recorded as
// explicit removals. Keys outside the canonical inventory are recorded only with a
// positive quantity. If desired repeats a key, the last occurrence wins.
func ComputeModifications(canonical, desired []domain.PartLine) Modifications {
	base := quantities(canonical)
	want := make(map[domain.PartKey]domain.PartLine, len(desired))
	for _, line := range desired {
		want[line.Key()] = line
	}

	mods := make(Modifications)
	for key, qty := range base {
		line, ok := want[key]
		if !ok {
			mods[key] = Modification{Quantity: 0}
			continue
		}
		if line.Quantity != qty {
			mods[key] = Modification{Quantity: max(line.Quantity, 0)}
		}
	}

	for key, line := range want {
		if _, ok := base[key]; ok || line.Quantity <= 0 {
			continue
		}
		l := line.Clone()
		mods[key] = Modification{Quantity: line.Quantity, Line: &l}
	}

	return mods
}

// Normalize drops overrides that change nothing: canonical keys set to their
// canonical quantity and non-canonical keys set to zero.
func (m Modifications) Normalize(canonical []domain.PartLine) Modifications {
	base := quantities(canonical)
	out := make(Modifications, len(m))
	for key, mod := range m {
		qty, known := base[key]
		switch {
		case known && mod.Quantity == qty:
			continue
		case !known && mod.Quantity <= 0:
			continue
		}
		out[key] = mod
	}
	return out
}

// Encode returns the overrides keyed by their external string form.
func (m Modifications) Encode() map[string]int {
	out := make(map[string]int, len(m))
	for key, mod := range m {
		out[key.Encode()] = mod.Quantity
	}
	return out
}

// DecodeModifications parses externally keyed overrides.
// Keys may use either the four-field or the legacy two-field encoding.
// When two keys decode to the same identity, the error reports the collision.
func DecodeModifications(raw map[string]int) (Modifications, error) {
	mods := make(Modifications, len(raw))
	for s, qty := range raw {
		key, err := domain.ParsePartKey(s)
		if err != nil {
			return nil, err
		}
		if qty < 0 {
			return nil, fmt.Errorf("quantity for %q must not be negative", s)
		}
		if _, dup := mods[key]; dup {
			return nil, fmt.Errorf("%w: %q duplicates %q", domain.ErrInvalidPartKey, s, key.Encode())
		}
		mods[key] = Modification{Quantity: qty}
	}
	return mods, nil
}

func quantities(lines []domain.PartLine) map[domain.PartKey]int {
	out := make(map[domain.PartKey]int, len(lines))
	for _, line := range lines {
		out[line.Key()] += line.Quantity
	}
	return out
}

func lineFor(key domain.PartKey, mod Modification) domain.PartLine {
	var line domain.PartLine
	if mod.Line != nil {
		line = mod.Line.Clone()
	}
	line.PartNumber = key.PartNumber
	line.ColorID = key.ColorID
	line.IsSpare = key.IsSpare
	line.IsMinifigPart = key.IsMinifig
	line.Quantity = mod.Quantity
	return line
}
