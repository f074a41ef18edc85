package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Markers used in encoded part keys.
const (
	partKeySeparator = "_"
	markerRegular    = "regular"
	markerSpare      = "spare"
	markerNormal     = "normal"
	markerMinifig    = "minifig"
)

// ErrInvalidPartKey is returned when an encoded part key cannot be parsed.
var ErrInvalidPartKey = errors.New("invalid part key")

// PartKey is the identity of an inventory line.
// Two records with the same key describe the same line and must be merged.
type PartKey struct {
	PartNumber string
	ColorID    int
	IsSpare    bool
	IsMinifig  bool
}

// Encode returns the external string form, e.g. "3001_1_regular_normal".
func (k PartKey) Encode() string {
	spare := markerRegular
	if k.IsSpare {
		spare = markerSpare
	}
	minifig := markerNormal
	if k.IsMinifig {
		minifig = markerMinifig
	}
	return strings.Join([]string{k.PartNumber, strconv.Itoa(k.ColorID), spare, minifig}, partKeySeparator)
}

// String implements fmt.Stringer.
func (k PartKey) String() string {
	return k.Encode()
}

// ParsePartKey decodes an encoded part key.
// Both the four-field form and the legacy "part_color" form are accepted;
// the legacy form means a regular, non-minifig line.
// Parsing works from the right so part numbers may themselves contain underscores.
func ParsePartKey(s string) (PartKey, error) {
	fields := strings.Split(s, partKeySeparator)

	if n := len(fields); n >= 4 {
		spare, spareOK := parseSpareMarker(fields[n-2])
		minifig, minifigOK := parseMinifigMarker(fields[n-1])
		if spareOK && minifigOK {
			return newPartKey(s, fields[:n-3], fields[n-3], spare, minifig)
		}
	}

	if n := len(fields); n >= 2 {
		return newPartKey(s, fields[:n-1], fields[n-1], false, false)
	}

	return PartKey{}, fmt.Errorf("%w: %q", ErrInvalidPartKey, s)
}

func newPartKey(raw string, partFields []string, color string, spare, minifig bool) (PartKey, error) {
	part := strings.Join(partFields, partKeySeparator)
	if part == "" {
		return PartKey{}, fmt.Errorf("%w: %q has no part number", ErrInvalidPartKey, raw)
	}
	colorID, err := strconv.Atoi(color)
	if err != nil {
		return PartKey{}, fmt.Errorf("%w: %q has non-numeric color %q", ErrInvalidPartKey, raw, color)
	}
	return PartKey{
		PartNumber: part,
		ColorID:    colorID,
		IsSpare:    spare,
		IsMinifig:  minifig,
	}, nil
}

func parseSpareMarker(s string) (spare, ok bool) {
	switch s {
	case markerRegular:
		return false, true
	case markerSpare:
		return true, true
	}
	return false, false
}

func parseMinifigMarker(s string) (minifig, ok bool) {
	switch s {
	case markerNormal:
		return false, true
	case markerMinifig:
		return true, true
	}
	return false, false
}
