// Package tier assigns each reference image to a size-based acceptance
// class (ICON, MID, BOARD) and holds the per-tier signal thresholds that
// gate admissibility during scoring.
package tier

import "fmt"

// Tier is one of the three size-based acceptance classes.
type Tier string

const (
	ICON  Tier = "ICON"
	MID   Tier = "MID"
	BOARD Tier = "BOARD"
)

// All lists every tier in a fixed, deterministic order.
var All = []Tier{ICON, MID, BOARD}

// Thresholds are the four acceptance gates for a tier. Lower is better
// for the hash distances, higher is better for the similarities.
type Thresholds struct {
	PHashMax     int
	DHashMax     int
	FeatureMin   float64
	FallbackMin  float64
}

// Table maps every tier to its thresholds. Values come from spec.md §4.3
// and are the compiled-in defaults; internal/config may override them.
type Table map[Tier]Thresholds

// Default returns the specification's baseline threshold table.
func Default() Table {
	return Table{
		ICON:  {PHashMax: 16, DHashMax: 16, FeatureMin: 0.08, FallbackMin: 0.82},
		MID:   {PHashMax: 12, DHashMax: 12, FeatureMin: 0.12, FallbackMin: 0.85},
		BOARD: {PHashMax: 10, DHashMax: 10, FeatureMin: 0.15, FallbackMin: 0.88},
	}
}

// Classify assigns a tier from a reference's pixel dimensions, applying
// the first matching rule in spec.md §4.3: BOARD, then ICON, then MID.
func Classify(width, height int) Tier {
	minDim := width
	if height < minDim {
		minDim = height
	}
	area := width * height

	if area >= 250_000 || minDim >= 600 {
		return BOARD
	}
	if minDim < 140 || area < 25_000 {
		return ICON
	}
	return MID
}

// Get returns the thresholds for t, erroring if t is not present in the
// table (only possible with a malformed override table).
func (t Table) Get(tr Tier) (Thresholds, error) {
	th, ok := t[tr]
	if !ok {
		return Thresholds{}, fmt.Errorf("tier: no thresholds configured for %q", tr)
	}
	return th, nil
}
