package engine

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// DefaultGridSize is the side length of the battlefield plane.
const DefaultGridSize = 100.0

// GenerateTerrain derives the terrain modifier bag for a fresh battlefield
// from layered noise fields. Deterministic for a given seed. The key set is
// deliberately extensible; current keys: mud, cover, visibility, elevation.
func GenerateTerrain(seed int64) map[string]float64 {
	mudNoise := opensimplex.NewNormalized(seed)
	coverNoise := opensimplex.NewNormalized(seed + 1)
	visNoise := opensimplex.NewNormalized(seed + 2)
	elevNoise := opensimplex.NewNormalized(seed + 3)

	// Sample each field at the battlefield center; one scalar per modifier
	// is all the judge and the sitrep consume today.
	cx, cz := DefaultGridSize/2, DefaultGridSize/2

	return map[string]float64{
		"mud":        round3(mudNoise.Eval2(cx*0.01, cz*0.01)),
		"cover":      round3(coverNoise.Eval2(cx*0.02, cz*0.02)),
		"visibility": round3(0.5 + visNoise.Eval2(cx*0.015, cz*0.015)*0.5),
		"elevation":  round3(elevNoise.Eval2(cx*0.005, cz*0.005)),
	}
}

// AllSectors returns the full 3x3 visible-sector mask (sectors 1 through 9,
// keypad layout) for a battlefield with no fog of war yet.
func AllSectors() []int {
	return []int{1, 2, 3, 4, 5, 6, 7, 8, 9}
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
