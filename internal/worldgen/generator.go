// Package worldgen produces the fixed set of rooms the server simulates.
// Generation is fully deterministic: the same seed and room count always
// yield byte-identical geometry, so a world can be recreated exactly for
// debugging or replay.
package worldgen

import "fmt"

// Grid and placement tuning. Geometry is expressed in world units; rendering
// conventions never leak in here.
const (
	TileSize = 32.0

	minCols = 8
	maxCols = 14
	minRows = 6
	maxRows = 10

	minBeds = 2
	maxBeds = 4

	anchorX = 120.0
	anchorY = 200.0

	stickChance = 0.35  // probability a room is flush against its predecessor
	stuckGap    = 8.0   // spacing when stuck
	minLooseGap = 60.0  // randomized gap range when not stuck
	maxLooseGap = 220.0
)

// DoorSide is the wall a room's door sits on.
type DoorSide string

const (
	DoorTop    DoorSide = "top"
	DoorBottom DoorSide = "bottom"
	DoorLeft   DoorSide = "left"
	DoorRight  DoorSide = "right"
)

// Room is an immutable room descriptor. Occupancy state lives in the world
// package, not here.
type Room struct {
	ID          int
	X, Y        float64
	Cols, Rows  int
	Width       float64
	Height      float64
	BedCount    int
	DoorSide    DoorSide
	StuckToPrev bool
}

// lcg is a linear-congruential generator (Numerical Recipes constants). It
// is deliberately hand-rolled: the room layout must stay reproducible across
// Go releases, which math/rand does not promise.
type lcg struct {
	state uint64
}

func newLCG(seed int64) *lcg {
	return &lcg{state: uint64(seed)}
}

func (r *lcg) next() uint64 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	return r.state
}

// intn returns a uniform int in [0, n).
func (r *lcg) intn(n int) int {
	return int((r.next() >> 33) % uint64(n))
}

// rangeInt returns a uniform int in [lo, hi].
func (r *lcg) rangeInt(lo, hi int) int {
	return lo + r.intn(hi-lo+1)
}

// float64n returns a uniform float64 in [0, 1).
func (r *lcg) float64n() float64 {
	return float64(r.next()>>11) / float64(1<<53)
}

// Generate builds roomCount rooms left to right from the given seed.
// Invalid inputs are config errors and fail fast.
func Generate(seed int64, roomCount int) ([]Room, error) {
	if seed == 0 {
		return nil, fmt.Errorf("worldgen: seed must be non-zero")
	}
	if roomCount <= 0 {
		return nil, fmt.Errorf("worldgen: room count must be > 0, got %d", roomCount)
	}

	rng := newLCG(seed)
	rooms := make([]Room, 0, roomCount)
	cursorX := anchorX

	for i := 0; i < roomCount; i++ {
		cols := rng.rangeInt(minCols, maxCols)
		rows := rng.rangeInt(minRows, maxRows)

		stuck := false
		if i > 0 {
			prev := rooms[i-1]
			if rng.float64n() < stickChance {
				stuck = true
				cursorX = prev.X + prev.Width + stuckGap
			} else {
				gap := minLooseGap + rng.float64n()*(maxLooseGap-minLooseGap)
				cursorX = prev.X + prev.Width + gap
			}
		}

		room := Room{
			ID:          i,
			X:           cursorX,
			Y:           anchorY,
			Cols:        cols,
			Rows:        rows,
			Width:       float64(cols) * TileSize,
			Height:      float64(rows) * TileSize,
			BedCount:    rng.rangeInt(minBeds, maxBeds),
			DoorSide:    pickDoorSide(rng, stuck),
			StuckToPrev: stuck,
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// pickDoorSide chooses uniformly among the legal walls. A stuck room's left
// wall touches its predecessor, so a left door would open into solid
// geometry and is excluded. If exclusion ever empties the candidate set the
// fallback is {top, bottom}.
func pickDoorSide(rng *lcg, stuck bool) DoorSide {
	candidates := []DoorSide{DoorTop, DoorBottom, DoorLeft, DoorRight}
	if stuck {
		filtered := candidates[:0]
		for _, s := range candidates {
			if s != DoorLeft {
				filtered = append(filtered, s)
			}
		}
		candidates = filtered
	}
	if len(candidates) == 0 {
		candidates = []DoorSide{DoorTop, DoorBottom}
	}
	return candidates[rng.intn(len(candidates))]
}
