package world

import (
	"time"

	"github.com/nightwatch/server/internal/worldgen"
)

// BedSlot records one occupied bed.
type BedSlot struct {
	PlayerID   string
	BedIndex   int
	OccupiedAt time.Time
}

// TowerInfo is one placed tower. Towers never move; they are removed only
// with their room (server lifetime) — destruction is not in scope.
type TowerInfo struct {
	ID      string
	OwnerID string
	RoomID  int
	Col     int
	Row     int
	Type    string

	Damage      int
	Range       float64
	FireRate    time.Duration
	LastFiredAt time.Time // zero value = immediately eligible to fire
}

// RoomInfo wraps immutable generated geometry with the room's mutable
// occupancy (beds, towers). Accessed only from the game loop goroutine.
type RoomInfo struct {
	worldgen.Room

	OccupiedBeds []BedSlot
	Towers       []*TowerInfo
}

// NewRoomInfo builds the mutable room wrapper around generated geometry.
func NewRoomInfo(geom worldgen.Room) *RoomInfo {
	return &RoomInfo{Room: geom}
}

// InBounds reports whether a grid tile lies inside the room.
func (r *RoomInfo) InBounds(col, row int) bool {
	return col >= 0 && col < r.Cols && row >= 0 && row < r.Rows
}

// IsBedTile reports whether a tile is reserved for beds. Beds line the top
// wall: row 0, columns 1..BedCount.
func (r *RoomInfo) IsBedTile(col, row int) bool {
	return row == 0 && col >= 1 && col <= r.BedCount
}

// TileWorldPos returns the world-space center of a grid tile. Pure geometry;
// no rendering convention involved.
func (r *RoomInfo) TileWorldPos(col, row int) (float64, float64) {
	x := r.X + (float64(col)+0.5)*worldgen.TileSize
	y := r.Y + (float64(row)+0.5)*worldgen.TileSize
	return x, y
}

// BedWorldPos returns the world-space position of a bed slot.
func (r *RoomInfo) BedWorldPos(bedIndex int) (float64, float64) {
	return r.TileWorldPos(1+bedIndex, 0)
}

// TowerAt returns the tower on a tile, or nil.
func (r *RoomInfo) TowerAt(col, row int) *TowerInfo {
	for _, t := range r.Towers {
		if t.Col == col && t.Row == row {
			return t
		}
	}
	return nil
}

// BedOccupant returns the player id occupying a bed index, or "".
func (r *RoomInfo) BedOccupant(bedIndex int) string {
	for _, b := range r.OccupiedBeds {
		if b.BedIndex == bedIndex {
			return b.PlayerID
		}
	}
	return ""
}

// OccupyBed claims a bed for a player. Returns false when the index is out
// of range or already taken; state is untouched on rejection.
func (r *RoomInfo) OccupyBed(playerID string, bedIndex int, now time.Time) bool {
	if bedIndex < 0 || bedIndex >= r.BedCount {
		return false
	}
	if r.BedOccupant(bedIndex) != "" {
		return false
	}
	r.OccupiedBeds = append(r.OccupiedBeds, BedSlot{
		PlayerID:   playerID,
		BedIndex:   bedIndex,
		OccupiedAt: now,
	})
	return true
}

// ReleaseBed frees whatever bed the player holds in this room. Returns the
// freed index, or -1 if the player held none.
func (r *RoomInfo) ReleaseBed(playerID string) int {
	for i, b := range r.OccupiedBeds {
		if b.PlayerID == playerID {
			idx := b.BedIndex
			r.OccupiedBeds = append(r.OccupiedBeds[:i], r.OccupiedBeds[i+1:]...)
			return idx
		}
	}
	return -1
}
