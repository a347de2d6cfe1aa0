package world

import (
	"testing"
	"time"

	"github.com/nightwatch/server/internal/worldgen"
)

func testRoom() *RoomInfo {
	return NewRoomInfo(worldgen.Room{
		ID:       0,
		X:        100,
		Y:        200,
		Cols:     10,
		Rows:     8,
		Width:    10 * worldgen.TileSize,
		Height:   8 * worldgen.TileSize,
		BedCount: 3,
	})
}

func TestBedExclusive(t *testing.T) {
	r := testRoom()
	now := time.Now()

	if !r.OccupyBed("alice", 1, now) {
		t.Fatal("first occupy rejected")
	}
	if r.OccupyBed("bob", 1, now) {
		t.Fatal("second occupy of the same bed accepted")
	}
	if got := r.BedOccupant(1); got != "alice" {
		t.Fatalf("occupant = %q, want alice", got)
	}
	if !r.OccupyBed("bob", 2, now) {
		t.Fatal("occupy of a free bed rejected")
	}

	if idx := r.ReleaseBed("alice"); idx != 1 {
		t.Fatalf("release returned %d, want 1", idx)
	}
	if r.BedOccupant(1) != "" {
		t.Fatal("bed still occupied after release")
	}
	if !r.OccupyBed("carol", 1, now) {
		t.Fatal("re-occupy of a released bed rejected")
	}
}

func TestOccupyBedBounds(t *testing.T) {
	r := testRoom()
	if r.OccupyBed("alice", -1, time.Now()) {
		t.Fatal("negative bed index accepted")
	}
	if r.OccupyBed("alice", 3, time.Now()) {
		t.Fatal("bed index >= BedCount accepted")
	}
}

func TestBedTiles(t *testing.T) {
	r := testRoom()
	// Beds line row 0, columns 1..BedCount.
	for col := 1; col <= 3; col++ {
		if !r.IsBedTile(col, 0) {
			t.Fatalf("col %d row 0 should be a bed tile", col)
		}
	}
	if r.IsBedTile(0, 0) || r.IsBedTile(4, 0) || r.IsBedTile(1, 1) {
		t.Fatal("non-bed tile reported as bed")
	}
}

func TestTileWorldPos(t *testing.T) {
	r := testRoom()
	x, y := r.TileWorldPos(0, 0)
	wantX := 100 + 0.5*worldgen.TileSize
	wantY := 200 + 0.5*worldgen.TileSize
	if x != wantX || y != wantY {
		t.Fatalf("tile (0,0) at %f,%f want %f,%f", x, y, wantX, wantY)
	}

	bx, by := r.BedWorldPos(0)
	tx, ty := r.TileWorldPos(1, 0)
	if bx != tx || by != ty {
		t.Fatalf("bed 0 at %f,%f want tile (1,0) at %f,%f", bx, by, tx, ty)
	}
}
