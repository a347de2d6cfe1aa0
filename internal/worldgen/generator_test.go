package worldgen

import "testing"

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(42, 8)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := Generate(42, 8)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("room counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("room %d differs between identical seeds:\n%+v\n%+v", i, a[i], b[i])
		}
	}
}

func TestGenerateDifferentSeeds(t *testing.T) {
	a, _ := Generate(1, 6)
	b, _ := Generate(2, 6)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical layouts")
	}
}

func TestGenerateInvalidInputs(t *testing.T) {
	if _, err := Generate(0, 5); err == nil {
		t.Fatal("zero seed accepted")
	}
	if _, err := Generate(7, 0); err == nil {
		t.Fatal("zero room count accepted")
	}
	if _, err := Generate(7, -3); err == nil {
		t.Fatal("negative room count accepted")
	}
}

func TestGenerateGeometry(t *testing.T) {
	rooms, err := Generate(99, 20)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i, r := range rooms {
		if r.ID != i {
			t.Fatalf("room %d has id %d", i, r.ID)
		}
		if r.Cols < minCols || r.Cols > maxCols || r.Rows < minRows || r.Rows > maxRows {
			t.Fatalf("room %d grid out of range: %dx%d", i, r.Cols, r.Rows)
		}
		if r.BedCount < minBeds || r.BedCount > maxBeds {
			t.Fatalf("room %d bed count out of range: %d", i, r.BedCount)
		}
		if r.Width != float64(r.Cols)*TileSize || r.Height != float64(r.Rows)*TileSize {
			t.Fatalf("room %d size does not match grid", i)
		}
		if i > 0 {
			prev := rooms[i-1]
			if r.X <= prev.X+prev.Width-1 {
				t.Fatalf("room %d overlaps its predecessor: x=%f prev ends %f", i, r.X, prev.X+prev.Width)
			}
		}
	}
}

// A room flush against its predecessor must never open its door into the
// shared wall.
func TestStuckRoomsExcludeLeftDoor(t *testing.T) {
	stuckSeen := false
	for seed := int64(1); seed <= 50; seed++ {
		rooms, err := Generate(seed, 12)
		if err != nil {
			t.Fatalf("generate seed %d: %v", seed, err)
		}
		for _, r := range rooms {
			if !r.StuckToPrev {
				continue
			}
			stuckSeen = true
			if r.DoorSide == DoorLeft {
				t.Fatalf("seed %d room %d: stuck room has a left door", seed, r.ID)
			}
		}
	}
	if !stuckSeen {
		t.Fatal("no stuck rooms generated across 50 seeds, stick chance broken")
	}
}

func TestFirstRoomNeverStuck(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rooms, _ := Generate(seed, 4)
		if rooms[0].StuckToPrev {
			t.Fatalf("seed %d: first room marked stuck", seed)
		}
		if rooms[0].X != anchorX {
			t.Fatalf("seed %d: first room not anchored, x=%f", seed, rooms[0].X)
		}
	}
}
