package system

import (
	"testing"
	"time"

	"github.com/nightwatch/server/internal/world"
	"go.uber.org/zap"
)

func TestSpawnRequiresSleeper(t *testing.T) {
	deps := testDeps(t)
	deps.World.SetPhase(world.PhaseActive)
	sys := NewSpawnSystem(deps, zap.NewNop())

	deps.World.CreatePlayer(1, 100) // awake
	sys.Step(t0)
	if deps.World.GhostCount() != 0 {
		t.Fatal("ghost spawned with nobody asleep")
	}

	sleeperAt(t, deps, 2, 0, 0)
	sys.Step(t0)
	if deps.World.GhostCount() != 1 {
		t.Fatal("no ghost spawned with a sleeper present")
	}
}

func TestSpawnGapAndCap(t *testing.T) {
	deps := testDeps(t)
	deps.World.SetPhase(world.PhaseActive)
	deps.Config.Game.GhostCap = 2
	sys := NewSpawnSystem(deps, zap.NewNop())
	sleeperAt(t, deps, 1, 0, 0)

	sys.Step(t0)
	sys.Step(t0.Add(time.Second)) // inside the gap
	if deps.World.GhostCount() != 1 {
		t.Fatalf("ghost count = %d, gap not enforced", deps.World.GhostCount())
	}

	sys.Step(t0.Add(5 * time.Second))
	if deps.World.GhostCount() != 2 {
		t.Fatalf("ghost count = %d after gap elapsed", deps.World.GhostCount())
	}

	sys.Step(t0.Add(10 * time.Second))
	if deps.World.GhostCount() != 2 {
		t.Fatal("cap exceeded")
	}
}

func TestSpawnPointOffscreenLeft(t *testing.T) {
	deps := testDeps(t)
	deps.World.SetPhase(world.PhaseActive)
	sys := NewSpawnSystem(deps, zap.NewNop())
	sleeperAt(t, deps, 1, 0, 0)

	sys.Step(t0)
	g := deps.World.Ghosts()[0]

	leftmost := deps.World.Rooms()[0]
	for _, r := range deps.World.Rooms()[1:] {
		if r.X < leftmost.X {
			leftmost = r
		}
	}
	if g.X != leftmost.X-spawnOffscreenGap {
		t.Fatalf("spawn x = %f, want %f", g.X, leftmost.X-spawnOffscreenGap)
	}
	if g.Y < leftmost.Y || g.Y > leftmost.Y+leftmost.Height {
		t.Fatalf("spawn y = %f outside room vertical extent", g.Y)
	}
	if g.OwnerID != "" {
		t.Fatal("spawned ghost has an owner")
	}
	if g.Health != deps.Config.Game.GhostHealth {
		t.Fatalf("spawn health = %d", g.Health)
	}
}

func TestSpawnInactivePhase(t *testing.T) {
	deps := testDeps(t)
	sys := NewSpawnSystem(deps, zap.NewNop())
	sleeperAt(t, deps, 1, 0, 0)

	sys.Step(t0) // world still in lobby phase
	if deps.World.GhostCount() != 0 {
		t.Fatal("ghost spawned before the game was active")
	}
}
