package system

import (
	"time"

	coresys "github.com/nightwatch/server/internal/core/system"
	"github.com/nightwatch/server/internal/handler"
	"github.com/nightwatch/server/internal/world"
)

// BroadcastSystem pushes periodic state to every client while a game is
// active. The full snapshot goes out on a slow cadence as a resync safety
// net; the lightweight ghost list goes out far more often because ghosts
// move every tick.
type BroadcastSystem struct {
	deps *handler.Deps

	lastSnapshot time.Time
	lastGhost    time.Time
}

func NewBroadcastSystem(deps *handler.Deps) *BroadcastSystem {
	return &BroadcastSystem{deps: deps}
}

func (s *BroadcastSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *BroadcastSystem) Update(time.Duration) {
	s.Step(time.Now())
}

func (s *BroadcastSystem) Step(now time.Time) {
	if s.deps.World.Phase() != world.PhaseActive {
		return
	}
	cfg := s.deps.Config.Game

	if s.lastGhost.IsZero() || now.Sub(s.lastGhost) >= cfg.GhostUpdateEvery {
		s.lastGhost = now
		handler.BroadcastAll(s.deps.World, "ghost_update", map[string]any{
			"ghosts": handler.BuildGhostList(s.deps.World),
		})
	}

	if s.lastSnapshot.IsZero() || now.Sub(s.lastSnapshot) >= cfg.BroadcastInterval {
		s.lastSnapshot = now
		handler.BroadcastAll(s.deps.World, "game_state", handler.BuildSnapshot(s.deps.World, now))
	}
}
