package system

import (
	"math/rand"
	"time"

	coresys "github.com/nightwatch/server/internal/core/system"
	"github.com/nightwatch/server/internal/handler"
	"github.com/nightwatch/server/internal/world"
	"go.uber.org/zap"
)

// spawnOffscreenGap is how far left of the leftmost room AI ghosts appear,
// so they drift into view instead of popping in.
const spawnOffscreenGap = 200.0

// SpawnSystem trickles AI ghosts into an active game. A spawn happens only
// when someone is asleep (no prey, no hunters), the global cap has head
// room, and the configured gap since the last spawn has elapsed.
type SpawnSystem struct {
	deps    *handler.Deps
	log     *zap.Logger
	lastAt  time.Time
	spawned int
}

func NewSpawnSystem(deps *handler.Deps, log *zap.Logger) *SpawnSystem {
	return &SpawnSystem{deps: deps, log: log}
}

func (s *SpawnSystem) Phase() coresys.Phase { return coresys.PhaseSpawn }

func (s *SpawnSystem) Update(time.Duration) {
	s.Step(time.Now())
}

func (s *SpawnSystem) Step(now time.Time) {
	if s.deps.World.Phase() != world.PhaseActive {
		return
	}
	cfg := s.deps.Config.Game
	if len(s.deps.World.SleepingPlayers()) == 0 {
		return
	}
	if s.deps.World.GhostCount() >= cfg.GhostCap {
		return
	}
	if !s.lastAt.IsZero() && now.Sub(s.lastAt) < cfg.GhostSpawnGap {
		return
	}

	x, y := s.spawnPoint()
	g := s.deps.World.SpawnGhost("", x, y, cfg.GhostHealth, cfg.GhostSpeed, 0)
	s.lastAt = now
	s.spawned++
	s.log.Debug("ghost spawned",
		zap.String("ghost", g.ID),
		zap.Float64("x", x),
		zap.Float64("y", y),
		zap.Int("alive", s.deps.World.GhostCount()))
}

// spawnPoint is off-screen left of the leftmost room, at a randomized height
// inside that room's vertical extent.
func (s *SpawnSystem) spawnPoint() (float64, float64) {
	rooms := s.deps.World.Rooms()
	leftmost := rooms[0]
	for _, r := range rooms[1:] {
		if r.X < leftmost.X {
			leftmost = r
		}
	}
	x := leftmost.X - spawnOffscreenGap
	y := leftmost.Y + rand.Float64()*leftmost.Height
	return x, y
}
