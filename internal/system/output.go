package system

import (
	"time"

	coresys "github.com/nightwatch/server/internal/core/system"
	"github.com/nightwatch/server/internal/handler"
	"github.com/nightwatch/server/internal/world"
)

// OutputSystem flushes every session's buffered output at the end of the
// tick. Handlers and simulation only ever append to per-session buffers;
// this is the single point where bytes actually leave the game loop.
type OutputSystem struct {
	deps *handler.Deps
}

func NewOutputSystem(deps *handler.Deps) *OutputSystem {
	return &OutputSystem{deps: deps}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(time.Duration) {
	s.deps.World.AllPlayers(func(p *world.PlayerInfo) {
		if p.Session != nil {
			p.Session.FlushOutput()
		}
	})
}
