package system

import (
	"time"

	coresys "github.com/nightwatch/server/internal/core/system"
	"github.com/nightwatch/server/internal/handler"
	"go.uber.org/zap"
)

// CleanupSystem reaps ghosts flagged dead during the tick. Removal is
// deferred to here so every other system can iterate the ghost list without
// it shifting under them.
type CleanupSystem struct {
	deps *handler.Deps
	log  *zap.Logger
}

func NewCleanupSystem(deps *handler.Deps, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{deps: deps, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(time.Duration) {
	reaped := s.deps.World.ReapDeadGhosts()
	if len(reaped) == 0 {
		return
	}
	for _, g := range reaped {
		if g.OwnerID != "" {
			if owner := s.deps.World.GetPlayer(g.OwnerID); owner != nil && owner.GhostID == g.ID {
				owner.GhostID = ""
			}
		}
		s.log.Debug("ghost reaped", zap.String("ghost", g.ID))
	}
	// Immediate roster push so clients drop the sprites without waiting for
	// the next scheduled ghost_update.
	handler.BroadcastAll(s.deps.World, "ghost_update", map[string]any{
		"ghosts": handler.BuildGhostList(s.deps.World),
	})
}
