package system

import (
	"time"

	"github.com/nightwatch/server/internal/core/sched"
	coresys "github.com/nightwatch/server/internal/core/system"
)

// SchedSystem fires due scheduled tasks (sleep earnings, lobby countdown) on
// the game loop. Registered at the head of the simulation phase so task
// effects are visible to the AI pass in the same tick.
type SchedSystem struct {
	reg *sched.Registry
}

func NewSchedSystem(reg *sched.Registry) *SchedSystem {
	return &SchedSystem{reg: reg}
}

func (s *SchedSystem) Phase() coresys.Phase { return coresys.PhaseSimulation }

func (s *SchedSystem) Update(_ time.Duration) {
	s.reg.Run(time.Now())
}
