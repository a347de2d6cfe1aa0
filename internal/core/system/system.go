package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: accept sessions, drain inbound events
	PhaseSimulation              // 1: scheduled tasks, ghost AI, combat
	PhaseSpawn                   // 2: ghost spawning
	PhaseOutput                  // 3: snapshots + session flush
	PhasePersist                 // 4: stats write-behind
	PhaseCleanup                 // 5: remove dead ghosts and closed sessions
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
