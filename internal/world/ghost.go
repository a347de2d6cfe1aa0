package world

import (
	"time"
)

// GhostState is the per-tick AI state of a ghost.
type GhostState string

const (
	GhostSeeking   GhostState = "seeking"
	GhostAttacking GhostState = "attacking" // transient, resolved within one tick
)

// GhostInfo is one live ghost, AI- or player-controlled. Accessed only from
// the game loop goroutine.
type GhostInfo struct {
	ID      string
	OwnerID string // player id; "" = AI-controlled

	X, Y      float64
	Health    int
	MaxHealth int
	Speed     float64 // world units per simulation tick
	State     GhostState

	// TargetID references a player by id, re-resolved live every tick —
	// never a cached pointer, so disconnects are harmless.
	TargetID string

	// Ability resources (player-controlled ghosts).
	Energy    float64
	MaxEnergy float64
	Cooldowns map[string]time.Time // ability name → next allowed use

	SpeedBurstUntil time.Time
	SpeedBurstMult  float64
	PhasedUntil     time.Time // towers cannot hit a phased ghost

	Dead bool // marked by combat, reaped by CleanupSystem
}

// EffectiveSpeed returns the ghost's per-tick speed including any active
// burst.
func (g *GhostInfo) EffectiveSpeed(now time.Time) float64 {
	if now.Before(g.SpeedBurstUntil) && g.SpeedBurstMult > 0 {
		return g.Speed * g.SpeedBurstMult
	}
	return g.Speed
}

// Phased reports whether the ghost is currently immune to tower fire.
func (g *GhostInfo) Phased(now time.Time) bool {
	return now.Before(g.PhasedUntil)
}

// OnCooldown reports whether an ability is still cooling down.
func (g *GhostInfo) OnCooldown(ability string, now time.Time) bool {
	if g.Cooldowns == nil {
		return false
	}
	return now.Before(g.Cooldowns[ability])
}

// StartCooldown stamps an ability's next allowed use.
func (g *GhostInfo) StartCooldown(ability string, now time.Time, d time.Duration) {
	if g.Cooldowns == nil {
		g.Cooldowns = make(map[string]time.Time, 4)
	}
	g.Cooldowns[ability] = now.Add(d)
}
