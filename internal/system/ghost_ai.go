package system

import (
	"math"
	"math/rand"
	"time"

	"github.com/nightwatch/server/internal/core/event"
	coresys "github.com/nightwatch/server/internal/core/system"
	"github.com/nightwatch/server/internal/handler"
	"github.com/nightwatch/server/internal/scripting"
	"github.com/nightwatch/server/internal/world"
	"go.uber.org/zap"
)

// wanderJitter is the per-tick random drift of a targetless ghost.
const wanderJitter = 1.5

// GhostAISystem advances every live ghost once per simulation tick:
// tower damage pass, targeting, movement, attack resolution, energy regen.
// Go does the sensing and command execution; the Lua layer (when loaded)
// makes the chase/wander/retreat decision, mirroring how guard-style
// entities fall back to pure Go logic.
type GhostAISystem struct {
	deps *handler.Deps
	log  *zap.Logger
}

func NewGhostAISystem(deps *handler.Deps, log *zap.Logger) *GhostAISystem {
	return &GhostAISystem{deps: deps, log: log}
}

func (s *GhostAISystem) Phase() coresys.Phase { return coresys.PhaseSimulation }

func (s *GhostAISystem) Update(dt time.Duration) {
	if s.deps.World.Phase() != world.PhaseActive {
		return
	}
	s.Step(time.Now(), dt)
}

// Step runs one AI tick at an explicit time. Split from Update so tests can
// drive it deterministically.
func (s *GhostAISystem) Step(now time.Time, dt time.Duration) {
	for _, g := range s.deps.World.Ghosts() {
		if g.Dead {
			continue
		}

		// 1. Damage from towers. Phased ghosts slip through untouched.
		if !g.Phased(now) {
			if s.damagePass(g, now) {
				continue // destroyed; bounty already paid by the resolver
			}
		}

		// 2-3. Targeting and movement apply only to AI-driven ghosts;
		// player ghosts move from input.
		if g.OwnerID == "" {
			s.steer(g, now)
		} else {
			s.regenEnergy(g, dt)
		}

		// 4. Attack resolution applies uniformly.
		s.resolveAttack(g, now)
	}
}

// damagePass scans towers covering the ghost, then applies fire after the
// scan. Multiple towers may hit the same ghost in one tick; the pass stops
// at the killing blow. Returns true when the ghost died.
func (s *GhostAISystem) damagePass(g *world.GhostInfo, now time.Time) bool {
	candidates := s.deps.Resolver.TowersCovering(g.X, g.Y)
	var eligible []*world.TowerInfo
	for _, t := range candidates {
		if s.deps.Resolver.CanFire(t, now) {
			eligible = append(eligible, t)
		}
	}
	for _, t := range eligible {
		if s.deps.Resolver.Fire(t, g, now) {
			return true
		}
	}
	return false
}

// steer picks a target and moves an AI ghost.
func (s *GhostAISystem) steer(g *world.GhostInfo, now time.Time) {
	target := s.deps.World.NearestSleeper(g.X, g.Y)
	if target == nil {
		g.TargetID = ""
		g.State = world.GhostSeeking
		s.wander(g)
		return
	}
	g.TargetID = target.ID

	action := "chase"
	if s.deps.Scripting != nil {
		dist := math.Hypot(target.X-g.X, target.Y-g.Y)
		if dec, ok := s.deps.Scripting.GhostDecide(scripting.GhostContext{
			GhostX:       g.X,
			GhostY:       g.Y,
			HealthPct:    float64(g.Health) / float64(g.MaxHealth),
			HasTarget:    true,
			TargetX:      target.X,
			TargetY:      target.Y,
			TargetDist:   dist,
			SleeperCount: len(s.deps.World.SleepingPlayers()),
		}); ok {
			action = dec.Action
		}
	}

	switch action {
	case "wander":
		g.TargetID = ""
		s.wander(g)
	case "retreat":
		s.moveAlong(g, g.X-target.X, g.Y-target.Y, g.EffectiveSpeed(now))
	default: // chase: target position re-read live, continuous homing
		s.moveAlong(g, target.X-g.X, target.Y-g.Y, g.EffectiveSpeed(now))
	}
}

func (s *GhostAISystem) wander(g *world.GhostInfo) {
	g.X += (rand.Float64()*2 - 1) * wanderJitter
	g.Y += (rand.Float64()*2 - 1) * wanderJitter
}

// moveAlong moves the ghost by speed units along the normalized vector.
func (s *GhostAISystem) moveAlong(g *world.GhostInfo, dx, dy, speed float64) {
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return
	}
	g.X += dx / dist * speed
	g.Y += dy / dist * speed
}

// resolveAttack checks the engagement radius against the nearest sleeper and
// resolves a costly attack: money penalty to the victim, self-damage to the
// ghost, knockback along the separation vector. Attacking is transient —
// the ghost is back to seeking within the same tick.
func (s *GhostAISystem) resolveAttack(g *world.GhostInfo, now time.Time) {
	cfg := s.deps.Config.Game
	victim := s.deps.World.NearestSleeper(g.X, g.Y)
	if victim == nil {
		return
	}
	dx, dy := g.X-victim.X, g.Y-victim.Y
	dist := math.Hypot(dx, dy)
	if dist >= cfg.EngagementRadius {
		return
	}
	g.State = world.GhostAttacking

	taken := s.deps.World.PenalizeMoney(victim.ID, cfg.AttackMoneyLoss)
	if taken > 0 {
		event.Emit(s.deps.Bus, event.MoneyEarned{PlayerID: victim.ID, Amount: -taken})
		handler.SendTo(victim, "playerMoneyUpdated", map[string]any{
			"playerId": victim.ID,
			"money":    victim.Money,
			"delta":    -taken,
		})
	}

	// Attacking is costly: this bounds how long one ghost can harass a
	// single target before dying.
	g.Health -= cfg.AttackSelfDamage
	if g.Health <= 0 {
		g.Dead = true
		s.log.Debug("ghost burned out attacking", zap.String("ghost", g.ID))
		return
	}

	// Knockback prevents a sticky damage loop every single tick.
	if dist == 0 {
		dx, dy, dist = 1, 0, 1
	}
	g.X += dx / dist * cfg.AttackPushBack
	g.Y += dy / dist * cfg.AttackPushBack
	g.State = world.GhostSeeking
}

func (s *GhostAISystem) regenEnergy(g *world.GhostInfo, dt time.Duration) {
	if g.MaxEnergy <= 0 {
		return
	}
	g.Energy += s.deps.Config.Game.GhostEnergyRegen * dt.Seconds()
	if g.Energy > g.MaxEnergy {
		g.Energy = g.MaxEnergy
	}
}
