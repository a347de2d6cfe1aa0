package handler

import (
	"encoding/json"
	"math"
	"time"

	"github.com/nightwatch/server/internal/lobby"
	"github.com/nightwatch/server/internal/net"
	"github.com/nightwatch/server/internal/world"
	"go.uber.org/zap"
)

// Ability-use rejection reasons, reported to the initiating client only.
const (
	reasonNoEnergy       = "Not enough energy"
	reasonOnCooldown     = "Ability on cooldown"
	reasonUnknownAbility = "Unknown ability"
	reasonNoGhost        = "No ghost under your control"
)

// maxGhostStep bounds a single ghost movement delta. Deltas beyond this are
// discarded as tampered or desynced input.
const maxGhostStep = 50.0

// HandleRequestGhostRole grants a ghost entity to a player mid-game if a
// slot is free.
func HandleRequestGhostRole(sess *net.Session, raw json.RawMessage, deps *Deps) {
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		return
	}
	if p.GhostID != "" {
		return // already a ghost
	}
	if deps.World.GhostCount() >= deps.Config.Game.GhostCap {
		sess.Send("role_selection_failed", map[string]string{"reason": lobby.ReasonGhostSlotsFull})
		return
	}

	// A sleeping player leaving for ghost duty releases their bed first.
	if p.Sleeping {
		WakePlayer(p, deps)
	}

	g := deps.World.SpawnGhost(
		p.ID,
		p.X, p.Y,
		deps.Config.Game.GhostHealth,
		deps.Config.Game.GhostSpeed,
		deps.Config.Game.GhostEnergyMax,
	)
	p.GhostID = g.ID
	p.Role = world.RoleGhost

	deps.Log.Info("ghost role granted", zap.String("player", p.ID), zap.String("ghost", g.ID))
	sess.Send("role_selected", map[string]string{"role": lobby.RoleGhost, "ghostId": g.ID})
	BroadcastAll(deps.World, "ghost_update", BuildGhostList(deps.World))
}

// HandleReleaseGhostRole removes the player's ghost entity.
func HandleReleaseGhostRole(sess *net.Session, raw json.RawMessage, deps *Deps) {
	p := deps.World.GetBySession(sess.ID)
	if p == nil || p.GhostID == "" {
		return
	}
	deps.World.RemoveGhost(p.GhostID)
	p.GhostID = ""
	p.Role = world.RoleDefender

	sess.Send("role_selected", map[string]string{"role": lobby.RoleDefender})
	BroadcastAll(deps.World, "ghost_update", BuildGhostList(deps.World))
}

type ghostInputReq struct {
	Action      string  `json:"action"` // "move" or "ability"
	AbilityName string  `json:"abilityName,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	TargetX     float64 `json:"targetX,omitempty"`
	TargetY     float64 `json:"targetY,omitempty"`
}

// HandleGhostInput processes movement and ability use for a player-owned
// ghost. Positions are never trusted: movement arrives as a destination and
// is bounds/delta-validated server-side.
func HandleGhostInput(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var req ghostInputReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		return
	}
	g := deps.World.GetGhost(p.GhostID)
	if g == nil || g.Dead {
		sess.Send("ghost_ability_used", map[string]any{"ok": false, "reason": reasonNoGhost})
		return
	}

	switch req.Action {
	case "move":
		applyGhostMove(g, req.X, req.Y)
	case "ability":
		useGhostAbility(sess, p, g, req, deps)
	}
}

// applyGhostMove clamps the requested step to the ghost's reachable range.
func applyGhostMove(g *world.GhostInfo, x, y float64) {
	dx, dy := x-g.X, y-g.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return
	}
	if dist > maxGhostStep {
		// Scale the step down instead of rejecting outright: the client is
		// probably just behind, not cheating.
		scale := maxGhostStep / dist
		dx *= scale
		dy *= scale
	}
	g.X += dx
	g.Y += dy
}

func useGhostAbility(sess *net.Session, p *world.PlayerInfo, g *world.GhostInfo, req ghostInputReq, deps *Deps) {
	ability := deps.Abilities.Get(req.AbilityName)
	if ability == nil {
		sess.Send("ghost_ability_used", map[string]any{"ok": false, "reason": reasonUnknownAbility})
		return
	}
	now := time.Now()
	if g.OnCooldown(ability.Name, now) {
		sess.Send("ghost_ability_used", map[string]any{"ok": false, "ability": ability.Name, "reason": reasonOnCooldown})
		return
	}
	if g.Energy < ability.EnergyCost {
		sess.Send("ghost_ability_used", map[string]any{"ok": false, "ability": ability.Name, "reason": reasonNoEnergy})
		return
	}

	g.Energy -= ability.EnergyCost

	switch ability.Name {
	case "speed_burst":
		g.SpeedBurstUntil = now.Add(ability.Duration)
		g.SpeedBurstMult = ability.SpeedMult
	case "phase":
		g.PhasedUntil = now.Add(ability.Duration)
	case "summon_minion":
		if deps.World.GhostCount() >= deps.Config.Game.GhostCap {
			g.Energy += ability.EnergyCost
			sess.Send("ghost_ability_used", map[string]any{"ok": false, "ability": ability.Name, "reason": lobby.ReasonGhostSlotsFull})
			return
		}
		minion := deps.World.SpawnGhost(
			"", // AI-controlled
			g.X, g.Y,
			ability.MinionHP,
			deps.Config.Game.GhostSpeed,
			0,
		)
		BroadcastAll(deps.World, "ghost_minion_spawned", map[string]any{
			"summonerId": g.ID,
			"minionId":   minion.ID,
		})
	default:
		// Catalog entry with no engine effect: refund, report.
		g.Energy += ability.EnergyCost
		sess.Send("ghost_ability_used", map[string]any{"ok": false, "ability": ability.Name, "reason": reasonUnknownAbility})
		return
	}

	// The cooldown starts only once the effect has landed; a refunded failure
	// leaves the ability immediately usable again.
	g.StartCooldown(ability.Name, now, ability.Cooldown)

	deps.Log.Debug("ghost ability used", zap.String("player", p.ID), zap.String("ability", ability.Name))
	sess.Send("ghost_ability_used", map[string]any{
		"ok":      true,
		"ability": ability.Name,
		"energy":  g.Energy,
	})
}
