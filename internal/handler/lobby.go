package handler

import (
	"encoding/json"
	"time"

	"github.com/nightwatch/server/internal/core/event"
	"github.com/nightwatch/server/internal/lobby"
	"github.com/nightwatch/server/internal/net"
	"github.com/nightwatch/server/internal/world"
	"go.uber.org/zap"
)

// lobbyOwner keys the countdown task in the scheduler.
const lobbyOwner = "lobby"

type joinLobbyReq struct {
	Name string `json:"name"`
}

func HandleJoinLobby(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var req joinLobbyReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		return
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	entry := deps.Lobby.Join(p.ID, p.Name, time.Now())
	p.Role = world.Role(entry.Role)

	deps.Log.Info("player joined lobby", zap.String("player", p.ID), zap.String("name", p.Name))
	BroadcastAll(deps.World, "lobby_update", BuildLobbyState(deps))
}

type selectRoleReq struct {
	Role string `json:"role"`
}

func HandleSelectRole(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var req selectRoleReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		return
	}
	if reason := deps.Lobby.SelectRole(p.ID, req.Role); reason != "" {
		sess.Send("role_selection_failed", map[string]string{"reason": reason})
		return
	}
	p.Role = world.Role(req.Role)
	sess.Send("role_selected", map[string]string{"role": req.Role})
	BroadcastAll(deps.World, "lobby_update", BuildLobbyState(deps))
}

type setReadyReq struct {
	Ready bool `json:"ready"`
}

func HandleSetReady(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var req setReadyReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		return
	}
	if !deps.Lobby.SetReady(p.ID, req.Ready) {
		return
	}
	BroadcastAll(deps.World, "ready_status_updated", map[string]any{
		"playerId": p.ID,
		"ready":    req.Ready,
	})
	BroadcastAll(deps.World, "lobby_update", BuildLobbyState(deps))
}

func HandleRequestStart(sess *net.Session, raw json.RawMessage, deps *Deps) {
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		return
	}
	countdown, reason := deps.Lobby.RequestStart()
	if reason != "" {
		sess.Send("game_start_failed", map[string]string{"reason": reason})
		return
	}
	deps.World.SetPhase(world.PhaseStarting)
	deps.Log.Info("game start requested", zap.String("by", p.ID), zap.Int("countdown", countdown))

	BroadcastAll(deps.World, "game_starting", map[string]int{"countdown": countdown})

	// One task drives the whole countdown; the lobby machine itself holds
	// the remaining count so the task carries no state of its own.
	deps.Sched.Every(lobbyOwner, "countdown", time.Second, time.Now(), func(now time.Time) {
		remaining, started := deps.Lobby.TickCountdown()
		if !started {
			BroadcastAll(deps.World, "countdown_update", map[string]int{"remaining": remaining})
			return
		}
		deps.Sched.CancelOwner(lobbyOwner)
		ActivateGame(deps, now)
	})
}

// ActivateGame flips the world to ACTIVE: every roster entry gets its
// confirmed role, defenders spawn outside room 0, ghost-role players get a
// ghost entity. Runs on the game loop goroutine from the countdown task.
func ActivateGame(deps *Deps, now time.Time) {
	deps.World.SetPhase(world.PhaseActive)

	rooms := deps.World.Rooms()
	spawnX, spawnY := 40.0, 320.0
	if len(rooms) > 0 {
		spawnX = rooms[0].X - 60
		spawnY = rooms[0].Y + rooms[0].Height/2
	}

	ghostCount := 0
	for _, entry := range deps.Lobby.Entries() {
		p := deps.World.GetPlayer(entry.PlayerID)
		if p == nil {
			continue // disconnected during countdown
		}
		p.Role = world.Role(entry.Role)
		p.X = spawnX
		p.Y = spawnY

		if entry.Role == lobby.RoleGhost {
			g := deps.World.SpawnGhost(
				p.ID,
				spawnX-200, spawnY,
				deps.Config.Game.GhostHealth,
				deps.Config.Game.GhostSpeed,
				deps.Config.Game.GhostEnergyMax,
			)
			p.GhostID = g.ID
			ghostCount++
		}
		if p.Session != nil {
			p.Session.SetState(net.StateInGame)
		}
	}

	event.Emit(deps.Bus, event.GameStarted{
		At:          now,
		PlayerCount: deps.World.PlayerCount(),
		GhostCount:  ghostCount,
	})
	deps.Log.Info("game started",
		zap.Int("players", deps.World.PlayerCount()),
		zap.Int("playerGhosts", ghostCount),
	)

	snapshot := BuildSnapshot(deps.World, now)
	deps.World.AllPlayers(func(p *world.PlayerInfo) {
		SendTo(p, "game_started", map[string]any{
			"playerRole": string(p.Role),
			"gameData":   snapshot,
		})
	})
}
