package handler

import (
	"encoding/json"
	"time"

	"github.com/nightwatch/server/internal/core/event"
	"github.com/nightwatch/server/internal/net"
	"go.uber.org/zap"
)

// HandleDisconnect processes an explicit client disconnect request.
func HandleDisconnect(sess *net.Session, raw json.RawMessage, deps *Deps) {
	CleanupSession(sess.ID, deps)
	sess.Close()
}

// CleanupSession tears down everything a connection owned: scheduled tasks,
// bed occupancy, ghost control, roster entry, registry entry. Called for
// explicit disconnects and dead sockets alike — it is the single cleanup
// path, and it is idempotent.
func CleanupSession(sessionID uint64, deps *Deps) {
	p := deps.World.GetBySession(sessionID)
	if p == nil {
		return // already cleaned up
	}

	// Cancel every timer owned by the player before touching state, so no
	// earnings callback can run against a half-removed entity.
	canceled := deps.Sched.CancelOwner(p.ID)

	if p.Sleeping || p.Bed != nil {
		WakePlayer(p, deps)
	}
	if p.GhostID != "" {
		deps.World.RemoveGhost(p.GhostID)
		p.GhostID = ""
	}
	deps.Lobby.Leave(p.ID)
	deps.World.RemovePlayer(sessionID)

	event.Emit(deps.Bus, event.PlayerLeft{PlayerID: p.ID, Name: p.Name})
	event.Emit(deps.Bus, event.SessionEnded{PlayerID: p.ID, Name: p.Name, At: time.Now()})

	deps.Log.Info("session cleaned up",
		zap.Uint64("session", sessionID),
		zap.String("player", p.ID),
		zap.Int("canceledTasks", canceled),
	)

	BroadcastAll(deps.World, "playerLeft", map[string]string{"playerId": p.ID})
	BroadcastAll(deps.World, "lobby_update", BuildLobbyState(deps))
}
