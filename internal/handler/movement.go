package handler

import (
	"encoding/json"
	"math"
	"time"

	"github.com/nightwatch/server/internal/net"
)

type playerMoveReq struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// maxPlayerStep bounds a single defender movement delta, same policy as
// maxGhostStep: oversized steps are scaled down, not rejected.
const maxPlayerStep = 50.0

// HandlePlayerMove applies a movement update. The moving player gets an
// immediate echo; fan-out to everyone else is rate-limited to one broadcast
// per window, trading bandwidth for latency.
func HandlePlayerMove(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var req playerMoveReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		return
	}
	x, y := clampStep(p.X, p.Y, req.X, req.Y, maxPlayerStep)
	if !deps.World.UpdatePosition(p.ID, x, y) {
		// Sleeping players cannot move; silently ignore stale input.
		return
	}
	now := time.Now()
	p.LastMoveAt = now

	moved := map[string]any{"playerId": p.ID, "x": p.X, "y": p.Y}
	sess.Send("playerMoved", moved)

	if now.Sub(p.LastMoveBcastAt) >= deps.Config.Game.MoveBroadcastMin {
		p.LastMoveBcastAt = now
		BroadcastExcept(deps.World, p.ID, "playerMoved", moved)
	}
}

// clampStep limits the move from (fromX, fromY) toward (toX, toY) to at most
// maxStep units, preserving direction.
func clampStep(fromX, fromY, toX, toY, maxStep float64) (float64, float64) {
	dx, dy := toX-fromX, toY-fromY
	dist := math.Hypot(dx, dy)
	if dist <= maxStep {
		return toX, toY
	}
	scale := maxStep / dist
	return fromX + dx*scale, fromY + dy*scale
}
