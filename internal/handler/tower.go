package handler

import (
	"encoding/json"
	"time"

	"github.com/nightwatch/server/internal/net"
	"go.uber.org/zap"
)

type placeTowerReq struct {
	RoomID int    `json:"roomId"`
	Col    int    `json:"col"`
	Row    int    `json:"row"`
	Type   string `json:"type"`
}

// HandlePlaceTower runs a placement request through the combat resolver.
// Rejections go back to the requesting session only.
func HandlePlaceTower(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var req placeTowerReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	p := deps.World.GetBySession(sess.ID)
	if p == nil {
		return
	}

	tower, reason := deps.Resolver.PlaceTower(p.ID, req.RoomID, req.Col, req.Row, req.Type, time.Now())
	if reason != "" {
		sess.Send("buildFailed", map[string]string{"reason": reason})
		return
	}

	deps.Log.Debug("tower placed",
		zap.String("owner", p.ID),
		zap.String("type", tower.Type),
		zap.Int("room", tower.RoomID),
	)
	BroadcastAll(deps.World, "towerPlaced", map[string]any{"tower": towerDTO(tower)})
	SendTo(p, "playerMoneyUpdated", map[string]any{
		"playerId": p.ID,
		"money":    p.Money,
	})
}
