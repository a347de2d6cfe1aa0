package handler

import (
	"encoding/json"
	"time"

	"github.com/nightwatch/server/internal/core/event"
	"github.com/nightwatch/server/internal/net"
	"github.com/nightwatch/server/internal/world"
)

type enterRoomReq struct {
	RoomID   int     `json:"roomId"`
	BedIndex int     `json:"bedIndex"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// HandleEnterRoom puts a defender into a bed. On success the player starts
// sleeping and an earnings task is scheduled; the task is owned by the
// player id so disconnect cancellation catches it.
func HandleEnterRoom(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var req enterRoomReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	p := deps.World.GetBySession(sess.ID)
	if p == nil || p.Sleeping {
		return
	}
	room := deps.World.Room(req.RoomID)
	if room == nil {
		sess.Send("buildFailed", map[string]string{"reason": "Room not found"})
		return
	}
	now := time.Now()
	if !room.OccupyBed(p.ID, req.BedIndex, now) {
		sess.Send("buildFailed", map[string]string{"reason": "Bed occupied"})
		return
	}

	p.RoomID = req.RoomID
	p.Bed = &world.BedRef{RoomID: req.RoomID, BedIndex: req.BedIndex}
	p.X, p.Y = room.BedWorldPos(req.BedIndex)
	deps.World.SetSleeping(p.ID, true)

	startEarnings(p.ID, deps)
	event.Emit(deps.Bus, event.PlayerSlept{PlayerID: p.ID, RoomID: req.RoomID, BedIndex: req.BedIndex})

	BroadcastAll(deps.World, "bedOccupied", map[string]any{
		"playerId": p.ID,
		"roomId":   req.RoomID,
		"bedIndex": req.BedIndex,
	})
}

// HandleWakeUp releases the player's bed and stops earnings.
func HandleWakeUp(sess *net.Session, raw json.RawMessage, deps *Deps) {
	p := deps.World.GetBySession(sess.ID)
	if p == nil || !p.Sleeping {
		return
	}
	WakePlayer(p, deps)
	BroadcastAll(deps.World, "playerWokeUp", map[string]string{"playerId": p.ID})
}

// WakePlayer is the single wake path shared by the wake request, ghost role
// grants, and disconnect cleanup.
func WakePlayer(p *world.PlayerInfo, deps *Deps) {
	if p.Bed != nil {
		if room := deps.World.Room(p.Bed.RoomID); room != nil {
			room.ReleaseBed(p.ID)
		}
		p.Bed = nil
	}
	deps.World.SetSleeping(p.ID, false)
	stopEarnings(p.ID, deps)
	event.Emit(deps.Bus, event.PlayerWoke{PlayerID: p.ID})
}

// startEarnings schedules the per-player sleep income task. The callback
// re-checks the player each run: if they vanished or woke between ticks the
// task cancels itself instead of crediting a stale entity.
func startEarnings(playerID string, deps *Deps) {
	amount := deps.Config.Game.SleepEarnAmount
	deps.Sched.Every(playerID, "sleep_earnings", deps.Config.Game.SleepEarnInterval, time.Now(), func(now time.Time) {
		p := deps.World.GetPlayer(playerID)
		if p == nil || !p.Sleeping {
			deps.Sched.CancelOwner(playerID)
			return
		}
		deps.World.AddMoney(playerID, amount)
		event.Emit(deps.Bus, event.MoneyEarned{PlayerID: playerID, Amount: amount})
		SendTo(p, "playerMoneyUpdated", map[string]any{
			"playerId": playerID,
			"money":    p.Money,
			"delta":    amount,
		})
	})
}

func stopEarnings(playerID string, deps *Deps) {
	deps.Sched.CancelOwner(playerID)
}
