// Package combat validates tower placement and resolves tower-vs-ghost fire.
package combat

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/nightwatch/server/internal/core/event"
	"github.com/nightwatch/server/internal/data"
	"github.com/nightwatch/server/internal/world"
)

// Placement rejection reasons. Reported back to the originating session
// only, never logged as errors.
const (
	ReasonPlayerMissing = "Player not found"
	ReasonRoomMissing   = "Room not found"
	ReasonOutOfBounds   = "Out of bounds"
	ReasonOccupied      = "Position occupied"
	ReasonBedTile       = "Tile reserved for beds"
	ReasonUnknownType   = "Unknown tower type"
	ReasonInsufficient  = "Insufficient funds"
)

// Resolver owns tower placement rules and fire resolution. It operates only
// through world.State methods; it never reaches into room internals beyond
// the tower list it manages.
type Resolver struct {
	world  *world.State
	towers *data.TowerTable
	bus    *event.Bus
	bounty int
}

func NewResolver(ws *world.State, towers *data.TowerTable, bus *event.Bus, bounty int) *Resolver {
	return &Resolver{world: ws, towers: towers, bus: bus, bounty: bounty}
}

// PlaceTower validates and applies one placement request. First failure
// wins; on rejection nothing mutates. On success the cost is deducted and
// the tower is appended to both the room and the owner's tower list, eligible
// to fire immediately.
func (r *Resolver) PlaceTower(playerID string, roomID, col, row int, typ string, now time.Time) (*world.TowerInfo, string) {
	player := r.world.GetPlayer(playerID)
	if player == nil {
		return nil, ReasonPlayerMissing
	}
	room := r.world.Room(roomID)
	if room == nil {
		return nil, ReasonRoomMissing
	}
	if !room.InBounds(col, row) {
		return nil, ReasonOutOfBounds
	}
	if room.TowerAt(col, row) != nil {
		return nil, ReasonOccupied
	}
	if room.IsBedTile(col, row) {
		return nil, ReasonBedTile
	}
	tmpl := r.towers.Get(typ)
	if tmpl == nil {
		return nil, ReasonUnknownType
	}
	if !r.world.SpendMoney(playerID, tmpl.Cost) {
		return nil, ReasonInsufficient
	}

	tower := &world.TowerInfo{
		ID:       uuid.NewString(),
		OwnerID:  playerID,
		RoomID:   roomID,
		Col:      col,
		Row:      row,
		Type:     typ,
		Damage:   tmpl.Damage,
		Range:    tmpl.Range,
		FireRate: tmpl.FireRate,
		// LastFiredAt stays zero: immediately eligible.
	}
	room.Towers = append(room.Towers, tower)
	player.Towers = append(player.Towers, tower)

	event.Emit(r.bus, event.TowerPlaced{
		TowerID: tower.ID,
		OwnerID: playerID,
		RoomID:  roomID,
		Type:    typ,
		Cost:    tmpl.Cost,
	})
	return tower, ""
}

// CanFire reports whether a tower's cooldown has elapsed.
func (r *Resolver) CanFire(t *world.TowerInfo, now time.Time) bool {
	return now.Sub(t.LastFiredAt) >= t.FireRate
}

// Fire stamps the tower's cooldown and applies its damage. If the hit is
// lethal the owner is credited the bounty exactly once and the ghost is
// flagged dead for CleanupSystem. Returns true on a kill.
func (r *Resolver) Fire(t *world.TowerInfo, g *world.GhostInfo, now time.Time) bool {
	t.LastFiredAt = now
	if g.Dead {
		return false
	}
	g.Health -= t.Damage
	if g.Health > 0 {
		return false
	}
	g.Dead = true
	r.world.AddMoney(t.OwnerID, r.bounty)
	event.Emit(r.bus, event.GhostDestroyed{
		GhostID:     g.ID,
		KillerID:    t.OwnerID,
		KillerTower: t.ID,
		Bounty:      r.bounty,
		PlayerOwned: g.OwnerID != "",
	})
	event.Emit(r.bus, event.MoneyEarned{PlayerID: t.OwnerID, Amount: r.bounty})
	return true
}

// Bounty returns the configured kill bounty.
func (r *Resolver) Bounty() int {
	return r.bounty
}

// TowerWorldPos returns a tower's world-space position, derived purely from
// room origin and grid offset.
func (r *Resolver) TowerWorldPos(t *world.TowerInfo) (float64, float64) {
	room := r.world.Room(t.RoomID)
	if room == nil {
		return 0, 0
	}
	return room.TileWorldPos(t.Col, t.Row)
}

// TowersInRange returns every tower across every room within radius of the
// point. O(towers) and side-effect-free: firing decisions are applied after
// scanning, never during.
func (r *Resolver) TowersInRange(x, y, radius float64) []*world.TowerInfo {
	var out []*world.TowerInfo
	r.world.AllTowers(func(room *world.RoomInfo, t *world.TowerInfo) {
		tx, ty := room.TileWorldPos(t.Col, t.Row)
		if math.Hypot(tx-x, ty-y) <= radius {
			out = append(out, t)
		}
	})
	return out
}

// TowersCovering returns every tower whose own range covers the point. The
// ghost damage pass runs this per ghost per tick.
func (r *Resolver) TowersCovering(x, y float64) []*world.TowerInfo {
	var out []*world.TowerInfo
	r.world.AllTowers(func(room *world.RoomInfo, t *world.TowerInfo) {
		tx, ty := room.TileWorldPos(t.Col, t.Row)
		if math.Hypot(tx-x, ty-y) <= t.Range {
			out = append(out, t)
		}
	})
	return out
}
