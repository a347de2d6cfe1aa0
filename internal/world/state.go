// Package world owns all live game entities. There is exactly one State per
// process and it is mutated only from the game loop goroutine, so none of it
// is locked. Components operate through the methods here instead of reaching
// into each other's collections.
package world

import (
	"math"

	"github.com/google/uuid"
	"github.com/nightwatch/server/internal/worldgen"
)

// Phase is the coarse lifecycle of the whole simulation.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseStarting
	PhaseActive
)

// State tracks all rooms, players, and ghosts.
type State struct {
	phase Phase

	rooms    []*RoomInfo
	roomByID map[int]*RoomInfo

	bySession map[uint64]*PlayerInfo
	byID      map[string]*PlayerInfo
	playerIDs []string // join order, for stable iteration

	ghosts    map[string]*GhostInfo
	ghostList []*GhostInfo
}

// NewState builds world state around generated room geometry.
func NewState(geometry []worldgen.Room) *State {
	s := &State{
		roomByID:  make(map[int]*RoomInfo, len(geometry)),
		bySession: make(map[uint64]*PlayerInfo),
		byID:      make(map[string]*PlayerInfo),
		ghosts:    make(map[string]*GhostInfo),
	}
	for _, g := range geometry {
		room := NewRoomInfo(g)
		s.rooms = append(s.rooms, room)
		s.roomByID[g.ID] = room
	}
	return s
}

func (s *State) Phase() Phase     { return s.phase }
func (s *State) SetPhase(p Phase) { s.phase = p }

// Rooms returns all rooms in generation order.
func (s *State) Rooms() []*RoomInfo {
	return s.rooms
}

// Room returns a room by id, or nil.
func (s *State) Room(id int) *RoomInfo {
	return s.roomByID[id]
}

// --- Player registry ---

// CreatePlayer registers a player for a session. Idempotent: re-creating an
// existing session returns the existing entity untouched.
func (s *State) CreatePlayer(sessionID uint64, startingMoney int) *PlayerInfo {
	if p, ok := s.bySession[sessionID]; ok {
		return p
	}
	p := &PlayerInfo{
		SessionID: sessionID,
		ID:        uuid.NewString(),
		RoomID:    -1,
		Role:      RoleDefender,
		Money:     startingMoney,
	}
	s.bySession[sessionID] = p
	s.byID[p.ID] = p
	s.playerIDs = append(s.playerIDs, p.ID)
	return p
}

// GetBySession returns a player by session id, or nil.
func (s *State) GetBySession(sessionID uint64) *PlayerInfo {
	return s.bySession[sessionID]
}

// GetPlayer returns a player by external id, or nil.
func (s *State) GetPlayer(id string) *PlayerInfo {
	return s.byID[id]
}

// RemovePlayer drops a player from the registry and releases any bed they
// hold. Timer cancellation and roster removal are the caller's pairing
// obligations.
func (s *State) RemovePlayer(sessionID uint64) *PlayerInfo {
	p, ok := s.bySession[sessionID]
	if !ok {
		return nil
	}
	if p.Bed != nil {
		if room := s.roomByID[p.Bed.RoomID]; room != nil {
			room.ReleaseBed(p.ID)
		}
	}
	delete(s.bySession, sessionID)
	delete(s.byID, p.ID)
	for i, id := range s.playerIDs {
		if id == p.ID {
			s.playerIDs = append(s.playerIDs[:i], s.playerIDs[i+1:]...)
			break
		}
	}
	return p
}

// UpdatePosition moves a player. Rejected without mutation while the player
// is sleeping — sleeping disables movement input.
func (s *State) UpdatePosition(id string, x, y float64) bool {
	p := s.byID[id]
	if p == nil || p.Sleeping {
		return false
	}
	p.X = x
	p.Y = y
	return true
}

// SetSleeping toggles a player's sleep flag. Bed bookkeeping lives in
// RoomInfo; this only flips the movement gate.
func (s *State) SetSleeping(id string, sleeping bool) bool {
	p := s.byID[id]
	if p == nil {
		return false
	}
	p.Sleeping = sleeping
	return true
}

// AddMoney credits a player. Negative amounts are a programming error and
// ignored; use SpendMoney for debits.
func (s *State) AddMoney(id string, amount int) bool {
	p := s.byID[id]
	if p == nil || amount < 0 {
		return false
	}
	p.Money += amount
	return true
}

// SpendMoney debits a player. Fails without mutation when the balance is
// insufficient — money never goes negative.
func (s *State) SpendMoney(id string, amount int) bool {
	p := s.byID[id]
	if p == nil || amount < 0 || amount > p.Money {
		return false
	}
	p.Money -= amount
	return true
}

// PenalizeMoney deducts up to amount, clamping at zero. Used for ghost
// attacks, where the penalty applies even to a nearly broke player.
func (s *State) PenalizeMoney(id string, amount int) int {
	p := s.byID[id]
	if p == nil || amount <= 0 {
		return 0
	}
	taken := amount
	if taken > p.Money {
		taken = p.Money
	}
	p.Money -= taken
	return taken
}

// PlayerCount returns the number of connected players.
func (s *State) PlayerCount() int {
	return len(s.bySession)
}

// AllPlayers iterates players in join order.
func (s *State) AllPlayers(fn func(*PlayerInfo)) {
	for _, id := range s.playerIDs {
		if p := s.byID[id]; p != nil {
			fn(p)
		}
	}
}

// SleepingPlayers returns every currently sleeping player, join order.
func (s *State) SleepingPlayers() []*PlayerInfo {
	var out []*PlayerInfo
	for _, id := range s.playerIDs {
		if p := s.byID[id]; p != nil && p.Sleeping {
			out = append(out, p)
		}
	}
	return out
}

// NearestSleeper returns the sleeping player closest to (x, y) by Euclidean
// distance, or nil when nobody sleeps.
func (s *State) NearestSleeper(x, y float64) *PlayerInfo {
	var best *PlayerInfo
	bestDist := math.MaxFloat64
	for _, id := range s.playerIDs {
		p := s.byID[id]
		if p == nil || !p.Sleeping {
			continue
		}
		d := math.Hypot(p.X-x, p.Y-y)
		if d < bestDist {
			best = p
			bestDist = d
		}
	}
	return best
}

// --- Ghosts ---

// SpawnGhost creates and registers a ghost. ownerID is empty for
// AI-controlled ghosts.
func (s *State) SpawnGhost(ownerID string, x, y float64, health int, speed, maxEnergy float64) *GhostInfo {
	g := &GhostInfo{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		X:         x,
		Y:         y,
		Health:    health,
		MaxHealth: health,
		Speed:     speed,
		State:     GhostSeeking,
		Energy:    maxEnergy,
		MaxEnergy: maxEnergy,
	}
	s.ghosts[g.ID] = g
	s.ghostList = append(s.ghostList, g)
	return g
}

// GetGhost returns a ghost by id, or nil.
func (s *State) GetGhost(id string) *GhostInfo {
	return s.ghosts[id]
}

// RemoveGhost deletes a ghost from the live set. Swap-delete; returns the
// removed ghost or nil if already gone.
func (s *State) RemoveGhost(id string) *GhostInfo {
	g, ok := s.ghosts[id]
	if !ok {
		return nil
	}
	delete(s.ghosts, id)
	for i, cur := range s.ghostList {
		if cur.ID == id {
			s.ghostList[i] = s.ghostList[len(s.ghostList)-1]
			s.ghostList = s.ghostList[:len(s.ghostList)-1]
			break
		}
	}
	return g
}

// GhostCount returns the number of live ghosts.
func (s *State) GhostCount() int {
	return len(s.ghosts)
}

// Ghosts returns the live ghost list for tick iteration. Callers must not
// add or remove while iterating; deaths are flagged and reaped by
// CleanupSystem.
func (s *State) Ghosts() []*GhostInfo {
	return s.ghostList
}

// ReapDeadGhosts removes every ghost flagged Dead and returns them.
func (s *State) ReapDeadGhosts() []*GhostInfo {
	var reaped []*GhostInfo
	for _, g := range s.ghostList {
		if g.Dead {
			reaped = append(reaped, g)
		}
	}
	for _, g := range reaped {
		s.RemoveGhost(g.ID)
	}
	return reaped
}

// AllTowers iterates every tower across every room. O(towers),
// side-effect-free; the ghost damage pass runs this each tick.
func (s *State) AllTowers(fn func(*RoomInfo, *TowerInfo)) {
	for _, room := range s.rooms {
		for _, t := range room.Towers {
			fn(room, t)
		}
	}
}
