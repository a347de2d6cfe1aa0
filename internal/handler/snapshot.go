package handler

import (
	"time"

	"github.com/nightwatch/server/internal/world"
)

// Wire DTOs for the periodic full snapshot and the lobby roster. Field names
// are the observable contract with clients.

type BedDTO struct {
	PlayerID string `json:"playerId"`
	BedIndex int    `json:"bedIndex"`
}

type TowerDTO struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	RoomID  int    `json:"roomId"`
	Col     int    `json:"col"`
	Row     int    `json:"row"`
	Type    string `json:"type"`
}

type RoomDTO struct {
	ID           int        `json:"id"`
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	Cols         int        `json:"cols"`
	Rows         int        `json:"rows"`
	Width        float64    `json:"width"`
	Height       float64    `json:"height"`
	BedCount     int        `json:"bedCount"`
	DoorSide     string     `json:"doorSide"`
	Stuck        bool       `json:"isStuckToPrevious"`
	OccupiedBeds []BedDTO   `json:"occupiedBeds"`
	Towers       []TowerDTO `json:"towers"`
}

type PlayerDTO struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	RoomID   int     `json:"roomId"`
	Sleeping bool    `json:"isSleeping"`
	Money    int     `json:"money"`
	Role     string  `json:"role"`
}

type GhostDTO struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"ownerPlayerId,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Health    int     `json:"health"`
	MaxHealth int     `json:"maxHealth"`
	State     string  `json:"state"`
	Energy    float64 `json:"energy"`
}

type GameStateDTO struct {
	Rooms     []RoomDTO   `json:"rooms"`
	Players   []PlayerDTO `json:"players"`
	Ghosts    []GhostDTO  `json:"ghosts"`
	Timestamp int64       `json:"timestamp"`
}

type LobbyEntryDTO struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Role     string `json:"selectedRole"`
	Ready    bool   `json:"ready"`
}

type LobbyStateDTO struct {
	State   string          `json:"state"`
	Players []LobbyEntryDTO `json:"players"`
}

// BuildSnapshot serializes the full game state.
func BuildSnapshot(ws *world.State, now time.Time) GameStateDTO {
	snap := GameStateDTO{Timestamp: now.UnixMilli()}

	for _, room := range ws.Rooms() {
		dto := RoomDTO{
			ID:           room.ID,
			X:            room.X,
			Y:            room.Y,
			Cols:         room.Cols,
			Rows:         room.Rows,
			Width:        room.Width,
			Height:       room.Height,
			BedCount:     room.BedCount,
			DoorSide:     string(room.DoorSide),
			Stuck:        room.StuckToPrev,
			OccupiedBeds: make([]BedDTO, 0, len(room.OccupiedBeds)),
			Towers:       make([]TowerDTO, 0, len(room.Towers)),
		}
		for _, b := range room.OccupiedBeds {
			dto.OccupiedBeds = append(dto.OccupiedBeds, BedDTO{PlayerID: b.PlayerID, BedIndex: b.BedIndex})
		}
		for _, t := range room.Towers {
			dto.Towers = append(dto.Towers, towerDTO(t))
		}
		snap.Rooms = append(snap.Rooms, dto)
	}

	ws.AllPlayers(func(p *world.PlayerInfo) {
		snap.Players = append(snap.Players, PlayerDTO{
			ID:       p.ID,
			Name:     p.Name,
			X:        p.X,
			Y:        p.Y,
			RoomID:   p.RoomID,
			Sleeping: p.Sleeping,
			Money:    p.Money,
			Role:     string(p.Role),
		})
	})

	snap.Ghosts = BuildGhostList(ws)
	return snap
}

// BuildGhostList serializes the live ghost set for ghost_update deltas.
func BuildGhostList(ws *world.State) []GhostDTO {
	out := make([]GhostDTO, 0, ws.GhostCount())
	for _, g := range ws.Ghosts() {
		if g.Dead {
			continue
		}
		out = append(out, GhostDTO{
			ID:        g.ID,
			OwnerID:   g.OwnerID,
			X:         g.X,
			Y:         g.Y,
			Health:    g.Health,
			MaxHealth: g.MaxHealth,
			State:     string(g.State),
			Energy:    g.Energy,
		})
	}
	return out
}

func towerDTO(t *world.TowerInfo) TowerDTO {
	return TowerDTO{
		ID:      t.ID,
		OwnerID: t.OwnerID,
		RoomID:  t.RoomID,
		Col:     t.Col,
		Row:     t.Row,
		Type:    t.Type,
	}
}

// BuildLobbyState serializes the roster for lobby_update.
func BuildLobbyState(deps *Deps) LobbyStateDTO {
	dto := LobbyStateDTO{State: deps.Lobby.State().String()}
	for _, e := range deps.Lobby.Entries() {
		dto.Players = append(dto.Players, LobbyEntryDTO{
			PlayerID: e.PlayerID,
			Name:     e.Name,
			Role:     e.Role,
			Ready:    e.Ready,
		})
	}
	return dto
}
