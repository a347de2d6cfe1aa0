package world

import (
	"time"

	"github.com/nightwatch/server/internal/net"
)

// Role is a player's confirmed game role.
type Role string

const (
	RoleDefender Role = "defender"
	RoleGhost    Role = "ghost"
)

// BedRef identifies the bed a sleeping player occupies.
type BedRef struct {
	RoomID   int
	BedIndex int
}

// PlayerInfo holds in-memory data for one connected player. Created on
// connection, destroyed on disconnect. Accessed only from the game loop
// goroutine — no locks needed.
type PlayerInfo struct {
	SessionID uint64
	Session   *net.Session
	ID        string // stable external id used on the wire
	Name      string

	X, Y     float64
	RoomID   int // -1 = not inside a room
	Role     Role
	Sleeping bool
	Bed      *BedRef // non-nil only while sleeping
	Money    int

	Towers []*TowerInfo // towers this player owns, placement order

	// GhostID is set while the player controls a ghost entity.
	GhostID string

	// Movement fan-out throttling: own echo is immediate, broadcasts to
	// everyone else are rate-limited.
	LastMoveAt      time.Time
	LastMoveBcastAt time.Time
}
