package event

import "time"

// Domain events carried between systems on the bus. The stats write-behind
// subscribes to these so the simulation never touches the database directly.

type GameStarted struct {
	At          time.Time
	PlayerCount int
	GhostCount  int
}

type GhostDestroyed struct {
	GhostID     string
	KillerID    string // owner of the tower that landed the final hit
	KillerTower string // tower id
	Bounty      int
	PlayerOwned bool
}

type TowerPlaced struct {
	TowerID string
	OwnerID string
	RoomID  int
	Type    string
	Cost    int
}

type MoneyEarned struct {
	PlayerID string
	Amount   int // negative for ghost-attack losses
}

type PlayerSlept struct {
	PlayerID string
	RoomID   int
	BedIndex int
}

type PlayerWoke struct {
	PlayerID string
}

type PlayerLeft struct {
	PlayerID string
	Name     string
}

// SessionEnded is emitted when a connection closes, whatever its game state.
type SessionEnded struct {
	PlayerID string
	Name     string
	At       time.Time
}
