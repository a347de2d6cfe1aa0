// Package lobby tracks the pre-game roster and the transition into an active
// game. It is a pure state machine: no sessions, no timers — the countdown is
// advanced from outside via TickCountdown so it can be tested headlessly.
package lobby

import (
	"time"
)

// State is the lobby lifecycle.
type State int

const (
	StateOpen State = iota
	StateStarting
	StateActive
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	}
	return "unknown"
}

// Role strings accepted from clients.
const (
	RoleDefender = "defender"
	RoleGhost    = "ghost"
)

// Rejection reasons are part of the observable contract.
const (
	ReasonInvalidRole    = "Invalid role"
	ReasonGhostSlotsFull = "Ghost slots are full"
	ReasonNotEnough      = "Not enough players"
	ReasonNotAllReady    = "Not all players are ready"
	ReasonNoDefender     = "Need at least one defender"
	ReasonAlreadyRunning = "Game already starting or running"
)

// Entry is one player's roster line.
type Entry struct {
	PlayerID string
	Name     string
	Role     string
	Ready    bool
	JoinedAt time.Time
}

// Lobby is the roster plus the OPEN → STARTING → ACTIVE machine.
type Lobby struct {
	state   State
	entries map[string]*Entry
	order   []string

	minPlayers    int
	maxGhosts     int
	countdownFrom int
	countdownLeft int
}

func New(minPlayers, maxGhosts, countdownSeconds int) *Lobby {
	return &Lobby{
		state:         StateOpen,
		entries:       make(map[string]*Entry),
		minPlayers:    minPlayers,
		maxGhosts:     maxGhosts,
		countdownFrom: countdownSeconds,
	}
}

func (l *Lobby) State() State { return l.state }

// Join adds a player to the roster with the default defender role.
// Re-joining returns the existing entry.
func (l *Lobby) Join(playerID, name string, now time.Time) *Entry {
	if e, ok := l.entries[playerID]; ok {
		return e
	}
	e := &Entry{
		PlayerID: playerID,
		Name:     name,
		Role:     RoleDefender,
		JoinedAt: now,
	}
	l.entries[playerID] = e
	l.order = append(l.order, playerID)
	return e
}

// Leave removes a player from the roster.
func (l *Lobby) Leave(playerID string) {
	if _, ok := l.entries[playerID]; !ok {
		return
	}
	delete(l.entries, playerID)
	for i, id := range l.order {
		if id == playerID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Get returns a roster entry, or nil.
func (l *Lobby) Get(playerID string) *Entry {
	return l.entries[playerID]
}

// Entries returns roster entries in join order.
func (l *Lobby) Entries() []*Entry {
	out := make([]*Entry, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.entries[id])
	}
	return out
}

func (l *Lobby) Count() int { return len(l.entries) }

// GhostCount returns how many roster entries currently pick the ghost role.
func (l *Lobby) GhostCount() int {
	n := 0
	for _, e := range l.entries {
		if e.Role == RoleGhost {
			n++
		}
	}
	return n
}

// SelectRole changes a player's role. Switching roles while ready clears the
// ready flag: a role change is state-affecting and needs re-confirmation.
// Returns a rejection reason, or "" on success.
func (l *Lobby) SelectRole(playerID, role string) string {
	e := l.entries[playerID]
	if e == nil {
		return ReasonInvalidRole
	}
	if role != RoleDefender && role != RoleGhost {
		return ReasonInvalidRole
	}
	if role == RoleGhost && e.Role != RoleGhost && l.GhostCount() >= l.maxGhosts {
		return ReasonGhostSlotsFull
	}
	if e.Role != role {
		e.Role = role
		e.Ready = false
	}
	return ""
}

// SetReady toggles a player's ready flag.
func (l *Lobby) SetReady(playerID string, ready bool) bool {
	e := l.entries[playerID]
	if e == nil {
		return false
	}
	e.Ready = ready
	return true
}

// CanStart checks the start conditions: enough players, everyone ready, at
// least one defender, ghost slots within the cap. Returns the first failing
// reason, or "" when the game may start.
func (l *Lobby) CanStart() string {
	if len(l.entries) < l.minPlayers {
		return ReasonNotEnough
	}
	defenders := 0
	for _, e := range l.entries {
		if !e.Ready {
			return ReasonNotAllReady
		}
		if e.Role == RoleDefender {
			defenders++
		}
	}
	if defenders == 0 {
		return ReasonNoDefender
	}
	if l.GhostCount() > l.maxGhosts {
		return ReasonGhostSlotsFull
	}
	return ""
}

// RequestStart begins the countdown. A start request while already STARTING
// or ACTIVE is rejected, not queued. Returns (countdownSeconds, "") on
// success or (0, reason) on rejection.
func (l *Lobby) RequestStart() (int, string) {
	if l.state != StateOpen {
		return 0, ReasonAlreadyRunning
	}
	if reason := l.CanStart(); reason != "" {
		return 0, reason
	}
	l.state = StateStarting
	l.countdownLeft = l.countdownFrom
	return l.countdownFrom, ""
}

// TickCountdown advances the countdown by one step. Returns the remaining
// seconds and whether the lobby just went ACTIVE. The countdown is
// non-cancelable: new joins during STARTING do not reset it.
func (l *Lobby) TickCountdown() (remaining int, started bool) {
	if l.state != StateStarting {
		return 0, false
	}
	l.countdownLeft--
	if l.countdownLeft > 0 {
		return l.countdownLeft, false
	}
	l.state = StateActive
	return 0, true
}

// Reset returns to OPEN clearing ready flags but keeping role selections,
// for consecutive rounds.
func (l *Lobby) Reset() {
	l.state = StateOpen
	l.countdownLeft = 0
	for _, e := range l.entries {
		e.Ready = false
	}
}

// ForceReset returns to OPEN clearing both ready flags and roles.
func (l *Lobby) ForceReset() {
	l.Reset()
	for _, e := range l.entries {
		e.Role = RoleDefender
	}
}
