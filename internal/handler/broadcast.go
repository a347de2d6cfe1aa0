package handler

import (
	"github.com/nightwatch/server/internal/world"
)

// BroadcastAll sends an event to every connected session. Players whose
// session already died are skipped — a benign race, not an error.
func BroadcastAll(ws *world.State, msgType string, payload any) {
	ws.AllPlayers(func(p *world.PlayerInfo) {
		if p.Session != nil && !p.Session.IsClosed() {
			p.Session.Send(msgType, payload)
		}
	})
}

// BroadcastExcept sends an event to every connected session except one
// player's own.
func BroadcastExcept(ws *world.State, exceptID string, msgType string, payload any) {
	ws.AllPlayers(func(p *world.PlayerInfo) {
		if p.ID == exceptID {
			return
		}
		if p.Session != nil && !p.Session.IsClosed() {
			p.Session.Send(msgType, payload)
		}
	})
}

// SendTo sends an event to one player's session if it is still alive.
func SendTo(p *world.PlayerInfo, msgType string, payload any) {
	if p != nil && p.Session != nil && !p.Session.IsClosed() {
		p.Session.Send(msgType, payload)
	}
}
