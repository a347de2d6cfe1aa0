package net

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Envelope is the wire framing for every inbound and outbound event:
// a type name plus a JSON payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeEnvelope marshals an outbound event.
func EncodeEnvelope(msgType string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		data = raw
	}
	return json.Marshal(Envelope{Type: msgType, Data: data})
}

// DecodeEnvelope unmarshals an inbound frame.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("decode envelope: missing type")
	}
	return &env, nil
}

// SessionState gates which inbound events a session may send.
type SessionState int32

const (
	StateLobby SessionState = iota // connected, pre-game
	StateInGame
	StateDisconnecting
)

// HandlerFunc processes one inbound event on the game loop goroutine.
type HandlerFunc func(sess *Session, data json.RawMessage)

type registration struct {
	states []SessionState
	fn     HandlerFunc
}

// Registry maps inbound event names to handlers with session-state gating.
type Registry struct {
	handlers map[string]registration
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]registration),
		log:      log,
	}
}

// Register binds an event name to a handler for the given session states.
func (r *Registry) Register(name string, states []SessionState, fn HandlerFunc) {
	r.handlers[name] = registration{states: states, fn: fn}
}

// Dispatch routes one inbound envelope. Unknown events and events arriving in
// the wrong session state are dropped quietly — a stale client is a benign
// race, not an error.
func (r *Registry) Dispatch(sess *Session, env *Envelope) {
	reg, ok := r.handlers[env.Type]
	if !ok {
		r.log.Debug("unknown event", zap.String("type", env.Type), zap.Uint64("session", sess.ID))
		return
	}
	state := sess.State()
	for _, s := range reg.states {
		if s == state {
			reg.fn(sess, env.Data)
			return
		}
	}
	r.log.Debug("event in wrong state",
		zap.String("type", env.Type),
		zap.Uint64("session", sess.ID),
		zap.Int32("state", int32(state)),
	)
}
