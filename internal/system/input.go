package system

import (
	"time"

	coresys "github.com/nightwatch/server/internal/core/system"
	"github.com/nightwatch/server/internal/handler"
	"github.com/nightwatch/server/internal/net"
	"github.com/nightwatch/server/internal/world"
	"go.uber.org/zap"
)

// InputSystem is the only bridge between network goroutines and game state:
// it adopts new sessions, reaps dead ones, and drains each session's inbound
// queue onto the dispatch registry. Everything it calls runs on the game
// loop goroutine.
type InputSystem struct {
	server     *net.Server
	registry   *net.Registry
	deps       *handler.Deps
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(server *net.Server, registry *net.Registry, deps *handler.Deps, maxPerTick int, log *zap.Logger) *InputSystem {
	return &InputSystem{
		server:     server,
		registry:   registry,
		deps:       deps,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	s.adoptNewSessions()
	s.reapDeadSessions()
	s.drainSessions()
}

// adoptNewSessions registers a player entity for every fresh connection.
// The player exists from the moment the socket does.
func (s *InputSystem) adoptNewSessions() {
	for {
		select {
		case sess := <-s.server.NewSessions():
			p := s.deps.World.CreatePlayer(sess.ID, s.deps.Config.Game.StartingMoney)
			p.Session = sess
			s.log.Debug("player created", zap.Uint64("session", sess.ID), zap.String("player", p.ID))
		default:
			return
		}
	}
}

func (s *InputSystem) reapDeadSessions() {
	for {
		select {
		case id := <-s.server.DeadSessions():
			handler.CleanupSession(id, s.deps)
		default:
			return
		}
	}
}

func (s *InputSystem) drainSessions() {
	s.deps.World.AllPlayers(func(p *world.PlayerInfo) {
		sess := p.Session
		if sess == nil {
			return
		}
		for i := 0; i < s.maxPerTick; i++ {
			select {
			case env := <-sess.InQueue:
				s.registry.Dispatch(sess, env)
			default:
				return
			}
		}
	})
}
