package net

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP requests to websocket sessions. New and dead sessions
// are communicated to the game loop via channels; the loop itself never
// touches a socket.
type Server struct {
	httpSrv  *http.Server
	upgrader websocket.Upgrader

	nextID   atomic.Uint64
	newConns chan *Session
	deadCh   chan uint64

	inSize       int
	outSize      int
	writeTimeout time.Duration

	log *zap.Logger
}

func NewServer(bindAddr string, inSize, outSize int, writeTimeout time.Duration, log *zap.Logger) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from arbitrary origins during
			// development. Auth is out of scope for this server.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		newConns:     make(chan *Session, 64),
		deadCh:       make(chan uint64, 64),
		inSize:       inSize,
		outSize:      outSize,
		writeTimeout: writeTimeout,
		log:          log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.httpSrv = &http.Server{Addr: bindAddr, Handler: mux}
	return s
}

// ListenAndServe runs the HTTP listener in its own goroutine's context.
func (s *Server) ListenAndServe() error {
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := s.nextID.Add(1)
	sess := NewSession(conn, id, s.inSize, s.outSize, s.writeTimeout, s.NotifyDead, s.log)
	sess.Start()

	s.log.Info("session connected", zap.Uint64("session", id), zap.String("ip", r.RemoteAddr))

	select {
	case s.newConns <- sess:
	default:
		s.log.Warn("connection queue full, rejecting session", zap.Uint64("session", id))
		sess.Close()
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead reports a dead session ID to the game loop. Safe from any
// goroutine.
func (s *Server) NotifyDead(sessionID uint64) {
	select {
	case s.deadCh <- sessionID:
	default:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	s.httpSrv.Close()
}
