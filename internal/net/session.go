package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn is the subset of a websocket connection the session needs. Satisfied
// by *websocket.Conn; tests substitute a fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the game loop.
type Session struct {
	ID   uint64
	conn Conn

	state atomic.Int32 // SessionState

	InQueue  chan *Envelope // game loop reads inbound events from here
	OutQueue chan []byte    // writer goroutine reads from here

	outBuf [][]byte // buffered frames, flushed by OutputSystem (game loop only)

	writeTimeout time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	onDead    func(id uint64)

	log *zap.Logger
}

func NewSession(conn Conn, id uint64, inSize, outSize int, writeTimeout time.Duration, onDead func(uint64), log *zap.Logger) *Session {
	s := &Session{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan *Envelope, inSize),
		OutQueue:     make(chan []byte, outSize),
		writeTimeout: writeTimeout,
		closeCh:      make(chan struct{}),
		onDead:       onDead,
		log:          log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(StateLobby))
	return s
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) SetState(st SessionState) {
	s.state.Store(int32(st))
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers an outbound event. Nothing hits the socket until FlushOutput
// runs at the Output phase. Called only from the game loop goroutine.
func (s *Session) Send(msgType string, payload any) {
	if s.closed.Load() {
		return
	}
	frame, err := EncodeEnvelope(msgType, payload)
	if err != nil {
		s.log.Error("encode outbound event", zap.String("type", msgType), zap.Error(err))
		return
	}
	s.outBuf = append(s.outBuf, frame)
}

// SendDirect encodes and enqueues a frame onto OutQueue without touching the
// game-loop output buffer. Safe to call from any goroutine; used for replies
// produced off the loop, such as database reads. Non-blocking like
// FlushOutput: a full queue drops the frame.
func (s *Session) SendDirect(msgType string, payload any) {
	if s.closed.Load() {
		return
	}
	frame, err := EncodeEnvelope(msgType, payload)
	if err != nil {
		s.log.Error("encode outbound event", zap.String("type", msgType), zap.Error(err))
		return
	}
	select {
	case s.OutQueue <- frame:
	default:
		s.log.Warn("out queue full, dropping direct frame", zap.String("type", msgType))
	}
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop
// goroutine. Non-blocking: a full OutQueue means the client cannot keep up
// and the session is disconnected.
func (s *Session) FlushOutput() {
	for _, frame := range s.outBuf {
		select {
		case s.OutQueue <- frame:
		default:
			s.log.Warn("out queue full, dropping slow session")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close shuts the session down and reports it dead exactly once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
		if s.onDead != nil {
			s.onDead(s.ID)
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop reads frames from the websocket, decodes envelopes, and pushes
// them onto InQueue for the game loop to consume.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		env, err := DecodeEnvelope(raw)
		if err != nil {
			s.log.Debug("bad frame", zap.Error(err))
			continue
		}

		// Block until the game loop drains InQueue. Dropping events would
		// desync client intent; blocking only stalls this one client.
		select {
		case s.InQueue <- env:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop reads frames from OutQueue and writes them to the websocket.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case frame := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !s.closed.Load() {
					s.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
