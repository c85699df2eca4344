// Package status pushes read-only world snapshots (actor and shop positions)
// to websocket observers. Delivery is best-effort: a session that cannot be
// written to, or cannot keep up, is dropped silently.
package status

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradepost.gg/internal/protocol"
)

// Snapshot produces the current payload. It must only read point-in-time
// copies; it runs off the tick loop.
type Snapshot func() protocol.StatusMsg

// session owns one connection. All writes to the conn go through the out
// channel and happen on the session's writer goroutine; the websocket conn
// allows only one concurrent writer.
type session struct {
	conn *websocket.Conn
	out  chan []byte
}

type Server struct {
	log  *log.Logger
	snap Snapshot

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*session]struct{}
}

func NewServer(snap Snapshot, logger *log.Logger) *Server {
	return &Server{
		log:  logger,
		snap: snap,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[*session]struct{}),
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		sess := &session{conn: conn, out: make(chan []byte, 8)}
		s.mu.Lock()
		s.sessions[sess] = struct{}{}
		s.mu.Unlock()

		// Writer goroutine. out is closed exactly once, by drop.
		go func() {
			defer s.drop(sess)
			for b := range sess.out {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}()

		// Fresh sessions get the current state immediately.
		s.enqueue(sess, s.payload())

		// Observers never send anything meaningful; the read loop only
		// detects disconnect.
		go func() {
			defer s.drop(sess)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

// drop unregisters the session and closes its out channel. Safe to call from
// multiple goroutines; only the first call closes.
func (s *Server) drop(sess *session) {
	s.mu.Lock()
	if _, ok := s.sessions[sess]; ok {
		delete(s.sessions, sess)
		close(sess.out)
	}
	s.mu.Unlock()
	_ = sess.conn.Close()
}

func (s *Server) payload() []byte {
	msg := s.snap()
	msg.Type = protocol.TypeStatus
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Printf("status marshal: %v", err)
		return nil
	}
	return b
}

// enqueue hands b to the session's writer. A full out channel means the
// consumer stopped keeping up; the session is dropped rather than blocking
// the broadcaster.
func (s *Server) enqueue(sess *session, b []byte) {
	if b == nil {
		return
	}
	s.mu.Lock()
	if _, ok := s.sessions[sess]; !ok {
		s.mu.Unlock()
		return
	}
	select {
	case sess.out <- b:
		s.mu.Unlock()
	default:
		delete(s.sessions, sess)
		close(sess.out)
		s.mu.Unlock()
		_ = sess.conn.Close()
	}
}

// Broadcast pushes one snapshot to every session.
func (s *Server) Broadcast() {
	s.mu.Lock()
	if len(s.sessions) == 0 {
		s.mu.Unlock()
		return
	}
	conns := make([]*session, 0, len(s.sessions))
	for c := range s.sessions {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	b := s.payload()
	for _, c := range conns {
		s.enqueue(c, b)
	}
}

// Run broadcasts on an interval until ctx is cancelled.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Broadcast()
		}
	}
}

// SessionCount reports connected observers (tests, diagnostics).
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
