// Package server manages individual chat sessions, handling the outbound
// write pump, activity tracking, and lifecycle control for each
// connection.
package server

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/cyberchat/internal/protocol"
)

// Status is a presence state a session advertises to its peers.
type Status string

// The three presence states a client may request.
const (
	StatusOnline Status = "online"
	StatusAway   Status = "away"
	StatusBusy   Status = "busy"
)

// ValidStatus reports whether value is one of the enumerated presence states.
func ValidStatus(value string) bool {
	switch Status(value) {
	case StatusOnline, StatusAway, StatusBusy:
		return true
	}
	return false
}

const sendQueueSize = 256

// Session represents one connected, registered client. The username is
// immutable for the connection's lifetime; the socket is exclusively
// owned by the session.
type Session struct {
	ID       string
	Username string

	conn        net.Conn
	addr        string
	send        chan []byte
	connectedAt time.Time
	limiter     *tokenBucket
	log         logrus.FieldLogger

	mu     sync.Mutex
	closed bool
	status Status

	lastActivity  atomic.Int64
	messagesSent  atomic.Uint64
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64

	teardown sync.Once
}

// NewSession creates a session for an authenticated connection. The write
// pump is not started here; the supervisor launches it after the session
// has been registered.
func NewSession(conn net.Conn, username string, rate RateLimitConfig, log logrus.FieldLogger) *Session {
	addr := ""
	if conn != nil {
		addr = conn.RemoteAddr().String()
	}

	s := &Session{
		ID:          uuid.NewString(),
		Username:    username,
		conn:        conn,
		addr:        addr,
		send:        make(chan []byte, sendQueueSize),
		connectedAt: time.Now(),
		limiter:     newTokenBucket(rate.Burst, rate.RefillInterval),
		status:      StatusOnline,
		log:         log.WithField("user", username),
	}
	s.Touch()
	return s
}

// Addr returns the remote address of the underlying connection.
func (s *Session) Addr() string {
	return s.addr
}

// Status returns the session's current presence state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Touch refreshes the last-activity timestamp. Called by the supervisor
// on every inbound read.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the most recent inbound data.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Send queues a frame for delivery. It returns false when the session is
// already closed or its outbound queue is full; the caller treats both as
// a swallowed delivery failure.
func (s *Session) Send(frame protocol.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.send <- frame.Bytes():
		return true
	default:
		return false
	}
}

// Close marks the session closed and shuts the outbound queue. The write
// pump drains any queued frames and then closes the socket, so a frame
// queued immediately before Close (a KICK, the shutdown notice) still
// reaches the peer. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	s.mu.Unlock()
}

// writePump delivers queued frames to the socket. It runs in its own
// goroutine per session and is the only writer of the connection. When
// the queue is closed it drains remaining frames and closes the socket,
// which in turn unblocks the read loop.
func (s *Session) writePump(stats *Stats) {
	defer func() {
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			s.log.WithError(err).Debug("closing connection in write pump")
		}
	}()

	for message := range s.send {
		if err := s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			s.log.WithError(err).Debug("setting write deadline")
			return
		}
		n, err := s.conn.Write(message)
		if n > 0 {
			s.bytesSent.Add(uint64(n))
			stats.AddBytesSent(n)
		}
		if err != nil {
			if !isExpectedCloseError(err) {
				s.log.WithError(err).Debug("write failed")
			}
			return
		}
	}
}

func (s *Session) addBytesReceived(n int) {
	s.bytesReceived.Add(uint64(n))
}

func (s *Session) incrMessagesSent() {
	s.messagesSent.Add(1)
}

// allowMessage applies the per-session rate limit to one inbound frame.
func (s *Session) allowMessage() bool {
	return s.limiter.allow()
}

// SessionInfo is a point-in-time, read-only copy of a session's state,
// exposed to the admin dashboard.
type SessionInfo struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Addr          string    `json:"addr"`
	Status        Status    `json:"status"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastActivity  time.Time `json:"last_activity"`
	MessagesSent  uint64    `json:"messages_sent"`
	BytesSent     uint64    `json:"bytes_sent"`
	BytesReceived uint64    `json:"bytes_received"`
}

// Info snapshots the session's counters and presence state.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:            s.ID,
		Username:      s.Username,
		Addr:          s.addr,
		Status:        s.Status(),
		ConnectedAt:   s.connectedAt,
		LastActivity:  s.LastActivity(),
		MessagesSent:  s.messagesSent.Load(),
		BytesSent:     s.bytesSent.Load(),
		BytesReceived: s.bytesReceived.Load(),
	}
}
