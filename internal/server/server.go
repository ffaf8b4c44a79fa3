// Package server implements the connection supervisor: the accept loop,
// the username handshake, the per-connection receive loop, and teardown.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/cyberchat/internal/protocol"
)

// Server owns the chat listener and supervises one goroutine per
// connection. It holds the registry, router, stats, and event hub that
// together form the chat core; nothing here is a process-wide singleton.
type Server struct {
	cfg      *Config
	log      logrus.FieldLogger
	registry *Registry
	router   *Router
	stats    *Stats
	events   *EventHub

	listener net.Listener
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	started bool
}

// NewServer wires up a chat server from its parts. The event hub's Run
// loop is started by the caller (normally main) alongside Serve.
func NewServer(cfg *Config, log logrus.FieldLogger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	registry := NewRegistry()
	stats := NewStats()
	events := NewEventHub(log)
	router := NewRouter(registry, stats, events, log)

	return &Server{
		cfg:      cfg,
		log:      log,
		registry: registry,
		router:   router,
		stats:    stats,
		events:   events,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Registry exposes the session registry to the admin surface.
func (s *Server) Registry() *Registry { return s.registry }

// Stats exposes the aggregate counters to the admin surface.
func (s *Server) Stats() *Stats { return s.stats }

// Events exposes the admin event feed.
func (s *Server) Events() *EventHub { return s.events }

// Router exposes the message router.
func (s *Server) Router() *Router { return s.router }

// Addr returns the address the listener is bound to, or "" before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve binds the chat listener and accepts connections until Shutdown.
// It is the only failure path that stops the whole service; every
// per-connection error is contained in that connection's goroutine.
func (s *Server) Serve() error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr(), err)
	}

	s.mu.Lock()
	s.listener = listener
	s.started = true
	s.mu.Unlock()

	s.log.WithField("addr", listener.Addr().String()).Info("chat server listening")

	if s.cfg.IdleTimeout > 0 {
		s.wg.Add(1)
		go s.reapIdleSessions()
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}

		s.stats.ConnectionAccepted()
		s.log.WithField("addr", conn.RemoteAddr().String()).Info("new connection")

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection runs the per-connection state machine:
// ACCEPTED → AWAITING_USERNAME → ACTIVE → CLOSED.
func (s *Server) handleConnection(conn net.Conn) {
	session, ok := s.handshake(conn)
	if !ok {
		return
	}

	defer s.teardownSession(session)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		session.writePump(s.stats)
	}()

	session.Send(protocol.Frame{
		Type:    protocol.TypeOK,
		Content: fmt.Sprintf("Welcome to Cyber Chat, %s! 🚀", session.Username),
	})
	s.router.System(fmt.Sprintf("'%s' has joined the chat", session.Username), session.Username)
	s.router.PresenceBroadcast()
	s.events.Publish(EventJoin, session.Username, session.Addr())

	session.log.Info("joined the chat")

	s.readLoop(session)
}

// handshake performs the single-shot username registration. Any failure
// closes the socket; no retry prompt is issued.
func (s *Server) handshake(conn net.Conn) (*Session, bool) {
	log := s.log.WithField("addr", conn.RemoteAddr().String())

	if _, err := conn.Write(protocol.Encode(protocol.TypeWelcome, "Enter your username: ")); err != nil {
		log.WithError(err).Debug("welcome prompt failed")
		closeConn(conn, log)
		return nil, false
	}

	// The first inbound payload is the raw username, not a tagged frame.
	buf := make([]byte, s.cfg.MaxMessageSize)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		closeConn(conn, log)
		return nil, false
	}

	username := SanitizeUsername(string(buf[:n]))
	if !ValidateUsername(username) {
		_, _ = conn.Write(protocol.Encode(protocol.TypeError, "Invalid username"))
		log.Info("handshake rejected: invalid username")
		closeConn(conn, log)
		return nil, false
	}

	if s.registry.Count() >= s.cfg.MaxClients {
		_, _ = conn.Write(protocol.Encode(protocol.TypeError, "Server is full"))
		log.Warn("handshake rejected: server full")
		closeConn(conn, log)
		return nil, false
	}

	session := NewSession(conn, username, s.cfg.RateLimit, s.log)
	if err := s.registry.TryRegister(session); err != nil {
		_, _ = conn.Write(protocol.Encode(protocol.TypeError,
			fmt.Sprintf("Username '%s' is already taken", username)))
		log.WithField("user", username).Info("handshake rejected: username taken")
		closeConn(conn, log)
		return nil, false
	}

	s.stats.ObserveSessions(s.registry.Count())
	return session, true
}

// readLoop decodes inbound data into frames and dispatches them until
// the connection ends. A frame split across reads is reassembled by the
// decoder's carry buffer.
func (s *Server) readLoop(session *Session) {
	decoder := protocol.NewDecoder(s.cfg.MaxMessageSize)
	buf := make([]byte, s.cfg.MaxMessageSize)

	for {
		n, err := session.conn.Read(buf)
		if n > 0 {
			s.stats.AddBytesReceived(n)
			session.addBytesReceived(n)
			session.Touch()

			for _, frame := range decoder.Push(buf[:n]) {
				if !session.allowMessage() {
					session.log.Debug("rate limit exceeded; discarding message")
					continue
				}
				if !s.dispatch(session, frame) {
					return
				}
			}
		}
		if err != nil {
			if !isExpectedCloseError(err) {
				session.log.WithError(err).Debug("read failed")
			}
			return
		}
	}
}

// dispatch handles one decoded inbound frame. It returns false when the
// connection should close.
func (s *Server) dispatch(session *Session, frame protocol.Frame) bool {
	cmd := protocol.ParseCommand(frame.Content)

	switch cmd.Kind {
	case protocol.CmdQuit:
		return false

	case protocol.CmdList:
		s.router.PresenceTo(session)

	case protocol.CmdStatus:
		s.router.ChangeStatus(session, cmd.Status)

	case protocol.CmdDirect:
		s.router.Direct(session, cmd.Target, cmd.Text)

	case protocol.CmdChat:
		if cmd.Text != "" {
			s.router.Broadcast(session, cmd.Text)
		}

	case protocol.CmdIgnore:
		// Malformed command line; dropped without a reply.
	}

	return true
}

// teardownSession removes a session and announces its departure. Runs
// exactly once per connection even when a socket error races an explicit
// QUIT or an admin kick: the registry removal is the gate, and it always
// precedes the socket close.
func (s *Server) teardownSession(session *Session) {
	session.teardown.Do(func() {
		removed := s.registry.Unregister(session.Username)
		if removed {
			s.router.System(fmt.Sprintf("'%s' has left the chat", session.Username), "")
			s.router.PresenceBroadcast()
			s.events.Publish(EventLeave, session.Username, session.Addr())
			session.log.Info("left the chat")
		}
		session.Close()
	})
}

// Kick sends a KICK frame to the target and closes its session, driving
// the normal teardown path. Invoked from the admin surface only.
func (s *Server) Kick(username, reason string) error {
	session, exists := s.registry.Get(username)
	if !exists {
		return fmt.Errorf("kick %s: %w", username, ErrSessionNotFound)
	}

	if reason == "" {
		reason = "Kicked by admin"
	}

	session.Send(protocol.Frame{Type: protocol.TypeKick, Content: reason})
	s.log.WithFields(logrus.Fields{"user": username, "reason": reason}).Info("kicked user")
	s.events.Publish(EventKick, username, reason)

	// Closing the session flushes the KICK frame and then the socket;
	// the connection goroutine performs the shared teardown.
	session.Close()
	return nil
}

// AdminBroadcast sends an operator notice to every current session.
func (s *Server) AdminBroadcast(text string) {
	s.router.System(fmt.Sprintf("📢 ADMIN: %s", text), "")
	s.log.WithField("message", text).Info("admin broadcast")
	s.events.Publish(EventAdmin, "", text)
}

// reapIdleSessions enforces the liveness policy: sessions silent for
// longer than IdleTimeout are kicked. Enforcement is opt-in; with
// IdleTimeout zero the reaper never starts.
func (s *Server) reapIdleSessions() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			for _, session := range s.registry.Snapshot() {
				if time.Since(session.LastActivity()) > s.cfg.IdleTimeout {
					session.log.Info("disconnecting idle session")
					_ = s.Kick(session.Username, "Idle timeout")
				}
			}
		}
	}
}

// Shutdown stops accepting connections, notifies and disconnects every
// session, and waits for connection goroutines to finish or the timeout
// to expire.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.log.Info("initiating chat server shutdown")
	s.cancel()

	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		if err := listener.Close(); err != nil && !isExpectedCloseError(err) {
			s.log.WithError(err).Warn("closing listener")
		}
	}

	s.router.System("Server shutting down. Goodbye!", "")
	for _, session := range s.registry.Snapshot() {
		session.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("chat server shutdown completed")
		return nil
	case <-time.After(timeout):
		s.log.Warn("chat server shutdown timeout reached")
		return context.DeadlineExceeded
	}
}

func closeConn(conn net.Conn, log logrus.FieldLogger) {
	if err := conn.Close(); err != nil && !isExpectedCloseError(err) {
		log.WithError(err).Debug("closing connection")
	}
}
