// Package server tracks aggregate, process-wide chat statistics for the
// admin dashboard.
package server

import (
	"sync"
	"time"
)

// Stats holds the server-wide counters: messages routed, bytes moved,
// peak concurrent sessions, and total connections accepted. Counters are
// reset only on process restart.
type Stats struct {
	mu               sync.Mutex
	startTime        time.Time
	messages         uint64
	bytesSent        uint64
	bytesReceived    uint64
	peakSessions     int
	totalConnections uint64
}

// NewStats creates a zeroed stats tracker anchored at the current time.
func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

// AddMessage records one routed message.
func (s *Stats) AddMessage() {
	s.mu.Lock()
	s.messages++
	s.mu.Unlock()
}

// AddBytesSent records n bytes written to some client socket.
func (s *Stats) AddBytesSent(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.bytesSent += uint64(n)
	s.mu.Unlock()
}

// AddBytesReceived records n bytes read from some client socket.
func (s *Stats) AddBytesReceived(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.bytesReceived += uint64(n)
	s.mu.Unlock()
}

// ConnectionAccepted records one accepted connection, before any
// handshake outcome is known.
func (s *Stats) ConnectionAccepted() {
	s.mu.Lock()
	s.totalConnections++
	s.mu.Unlock()
}

// ObserveSessions updates the peak concurrent session count.
func (s *Stats) ObserveSessions(current int) {
	s.mu.Lock()
	if current > s.peakSessions {
		s.peakSessions = current
	}
	s.mu.Unlock()
}

// StatsSnapshot is a read-only copy of the aggregate counters.
type StatsSnapshot struct {
	StartTime        time.Time `json:"start_time"`
	UptimeSeconds    int64     `json:"uptime_seconds"`
	Messages         uint64    `json:"messages"`
	BytesSent        uint64    `json:"bytes_sent"`
	BytesReceived    uint64    `json:"bytes_received"`
	PeakSessions     int       `json:"peak_sessions"`
	TotalConnections uint64    `json:"total_connections"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StatsSnapshot{
		StartTime:        s.startTime,
		UptimeSeconds:    int64(time.Since(s.startTime).Seconds()),
		Messages:         s.messages,
		BytesSent:        s.bytesSent,
		BytesReceived:    s.bytesReceived,
		PeakSessions:     s.peakSessions,
		TotalConnections: s.totalConnections,
	}
}
