package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsCounters(t *testing.T) {
	stats := NewStats()

	stats.AddMessage()
	stats.AddMessage()
	stats.AddBytesSent(100)
	stats.AddBytesReceived(40)
	stats.ConnectionAccepted()

	snap := stats.Snapshot()
	assert.Equal(t, uint64(2), snap.Messages)
	assert.Equal(t, uint64(100), snap.BytesSent)
	assert.Equal(t, uint64(40), snap.BytesReceived)
	assert.Equal(t, uint64(1), snap.TotalConnections)
}

func TestStatsIgnoresNonPositiveBytes(t *testing.T) {
	stats := NewStats()

	stats.AddBytesSent(0)
	stats.AddBytesSent(-5)
	stats.AddBytesReceived(-1)

	snap := stats.Snapshot()
	assert.Zero(t, snap.BytesSent)
	assert.Zero(t, snap.BytesReceived)
}

func TestStatsPeakSessions(t *testing.T) {
	stats := NewStats()

	stats.ObserveSessions(3)
	stats.ObserveSessions(7)
	stats.ObserveSessions(2)

	assert.Equal(t, 7, stats.Snapshot().PeakSessions)
}

func TestStatsConcurrentUpdates(t *testing.T) {
	stats := NewStats()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats.AddMessage()
			stats.AddBytesSent(10)
			stats.AddBytesReceived(10)
			stats.ConnectionAccepted()
		}()
	}
	wg.Wait()

	snap := stats.Snapshot()
	assert.Equal(t, uint64(50), snap.Messages)
	assert.Equal(t, uint64(500), snap.BytesSent)
	assert.Equal(t, uint64(500), snap.BytesReceived)
	assert.Equal(t, uint64(50), snap.TotalConnections)
}
