package server

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestSession(username string) *Session {
	return NewSession(nil, username, RateLimitConfig{Burst: 100, RefillInterval: 1}, testLogger())
}

func TestRegistryTryRegister(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.TryRegister(newTestSession("alice")))
	assert.Equal(t, 1, reg.Count())

	err := reg.TryRegister(newTestSession("alice"))
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Equal(t, 1, reg.Count())
}

func TestRegistryUsernamesAreCaseSensitive(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.TryRegister(newTestSession("alice")))
	require.NoError(t, reg.TryRegister(newTestSession("Alice")))
	assert.Equal(t, 2, reg.Count())
}

func TestRegistryConcurrentRegistrationUniqueness(t *testing.T) {
	reg := NewRegistry()

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- reg.TryRegister(newTestSession("contested"))
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		if err == nil {
			wins++
		} else if errors.Is(err, ErrUsernameTaken) {
			losses++
		}
	}

	assert.Equal(t, 1, wins, "exactly one registration must win")
	assert.Equal(t, attempts-1, losses)
	assert.Equal(t, 1, reg.Count())
}

func TestRegistryUnregisterIdempotent(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.TryRegister(newTestSession("alice")))

	assert.True(t, reg.Unregister("alice"))
	assert.False(t, reg.Unregister("alice"))
	assert.False(t, reg.Unregister("never-registered"))
	assert.Equal(t, 0, reg.Count())
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry()
	session := newTestSession("alice")
	require.NoError(t, reg.TryRegister(session))

	got, exists := reg.Get("alice")
	assert.True(t, exists)
	assert.Same(t, session, got)

	_, exists = reg.Get("bob")
	assert.False(t, exists)
}

func TestRegistrySetStatus(t *testing.T) {
	reg := NewRegistry()
	session := newTestSession("alice")
	require.NoError(t, reg.TryRegister(session))

	require.NoError(t, reg.SetStatus("alice", StatusAway))
	assert.Equal(t, StatusAway, session.Status())

	err := reg.SetStatus("bob", StatusBusy)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistryListContainsEachMemberOnce(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 5; i++ {
		require.NoError(t, reg.TryRegister(newTestSession(fmt.Sprintf("user%d", i))))
	}
	require.True(t, reg.Unregister("user2"))

	list := reg.List()
	seen := make(map[string]int)
	for _, p := range list {
		seen[p.Username]++
	}

	assert.Len(t, list, 4)
	for _, name := range []string{"user0", "user1", "user3", "user4"} {
		assert.Equal(t, 1, seen[name], name)
	}
	assert.Zero(t, seen["user2"])
}

func TestRegistrySnapshotIsOwnedCopy(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.TryRegister(newTestSession("alice")))

	snapshot := reg.Snapshot()
	require.Len(t, snapshot, 1)

	reg.Unregister("alice")
	assert.Len(t, snapshot, 1, "snapshot must not observe later mutations")
}
