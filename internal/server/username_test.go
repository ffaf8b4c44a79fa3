package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "alice", SanitizeUsername("alice"))
	assert.Equal(t, "alice", SanitizeUsername("  alice\n"))
	assert.Equal(t, "al_ice-99", SanitizeUsername("al_ice-99"))
	assert.Equal(t, "alice", SanitizeUsername("a!l@i#c$e"))
	assert.Equal(t, "", SanitizeUsername("!@#$%"))
	assert.Equal(t, "", SanitizeUsername(""))
}

func TestSanitizeUsernameTruncates(t *testing.T) {
	long := strings.Repeat("a", 50)
	assert.Len(t, SanitizeUsername(long), 20)
}

func TestValidateUsername(t *testing.T) {
	assert.True(t, ValidateUsername("alice"))
	assert.True(t, ValidateUsername("ab"))
	assert.True(t, ValidateUsername("a_b-c"))

	assert.False(t, ValidateUsername(""), "empty")
	assert.False(t, ValidateUsername("a"), "too short")
	assert.False(t, ValidateUsername(strings.Repeat("a", 21)), "too long")
	assert.False(t, ValidateUsername("1alice"), "must start with a letter")
	assert.False(t, ValidateUsername("_alice"), "must start with a letter")
	assert.False(t, ValidateUsername("-alice"), "must start with a letter")
}
