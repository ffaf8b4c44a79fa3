package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderSingleFrame(t *testing.T) {
	d := NewDecoder(4096)

	frames := d.Push([]byte("MSG|hello\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, Frame{Type: TypeMsg, Content: "hello"}, frames[0])
	assert.Zero(t, d.Pending())
}

func TestDecoderMultipleFramesInOneRead(t *testing.T) {
	d := NewDecoder(4096)

	frames := d.Push([]byte("SYSTEM|'bob' has joined the chat\nUSERS|Online: alice(online), bob(online)\n"))
	require.Len(t, frames, 2)
	assert.Equal(t, TypeSystem, frames[0].Type)
	assert.Equal(t, TypeUsers, frames[1].Type)
	assert.Equal(t, "Online: alice(online), bob(online)", frames[1].Content)
}

func TestDecoderFrameSplitAcrossReads(t *testing.T) {
	d := NewDecoder(4096)

	frames := d.Push([]byte("MSG|hel"))
	assert.Empty(t, frames)
	assert.Equal(t, 7, d.Pending())

	frames = d.Push([]byte("lo\nMSG|again"))
	require.Len(t, frames, 1)
	assert.Equal(t, "hello", frames[0].Content)

	frames = d.Push([]byte("\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, "again", frames[0].Content)
	assert.Zero(t, d.Pending())
}

func TestDecoderLineWithoutSeparatorBecomesMsg(t *testing.T) {
	d := NewDecoder(4096)

	frames := d.Push([]byte("just some chat text\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, Frame{Type: TypeMsg, Content: "just some chat text"}, frames[0])
}

func TestDecoderUnknownTagDegradesToMsg(t *testing.T) {
	d := NewDecoder(4096)

	frames := d.Push([]byte("NOPE|content\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, TypeMsg, frames[0].Type)
	assert.Equal(t, "NOPE|content", frames[0].Content)
}

func TestDecoderDiscardsEmptyLines(t *testing.T) {
	d := NewDecoder(4096)

	frames := d.Push([]byte("\n\n  \nMSG|kept\n\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, "kept", frames[0].Content)
}

func TestDecoderStripsCarriageReturn(t *testing.T) {
	d := NewDecoder(4096)

	frames := d.Push([]byte("MSG|windows line\r\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, "windows line", frames[0].Content)
}

func TestDecoderFlushesOversizedCarry(t *testing.T) {
	d := NewDecoder(16)

	frames := d.Push([]byte(strings.Repeat("a", 32)))
	require.Len(t, frames, 1)
	assert.Equal(t, TypeMsg, frames[0].Type)
	assert.Len(t, frames[0].Content, 32)
	assert.Zero(t, d.Pending())
}

func TestDecoderUnboundedCarryWhenDisabled(t *testing.T) {
	d := NewDecoder(0)

	frames := d.Push([]byte(strings.Repeat("a", 1<<16)))
	assert.Empty(t, frames)
	assert.Equal(t, 1<<16, d.Pending())
}
