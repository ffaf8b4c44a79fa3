// Package protocol implements the line-oriented wire format used between
// the Cyber Chat server and its clients. Every frame on the wire is a
// single newline-terminated line of the form "TYPE|content".
package protocol

import "fmt"

// Frame type tags sent by the server. Clients send raw payloads (see
// ParseCommand); only the server emits tagged frames.
const (
	TypeWelcome = "WELCOME"
	TypeOK      = "OK"
	TypeError   = "ERROR"
	TypeMsg     = "MSG"
	TypeSent    = "SENT"
	TypeSystem  = "SYSTEM"
	TypeUsers   = "USERS"
	TypeKick    = "KICK"
)

// Frame is one unit of the wire protocol. Frames are immutable values;
// construct a new one rather than mutating.
type Frame struct {
	Type    string
	Content string
}

// Encode serializes a frame into its wire representation, including the
// trailing newline.
func Encode(frameType, content string) []byte {
	return []byte(fmt.Sprintf("%s|%s\n", frameType, content))
}

// Bytes returns the wire representation of the frame.
func (f Frame) Bytes() []byte {
	return Encode(f.Type, f.Content)
}

func (f Frame) String() string {
	return f.Type + "|" + f.Content
}

// knownTypes is the set of tags that decode into their own frame type.
// Anything else degrades to an implicit MSG frame.
var knownTypes = map[string]struct{}{
	TypeWelcome: {},
	TypeOK:      {},
	TypeError:   {},
	TypeMsg:     {},
	TypeSent:    {},
	TypeSystem:  {},
	TypeUsers:   {},
	TypeKick:    {},
}

// IsKnownType reports whether tag is one of the protocol's frame types.
func IsKnownType(tag string) bool {
	_, ok := knownTypes[tag]
	return ok
}
